package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"historymaker/internal/planner"
)

func parseDate(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}

type createSeriesRequest struct {
	Topic string `json:"topic" binding:"required"`
}

func (s *Server) createSeries(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req createSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Topic is required")
		return
	}
	series, err := s.store.CreateSeries(userIDFromContext(c), strings.TrimSpace(req.Topic))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusCreated, series)
}

func (s *Server) listSeries(c *gin.Context) {
	writeData(c, http.StatusOK, s.store.ListSeries(userIDFromContext(c)))
}

func (s *Server) getSeries(c *gin.Context) {
	series, err := s.store.GetSeries(userIDFromContext(c), c.Param("series_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, series)
}

func (s *Server) patchSeries(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req createSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Topic is required")
		return
	}
	series, err := s.store.UpdateSeriesTopic(userIDFromContext(c), c.Param("series_id"), strings.TrimSpace(req.Topic))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, series)
}

func (s *Server) deleteSeries(c *gin.Context) {
	if err := s.store.DeleteSeries(userIDFromContext(c), c.Param("series_id")); err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) generateCalendar(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req planner.CalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Invalid plan payload")
		return
	}
	videos, err := s.planner.GenerateCalendar(c.Request.Context(), userIDFromContext(c), c.Param("series_id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusCreated, videos)
}

func (s *Server) regenerateSlot(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req planner.SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Invalid slot payload")
		return
	}
	video, err := s.planner.RegenerateSlot(c.Request.Context(), userIDFromContext(c), c.Param("series_id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, video)
}

func (s *Server) luckyTopic(c *gin.Context) {
	topic, err := s.planner.LuckyTopic(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{"topic": topic})
}

func (s *Server) listVideos(c *gin.Context) {
	videos, err := s.store.ListVideos(userIDFromContext(c), c.Param("series_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, videos)
}

func (s *Server) getVideo(c *gin.Context) {
	video, err := s.store.GetVideo(userIDFromContext(c), c.Param("video_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, video)
}

type patchVideoRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	ScheduledDate *string `json:"scheduled_date"`
}

func (s *Server) patchVideo(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req patchVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Invalid video payload")
		return
	}
	userID := userIDFromContext(c)
	video, err := s.store.GetVideo(userID, c.Param("video_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if req.Title != nil {
		video.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		video.Description = *req.Description
	}
	if req.ScheduledDate != nil {
		scheduled, err := parseDate(*req.ScheduledDate)
		if err != nil {
			writeBadRequest(c, "scheduled_date must be RFC 3339")
			return
		}
		video.ScheduledDate = scheduled
	}
	video, err = s.store.UpdateVideo(userID, video)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, video)
}

func (s *Server) deleteVideo(c *gin.Context) {
	if err := s.store.DeleteVideo(userIDFromContext(c), c.Param("video_id")); err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{"deleted": true})
}
