package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"historymaker/internal/music"
)

func (s *Server) analyzeMusic(c *gin.Context) {
	analysis, err := s.music.Analyze(c.Request.Context(), userIDFromContext(c), c.Param("video_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, analysis)
}

func (s *Server) searchMusic(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req music.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Invalid search payload")
		return
	}
	tracks, err := s.music.Search(c.Request.Context(), userIDFromContext(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, tracks)
}

type selectMusicRequest struct {
	TrackIDs []string `json:"track_ids" binding:"required"`
}

func (s *Server) selectMusic(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req selectMusicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "track_ids is required")
		return
	}
	selection, err := s.music.Save(c.Request.Context(), userIDFromContext(c), c.Param("video_id"), req.TrackIDs)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, selection)
}

func (s *Server) getMusic(c *gin.Context) {
	selection, err := s.store.GetMusicSelection(userIDFromContext(c), c.Param("video_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, selection)
}

func (s *Server) exportStatus(c *gin.Context) {
	summary, err := s.exports.Summarize(c.Request.Context(), userIDFromContext(c), c.Param("video_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, summary)
}

func (s *Server) exportDownload(c *gin.Context) {
	assetType := c.Query("type")
	data, filename, err := s.exports.Bundle(c.Request.Context(), userIDFromContext(c), c.Param("video_id"), assetType)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/zip", data)
}

func (s *Server) exportAsset(c *gin.Context) {
	index := 0
	if raw := c.Query("index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(c, "index must be a non-negative integer")
			return
		}
		index = n
	}
	asset, inline, err := s.exports.AssetAt(c.Request.Context(), userIDFromContext(c), c.Param("video_id"), c.Query("type"), index)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if inline != nil {
		c.Header("Content-Disposition", `attachment; filename="`+asset.Name+`"`)
		c.Data(http.StatusOK, asset.ContentType, inline)
		return
	}
	c.Redirect(http.StatusFound, asset.URL)
}

func (s *Server) exportDownloadAll(c *gin.Context) {
	data, filename, err := s.exports.BundleAll(c.Request.Context(), userIDFromContext(c), c.Param("video_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/zip", data)
}
