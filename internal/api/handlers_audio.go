package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"historymaker/internal/audio"
)

type tagAudioRequest struct {
	Script string `json:"script" binding:"required"`
}

// tagAudio inserts delivery tags into a script before synthesis. Purely
// ephemeral; the tagged text only persists when a take is saved.
func (s *Server) tagAudio(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req tagAudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Script is required")
		return
	}
	tagged, err := s.audio.Tag(c.Request.Context(), userIDFromContext(c), req.Script)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{"tagged_script": tagged})
}

func (s *Server) generateTake(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req audio.TakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Invalid take payload")
		return
	}
	take, err := s.audio.GenerateTake(c.Request.Context(), userIDFromContext(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, take)
}

func (s *Server) saveTake(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req audio.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Invalid save payload")
		return
	}
	saved, err := s.audio.SaveTake(c.Request.Context(), userIDFromContext(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusCreated, saved)
}

func (s *Server) listAudio(c *gin.Context) {
	takes, err := s.store.ListAudios(userIDFromContext(c), c.Param("script_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, takes)
}

func (s *Server) deleteAudio(c *gin.Context) {
	if err := s.store.DeleteAudio(userIDFromContext(c), c.Param("audio_id")); err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{"deleted": true})
}
