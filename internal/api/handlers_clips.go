package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"historymaker/internal/clips"
)

// generateClip submits the clip and returns immediately; the server polls
// the operation in the background and the client reads progress from the
// clip record.
func (s *Server) generateClip(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req clips.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Invalid clip payload")
		return
	}
	clip, err := s.clips.Generate(c.Request.Context(), userIDFromContext(c), c.Param("visual_id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusAccepted, clip)
}

func (s *Server) getClip(c *gin.Context) {
	clip, err := s.store.GetClipForVisual(userIDFromContext(c), c.Param("visual_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, clip)
}

func (s *Server) generateAllClips(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req clips.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Invalid clip payload")
		return
	}
	submitted, err := s.clips.GenerateAll(c.Request.Context(), userIDFromContext(c), c.Param("script_id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusAccepted, submitted)
}

func (s *Server) listClips(c *gin.Context) {
	list, err := s.store.ListClips(userIDFromContext(c), c.Param("script_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, list)
}
