package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"historymaker/internal/model"
	"historymaker/internal/tts"
)

type signupRequest struct {
	Email string `json:"email" binding:"required"`
}

// signup creates an account and hands back its bearer token. The token is
// shown exactly once; it never appears in user payloads afterwards.
func (s *Server) signup(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Email is required")
		return
	}
	user, err := s.store.CreateUser(strings.TrimSpace(req.Email))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusCreated, gin.H{
		"user":  user,
		"token": user.Token,
	})
}

func (s *Server) me(c *gin.Context) {
	user, err := s.store.GetUser(userIDFromContext(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, user)
}

func (s *Server) getSettings(c *gin.Context) {
	settings := s.store.GetSettings(userIDFromContext(c))
	writeData(c, http.StatusOK, redactSettings(settings))
}

func (s *Server) putSettings(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var settings model.UserSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		writeBadRequest(c, "Invalid settings payload")
		return
	}
	settings.UserID = userIDFromContext(c)
	settings = mergeMaskedKeys(settings, s.store.GetSettings(settings.UserID))
	if err := s.store.SaveSettings(settings); err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, redactSettings(settings))
}

// mergeMaskedKeys keeps a stored credential when the client echoes back
// the redacted form instead of a new value.
func mergeMaskedKeys(incoming, stored model.UserSettings) model.UserSettings {
	incoming.ElevenLabsKey = pickKey(incoming.ElevenLabsKey, stored.ElevenLabsKey)
	incoming.GeminiKey = pickKey(incoming.GeminiKey, stored.GeminiKey)
	incoming.MusicCatalogKey = pickKey(incoming.MusicCatalogKey, stored.MusicCatalogKey)
	return incoming
}

func pickKey(incoming, stored string) string {
	if strings.HasPrefix(incoming, "****") {
		return stored
	}
	return incoming
}

// redactSettings masks stored credentials so the settings screen can show
// which ones are set without echoing them back.
func redactSettings(settings model.UserSettings) model.UserSettings {
	settings.ElevenLabsKey = maskKey(settings.ElevenLabsKey)
	settings.GeminiKey = maskKey(settings.GeminiKey)
	settings.MusicCatalogKey = maskKey(settings.MusicCatalogKey)
	return settings
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func (s *Server) listVoices(c *gin.Context) {
	writeData(c, http.StatusOK, tts.PremadeVoices)
}
