package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"historymaker/internal/script"
)

func (s *Server) generateScript(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req script.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Invalid script payload")
		return
	}
	result, err := s.scripts.Generate(c.Request.Context(), userIDFromContext(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, result)
}

func (s *Server) getScript(c *gin.Context) {
	result, err := s.store.GetScript(userIDFromContext(c), c.Param("video_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, result)
}

func (s *Server) wikipediaSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		writeBadRequest(c, "q is required")
		return
	}
	articles, err := s.wiki.Search(c.Request.Context(), query)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, articles)
}

func (s *Server) wikipediaContent(c *gin.Context) {
	pageID, err := strconv.Atoi(c.Query("page_id"))
	if err != nil || pageID <= 0 {
		writeBadRequest(c, "page_id must be a positive integer")
		return
	}
	article, err := s.wiki.Content(c.Request.Context(), pageID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, article)
}

type keywordsRequest struct {
	Topic string `json:"topic" binding:"required"`
}

func (s *Server) wikipediaKeywords(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req keywordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Topic is required")
		return
	}
	keywords, err := s.scripts.SearchKeywords(c.Request.Context(), req.Topic)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{"keywords": keywords})
}
