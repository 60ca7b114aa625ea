package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"historymaker/internal/visuals"
)

func (s *Server) autoTag(c *gin.Context) {
	result, err := s.visuals.AutoTag(c.Request.Context(), userIDFromContext(c), c.Param("script_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, result)
}

func (s *Server) listVisuals(c *gin.Context) {
	slots, err := s.store.ListVisuals(userIDFromContext(c), c.Param("script_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, slots)
}

func (s *Server) searchImages(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req visuals.SearchImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Invalid search payload")
		return
	}
	results, err := s.visuals.SearchImages(c.Request.Context(), userIDFromContext(c), c.Param("visual_id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, results)
}

func (s *Server) listVariants(c *gin.Context) {
	variants, err := s.store.ListVariants(userIDFromContext(c), c.Param("visual_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, variants)
}

type addVariantRequest struct {
	SourceURL string `json:"source_url" binding:"required"`
}

func (s *Server) addVariantFromURL(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req addVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "source_url is required")
		return
	}
	variant, err := s.visuals.AddVariantFromURL(c.Request.Context(), userIDFromContext(c), c.Param("visual_id"), req.SourceURL)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusCreated, variant)
}

func (s *Server) generateVariant(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req visuals.GenerateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Invalid generate payload")
		return
	}
	variant, err := s.visuals.GenerateVariant(c.Request.Context(), userIDFromContext(c), c.Param("visual_id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusCreated, variant)
}

// uploadVariant takes the image as the raw request body; the Content-Type
// header names the format.
func (s *Server) uploadVariant(c *gin.Context) {
	contentType := c.ContentType()
	if !strings.HasPrefix(contentType, "image/") {
		writeBadRequest(c, "Content-Type must be an image type")
		return
	}
	data, err := c.GetRawData()
	if err != nil || len(data) == 0 {
		writeBadRequest(c, "Empty upload body")
		return
	}
	variant, err := s.visuals.UploadVariant(c.Request.Context(), userIDFromContext(c), c.Param("visual_id"), data, contentType)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusCreated, variant)
}

func (s *Server) filterVariant(c *gin.Context) {
	variant, err := s.visuals.FilterVariant(c.Request.Context(), userIDFromContext(c), c.Param("variant_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, variant)
}

func (s *Server) selectVariant(c *gin.Context) {
	variant, err := s.store.SelectVariant(userIDFromContext(c), c.Param("variant_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeData(c, http.StatusOK, variant)
}
