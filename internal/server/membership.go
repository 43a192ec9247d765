package server

import (
	"net/http"
	"strings"

	membershipdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/membership/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListMembershipLevels(c *gin.Context) {
	levels, err := s.membershipSvc.ListLevels(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": levels})
}

func (s *Server) CreateMembershipLevel(c *gin.Context) {
	var req membershipdomain.CreateLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	level, err := s.membershipSvc.CreateLevel(c.Request.Context(), membershipdomain.CreateLevelRequest{
		ID:            strings.TrimSpace(req.ID),
		Name:          strings.TrimSpace(req.Name),
		Capabilities:  req.Capabilities,
		Priority:      req.Priority,
		CourseLimit:   req.CourseLimit,
		DownloadLimit: req.DownloadLimit,
		SupportLevel:  strings.TrimSpace(req.SupportLevel),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": level})
}

func (s *Server) SetContentRule(c *gin.Context) {
	var req struct {
		ContentType     string `json:"content_type"`
		ContentID       string `json:"content_id"`
		RequiredLevelID string `json:"required_level_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.membershipSvc.SetContentRule(c.Request.Context(),
		strings.TrimSpace(req.ContentType),
		strings.TrimSpace(req.ContentID),
		strings.TrimSpace(req.RequiredLevelID))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"updated": true}})
}

func (s *Server) GetUserLevel(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	level, err := s.membershipSvc.GetLevel(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": level})
}

func (s *Server) SetUserLevel(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	var req struct {
		LevelID  string         `json:"level_id"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.membershipSvc.SetLevel(c.Request.Context(), userID, strings.TrimSpace(req.LevelID), req.Metadata); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"level_id": req.LevelID}})
}

func (s *Server) GetLevelHistory(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	history, err := s.membershipSvc.History(c.Request.Context(), userID, parseLimit(c, 50))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": history})
}

func (s *Server) CheckContentAccess(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	contentType := strings.TrimSpace(c.Query("content_type"))
	contentID := strings.TrimSpace(c.Query("content_id"))
	if contentType == "" {
		AbortWithError(c, newValidationError("content_type", "invalid_content_type", "invalid content_type"))
		return
	}

	decision, err := s.membershipSvc.CanAccessContent(c.Request.Context(), userID, contentType, contentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": decision})
}

func (s *Server) RecordUsage(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	var req struct {
		Kind string `json:"kind"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.membershipSvc.RecordUsage(c.Request.Context(), userID, strings.TrimSpace(req.Kind)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"recorded": true}})
}
