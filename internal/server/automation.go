package server

import (
	"net/http"
	"strings"

	automationdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/automation/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListAutomations(c *gin.Context) {
	var query struct {
		Status      string `form:"status"`
		TriggerType string `form:"trigger_type"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items, err := s.automationSvc.List(c.Request.Context(), automationdomain.ListRequest{
		Status:      strings.TrimSpace(query.Status),
		TriggerType: strings.TrimSpace(query.TriggerType),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) CreateAutomation(c *gin.Context) {
	var req automationdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	automation, err := s.automationSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": automation})
}

func (s *Server) GetAutomationByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	automation, err := s.automationSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": automation})
}

func (s *Server) UpdateAutomation(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	var req automationdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.automationSvc.Update(c.Request.Context(), id, req); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"updated": true}})
}

func (s *Server) DeleteAutomation(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.automationSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) GetAutomationLogs(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	logs, err := s.automationSvc.Logs(c.Request.Context(), id, parseLimit(c, 50))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (s *Server) TriggerAutomations(c *gin.Context) {
	var req struct {
		TriggerType string         `json:"trigger_type"`
		Data        map[string]any `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	results, err := s.automationSvc.Trigger(c.Request.Context(), strings.TrimSpace(req.TriggerType), req.Data)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}
