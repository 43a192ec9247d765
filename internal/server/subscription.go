package server

import (
	"context"
	"net/http"
	"strings"

	subscriptiondomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/subscription/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateSubscription(c *gin.Context) {
	var req subscriptiondomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Create(c.Request.Context(), subscriptiondomain.CreateRequest{
		UserID:       strings.TrimSpace(req.UserID),
		PlanID:       strings.TrimSpace(req.PlanID),
		Tier:         strings.TrimSpace(req.Tier),
		Amount:       req.Amount,
		Currency:     strings.TrimSpace(req.Currency),
		BillingCycle: strings.TrimSpace(req.BillingCycle),
		StartAt:      req.StartAt,
		TrialDays:    req.TrialDays,
		IsBundle:     req.IsBundle,
		BundleItems:  req.BundleItems,
		Metadata:     req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSubscriptions(c *gin.Context) {
	var query struct {
		UserID string `form:"user_id"`
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.List(c.Request.Context(), subscriptiondomain.ListRequest{
		UserID: strings.TrimSpace(query.UserID),
		Status: strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSubscriptionByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	item, err := s.subscriptionSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) UpdateSubscription(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	var req subscriptiondomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.subscriptionSvc.Update(c.Request.Context(), id, req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"updated": true}})
}

func (s *Server) PauseSubscription(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.subscriptionSvc.Pause(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "paused"}})
}

func (s *Server) ResumeSubscription(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.subscriptionSvc.Resume(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "active"}})
}

func (s *Server) CancelSubscription(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	var req struct {
		Immediate bool `json:"immediate"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	if err := s.subscriptionSvc.Cancel(c.Request.Context(), id, req.Immediate); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"cancelled": true, "immediate": req.Immediate}})
}

func (s *Server) UpgradeSubscription(c *gin.Context) {
	s.changePlan(c, s.subscriptionSvc.Upgrade)
}

func (s *Server) DowngradeSubscription(c *gin.Context) {
	s.changePlan(c, s.subscriptionSvc.Downgrade)
}

func (s *Server) changePlan(c *gin.Context, fn func(ctx context.Context, id string, req subscriptiondomain.ChangePlanRequest) error) {
	id := strings.TrimSpace(c.Param("id"))
	var req subscriptiondomain.ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := fn(c.Request.Context(), id, subscriptiondomain.ChangePlanRequest{
		PlanID: strings.TrimSpace(req.PlanID),
		Tier:   strings.TrimSpace(req.Tier),
	}); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"plan_id": req.PlanID, "tier": req.Tier}})
}

func (s *Server) GetActiveSubscription(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	item, err := s.subscriptionSvc.GetActive(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}
