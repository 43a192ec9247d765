package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	loyaltydomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/loyalty/domain"
	"github.com/gin-gonic/gin"
)

func parseLimit(c *gin.Context, def int) int {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

func (s *Server) AwardPoints(c *gin.Context) {
	var req loyaltydomain.AwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.loyaltySvc.Award(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"awarded": req.Points}})
}

func (s *Server) DeductPoints(c *gin.Context) {
	var req loyaltydomain.AwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.loyaltySvc.Deduct(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deducted": req.Points}})
}

func (s *Server) GetPointsBalance(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	balance, err := s.loyaltySvc.Balance(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"balance": balance}})
}

func (s *Server) GetPointsHistory(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	history, err := s.loyaltySvc.History(c.Request.Context(), userID, parseLimit(c, 50))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": history})
}

func (s *Server) ListRewards(c *gin.Context) {
	activeOnly := strings.EqualFold(strings.TrimSpace(c.Query("active")), "true")
	rewards, err := s.loyaltySvc.ListRewards(c.Request.Context(), activeOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rewards})
}

func (s *Server) CreateReward(c *gin.Context) {
	var req loyaltydomain.CreateRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	reward, err := s.loyaltySvc.CreateReward(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reward})
}

func (s *Server) CanRedeemReward(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	rewardID := strings.TrimSpace(c.Param("rewardId"))

	if err := s.loyaltySvc.CanRedeem(c.Request.Context(), userID, rewardID); err != nil {
		var redeemErr *loyaltydomain.RedeemError
		if errors.As(err, &redeemErr) {
			c.JSON(http.StatusOK, gin.H{"data": gin.H{"can_redeem": false, "reason": redeemErr.Reason}})
			return
		}
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"can_redeem": true}})
}

func (s *Server) RedeemReward(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	rewardID := strings.TrimSpace(c.Param("rewardId"))

	result, err := s.loyaltySvc.Redeem(c.Request.Context(), userID, rewardID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}
