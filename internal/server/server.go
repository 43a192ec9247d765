package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/automation"
	automationdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/automation/domain"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/config"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/events"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/loyalty"
	loyaltydomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/loyalty/domain"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/membership"
	membershipdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/membership/domain"
	obslogger "github.com/Faiver55/skylearn-billing-pro-sub005/internal/observability/logger"
	obstracing "github.com/Faiver55/skylearn-billing-pro-sub005/internal/observability/tracing"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/providers/email"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/subscription"
	subscriptiondomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/subscription/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	events.Module,
	email.Module,
	subscription.Module,
	membership.Module,
	loyalty.Module,
	automation.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obstracing.GinMiddleware())
	r.Use(MetricsMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	subscriptionSvc subscriptiondomain.Service
	membershipSvc   membershipdomain.Service
	loyaltySvc      loyaltydomain.Service
	automationSvc   automationdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	SubscriptionSvc subscriptiondomain.Service
	MembershipSvc   membershipdomain.Service
	LoyaltySvc      loyaltydomain.Service
	AutomationSvc   automationdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		subscriptionSvc: p.SubscriptionSvc,
		membershipSvc:   p.MembershipSvc,
		loyaltySvc:      p.LoyaltySvc,
		automationSvc:   p.AutomationSvc,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func registerRoutes(s *Server) {
	s.RegisterAPIRoutes()
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Subscriptions --------
	api.GET("/subscriptions", s.ListSubscriptions)
	api.POST("/subscriptions", s.CreateSubscription)
	api.GET("/subscriptions/:id", s.GetSubscriptionByID)
	api.PATCH("/subscriptions/:id", s.UpdateSubscription)
	api.POST("/subscriptions/:id/pause", s.PauseSubscription)
	api.POST("/subscriptions/:id/resume", s.ResumeSubscription)
	api.POST("/subscriptions/:id/cancel", s.CancelSubscription)
	api.POST("/subscriptions/:id/upgrade", s.UpgradeSubscription)
	api.POST("/subscriptions/:id/downgrade", s.DowngradeSubscription)
	api.GET("/users/:userId/subscription", s.GetActiveSubscription)

	// -------- Membership --------
	api.GET("/membership/levels", s.ListMembershipLevels)
	api.POST("/membership/levels", s.CreateMembershipLevel)
	api.PUT("/membership/content-rules", s.SetContentRule)
	api.GET("/users/:userId/level", s.GetUserLevel)
	api.PUT("/users/:userId/level", s.SetUserLevel)
	api.GET("/users/:userId/level/history", s.GetLevelHistory)
	api.GET("/users/:userId/access", s.CheckContentAccess)
	api.POST("/users/:userId/usage", s.RecordUsage)

	// -------- Loyalty --------
	api.POST("/loyalty/award", s.AwardPoints)
	api.POST("/loyalty/deduct", s.DeductPoints)
	api.GET("/loyalty/rewards", s.ListRewards)
	api.POST("/loyalty/rewards", s.CreateReward)
	api.GET("/users/:userId/points", s.GetPointsBalance)
	api.GET("/users/:userId/points/history", s.GetPointsHistory)
	api.GET("/users/:userId/rewards/:rewardId/can-redeem", s.CanRedeemReward)
	api.POST("/users/:userId/rewards/:rewardId/redeem", s.RedeemReward)

	// -------- Automations --------
	api.GET("/automations", s.ListAutomations)
	api.POST("/automations", s.CreateAutomation)
	api.GET("/automations/:id", s.GetAutomationByID)
	api.PATCH("/automations/:id", s.UpdateAutomation)
	api.DELETE("/automations/:id", s.DeleteAutomation)
	api.GET("/automations/:id/logs", s.GetAutomationLogs)
	api.POST("/automations/trigger", s.TriggerAutomations)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
