package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/vendalab/impact-backend/internal/handlers"
	"github.com/vendalab/impact-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler         *handlers.AuthHandler
	AuthMiddleware      *middleware.AuthMiddleware
	UserHandler         *handlers.UserHandler
	RewardHandler       *handlers.RewardHandler
	PhaseHandler        *handlers.PhaseHandler
	DiagnosticHandler   *handlers.DiagnosticHandler
	ContentHandler      *handlers.ContentHandler
	NotificationHandler *handlers.NotificationHandler
	SurveyHandler       *handlers.SurveyHandler
	SSEHandler          *handlers.SSEHandler
	AllowOrigins        []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("impact-backend"))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// SSE
	protected.GET("/sse/stream", cfg.SSEHandler.Stream)
	protected.POST("/sse/subscribe", cfg.SSEHandler.Subscribe)
	protected.POST("/sse/unsubscribe", cfg.SSEHandler.Unsubscribe)
	// User
	protected.GET("/user", cfg.UserHandler.GetMe)
	// Rewards
	protected.POST("/rewards/credit", cfg.RewardHandler.Credit)
	protected.GET("/rewards/ledger", cfg.RewardHandler.GetLedger)
	protected.GET("/progress", cfg.RewardHandler.GetProgress)
	// Event phase
	protected.GET("/event/phase", cfg.PhaseHandler.Get)
	protected.GET("/event/visibility", cfg.PhaseHandler.Visibility)
	// Diagnostics
	protected.POST("/diagnostics", cfg.DiagnosticHandler.Upsert)
	protected.GET("/diagnostics", cfg.DiagnosticHandler.List)
	protected.GET("/diagnostics/summary", cfg.DiagnosticHandler.Summary)
	// Generated content
	protected.GET("/content/:kind", cfg.ContentHandler.GetOrGenerate)
	// Notifications
	protected.GET("/notifications", cfg.NotificationHandler.List)
	protected.GET("/notifications/unread", cfg.NotificationHandler.UnreadCount)
	protected.POST("/notifications/:id/read", cfg.NotificationHandler.MarkRead)
	protected.POST("/notifications/read-all", cfg.NotificationHandler.MarkAllRead)
	// Survey and interactions
	protected.POST("/survey", cfg.SurveyHandler.Submit)
	protected.GET("/survey", cfg.SurveyHandler.List)
	protected.POST("/interactions", cfg.SurveyHandler.LogInteraction)
	protected.GET("/interactions", cfg.SurveyHandler.RecentInteractions)

	// ====================
	// || Controller-only ||
	// ====================
	controller := protected.Group("/")
	controller.Use(cfg.AuthMiddleware.RequireController())
	controller.PATCH("/event/phase", cfg.PhaseHandler.Transition)
	controller.POST("/notifications/broadcast", cfg.NotificationHandler.Broadcast)

	return router
}
