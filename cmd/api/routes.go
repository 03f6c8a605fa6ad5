package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"voiceagent/internal/auth"
	"voiceagent/internal/httpapi"
	"voiceagent/internal/rbac"
	"voiceagent/internal/telephony"
	"voiceagent/pkg/utils"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	authManager *auth.Manager
	flow        telephony.Orchestrator
	handlers    httpapi.Handlers
	audioDir    string
	db          dbChecker
}

type dbChecker struct {
	db *sql.DB
}

func (d dbChecker) check(ctx context.Context) error {
	if d.db == nil {
		return nil
	}
	return utils.HealthCheck(ctx, d.db, 2*time.Second)
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, deps routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := deps.db.check(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Synthesized reply audio, fetched by the telephony provider mid-call.
	if deps.audioDir != "" {
		r.Static("/audio", deps.audioDir)
	}

	// Provider webhooks (public).
	// NOTE: These endpoints should be protected by provider signature
	// validation in production.
	{
		h := telephony.WebhookHandler{Flow: deps.flow}
		wh := r.Group("/webhooks/twilio")
		wh.POST("/voice", h.VoiceStarted)
		wh.POST("/gather", h.SpeechGathered)
		wh.POST("/status", h.StatusChanged)
		wh.POST("/recording", h.RecordingReady)
	}

	// AUTH routes (token issuance).
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	r.POST("/auth/login", deps.handlers.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(deps.authManager))
	{
		v1.GET("/me", func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{"user_id": uid, "role": role})
		})

		// CALLS routes
		callsGroup := v1.Group("/calls")
		callsGroup.Use(rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleViewer))
		{
			callsGroup.GET("", deps.handlers.ListCalls)
			callsGroup.GET("/:id", deps.handlers.GetCall)
			callsGroup.GET("/:id/conversation", deps.handlers.GetCallConversation)
		}
		// Placing calls is operator-only.
		v1.POST("/calls", rbac.RequireAnyRole(rbac.RoleOperator), deps.handlers.CreateOutboundCall)

		// VOICES routes
		voicesGroup := v1.Group("/voices")
		voicesGroup.Use(rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleViewer))
		{
			voicesGroup.GET("", deps.handlers.ListVoices)
			voicesGroup.GET("/:id", deps.handlers.GetVoice)
		}
		// Mutating voice operations are operator-only.
		v1.POST("/voices", rbac.RequireAnyRole(rbac.RoleOperator), deps.handlers.CloneVoice)
		v1.POST("/voices/:id/test", rbac.RequireAnyRole(rbac.RoleOperator), deps.handlers.TestVoice)
		v1.DELETE("/voices/:id", rbac.RequireAnyRole(rbac.RoleOperator), deps.handlers.DeleteVoice)

		// DASHBOARD routes
		dashboard := v1.Group("/dashboard")
		dashboard.Use(rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleViewer))
		{
			dashboard.GET("/stats", deps.handlers.DashboardStats)
			dashboard.GET("/recent", deps.handlers.DashboardRecent)
		}
	}
}
