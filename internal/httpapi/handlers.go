package httpapi

import (
	"context"
	"net/http"
	"time"

	"voiceagent/internal/audit"
	"voiceagent/internal/auth"
	"voiceagent/internal/calls"
	"voiceagent/internal/conversations"
	"voiceagent/internal/reporting"
	"voiceagent/internal/speech"
	"voiceagent/internal/voices"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

// CallReader is the read surface of the call store the API uses.
type CallReader interface {
	List(ctx context.Context, page, pageSize int) ([]calls.Call, int, error)
	GetByID(ctx context.Context, id string) (calls.Call, error)
}

type ConversationReader interface {
	GetByCallID(ctx context.Context, callID string) (conversations.Conversation, error)
}

type VoiceStore interface {
	Insert(ctx context.Context, p voices.Profile) (voices.Profile, error)
	GetByID(ctx context.Context, id string) (voices.Profile, error)
	List(ctx context.Context) ([]voices.Profile, error)
	Delete(ctx context.Context, id string) error
}

type SpeechProvider interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
	CloneVoice(ctx context.Context, name, description string, samples []speech.Sample) (string, error)
	DeleteVoice(ctx context.Context, voiceID string) error
}

type OutboundStarter interface {
	InitiateOutbound(ctx context.Context, toNumber, fromNumber string) (calls.Call, error)
}

type StatsProvider interface {
	Dashboard(ctx context.Context) (reporting.DashboardStats, error)
	Recent(ctx context.Context, limit int) ([]calls.Call, error)
}

type Handlers struct {
	Auth     *auth.Manager
	Calls    CallReader
	Convs    ConversationReader
	Voices   VoiceStore
	Speech   SpeechProvider
	Outbound OutboundStarter
	Stats    StatsProvider

	// Audit is best-effort; handlers never fail a request on audit errors.
	Audit *audit.Service
}

// apiError is the machine-readable error envelope for admin endpoints.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": apiError{Code: code, Message: message}})
}

const (
	codeInvalidRequest = "invalid_request"
	codeNotFound       = "not_found"
	codeProviderError  = "provider_error"
	codeInternal       = "internal"
)

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		fail(c, http.StatusInternalServerError, codeInternal, "auth not configured")
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "invalid json")
		return
	}
	if req.UserID == "" || req.Role == "" {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "user_id and role required")
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		fail(c, http.StatusInternalServerError, codeInternal, "token issuance failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}
