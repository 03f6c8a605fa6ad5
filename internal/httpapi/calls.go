package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"voiceagent/internal/auth"
	"voiceagent/internal/calls"
	"voiceagent/internal/conversations"
	"voiceagent/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListCalls returns calls newest-first with pagination metadata.
func (h Handlers) ListCalls(c *gin.Context) {
	page := intQuery(c, "page", 1)
	pageSize := intQuery(c, "page_size", defaultPageSize)
	if page < 1 || pageSize < 1 || pageSize > maxPageSize {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "invalid pagination")
		return
	}

	rows, total, err := h.Calls.List(c.Request.Context(), page, pageSize)
	if err != nil {
		logger.FromGin(c).Error("call list failed", "err", err)
		fail(c, http.StatusInternalServerError, codeInternal, "call list failed")
		return
	}
	if rows == nil {
		rows = []calls.Call{}
	}
	c.JSON(http.StatusOK, gin.H{
		"calls":     rows,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h Handlers) GetCall(c *gin.Context) {
	call, err := h.Calls.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) || errors.Is(err, calls.ErrInvalidArgument) {
			fail(c, http.StatusNotFound, codeNotFound, "call not found")
			return
		}
		logger.FromGin(c).Error("call lookup failed", "err", err)
		fail(c, http.StatusInternalServerError, codeInternal, "call lookup failed")
		return
	}
	c.JSON(http.StatusOK, call)
}

// GetCallConversation returns the message history for one call.
func (h Handlers) GetCallConversation(c *gin.Context) {
	call, err := h.Calls.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) || errors.Is(err, calls.ErrInvalidArgument) {
			fail(c, http.StatusNotFound, codeNotFound, "call not found")
			return
		}
		logger.FromGin(c).Error("call lookup failed", "err", err)
		fail(c, http.StatusInternalServerError, codeInternal, "call lookup failed")
		return
	}

	conv, err := h.Convs.GetByCallID(c.Request.Context(), call.ID)
	if err != nil {
		if errors.Is(err, conversations.ErrNotFound) {
			fail(c, http.StatusNotFound, codeNotFound, "conversation not found")
			return
		}
		logger.FromGin(c).Error("conversation lookup failed", "err", err)
		fail(c, http.StatusInternalServerError, codeInternal, "conversation lookup failed")
		return
	}
	c.JSON(http.StatusOK, conv)
}

type outboundCallRequest struct {
	ToNumber   string `json:"to_number"`
	FromNumber string `json:"from_number,omitempty"`
}

// CreateOutboundCall dials a number and registers the call.
func (h Handlers) CreateOutboundCall(c *gin.Context) {
	var req outboundCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "invalid json")
		return
	}
	if req.ToNumber == "" {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "to_number required")
		return
	}

	call, err := h.Outbound.InitiateOutbound(c.Request.Context(), req.ToNumber, req.FromNumber)
	if err != nil {
		logger.FromGin(c).Error("outbound call failed", "to", req.ToNumber, "err", err)
		fail(c, http.StatusBadGateway, codeProviderError, "outbound call failed")
		return
	}

	if h.Audit != nil {
		userID, _ := auth.UserID(c.Request.Context())
		role, _ := auth.Role(c.Request.Context())
		if err := h.Audit.LogOutboundCall(c.Request.Context(), userID, role, c.ClientIP(), call.ID, req.ToNumber); err != nil {
			logger.FromGin(c).Warn("audit append failed", "err", err)
		}
	}

	c.JSON(http.StatusCreated, call)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	v := c.Query(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
