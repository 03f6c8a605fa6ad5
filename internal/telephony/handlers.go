package telephony

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"voiceagent/pkg/logger"
)

// Orchestrator is the call-flow surface the webhook handlers delegate to.
// Voice-facing operations return markup and absorb their own failures; the
// provider always receives a valid response.
type Orchestrator interface {
	HandleIncomingCall(ctx context.Context, sid, from, to string) string
	HandleUserSpeech(ctx context.Context, sid, speech string) string
	HandleCallCompleted(ctx context.Context, sid string, durationSeconds int, recordingURL string)
	HandleStatusUpdate(ctx context.Context, sid, status string)
	HandleRecording(ctx context.Context, sid, recordingURL string)
}

// WebhookHandler translates provider webhooks to orchestrator calls and
// writes the markup back. No business logic here.
type WebhookHandler struct {
	Flow Orchestrator
}

const contentTypeXML = "application/xml"

// VoiceStarted handles the initial inbound-call webhook.
func (h WebhookHandler) VoiceStarted(c *gin.Context) {
	log := logger.FromGin(c)

	ev, err := ParseCallStarted(c.Request)
	if err != nil {
		log.Warn("voice webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	markup := h.Flow.HandleIncomingCall(c.Request.Context(), ev.CallSID, ev.From, ev.To)
	c.Data(http.StatusOK, contentTypeXML, []byte(markup))
}

// SpeechGathered handles a transcribed caller utterance.
func (h WebhookHandler) SpeechGathered(c *gin.Context) {
	log := logger.FromGin(c)

	ev, err := ParseSpeech(c.Request)
	if err != nil {
		log.Warn("gather webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	markup := h.Flow.HandleUserSpeech(c.Request.Context(), ev.CallSID, ev.SpeechResult)
	c.Data(http.StatusOK, contentTypeXML, []byte(markup))
}

// StatusChanged handles lifecycle callbacks. Fire-and-forget: the provider
// only needs an acknowledgement.
func (h WebhookHandler) StatusChanged(c *gin.Context) {
	log := logger.FromGin(c)

	ev, err := ParseStatus(c.Request)
	if err != nil {
		log.Warn("status webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	if ev.Status == "completed" {
		h.Flow.HandleCallCompleted(c.Request.Context(), ev.CallSID, ev.DurationSeconds, ev.RecordingURL)
	} else {
		h.Flow.HandleStatusUpdate(c.Request.Context(), ev.CallSID, ev.Status)
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// RecordingReady handles recording callbacks. Fire-and-forget.
func (h WebhookHandler) RecordingReady(c *gin.Context) {
	log := logger.FromGin(c)

	ev, err := ParseRecording(c.Request)
	if err != nil {
		log.Warn("recording webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	if ev.Status == "" || ev.Status == "completed" {
		h.Flow.HandleRecording(c.Request.Context(), ev.CallSID, ev.RecordingURL)
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
