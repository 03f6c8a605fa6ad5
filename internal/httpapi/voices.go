package httpapi

import (
	"errors"
	"io"
	"net/http"

	"voiceagent/internal/audit"
	"voiceagent/internal/auth"
	"voiceagent/internal/speech"
	"voiceagent/internal/voices"
	"voiceagent/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxSampleBytes = 10 << 20 // per uploaded clone sample

func (h Handlers) ListVoices(c *gin.Context) {
	rows, err := h.Voices.List(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Error("voice list failed", "err", err)
		fail(c, http.StatusInternalServerError, codeInternal, "voice list failed")
		return
	}
	if rows == nil {
		rows = []voices.Profile{}
	}
	c.JSON(http.StatusOK, gin.H{"voices": rows})
}

func (h Handlers) GetVoice(c *gin.Context) {
	p, err := h.Voices.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, voices.ErrNotFound) || errors.Is(err, voices.ErrInvalidArgument) {
			fail(c, http.StatusNotFound, codeNotFound, "voice not found")
			return
		}
		logger.FromGin(c).Error("voice lookup failed", "err", err)
		fail(c, http.StatusInternalServerError, codeInternal, "voice lookup failed")
		return
	}
	c.JSON(http.StatusOK, p)
}

// CloneVoice creates a provider voice from uploaded samples and stores the
// profile. Multipart form: name, description, files.
func (h Handlers) CloneVoice(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "multipart form required")
		return
	}

	name := c.PostForm("name")
	if name == "" {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "name required")
		return
	}
	description := c.PostForm("description")

	files := form.File["files"]
	if len(files) == 0 {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "at least one sample file required")
		return
	}

	samples := make([]speech.Sample, 0, len(files))
	for _, fh := range files {
		if fh.Size > maxSampleBytes {
			fail(c, http.StatusBadRequest, codeInvalidRequest, "sample too large")
			return
		}
		f, err := fh.Open()
		if err != nil {
			fail(c, http.StatusBadRequest, codeInvalidRequest, "unreadable sample")
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, maxSampleBytes))
		f.Close()
		if err != nil {
			fail(c, http.StatusBadRequest, codeInvalidRequest, "unreadable sample")
			return
		}
		samples = append(samples, speech.Sample{Filename: fh.Filename, Data: data})
	}

	voiceID, err := h.Speech.CloneVoice(c.Request.Context(), name, description, samples)
	if err != nil {
		logger.FromGin(c).Error("voice clone failed", "err", err)
		fail(c, http.StatusBadGateway, codeProviderError, "voice clone failed")
		return
	}

	profile, err := h.Voices.Insert(c.Request.Context(), voices.Profile{
		ID:              uuid.NewString(),
		Name:            name,
		Description:     description,
		ProviderVoiceID: voiceID,
		IsActive:        true,
	})
	if err != nil {
		logger.FromGin(c).Error("voice profile save failed", "voice_id", voiceID, "err", err)
		fail(c, http.StatusInternalServerError, codeInternal, "voice profile save failed")
		return
	}

	h.auditVoice(c, audit.EventTypeVoiceCloned, profile.ID, "voice cloned: "+name)
	c.JSON(http.StatusCreated, profile)
}

type testVoiceRequest struct {
	Text string `json:"text"`
}

// TestVoice synthesizes a sample utterance with the given profile and
// returns the audio.
func (h Handlers) TestVoice(c *gin.Context) {
	p, err := h.Voices.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, voices.ErrNotFound) || errors.Is(err, voices.ErrInvalidArgument) {
			fail(c, http.StatusNotFound, codeNotFound, "voice not found")
			return
		}
		logger.FromGin(c).Error("voice lookup failed", "err", err)
		fail(c, http.StatusInternalServerError, codeInternal, "voice lookup failed")
		return
	}

	var req testVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "invalid json")
		return
	}
	if req.Text == "" {
		req.Text = "Hola, esta es una prueba de voz."
	}

	audioBytes, err := h.Speech.Synthesize(c.Request.Context(), req.Text, p.ProviderVoiceID)
	if err != nil {
		logger.FromGin(c).Error("voice test failed", "voice_id", p.ProviderVoiceID, "err", err)
		fail(c, http.StatusBadGateway, codeProviderError, "synthesis failed")
		return
	}
	c.Data(http.StatusOK, "audio/mpeg", audioBytes)
}

// DeleteVoice removes the provider voice, then the profile.
func (h Handlers) DeleteVoice(c *gin.Context) {
	p, err := h.Voices.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, voices.ErrNotFound) || errors.Is(err, voices.ErrInvalidArgument) {
			fail(c, http.StatusNotFound, codeNotFound, "voice not found")
			return
		}
		logger.FromGin(c).Error("voice lookup failed", "err", err)
		fail(c, http.StatusInternalServerError, codeInternal, "voice lookup failed")
		return
	}

	if err := h.Speech.DeleteVoice(c.Request.Context(), p.ProviderVoiceID); err != nil {
		// Keep the row when the provider still holds the voice.
		logger.FromGin(c).Error("provider voice delete failed", "voice_id", p.ProviderVoiceID, "err", err)
		fail(c, http.StatusBadGateway, codeProviderError, "provider voice delete failed")
		return
	}
	if err := h.Voices.Delete(c.Request.Context(), p.ID); err != nil {
		logger.FromGin(c).Error("voice profile delete failed", "id", p.ID, "err", err)
		fail(c, http.StatusInternalServerError, codeInternal, "voice profile delete failed")
		return
	}

	h.auditVoice(c, audit.EventTypeVoiceDeleted, p.ID, "voice deleted: "+p.Name)
	c.JSON(http.StatusOK, gin.H{"deleted": p.ID})
}

func (h Handlers) auditVoice(c *gin.Context, eventType audit.EventType, voiceID, message string) {
	if h.Audit == nil {
		return
	}
	userID, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	if err := h.Audit.LogVoiceChange(c.Request.Context(), eventType, userID, role, c.ClientIP(), voiceID, message); err != nil {
		logger.FromGin(c).Warn("audit append failed", "err", err)
	}
}
