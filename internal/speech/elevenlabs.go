package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"voiceagent/internal/config"
)

// Client talks to the ElevenLabs REST API: text-to-speech, voice cloning and
// voice management. Plain HTTP adapter; no business logic here.

const defaultBaseURL = "https://api.elevenlabs.io"

var (
	ErrProvider  = errors.New("speech provider error")
	ErrNoVoice   = errors.New("no voice id provided or configured")
	ErrNoSamples = errors.New("at least one audio sample is required")
)

type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	defaultVoiceID string
	modelID        string
}

func New(cfg config.ElevenLabsConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("speech: ELEVENLABS_API_KEY is required")
	}
	return &Client{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		baseURL:        defaultBaseURL,
		apiKey:         cfg.APIKey,
		defaultVoiceID: cfg.DefaultVoiceID,
		modelID:        cfg.ModelID,
	}, nil
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize converts text to MP3 audio with the given voice. An empty
// voiceID falls back to the configured default; with neither, ErrNoVoice.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrProvider)
	}
	voice := voiceID
	if voice == "" {
		voice = c.defaultVoiceID
	}
	if voice == "" {
		return nil, ErrNoVoice
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, voice), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providerError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio response", ErrProvider)
	}
	return audio, nil
}

// Sample is one training audio file for cloning.
type Sample struct {
	Filename string
	Data     []byte
}

type cloneResponse struct {
	VoiceID string `json:"voice_id"`
}

// CloneVoice creates a new provider voice from the given samples and returns
// the provider voice id.
func (c *Client) CloneVoice(ctx context.Context, name, description string, samples []Sample) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrProvider)
	}
	if len(samples) == 0 {
		return "", ErrNoSamples
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("name", name); err != nil {
		return "", err
	}
	if description == "" {
		description = "Cloned voice: " + name
	}
	if err := mw.WriteField("description", description); err != nil {
		return "", err
	}
	for _, s := range samples {
		fw, err := mw.CreateFormFile("files", s.Filename)
		if err != nil {
			return "", err
		}
		if _, err := fw.Write(s.Data); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/voices/add", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", providerError(resp)
	}

	var out cloneResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if out.VoiceID == "" {
		return "", fmt.Errorf("%w: missing voice_id in response", ErrProvider)
	}
	return out.VoiceID, nil
}

// Voice is one provider-side voice description.
type Voice struct {
	VoiceID     string `json:"voice_id"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

type listVoicesResponse struct {
	Voices []Voice `json:"voices"`
}

func (c *Client) ListVoices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providerError(resp)
	}

	var out listVoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return out.Voices, nil
}

func (c *Client) DeleteVoice(ctx context.Context, voiceID string) error {
	if voiceID == "" {
		return ErrNoVoice
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/v1/voices/"+voiceID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return providerError(resp)
	}
	return nil
}

func providerError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: status %d: %s", ErrProvider, resp.StatusCode, bytes.TrimSpace(b))
}
