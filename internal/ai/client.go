package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"voiceagent/internal/config"
	"voiceagent/internal/conversations"
)

// Client wraps the OpenAI chat completion API for the phone agent.
//
// Error contract:
// - Provider/network failures wrap ErrProvider; callers pick the fallback.
// - Classification calls additionally return a neutral default alongside the
//   error, so a caller that chooses to continue the turn has a safe value.

var (
	ErrProvider        = errors.New("completion provider error")
	ErrEmptyCompletion = errors.New("empty completion")
)

type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

func New(cfg config.OpenAIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ai: OPENAI_API_KEY is required")
	}
	return &Client{
		api:         openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Complete runs one chat completion over the given messages.
// Zero temperature/maxTokens fall back to the configured defaults.
func (c *Client) Complete(ctx context.Context, msgs []conversations.CompletionMessage, temperature float32, maxTokens int) (string, error) {
	if len(msgs) == 0 {
		return "", fmt.Errorf("%w: no messages", ErrProvider)
	}
	if temperature <= 0 {
		temperature = c.temperature
	}
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(msgs),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

// IntentResult is the structured output of intent classification.
type IntentResult struct {
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities"`
	Summary    string            `json:"summary"`
}

// SentimentResult is the structured output of sentiment classification.
type SentimentResult struct {
	Sentiment  string   `json:"sentiment"`
	Confidence float64  `json:"confidence"`
	Emotions   []string `json:"emotions"`
}

const intentPrompt = `Detect the intent of the following user message:

Message: %q

Classify into one of these intents:
- information_request: User wants information
- appointment_scheduling: User wants to schedule or modify an appointment
- complaint: User has a complaint or issue
- general_inquiry: General question
- greeting: Greeting or small talk
- other: None of the above

Respond in JSON format:
{"intent": "intent_name", "confidence": 0.0, "entities": {}, "summary": "brief summary"}`

const sentimentPrompt = `Analyze the sentiment of the following text and provide:
1. Overall sentiment (positive, negative, or neutral)
2. Confidence score (0.0 to 1.0)
3. Key emotions detected

Text: %q

Respond in JSON format:
{"sentiment": "positive|negative|neutral", "confidence": 0.0, "emotions": []}`

// ClassifyIntent labels a user utterance. On any failure the neutral default
// is returned together with the error.
func (c *Client) ClassifyIntent(ctx context.Context, text string) (IntentResult, error) {
	neutral := IntentResult{
		Intent:   "other",
		Entities: map[string]string{},
		Summary:  truncate(text, 100),
	}

	raw, err := c.classify(ctx, "You are an intent classification expert.", fmt.Sprintf(intentPrompt, text))
	if err != nil {
		return neutral, err
	}

	var out IntentResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return neutral, fmt.Errorf("%w: malformed intent output: %v", ErrProvider, err)
	}
	if out.Intent == "" {
		return neutral, fmt.Errorf("%w: intent missing in output", ErrProvider)
	}
	if out.Entities == nil {
		out.Entities = map[string]string{}
	}
	return out, nil
}

// ClassifySentiment labels the sentiment of a user utterance. On any failure
// the neutral default is returned together with the error.
func (c *Client) ClassifySentiment(ctx context.Context, text string) (SentimentResult, error) {
	neutral := SentimentResult{Sentiment: "neutral", Confidence: 0.5, Emotions: []string{}}

	raw, err := c.classify(ctx, "You are a sentiment analysis expert.", fmt.Sprintf(sentimentPrompt, text))
	if err != nil {
		return neutral, err
	}

	var out SentimentResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return neutral, fmt.Errorf("%w: malformed sentiment output: %v", ErrProvider, err)
	}
	if out.Sentiment == "" {
		return neutral, fmt.Errorf("%w: sentiment missing in output", ErrProvider)
	}
	if out.Emotions == nil {
		out.Emotions = []string{}
	}
	return out, nil
}

func (c *Client) classify(ctx context.Context, system, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		// Deterministic, structured output.
		Temperature: 0,
		MaxTokens:   300,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(msgs []conversations.CompletionMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
