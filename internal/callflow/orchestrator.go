package callflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"voiceagent/internal/agent"
	"voiceagent/internal/ai"
	"voiceagent/internal/calls"
	"voiceagent/internal/conversations"
	"voiceagent/internal/voices"
)

// Orchestrator drives one webhook-sized step of a phone conversation:
// look up state, run the completion, synthesize audio, persist, and answer
// with voice markup. Voice-facing operations never return errors; every
// failure is absorbed into markup the provider can execute.

// CallCreator creates a call with its empty conversation atomically.
type CallCreator interface {
	CreateCallWithConversation(ctx context.Context, c calls.Call) (calls.Call, conversations.Conversation, error)
}

type CallStore interface {
	GetBySID(ctx context.Context, sid string) (calls.Call, error)
	UpdateStatus(ctx context.Context, sid string, status calls.CallStatus) error
	Complete(ctx context.Context, sid string, durationSeconds int, recordingURL string) error
	SetRecordingURL(ctx context.Context, sid, recordingURL string) error
}

type ConversationStore interface {
	GetByCallID(ctx context.Context, callID string) (conversations.Conversation, error)
	SaveMessages(ctx context.Context, c conversations.Conversation) error
	SetSummary(ctx context.Context, id, summary string) error
}

type VoiceStore interface {
	FirstActive(ctx context.Context) (voices.Profile, error)
}

type CompletionClient interface {
	Complete(ctx context.Context, msgs []conversations.CompletionMessage, temperature float32, maxTokens int) (string, error)
	ClassifyIntent(ctx context.Context, text string) (ai.IntentResult, error)
	ClassifySentiment(ctx context.Context, text string) (ai.SentimentResult, error)
}

type SpeechClient interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// OutboundDialer places a call through the telephony provider and returns
// the provider call SID.
type OutboundDialer interface {
	Dial(toNumber, fromNumber string) (string, error)
}

type AudioSaver interface {
	Save(callSID string, turn int, audio []byte) (string, error)
}

type MarkupRenderer interface {
	RenderGreeting(greeting string) (string, error)
	RenderReply(message, audioURL string, continueConversation bool) (string, error)
	RenderHangup(message string) (string, error)
}

// hangupFallback is the response of last resort when even rendering fails.
const hangupFallback = `<?xml version="1.0" encoding="UTF-8"?><Response><Hangup/></Response>`

const summaryMaxTokens = 150

type Deps struct {
	Creator CallCreator
	Calls   CallStore
	Convs   ConversationStore
	Voices  VoiceStore
	AI      CompletionClient
	Speech  SpeechClient
	Audio   AudioSaver
	Dialer  OutboundDialer
	Agent   *agent.Agent
	Render  MarkupRenderer
	Lock    SessionLocker
	Log     *slog.Logger
	Clock   func() time.Time
}

type Orchestrator struct {
	creator CallCreator
	calls   CallStore
	convs   ConversationStore
	voices  VoiceStore
	ai      CompletionClient
	speech  SpeechClient
	audio   AudioSaver
	dialer  OutboundDialer
	agent   *agent.Agent
	render  MarkupRenderer
	lock    SessionLocker
	log     *slog.Logger
	clock   func() time.Time
}

func New(d Deps) (*Orchestrator, error) {
	switch {
	case d.Creator == nil, d.Calls == nil, d.Convs == nil, d.Voices == nil,
		d.AI == nil, d.Speech == nil, d.Audio == nil, d.Dialer == nil,
		d.Agent == nil, d.Render == nil, d.Lock == nil:
		return nil, errors.New("callflow: all dependencies are required")
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return &Orchestrator{
		creator: d.Creator,
		calls:   d.Calls,
		convs:   d.Convs,
		voices:  d.Voices,
		ai:      d.AI,
		speech:  d.Speech,
		audio:   d.Audio,
		dialer:  d.Dialer,
		agent:   d.Agent,
		render:  d.Render,
		lock:    d.Lock,
		log:     d.Log,
		clock:   d.Clock,
	}, nil
}

// HandleIncomingCall registers the call and greets the caller. A replayed
// webhook for a known SID reuses the existing call and conversation.
func (o *Orchestrator) HandleIncomingCall(ctx context.Context, sid, from, to string) string {
	log := o.log.With("call_sid", sid)

	_, _, err := o.creator.CreateCallWithConversation(ctx, calls.Call{
		ProviderCallSID: sid,
		Direction:       calls.DirectionInbound,
		FromNumber:      from,
		ToNumber:        to,
		Status:          calls.StatusInProgress,
	})
	if err != nil {
		log.Error("incoming call registration failed", "err", err)
		return o.renderHangup(log, o.agent.Apology())
	}

	log.Info("incoming call registered", "from", from, "to", to)

	markup, err := o.render.RenderGreeting(o.agent.Greeting())
	if err != nil {
		log.Error("greeting render failed", "err", err)
		return hangupFallback
	}
	return markup
}

// HandleUserSpeech runs one conversation turn. Unknown sessions get a plain
// hangup and no writes.
func (o *Orchestrator) HandleUserSpeech(ctx context.Context, sid, speech string) string {
	log := o.log.With("call_sid", sid)

	release, acquired, err := o.lock.Acquire(ctx, sid)
	if err != nil {
		log.Warn("session lock unavailable", "err", err)
	} else if !acquired {
		log.Warn("session busy, proceeding unserialized")
	}
	defer release()

	call, err := o.calls.GetBySID(ctx, sid)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			log.Warn("speech for unknown call")
			return o.renderHangup(log, "")
		}
		log.Error("call lookup failed", "err", err)
		return o.renderHangup(log, o.agent.Apology())
	}

	conv, err := o.convs.GetByCallID(ctx, call.ID)
	if err != nil {
		if errors.Is(err, conversations.ErrNotFound) {
			log.Warn("speech for call without conversation")
			return o.renderHangup(log, "")
		}
		log.Error("conversation lookup failed", "err", err)
		return o.renderHangup(log, o.agent.Apology())
	}

	if speech == "" {
		return o.renderReply(log, o.agent.NoInput(), "")
	}

	history := conv.MessagesForCompletion()
	turn := o.agent.BuildTurn(history, agent.CallContext{CallerNumber: call.FromNumber}, speech)

	conv = conv.Append(conversations.RoleUser, speech, o.clock())

	reply, err := o.ai.Complete(ctx, turn, 0, 0)
	if err != nil {
		log.Error("completion failed", "err", err)
		if saveErr := o.convs.SaveMessages(ctx, conv); saveErr != nil {
			log.Error("conversation save failed", "err", saveErr)
		}
		return o.renderReply(log, o.agent.Fallback(), "")
	}

	conv = conv.Append(conversations.RoleAssistant, reply, o.clock())
	o.classify(ctx, log, &conv, speech)

	if err := o.convs.SaveMessages(ctx, conv); err != nil {
		log.Error("conversation save failed", "err", err)
	}

	audioURL := o.synthesize(ctx, log, sid, reply, len(conv.Messages))
	return o.renderReply(log, reply, audioURL)
}

// classify refreshes intent and sentiment, keeping previous values when the
// classifier fails.
func (o *Orchestrator) classify(ctx context.Context, log *slog.Logger, conv *conversations.Conversation, speech string) {
	if res, err := o.ai.ClassifyIntent(ctx, speech); err != nil {
		log.Warn("intent classification failed", "err", err)
	} else {
		conv.Intent = res.Intent
	}
	if res, err := o.ai.ClassifySentiment(ctx, speech); err != nil {
		log.Warn("sentiment classification failed", "err", err)
	} else {
		conv.Sentiment = res.Sentiment
	}
}

// synthesize produces the audio for a reply and returns its public URL, or
// "" to fall back to provider text-to-speech.
func (o *Orchestrator) synthesize(ctx context.Context, log *slog.Logger, sid, reply string, turn int) string {
	profile, err := o.voices.FirstActive(ctx)
	if err != nil {
		if !errors.Is(err, voices.ErrNotFound) {
			log.Warn("voice profile lookup failed", "err", err)
		}
		return ""
	}

	audio, err := o.speech.Synthesize(ctx, reply, profile.ProviderVoiceID)
	if err != nil {
		log.Warn("speech synthesis failed", "voice_id", profile.ProviderVoiceID, "err", err)
		return ""
	}

	url, err := o.audio.Save(sid, turn, audio)
	if err != nil {
		log.Warn("audio save failed", "err", err)
		return ""
	}
	return url
}

// HandleCallCompleted records the final duration and recording, then
// summarizes the conversation when there is one.
func (o *Orchestrator) HandleCallCompleted(ctx context.Context, sid string, durationSeconds int, recordingURL string) {
	log := o.log.With("call_sid", sid)

	if err := o.calls.Complete(ctx, sid, durationSeconds, recordingURL); err != nil {
		log.Error("call completion update failed", "err", err)
		return
	}
	log.Info("call completed", "duration_s", durationSeconds)

	call, err := o.calls.GetBySID(ctx, sid)
	if err != nil {
		log.Error("completed call lookup failed", "err", err)
		return
	}
	conv, err := o.convs.GetByCallID(ctx, call.ID)
	if err != nil {
		if !errors.Is(err, conversations.ErrNotFound) {
			log.Error("conversation lookup failed", "err", err)
		}
		return
	}
	if len(conv.Messages) == 0 {
		return
	}

	summary, err := o.ai.Complete(ctx, o.agent.BuildSummaryPrompt(conv.Messages), 0.3, summaryMaxTokens)
	if err != nil {
		log.Warn("summary generation failed", "err", err)
		return
	}
	if err := o.convs.SetSummary(ctx, conv.ID, summary); err != nil {
		log.Error("summary save failed", "err", err)
	}
}

// InitiateOutbound places an outbound call and registers it, so the
// lifecycle webhooks that follow land on an existing session. Unlike the
// webhook operations this is admin-facing and returns errors.
func (o *Orchestrator) InitiateOutbound(ctx context.Context, toNumber, fromNumber string) (calls.Call, error) {
	sid, err := o.dialer.Dial(toNumber, fromNumber)
	if err != nil {
		return calls.Call{}, err
	}

	call, _, err := o.creator.CreateCallWithConversation(ctx, calls.Call{
		ProviderCallSID: sid,
		Direction:       calls.DirectionOutbound,
		FromNumber:      fromNumber,
		ToNumber:        toNumber,
		Status:          calls.StatusInitiated,
	})
	if err != nil {
		o.log.Error("outbound call registration failed", "call_sid", sid, "err", err)
		return calls.Call{}, err
	}

	o.log.Info("outbound call initiated", "call_sid", sid, "to", toNumber)
	return call, nil
}

// HandleStatusUpdate records a non-completed lifecycle transition verbatim.
func (o *Orchestrator) HandleStatusUpdate(ctx context.Context, sid, status string) {
	log := o.log.With("call_sid", sid)

	if !calls.ValidStatus(status) {
		log.Warn("unknown call status ignored", "status", status)
		return
	}
	if err := o.calls.UpdateStatus(ctx, sid, calls.CallStatus(status)); err != nil {
		log.Error("status update failed", "status", status, "err", err)
		return
	}
	log.Info("call status updated", "status", status)
}

// HandleRecording stores the recording URL once the provider finishes
// processing it.
func (o *Orchestrator) HandleRecording(ctx context.Context, sid, recordingURL string) {
	log := o.log.With("call_sid", sid)

	if recordingURL == "" {
		log.Warn("recording webhook without url")
		return
	}
	if err := o.calls.SetRecordingURL(ctx, sid, recordingURL); err != nil {
		log.Error("recording url save failed", "err", err)
	}
}

func (o *Orchestrator) renderHangup(log *slog.Logger, message string) string {
	markup, err := o.render.RenderHangup(message)
	if err != nil {
		log.Error("hangup render failed", "err", err)
		return hangupFallback
	}
	return markup
}

func (o *Orchestrator) renderReply(log *slog.Logger, message, audioURL string) string {
	markup, err := o.render.RenderReply(message, audioURL, true)
	if err != nil {
		log.Error("reply render failed", "err", err)
		return hangupFallback
	}
	return markup
}
