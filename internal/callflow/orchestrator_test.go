package callflow

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"voiceagent/internal/agent"
	"voiceagent/internal/ai"
	"voiceagent/internal/calls"
	"voiceagent/internal/conversations"
	"voiceagent/internal/voices"
)

// In-memory fakes. State is keyed the way the real stores key it: calls by
// provider SID, conversations by call id.

type fakeStore struct {
	calls map[string]calls.Call // by provider SID
	convs map[string]conversations.Conversation

	createErr error
	saveErr   error
	saves     int
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		calls: make(map[string]calls.Call),
		convs: make(map[string]conversations.Conversation),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return prefix + "-" + strconv.Itoa(f.nextID)
}

func (f *fakeStore) CreateCallWithConversation(_ context.Context, c calls.Call) (calls.Call, conversations.Conversation, error) {
	if f.createErr != nil {
		return calls.Call{}, conversations.Conversation{}, f.createErr
	}
	if existing, ok := f.calls[c.ProviderCallSID]; ok {
		return existing, f.convs[existing.ID], nil
	}
	c.ID = f.id("call")
	f.calls[c.ProviderCallSID] = c
	conv := conversations.Conversation{ID: f.id("conv"), CallID: c.ID}
	f.convs[c.ID] = conv
	return c, conv, nil
}

func (f *fakeStore) GetBySID(_ context.Context, sid string) (calls.Call, error) {
	c, ok := f.calls[sid]
	if !ok {
		return calls.Call{}, calls.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, sid string, status calls.CallStatus) error {
	c, ok := f.calls[sid]
	if !ok {
		return calls.ErrNotFound
	}
	c.Status = status
	f.calls[sid] = c
	return nil
}

func (f *fakeStore) Complete(_ context.Context, sid string, durationSeconds int, recordingURL string) error {
	c, ok := f.calls[sid]
	if !ok {
		return calls.ErrNotFound
	}
	c.Status = calls.StatusCompleted
	c.DurationSeconds = durationSeconds
	if recordingURL != "" {
		c.RecordingURL = recordingURL
	}
	f.calls[sid] = c
	return nil
}

func (f *fakeStore) SetRecordingURL(_ context.Context, sid, recordingURL string) error {
	c, ok := f.calls[sid]
	if !ok {
		return calls.ErrNotFound
	}
	c.RecordingURL = recordingURL
	f.calls[sid] = c
	return nil
}

func (f *fakeStore) GetByCallID(_ context.Context, callID string) (conversations.Conversation, error) {
	conv, ok := f.convs[callID]
	if !ok {
		return conversations.Conversation{}, conversations.ErrNotFound
	}
	return conv, nil
}

func (f *fakeStore) SaveMessages(_ context.Context, c conversations.Conversation) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.convs[c.CallID] = c
	return nil
}

func (f *fakeStore) SetSummary(_ context.Context, id, summary string) error {
	for callID, conv := range f.convs {
		if conv.ID == id {
			conv.Summary = summary
			f.convs[callID] = conv
			return nil
		}
	}
	return conversations.ErrNotFound
}

type fakeVoices struct {
	profile voices.Profile
	err     error
}

func (f *fakeVoices) FirstActive(context.Context) (voices.Profile, error) {
	if f.err != nil {
		return voices.Profile{}, f.err
	}
	return f.profile, nil
}

type fakeAI struct {
	reply        string
	completeErr  error
	intent       ai.IntentResult
	intentErr    error
	sentiment    ai.SentimentResult
	sentimentErr error
	completions  int
}

func (f *fakeAI) Complete(_ context.Context, msgs []conversations.CompletionMessage, _ float32, _ int) (string, error) {
	f.completions++
	if f.completeErr != nil {
		return "", f.completeErr
	}
	return f.reply, nil
}

func (f *fakeAI) ClassifyIntent(context.Context, string) (ai.IntentResult, error) {
	return f.intent, f.intentErr
}

func (f *fakeAI) ClassifySentiment(context.Context, string) (ai.SentimentResult, error) {
	return f.sentiment, f.sentimentErr
}

type fakeSpeech struct {
	audio []byte
	err   error
}

func (f *fakeSpeech) Synthesize(_ context.Context, _, _ string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

type fakeAudio struct {
	url string
	err error
}

func (f *fakeAudio) Save(string, int, []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeDialer struct {
	sid string
	err error
}

func (f *fakeDialer) Dial(string, string) (string, error) { return f.sid, f.err }

// fakeRenderer emits inspectable pseudo-markup.
type fakeRenderer struct{}

func (fakeRenderer) RenderGreeting(greeting string) (string, error) {
	return "greeting|" + greeting, nil
}

func (fakeRenderer) RenderReply(message, audioURL string, cont bool) (string, error) {
	out := "reply|" + message + "|" + audioURL
	if cont {
		out += "|gather"
	}
	return out, nil
}

func (fakeRenderer) RenderHangup(message string) (string, error) {
	return "hangup|" + message, nil
}

type fakeLock struct {
	acquired bool
	held     int
}

func (f *fakeLock) Acquire(context.Context, string) (func(), bool, error) {
	f.held++
	return func() { f.held-- }, f.acquired, nil
}

type fixture struct {
	store  *fakeStore
	voices *fakeVoices
	ai     *fakeAI
	speech *fakeSpeech
	audio  *fakeAudio
	dialer *fakeDialer
	lock   *fakeLock
	orch   *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  newFakeStore(),
		voices: &fakeVoices{profile: voices.Profile{ID: "vp1", ProviderVoiceID: "ev1", IsActive: true}},
		ai:     &fakeAI{reply: "claro, ¿para qué día?"},
		speech: &fakeSpeech{audio: []byte("mp3")},
		audio:  &fakeAudio{url: "https://example.com/audio/CA123-2.mp3"},
		dialer: &fakeDialer{sid: "CA900"},
		lock:   &fakeLock{acquired: true},
	}
	orch, err := New(Deps{
		Creator: f.store,
		Calls:   f.store,
		Convs:   f.store,
		Voices:  f.voices,
		AI:      f.ai,
		Speech:  f.speech,
		Audio:   f.audio,
		Dialer:  f.dialer,
		Agent:   agent.New("Acme Telco"),
		Render:  fakeRenderer{},
		Lock:    f.lock,
		Clock:   func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("expected orchestrator, got %v", err)
	}
	f.orch = orch
	return f
}

func TestIncomingCallCreatesCallAndConversation(t *testing.T) {
	f := newFixture(t)

	markup := f.orch.HandleIncomingCall(context.Background(), "CA123", "+1555", "+1666")
	if !strings.HasPrefix(markup, "greeting|") {
		t.Fatalf("expected greeting markup, got %q", markup)
	}

	call, ok := f.store.calls["CA123"]
	if !ok {
		t.Fatalf("expected call row")
	}
	if call.Status != calls.StatusInProgress || call.Direction != calls.DirectionInbound {
		t.Fatalf("unexpected call: %+v", call)
	}
	conv := f.store.convs[call.ID]
	if conv.CallID != call.ID || len(conv.Messages) != 0 {
		t.Fatalf("expected empty conversation for the call, got %+v", conv)
	}
}

func TestIncomingCallDuplicateWebhookReusesSession(t *testing.T) {
	f := newFixture(t)

	f.orch.HandleIncomingCall(context.Background(), "CA123", "+1555", "+1666")
	first := f.store.calls["CA123"]

	f.orch.HandleIncomingCall(context.Background(), "CA123", "+1555", "+1666")
	if len(f.store.calls) != 1 {
		t.Fatalf("expected one call, got %d", len(f.store.calls))
	}
	if f.store.calls["CA123"].ID != first.ID {
		t.Fatalf("expected replay to reuse the call row")
	}
}

func TestIncomingCallStoreFailureYieldsApologyHangup(t *testing.T) {
	f := newFixture(t)
	f.store.createErr = errors.New("db down")

	markup := f.orch.HandleIncomingCall(context.Background(), "CA123", "+1555", "+1666")
	if !strings.HasPrefix(markup, "hangup|") || !strings.Contains(markup, "problema técnico") {
		t.Fatalf("expected apology hangup, got %q", markup)
	}
}

func TestSpeechUnknownCallHangsUpWithoutWrites(t *testing.T) {
	f := newFixture(t)

	markup := f.orch.HandleUserSpeech(context.Background(), "CA404", "hola")
	if markup != "hangup|" {
		t.Fatalf("expected plain hangup, got %q", markup)
	}
	if f.store.saves != 0 {
		t.Fatalf("expected no writes, got %d saves", f.store.saves)
	}
	if f.ai.completions != 0 {
		t.Fatalf("expected no completion calls")
	}
}

func TestSpeechTurnAppendsUserThenAssistant(t *testing.T) {
	f := newFixture(t)
	f.orch.HandleIncomingCall(context.Background(), "CA123", "+1555", "+1666")

	markup := f.orch.HandleUserSpeech(context.Background(), "CA123", "quiero una cita")
	if !strings.Contains(markup, "https://example.com/audio/CA123-2.mp3") {
		t.Fatalf("expected synthesized audio url in markup, got %q", markup)
	}
	if !strings.HasSuffix(markup, "|gather") {
		t.Fatalf("expected conversation to continue, got %q", markup)
	}

	conv := f.store.convs[f.store.calls["CA123"].ID]
	if len(conv.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Role != conversations.RoleUser || conv.Messages[0].Content != "quiero una cita" {
		t.Fatalf("unexpected first message: %+v", conv.Messages[0])
	}
	if conv.Messages[1].Role != conversations.RoleAssistant || conv.Messages[1].Content != "claro, ¿para qué día?" {
		t.Fatalf("unexpected second message: %+v", conv.Messages[1])
	}
}

func TestSpeechTurnGrowsHistoryByTwo(t *testing.T) {
	f := newFixture(t)
	f.orch.HandleIncomingCall(context.Background(), "CA123", "+1555", "+1666")

	f.orch.HandleUserSpeech(context.Background(), "CA123", "hola")
	f.orch.HandleUserSpeech(context.Background(), "CA123", "quiero una cita")

	conv := f.store.convs[f.store.calls["CA123"].ID]
	if len(conv.Messages) != 4 {
		t.Fatalf("expected 4 messages after two turns, got %d", len(conv.Messages))
	}
	for i, want := range []conversations.Role{
		conversations.RoleUser, conversations.RoleAssistant,
		conversations.RoleUser, conversations.RoleAssistant,
	} {
		if conv.Messages[i].Role != want {
			t.Fatalf("message %d: expected role %q, got %q", i, want, conv.Messages[i].Role)
		}
	}
}

func TestSpeechCompletionFailureKeepsMarkupValid(t *testing.T) {
	f := newFixture(t)
	f.orch.HandleIncomingCall(context.Background(), "CA123", "+1555", "+1666")
	f.ai.completeErr = ai.ErrProvider

	markup := f.orch.HandleUserSpeech(context.Background(), "CA123", "hola")
	if !strings.HasPrefix(markup, "reply|") || !strings.HasSuffix(markup, "|gather") {
		t.Fatalf("expected fallback reply with gather, got %q", markup)
	}

	conv := f.store.convs[f.store.calls["CA123"].ID]
	if len(conv.Messages) != 1 || conv.Messages[0].Role != conversations.RoleUser {
		t.Fatalf("expected only the user message persisted, got %+v", conv.Messages)
	}
}

func TestSpeechClassificationFailureKeepsPriorValues(t *testing.T) {
	f := newFixture(t)
	f.orch.HandleIncomingCall(context.Background(), "CA123", "+1555", "+1666")

	f.ai.intent = ai.IntentResult{Intent: "appointment"}
	f.ai.sentiment = ai.SentimentResult{Sentiment: "positive"}
	f.orch.HandleUserSpeech(context.Background(), "CA123", "quiero una cita")

	f.ai.intentErr = ai.ErrProvider
	f.ai.sentimentErr = ai.ErrProvider
	markup := f.orch.HandleUserSpeech(context.Background(), "CA123", "para el martes")
	if !strings.HasPrefix(markup, "reply|") {
		t.Fatalf("expected turn to complete, got %q", markup)
	}

	conv := f.store.convs[f.store.calls["CA123"].ID]
	if conv.Intent != "appointment" || conv.Sentiment != "positive" {
		t.Fatalf("expected prior classification preserved, got intent=%q sentiment=%q", conv.Intent, conv.Sentiment)
	}
	if len(conv.Messages) != 4 {
		t.Fatalf("expected second turn persisted, got %d messages", len(conv.Messages))
	}
}

func TestSpeechSynthesisFailureFallsBackToText(t *testing.T) {
	f := newFixture(t)
	f.orch.HandleIncomingCall(context.Background(), "CA123", "+1555", "+1666")
	f.speech.err = errors.New("tts down")

	markup := f.orch.HandleUserSpeech(context.Background(), "CA123", "hola")
	if !strings.Contains(markup, "claro, ¿para qué día?") {
		t.Fatalf("expected text reply, got %q", markup)
	}
	if strings.Contains(markup, "example.com/audio") {
		t.Fatalf("expected no audio url, got %q", markup)
	}
}

func TestSpeechNoActiveVoiceFallsBackToText(t *testing.T) {
	f := newFixture(t)
	f.orch.HandleIncomingCall(context.Background(), "CA123", "+1555", "+1666")
	f.voices.err = voices.ErrNotFound

	markup := f.orch.HandleUserSpeech(context.Background(), "CA123", "hola")
	if strings.Contains(markup, "example.com/audio") {
		t.Fatalf("expected no audio url, got %q", markup)
	}
}

func TestSpeechEmptyUtteranceReprompts(t *testing.T) {
	f := newFixture(t)
	f.orch.HandleIncomingCall(context.Background(), "CA123", "+1555", "+1666")

	markup := f.orch.HandleUserSpeech(context.Background(), "CA123", "")
	if !strings.Contains(markup, "No te escuché") {
		t.Fatalf("expected reprompt, got %q", markup)
	}
	if f.ai.completions != 0 {
		t.Fatalf("expected no completion for empty speech")
	}
	conv := f.store.convs[f.store.calls["CA123"].ID]
	if len(conv.Messages) != 0 {
		t.Fatalf("expected no messages persisted, got %d", len(conv.Messages))
	}
}

func TestCallCompletedStoresDurationAndSummary(t *testing.T) {
	f := newFixture(t)
	f.orch.HandleIncomingCall(context.Background(), "CA123", "+1555", "+1666")
	f.orch.HandleUserSpeech(context.Background(), "CA123", "quiero una cita")

	f.ai.reply = "El cliente pidió una cita."
	f.orch.HandleCallCompleted(context.Background(), "CA123", 95, "https://rec/RE1")

	call := f.store.calls["CA123"]
	if call.Status != calls.StatusCompleted || call.DurationSeconds != 95 || call.RecordingURL != "https://rec/RE1" {
		t.Fatalf("unexpected call: %+v", call)
	}
	conv := f.store.convs[call.ID]
	if conv.Summary != "El cliente pidió una cita." {
		t.Fatalf("expected summary stored, got %q", conv.Summary)
	}
}

func TestCallCompletedSkipsSummaryWithoutMessages(t *testing.T) {
	f := newFixture(t)
	f.orch.HandleIncomingCall(context.Background(), "CA123", "+1555", "+1666")

	before := f.ai.completions
	f.orch.HandleCallCompleted(context.Background(), "CA123", 10, "")
	if f.ai.completions != before {
		t.Fatalf("expected no summary completion for empty conversation")
	}
}

func TestStatusUpdateRecordsTerminalStatuses(t *testing.T) {
	f := newFixture(t)
	f.orch.HandleIncomingCall(context.Background(), "CA123", "+1555", "+1666")

	f.orch.HandleStatusUpdate(context.Background(), "CA123", "no-answer")
	if f.store.calls["CA123"].Status != calls.StatusNoAnswer {
		t.Fatalf("expected no-answer, got %q", f.store.calls["CA123"].Status)
	}

	f.orch.HandleStatusUpdate(context.Background(), "CA123", "definitely-not-a-status")
	if f.store.calls["CA123"].Status != calls.StatusNoAnswer {
		t.Fatalf("unknown status must be ignored")
	}
}

func TestRecordingStoresURL(t *testing.T) {
	f := newFixture(t)
	f.orch.HandleIncomingCall(context.Background(), "CA123", "+1555", "+1666")

	f.orch.HandleRecording(context.Background(), "CA123", "https://rec/RE2")
	if f.store.calls["CA123"].RecordingURL != "https://rec/RE2" {
		t.Fatalf("expected recording url stored")
	}
}

func TestInitiateOutbound(t *testing.T) {
	f := newFixture(t)

	call, err := f.orch.InitiateOutbound(context.Background(), "+1777", "+1555")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if call.ProviderCallSID != "CA900" || call.Direction != calls.DirectionOutbound {
		t.Fatalf("unexpected call: %+v", call)
	}
	if call.Status != calls.StatusInitiated {
		t.Fatalf("expected initiated status, got %q", call.Status)
	}
}

func TestInitiateOutboundDialFailure(t *testing.T) {
	f := newFixture(t)
	f.dialer.err = errors.New("provider rejected")

	if _, err := f.orch.InitiateOutbound(context.Background(), "+1777", ""); err == nil {
		t.Fatalf("expected error")
	}
	if len(f.store.calls) != 0 {
		t.Fatalf("expected no call row on dial failure")
	}
}

// End-to-end over fakes: inbound call, two turns, completion with summary.
func TestFullCallScenario(t *testing.T) {
	f := newFixture(t)

	markup := f.orch.HandleIncomingCall(context.Background(), "CA123", "+15551234567", "+15557654321")
	if !strings.HasPrefix(markup, "greeting|") {
		t.Fatalf("expected greeting, got %q", markup)
	}

	f.ai.reply = "Claro, ¿qué día te viene bien?"
	if m := f.orch.HandleUserSpeech(context.Background(), "CA123", "quiero una cita"); !strings.HasSuffix(m, "|gather") {
		t.Fatalf("expected gather after first turn, got %q", m)
	}

	f.ai.reply = "Perfecto, agendado para el martes."
	if m := f.orch.HandleUserSpeech(context.Background(), "CA123", "el martes"); !strings.Contains(m, "Perfecto") {
		t.Fatalf("expected second reply, got %q", m)
	}

	f.ai.reply = "El cliente agendó una cita para el martes."
	f.orch.HandleCallCompleted(context.Background(), "CA123", 120, "")

	call := f.store.calls["CA123"]
	conv := f.store.convs[call.ID]
	if call.Status != calls.StatusCompleted || call.DurationSeconds != 120 {
		t.Fatalf("unexpected final call: %+v", call)
	}
	if len(conv.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(conv.Messages))
	}
	if conv.Summary == "" {
		t.Fatalf("expected summary")
	}
	if f.lock.held != 0 {
		t.Fatalf("expected all session locks released, %d held", f.lock.held)
	}
}
