package telephony

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// Webhook form parsing. The provider posts application/x-www-form-urlencoded
// callbacks; we lift only the fields the orchestrator consumes. No business
// logic here.

var ErrMissingCallSID = errors.New("telephony: missing CallSid")

// CallStartedEvent is the initial voice webhook for an inbound call.
type CallStartedEvent struct {
	CallSID string
	From    string
	To      string
	Status  string
}

func ParseCallStarted(r *http.Request) (CallStartedEvent, error) {
	if err := r.ParseForm(); err != nil {
		return CallStartedEvent{}, err
	}
	ev := CallStartedEvent{
		CallSID: r.PostFormValue("CallSid"),
		From:    strings.TrimSpace(r.PostFormValue("From")),
		To:      strings.TrimSpace(r.PostFormValue("To")),
		Status:  r.PostFormValue("CallStatus"),
	}
	if ev.CallSID == "" {
		return CallStartedEvent{}, ErrMissingCallSID
	}
	return ev, nil
}

// SpeechEvent carries one transcribed caller utterance from a gather.
type SpeechEvent struct {
	CallSID      string
	SpeechResult string
	Confidence   float64
}

func ParseSpeech(r *http.Request) (SpeechEvent, error) {
	if err := r.ParseForm(); err != nil {
		return SpeechEvent{}, err
	}
	ev := SpeechEvent{
		CallSID:      r.PostFormValue("CallSid"),
		SpeechResult: strings.TrimSpace(r.PostFormValue("SpeechResult")),
	}
	if ev.CallSID == "" {
		return SpeechEvent{}, ErrMissingCallSID
	}
	if v := r.PostFormValue("Confidence"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			ev.Confidence = f
		}
	}
	return ev, nil
}

// StatusEvent reports a lifecycle transition for a call.
type StatusEvent struct {
	CallSID         string
	Status          string
	DurationSeconds int
	RecordingURL    string
}

func ParseStatus(r *http.Request) (StatusEvent, error) {
	if err := r.ParseForm(); err != nil {
		return StatusEvent{}, err
	}
	ev := StatusEvent{
		CallSID:      r.PostFormValue("CallSid"),
		Status:       r.PostFormValue("CallStatus"),
		RecordingURL: r.PostFormValue("RecordingUrl"),
	}
	if ev.CallSID == "" {
		return StatusEvent{}, ErrMissingCallSID
	}
	if v := r.PostFormValue("CallDuration"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			ev.DurationSeconds = n
		}
	}
	return ev, nil
}

// RecordingEvent arrives when a call recording finishes processing.
type RecordingEvent struct {
	CallSID      string
	RecordingSID string
	RecordingURL string
	Status       string
}

func ParseRecording(r *http.Request) (RecordingEvent, error) {
	if err := r.ParseForm(); err != nil {
		return RecordingEvent{}, err
	}
	ev := RecordingEvent{
		CallSID:      r.PostFormValue("CallSid"),
		RecordingSID: r.PostFormValue("RecordingSid"),
		RecordingURL: r.PostFormValue("RecordingUrl"),
		Status:       r.PostFormValue("RecordingStatus"),
	}
	if ev.CallSID == "" {
		return RecordingEvent{}, ErrMissingCallSID
	}
	return ev, nil
}
