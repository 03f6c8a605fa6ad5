package calls

import "time"

// Call is one telephony session, inbound or outbound.
//
// Invariant: ProviderCallSID is unique and immutable once set; every webhook
// event for the session carries it and scopes all reads/writes to this row.
//
// Provider statuses are stored verbatim (hyphenated, as Twilio reports them).

type Call struct {
	ID string `json:"id" db:"id"`

	// ProviderCallSID is the provider-assigned session identifier (CallSid).
	ProviderCallSID string `json:"provider_call_sid" db:"provider_call_sid"`

	Direction CallDirection `json:"direction" db:"direction"`

	FromNumber string `json:"from_number" db:"from_number"`
	ToNumber   string `json:"to_number" db:"to_number"`

	Status CallStatus `json:"status" db:"status"`

	// DurationSeconds is set only on completion.
	DurationSeconds int `json:"duration_seconds" db:"duration_seconds"`

	// RecordingURL arrives asynchronously after the call ends.
	RecordingURL string `json:"recording_url,omitempty" db:"recording_url"`

	// Transcription is the full-call transcript when the provider delivers one.
	Transcription string `json:"transcription,omitempty" db:"transcription"`

	// Metadata is optional JSON.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CallDirection string

const (
	DirectionInbound  CallDirection = "inbound"
	DirectionOutbound CallDirection = "outbound"
)

type CallStatus string

const (
	StatusInitiated  CallStatus = "initiated"
	StatusRinging    CallStatus = "ringing"
	StatusInProgress CallStatus = "in-progress"
	StatusCompleted  CallStatus = "completed"
	StatusBusy       CallStatus = "busy"
	StatusFailed     CallStatus = "failed"
	StatusNoAnswer   CallStatus = "no-answer"
	StatusCanceled   CallStatus = "canceled"
)

// IsTerminal reports whether a status ends the call lifecycle.
func (s CallStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusBusy, StatusFailed, StatusNoAnswer, StatusCanceled:
		return true
	default:
		return false
	}
}

// ValidStatus reports whether s is a status this service recognizes.
func ValidStatus(s string) bool {
	switch CallStatus(s) {
	case StatusInitiated, StatusRinging, StatusInProgress, StatusCompleted,
		StatusBusy, StatusFailed, StatusNoAnswer, StatusCanceled:
		return true
	default:
		return false
	}
}
