package voices

import "time"

// Profile is a cloned or configured synthesis voice.
//
// The orchestrator looks profiles up by the active flag and only borrows the
// external voice id; profile lifecycle is owned by the admin API.

type Profile struct {
	ID string `json:"id" db:"id"`

	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`

	// ProviderVoiceID is the synthesis provider's identifier (unique).
	ProviderVoiceID string `json:"provider_voice_id" db:"provider_voice_id"`

	// SampleAudioURLs reference the training samples used for cloning.
	SampleAudioURLs []string `json:"sample_audio_urls,omitempty" db:"sample_audio_urls"`

	IsActive bool `json:"is_active" db:"is_active"`

	// UserID optionally scopes the profile to an owning user.
	UserID string `json:"user_id,omitempty" db:"user_id"`

	// Metadata is optional JSON.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
