package speech

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// AudioStore writes synthesized reply audio to local disk and hands back the
// public URL the telephony provider fetches it from. The directory is served
// as static content by the HTTP layer.

type AudioStore struct {
	dir     string
	baseURL string
}

func NewAudioStore(dir, baseURL string) (*AudioStore, error) {
	if dir == "" {
		return nil, errors.New("speech: audio dir is required")
	}
	if baseURL == "" {
		return nil, errors.New("speech: audio base url is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("speech: create audio dir: %w", err)
	}
	return &AudioStore{dir: dir, baseURL: baseURL}, nil
}

// Save writes audio for one turn, keyed by call SID and turn index so
// successive replies in a call do not overwrite each other.
func (s *AudioStore) Save(callSID string, turn int, audio []byte) (string, error) {
	if callSID == "" {
		return "", errors.New("speech: call sid is required")
	}
	if len(audio) == 0 {
		return "", errors.New("speech: empty audio")
	}

	name := fmt.Sprintf("%s-%d.mp3", callSID, turn)
	if err := os.WriteFile(filepath.Join(s.dir, name), audio, 0o644); err != nil {
		return "", fmt.Errorf("speech: write audio: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

// Dir exposes the storage directory for static file serving.
func (s *AudioStore) Dir() string { return s.dir }
