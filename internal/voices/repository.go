package voices

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Store is the Postgres-backed voice profile store.
//
// Assumed schema:
//
//	CREATE TABLE voice_profiles (
//	  id                UUID PRIMARY KEY,
//	  name              TEXT NOT NULL,
//	  description       TEXT NOT NULL DEFAULT '',
//	  provider_voice_id TEXT NOT NULL UNIQUE,
//	  sample_audio_urls JSONB NOT NULL DEFAULT '[]',
//	  is_active         BOOLEAN NOT NULL DEFAULT TRUE,
//	  user_id           TEXT NOT NULL DEFAULT '',
//	  metadata          JSONB NOT NULL DEFAULT '{}',
//	  created_at        TIMESTAMPTZ NOT NULL,
//	  updated_at        TIMESTAMPTZ NOT NULL
//	);

var (
	ErrNotFound        = errors.New("voice profile not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

type Store struct {
	db    *sql.DB
	clock func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, clock: time.Now}
}

const profileColumns = `id, name, description, provider_voice_id, sample_audio_urls,
       is_active, user_id, metadata, created_at, updated_at`

func (s *Store) Insert(ctx context.Context, p Profile) (Profile, error) {
	if p.ID == "" || p.Name == "" || p.ProviderVoiceID == "" {
		return Profile{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Metadata == "" {
		p.Metadata = "{}"
	}
	samples, err := marshalSamples(p.SampleAudioURLs)
	if err != nil {
		return Profile{}, err
	}

	const q = `
INSERT INTO voice_profiles (` + profileColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING ` + profileColumns + `
`
	return scanProfile(s.db.QueryRowContext(ctx, q,
		p.ID,
		p.Name,
		p.Description,
		p.ProviderVoiceID,
		samples,
		p.IsActive,
		p.UserID,
		p.Metadata,
		p.CreatedAt,
		p.UpdatedAt,
	))
}

func (s *Store) GetByID(ctx context.Context, id string) (Profile, error) {
	if id == "" {
		return Profile{}, ErrInvalidArgument
	}
	const q = `SELECT ` + profileColumns + ` FROM voice_profiles WHERE id = $1`
	return scanProfile(s.db.QueryRowContext(ctx, q, id))
}

// FirstActive returns the profile the orchestrator speaks with. Selection is
// first-active by creation time; there is no tie-break policy beyond that.
func (s *Store) FirstActive(ctx context.Context) (Profile, error) {
	const q = `
SELECT ` + profileColumns + `
FROM voice_profiles
WHERE is_active = TRUE
ORDER BY created_at ASC
LIMIT 1
`
	return scanProfile(s.db.QueryRowContext(ctx, q))
}

func (s *Store) List(ctx context.Context) ([]Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM voice_profiles ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidArgument
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM voice_profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalSamples(urls []string) ([]byte, error) {
	if urls == nil {
		urls = []string{}
	}
	return json.Marshal(urls)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(r rowScanner) (Profile, error) {
	var p Profile
	var samples []byte
	err := r.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.ProviderVoiceID,
		&samples,
		&p.IsActive,
		&p.UserID,
		&p.Metadata,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	if len(samples) > 0 {
		if err := json.Unmarshal(samples, &p.SampleAudioURLs); err != nil {
			return Profile{}, err
		}
	}
	return p, nil
}
