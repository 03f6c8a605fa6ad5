package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Store is the Postgres-backed call record store.
//
// Assumed schema:
//
//	CREATE TABLE calls (
//	  id                UUID PRIMARY KEY,
//	  provider_call_sid TEXT NOT NULL UNIQUE,
//	  direction         TEXT NOT NULL,
//	  from_number       TEXT NOT NULL,
//	  to_number         TEXT NOT NULL,
//	  status            TEXT NOT NULL,
//	  duration_seconds  INT NOT NULL DEFAULT 0,
//	  recording_url     TEXT NOT NULL DEFAULT '',
//	  transcription     TEXT NOT NULL DEFAULT '',
//	  metadata          JSONB NOT NULL DEFAULT '{}',
//	  created_at        TIMESTAMPTZ NOT NULL,
//	  updated_at        TIMESTAMPTZ NOT NULL
//	);

var (
	ErrNotFound        = errors.New("call not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

type Store struct {
	db *sql.DB
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, clock: time.Now}
}

const callColumns = `id, provider_call_sid, direction, from_number, to_number, status,
       duration_seconds, recording_url, transcription, metadata, created_at, updated_at`

// InsertTx inserts a call inside an existing transaction. Webhook creation
// runs together with the conversation insert, so both rows exist or neither.
//
// ON CONFLICT makes call-started delivery idempotent: a duplicate webhook
// reuses the existing row instead of creating a second session.
func (s *Store) InsertTx(ctx context.Context, tx *sql.Tx, c Call) (Call, error) {
	if c.ID == "" || c.ProviderCallSID == "" {
		return Call{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Metadata == "" {
		c.Metadata = "{}"
	}

	const q = `
INSERT INTO calls (` + callColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (provider_call_sid) DO UPDATE SET updated_at = EXCLUDED.updated_at
RETURNING ` + callColumns + `
`
	return scanCall(tx.QueryRowContext(ctx, q,
		c.ID,
		c.ProviderCallSID,
		c.Direction,
		c.FromNumber,
		c.ToNumber,
		c.Status,
		c.DurationSeconds,
		c.RecordingURL,
		c.Transcription,
		c.Metadata,
		c.CreatedAt,
		c.UpdatedAt,
	))
}

// GetBySID loads a call by the provider session identifier.
func (s *Store) GetBySID(ctx context.Context, sid string) (Call, error) {
	if sid == "" {
		return Call{}, ErrInvalidArgument
	}
	const q = `SELECT ` + callColumns + ` FROM calls WHERE provider_call_sid = $1`
	return scanCall(s.db.QueryRowContext(ctx, q, sid))
}

func (s *Store) GetByID(ctx context.Context, id string) (Call, error) {
	if id == "" {
		return Call{}, ErrInvalidArgument
	}
	const q = `SELECT ` + callColumns + ` FROM calls WHERE id = $1`
	return scanCall(s.db.QueryRowContext(ctx, q, id))
}

// UpdateStatus records a provider-reported status verbatim.
func (s *Store) UpdateStatus(ctx context.Context, sid string, status CallStatus) error {
	if sid == "" || status == "" {
		return ErrInvalidArgument
	}
	const q = `UPDATE calls SET status = $2, updated_at = $3 WHERE provider_call_sid = $1`
	res, err := s.db.ExecContext(ctx, q, sid, status, s.clock().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Complete marks the call completed and stores the final duration and
// recording reference.
func (s *Store) Complete(ctx context.Context, sid string, durationSeconds int, recordingURL string) error {
	if sid == "" {
		return ErrInvalidArgument
	}
	const q = `
UPDATE calls
SET status = $2, duration_seconds = $3, recording_url = $4, updated_at = $5
WHERE provider_call_sid = $1
`
	res, err := s.db.ExecContext(ctx, q, sid, StatusCompleted, durationSeconds, recordingURL, s.clock().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetRecordingURL stores the recording reference delivered by the
// recording-ready webhook after the call ends.
func (s *Store) SetRecordingURL(ctx context.Context, sid, recordingURL string) error {
	if sid == "" || recordingURL == "" {
		return ErrInvalidArgument
	}
	const q = `UPDATE calls SET recording_url = $2, updated_at = $3 WHERE provider_call_sid = $1`
	res, err := s.db.ExecContext(ctx, q, sid, recordingURL, s.clock().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// List returns calls ordered newest-first, plus the total row count for
// pagination.
func (s *Store) List(ctx context.Context, page, pageSize int) ([]Call, int, error) {
	if page < 1 || pageSize < 1 {
		return nil, 0, ErrInvalidArgument
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls`).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `
SELECT ` + callColumns + `
FROM calls
ORDER BY created_at DESC
OFFSET $1 LIMIT $2
`
	rows, err := s.db.QueryContext(ctx, q, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCallRows(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// ListByCreatedAt returns calls created within [from, to]. A zero from means
// no lower bound.
func (s *Store) ListByCreatedAt(ctx context.Context, from, to time.Time) ([]Call, error) {
	if to.IsZero() {
		return nil, ErrInvalidArgument
	}
	const q = `
SELECT ` + callColumns + `
FROM calls
WHERE created_at >= $1 AND created_at <= $2
ORDER BY created_at DESC
`
	rows, err := s.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCallRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Recent returns the most recent calls up to limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]Call, error) {
	if limit < 1 {
		return nil, ErrInvalidArgument
	}
	const q = `SELECT ` + callColumns + ` FROM calls ORDER BY created_at DESC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCallRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(r rowScanner) (Call, error) {
	var c Call
	err := r.Scan(
		&c.ID,
		&c.ProviderCallSID,
		&c.Direction,
		&c.FromNumber,
		&c.ToNumber,
		&c.Status,
		&c.DurationSeconds,
		&c.RecordingURL,
		&c.Transcription,
		&c.Metadata,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	return c, nil
}

func scanCallRows(rows *sql.Rows) (Call, error) {
	return scanCall(rows)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
