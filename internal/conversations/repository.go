package conversations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Store is the Postgres-backed conversation store.
//
// Assumed schema:
//
//	CREATE TABLE conversations (
//	  id         UUID PRIMARY KEY,
//	  call_id    UUID NOT NULL UNIQUE REFERENCES calls(id) ON DELETE CASCADE,
//	  messages   JSONB NOT NULL DEFAULT '[]',
//	  summary    TEXT NOT NULL DEFAULT '',
//	  intent     TEXT NOT NULL DEFAULT '',
//	  sentiment  TEXT NOT NULL DEFAULT '',
//	  metadata   JSONB NOT NULL DEFAULT '{}',
//	  created_at TIMESTAMPTZ NOT NULL,
//	  updated_at TIMESTAMPTZ NOT NULL
//	);

var (
	ErrNotFound        = errors.New("conversation not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

type Store struct {
	db    *sql.DB
	clock func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, clock: time.Now}
}

const convColumns = `id, call_id, messages, summary, intent, sentiment, metadata, created_at, updated_at`

// InsertTx creates the conversation alongside its call in one transaction.
// A duplicate call-started webhook hits the call_id conflict and reuses the
// existing row.
func (s *Store) InsertTx(ctx context.Context, tx *sql.Tx, c Conversation) (Conversation, error) {
	if c.ID == "" || c.CallID == "" {
		return Conversation{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Metadata == "" {
		c.Metadata = "{}"
	}

	msgs, err := marshalMessages(c.Messages)
	if err != nil {
		return Conversation{}, err
	}

	const q = `
INSERT INTO conversations (` + convColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (call_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
RETURNING ` + convColumns + `
`
	return scanConversation(tx.QueryRowContext(ctx, q,
		c.ID,
		c.CallID,
		msgs,
		c.Summary,
		c.Intent,
		c.Sentiment,
		c.Metadata,
		c.CreatedAt,
		c.UpdatedAt,
	))
}

// GetByCallID loads the conversation owned by a call.
func (s *Store) GetByCallID(ctx context.Context, callID string) (Conversation, error) {
	if callID == "" {
		return Conversation{}, ErrInvalidArgument
	}
	const q = `SELECT ` + convColumns + ` FROM conversations WHERE call_id = $1`
	return scanConversation(s.db.QueryRowContext(ctx, q, callID))
}

// SaveMessages persists the full message sequence plus the derived
// intent/sentiment fields after a turn.
func (s *Store) SaveMessages(ctx context.Context, c Conversation) error {
	if c.ID == "" {
		return ErrInvalidArgument
	}
	msgs, err := marshalMessages(c.Messages)
	if err != nil {
		return err
	}
	const q = `
UPDATE conversations
SET messages = $2, intent = $3, sentiment = $4, updated_at = $5
WHERE id = $1
`
	res, err := s.db.ExecContext(ctx, q, c.ID, msgs, c.Intent, c.Sentiment, s.clock().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetSummary stores the end-of-call summary.
func (s *Store) SetSummary(ctx context.Context, id, summary string) error {
	if id == "" {
		return ErrInvalidArgument
	}
	const q = `UPDATE conversations SET summary = $2, updated_at = $3 WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, id, summary, s.clock().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func marshalMessages(msgs []Message) ([]byte, error) {
	if msgs == nil {
		msgs = []Message{}
	}
	return json.Marshal(msgs)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(r rowScanner) (Conversation, error) {
	var c Conversation
	var msgs []byte
	err := r.Scan(
		&c.ID,
		&c.CallID,
		&msgs,
		&c.Summary,
		&c.Intent,
		&c.Sentiment,
		&c.Metadata,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, err
	}
	if len(msgs) > 0 {
		if err := json.Unmarshal(msgs, &c.Messages); err != nil {
			return Conversation{}, err
		}
	}
	return c, nil
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
