package callflow

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"voiceagent/internal/calls"
	"voiceagent/internal/conversations"
	"voiceagent/pkg/utils"
)

// Stores bundles the per-entity repositories behind the one multi-row
// operation the orchestrator needs: creating a call together with its empty
// conversation in a single transaction.
type Stores struct {
	db    *sql.DB
	calls *calls.Store
	convs *conversations.Store
}

func NewStores(db *sql.DB, callStore *calls.Store, convStore *conversations.Store) (*Stores, error) {
	if db == nil || callStore == nil || convStore == nil {
		return nil, errors.New("callflow: db and stores are required")
	}
	return &Stores{db: db, calls: callStore, convs: convStore}, nil
}

// CreateCallWithConversation inserts the call and its conversation
// atomically. Replayed webhooks for an already-known provider SID return the
// existing pair instead of creating duplicates.
func (s *Stores) CreateCallWithConversation(ctx context.Context, c calls.Call) (calls.Call, conversations.Conversation, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	var (
		call calls.Call
		conv conversations.Conversation
	)
	err := utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		call, err = s.calls.InsertTx(ctx, tx, c)
		if err != nil {
			return err
		}
		conv, err = s.convs.InsertTx(ctx, tx, conversations.Conversation{
			ID:     uuid.NewString(),
			CallID: call.ID,
		})
		return err
	})
	if err != nil {
		return calls.Call{}, conversations.Conversation{}, err
	}
	return call, conv, nil
}
