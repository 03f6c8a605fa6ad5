package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to end users.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogOutboundCall records an operator-initiated outbound call.
func (s *Service) LogOutboundCall(ctx context.Context, actorUserID, actorRole, ip, callID, toNumber string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeOutboundCall,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		CallID:      callID,
		Message:     "outbound call to " + toNumber,
	})
}

// LogVoiceChange records creation or deletion of a voice profile.
func (s *Service) LogVoiceChange(ctx context.Context, eventType EventType, actorUserID, actorRole, ip, voiceID, message string) error {
	return s.Append(ctx, Event{
		Type:        eventType,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		VoiceID:     voiceID,
		Message:     message,
	})
}
