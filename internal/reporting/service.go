package reporting

import (
	"context"
	"errors"
	"time"

	"voiceagent/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// Implementations should query the immutable call records; reporting never
// writes.

type Repository interface {
	ListCalls(ctx context.Context, from, to time.Time) ([]calls.Call, error)
	RecentCalls(ctx context.Context, limit int) ([]calls.Call, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Dashboard aggregates all-time call metrics plus today's call count.
func (s *Service) Dashboard(ctx context.Context) (DashboardStats, error) {
	if s.repo == nil {
		return DashboardStats{}, errors.New("reporting: repository not configured")
	}

	now := s.clock().UTC()
	rows, err := s.repo.ListCalls(ctx, time.Time{}, now)
	if err != nil {
		return DashboardStats{}, err
	}

	out := aggregate(rows)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, c := range rows {
		if !c.CreatedAt.Before(midnight) {
			out.CallsToday++
		}
	}
	return out, nil
}

// CallsSummary aggregates over an explicit time range.
func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (DashboardStats, error) {
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return DashboardStats{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return DashboardStats{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCalls(ctx, req.Range.From, req.Range.To)
	if err != nil {
		return DashboardStats{}, err
	}
	return aggregate(rows), nil
}

// Recent returns the newest calls for the dashboard feed.
func (s *Service) Recent(ctx context.Context, limit int) ([]calls.Call, error) {
	if s.repo == nil {
		return nil, errors.New("reporting: repository not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	return s.repo.RecentCalls(ctx, limit)
}

func aggregate(rows []calls.Call) DashboardStats {
	var out DashboardStats
	terminal := 0
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		if c.RecordingURL != "" {
			out.RecordedCalls++
		}
		switch c.Status {
		case calls.StatusCompleted:
			out.CompletedCalls++
		case calls.StatusFailed:
			out.FailedCalls++
		case calls.StatusNoAnswer:
			out.NoAnswerCalls++
		case calls.StatusBusy:
			out.BusyCalls++
		case calls.StatusCanceled:
			out.CanceledCalls++
		case calls.StatusInProgress, calls.StatusRinging, calls.StatusInitiated:
			out.ActiveCalls++
		}
		if c.Status.IsTerminal() {
			terminal++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	if terminal > 0 {
		out.SuccessRate = float64(out.CompletedCalls) / float64(terminal)
	}
	return out
}
