package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// DashboardStats is the aggregated call picture behind the admin dashboard.
type DashboardStats struct {
	TotalCalls  int `json:"total_calls"`
	CallsToday  int `json:"calls_today"`
	ActiveCalls int `json:"active_calls"`

	CompletedCalls int `json:"completed_calls"`
	FailedCalls    int `json:"failed_calls"`
	NoAnswerCalls  int `json:"no_answer_calls"`
	BusyCalls      int `json:"busy_calls"`
	CanceledCalls  int `json:"canceled_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	// SuccessRate is completed calls over terminal calls, 0..1.
	SuccessRate float64 `json:"success_rate"`

	RecordedCalls int `json:"recorded_calls"`
}

// CallsSummaryRequest requests aggregated call metrics over a range.
type CallsSummaryRequest struct {
	Range TimeRange `json:"range"`
}
