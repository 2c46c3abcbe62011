package requests

import (
	"encoding/json"
	"time"
)

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: Day(start), End: Day(end)}
	if r.Start.IsZero() || r.End.IsZero() || r.End.Before(r.Start) {
		return DateRange{}, ErrInvalidRange
	}
	return r, nil
}

// Days returns end - start + 1. Both ends are UTC midnights, so whole-second
// arithmetic is exact for any range.
func (r DateRange) Days() int {
	return int((r.End.Unix()-r.Start.Unix())/secondsPerDay) + 1
}

const secondsPerDay = 24 * 60 * 60

// Overlaps reports whether the two ranges share at least one day.
func (r DateRange) Overlaps(other DateRange) bool {
	return !(r.End.Before(other.Start) || r.Start.After(other.End))
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type Request struct {
	ID         string `json:"id"`
	Kind       Kind   `json:"kind"`
	EmployeeID string `json:"employeeId"`
	State      State  `json:"state"`

	// Leave requests only.
	Range  *DateRange `json:"range,omitempty"`
	Days   int        `json:"days,omitempty"`
	Reason string     `json:"reason,omitempty"`

	// Generic requests only.
	Detail      json.RawMessage `json:"detail,omitempty"`
	PeriodStart *time.Time      `json:"periodStart,omitempty"`
	PeriodEnd   *time.Time      `json:"periodEnd,omitempty"`
	RequestDay  time.Time       `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r Request) IsLeave() bool {
	return r.Kind == KindLeave
}

// ApprovalEvent is one append-only audit row per transition.
type ApprovalEvent struct {
	ID             string    `json:"id"`
	RequestID      string    `json:"requestId"`
	ApproverID     string    `json:"approverId"`
	Level          int       `json:"level"`
	Outcome        Outcome   `json:"outcome"`
	ResultingState State     `json:"resultingState"`
	Comment        string    `json:"comment,omitempty"`
	At             time.Time `json:"at"`
}

// PendingFilter selects requests awaiting action. An empty
// SupervisorEmployeeID matches every employee.
type PendingFilter struct {
	States               []State
	SupervisorEmployeeID string
}
