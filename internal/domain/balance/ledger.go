// Package balance computes leave entitlement from tenure and consumed days.
package balance

import (
	"context"
	"time"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

var ErrEmployeeNotFound = apperror.ErrNotFound.WithMessage("employee not found or inactive")

type Employee struct {
	ID           string
	FullName     string
	HireDate     time.Time
	AnnualDays   int
	DaysTaken    int
	SupervisorID string
	Status       Status
}

type Balance struct {
	EmployeeID        string `json:"employeeId"`
	YearsOfService    int    `json:"yearsOfService"`
	AnnualEntitlement int    `json:"annualEntitlement"`
	Accrued           int    `json:"accrued"`
	Taken             int    `json:"taken"`
	Available         int    `json:"available"`
}

// Covers reports whether days can be granted from the available balance.
func (b Balance) Covers(days int) bool {
	return days <= b.Available
}

// YearsOfService counts completed years between hire and asOf.
func YearsOfService(hire, asOf time.Time) int {
	if hire.IsZero() || asOf.Before(hire) {
		return 0
	}
	years := asOf.Year() - hire.Year()
	if asOf.Month() < hire.Month() || (asOf.Month() == hire.Month() && asOf.Day() < hire.Day()) {
		years--
	}
	return max(years, 0)
}

// Compute derives the balance of an active employee at asOf.
func Compute(emp Employee, asOf time.Time) (Balance, error) {
	if emp.Status != StatusActive {
		return Balance{}, ErrEmployeeNotFound
	}
	years := YearsOfService(emp.HireDate, asOf)
	accrued := years * emp.AnnualDays
	return Balance{
		EmployeeID:        emp.ID,
		YearsOfService:    years,
		AnnualEntitlement: emp.AnnualDays,
		Accrued:           accrued,
		Taken:             emp.DaysTaken,
		Available:         accrued - emp.DaysTaken,
	}, nil
}

type Reader interface {
	Employee(ctx context.Context, employeeID string) (Employee, error)
}

// Ledger answers balance queries outside a workflow transaction. Checks that
// guard a mutation must use Compute on a row locked in the same transaction.
type Ledger struct {
	store Reader
	now   func() time.Time
}

func NewLedger(store Reader) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// WithClock returns a copy of l that evaluates tenure at now().
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	out := *l
	out.now = now
	return &out
}

func (l *Ledger) Employee(ctx context.Context, employeeID string) (Employee, error) {
	return l.store.Employee(ctx, employeeID)
}

func (l *Ledger) Available(ctx context.Context, employeeID string) (Balance, error) {
	emp, err := l.store.Employee(ctx, employeeID)
	if err != nil {
		return Balance{}, err
	}
	return Compute(emp, l.now())
}
