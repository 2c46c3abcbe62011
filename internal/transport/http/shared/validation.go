package shared

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/requests"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/transport/http/api"
)

// FieldIssue names one rejected input field.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validator collects field issues from hand-decoded payloads so a client sees
// every problem in one VALIDATION_ERROR response.
type Validator struct {
	issues []FieldIssue
}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Add(field, reason string) {
	if reason = strings.TrimSpace(reason); reason == "" {
		return
	}
	v.issues = append(v.issues, FieldIssue{Field: strings.TrimSpace(field), Reason: reason})
}

func (v *Validator) MaxLength(field, value string, limit int) {
	if len([]rune(strings.TrimSpace(value))) > limit {
		v.Add(field, fmt.Sprintf("must be at most %d characters", limit))
	}
}

// Date parses a calendar date. The zero time is returned on failure.
func (v *Validator) Date(field, raw string) (time.Time, bool) {
	parsed, err := ParseDate(strings.TrimSpace(raw))
	if err != nil {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return parsed, true
}

// DateOrder flags both fields when end precedes start. Unparsed dates are
// already reported by Date and are skipped here.
func (v *Validator) DateOrder(startField string, start time.Time, endField string, end time.Time) {
	if start.IsZero() || end.IsZero() || !end.Before(start) {
		return
	}
	v.Add(startField, "must be on or before "+endField)
	v.Add(endField, "must be on or after "+startField)
}

func (v *Validator) Outcome(field, raw string) requests.Outcome {
	outcome, err := requests.ParseOutcome(raw)
	if err != nil {
		v.Add(field, "must be approve or reject")
	}
	return outcome
}

// State requires a known request state. Decisions carry the state the client
// acted on so a decision that lost a race is refused instead of landing on
// the next stage.
func (v *Validator) State(field, raw string) requests.State {
	if strings.TrimSpace(raw) == "" {
		v.Add(field, "is required")
		return ""
	}
	state, ok := requests.ParseState(raw)
	if !ok {
		v.Add(field, "must be a known request state")
	}
	return state
}

// Issues returns the collected issues ordered by field, then reason.
func (v *Validator) Issues() []FieldIssue {
	out := slices.Clone(v.issues)
	slices.SortStableFunc(out, func(a, b FieldIssue) int {
		if c := cmp.Compare(a.Field, b.Field); c != 0 {
			return c
		}
		return cmp.Compare(a.Reason, b.Reason)
	})
	return out
}

// Err is nil when nothing was rejected.
func (v *Validator) Err() error {
	if len(v.issues) == 0 {
		return nil
	}
	return apperror.ErrValidation.
		WithMessage("payload validation failed").
		WithDetails(map[string]any{"fields": v.Issues()})
}

// Reject writes the validation failure and reports whether it did.
func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	err := v.Err()
	if err == nil {
		return false
	}
	api.FailError(w, err, requestID)
	return true
}
