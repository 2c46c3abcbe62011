package requests

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
)

type Kind string

const (
	KindLeave          Kind = "leave"
	KindEarlyDeparture Kind = "early_departure"
	KindIncomeLetter   Kind = "income_letter"
	KindLunchCheckout  Kind = "lunch_checkout"
	KindPayslipLookup  Kind = "payslip_lookup"
)

// Spec declares how one request kind enters and moves through the state
// machine.
type Spec struct {
	Kind         Kind
	Label        string
	InitialState State
	// OncePerDay limits an employee to one request of this kind per calendar day.
	OncePerDay bool
	parse      func(raw json.RawMessage) (Parsed, error)
}

func (s Spec) RequiresApproval() bool {
	return !s.InitialState.Terminal()
}

// SkipsSupervisor reports whether the kind goes straight to HR, so level 2
// needs no prior level-1 approval.
func (s Spec) SkipsSupervisor() bool {
	return s.InitialState == StatePendingHR
}

// Parsed is a validated generic payload in its stored form.
type Parsed struct {
	Detail      json.RawMessage
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

// Parse validates a generic payload for this kind.
func (s Spec) Parse(raw json.RawMessage) (Parsed, error) {
	if s.parse == nil {
		return Parsed{}, ErrUnknownKind
	}
	return s.parse(raw)
}

var registry = map[Kind]Spec{
	KindLeave: {
		Kind:         KindLeave,
		Label:        "Leave",
		InitialState: StatePending,
	},
	KindEarlyDeparture: {
		Kind:         KindEarlyDeparture,
		Label:        "Early departure",
		InitialState: StatePending,
		parse:        parseEarlyDeparture,
	},
	KindIncomeLetter: {
		Kind:         KindIncomeLetter,
		Label:        "Income letter",
		InitialState: StatePendingHR,
		parse:        parseIncomeLetter,
	},
	KindLunchCheckout: {
		Kind:         KindLunchCheckout,
		Label:        "Lunch checkout",
		InitialState: StateDelivered,
		OncePerDay:   true,
		parse:        parseLunchCheckout,
	},
	KindPayslipLookup: {
		Kind:         KindPayslipLookup,
		Label:        "Payslip lookup",
		InitialState: StateDelivered,
		parse:        parsePayslipLookup,
	},
}

func Lookup(kind Kind) (Spec, bool) {
	spec, ok := registry[kind]
	return spec, ok
}

// LookupGeneric resolves a kind that is created through a generic payload.
func LookupGeneric(value string) (Spec, error) {
	spec, ok := registry[Kind(strings.ToLower(strings.TrimSpace(value)))]
	if !ok || spec.parse == nil {
		return Spec{}, ErrUnknownKind
	}
	return spec, nil
}

type EarlyDeparture struct {
	DateStart time.Time `json:"dateStart" validate:"required"`
	DateEnd   time.Time `json:"dateEnd" validate:"required"`
	Reason    string    `json:"reason" validate:"required,max=500"`
}

type IncomeLetter struct {
	Addressee string `json:"addressee" validate:"required,max=200"`
	Purpose   string `json:"purpose" validate:"required,max=500"`
}

type LunchCheckout struct {
	Note string `json:"note" validate:"max=200"`
}

type PayslipLookup struct {
	Year  int `json:"year" validate:"required,min=2000,max=2100"`
	Month int `json:"month" validate:"required,min=1,max=12"`
}

func decodeStrict(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.ErrValidation.WithMessage("invalid request payload").Wrap(err)
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	return apperror.ValidateStruct(dst)
}

// normalizer trims free text before validation so blank input fails
// "required".
type normalizer interface {
	normalize()
}

func (p *EarlyDeparture) normalize() { p.Reason = strings.TrimSpace(p.Reason) }

func (p *IncomeLetter) normalize() {
	p.Addressee = strings.TrimSpace(p.Addressee)
	p.Purpose = strings.TrimSpace(p.Purpose)
}

func (p *LunchCheckout) normalize() { p.Note = strings.TrimSpace(p.Note) }

func marshal(v any) (json.RawMessage, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, apperror.ErrValidation.Wrap(err)
	}
	return out, nil
}

func parseEarlyDeparture(raw json.RawMessage) (Parsed, error) {
	var p EarlyDeparture
	if err := decodeStrict(raw, &p); err != nil {
		return Parsed{}, err
	}
	if p.DateEnd.Before(p.DateStart) {
		return Parsed{}, apperror.ErrValidation.WithMessage("dateStart must be on or before dateEnd")
	}
	detail, err := marshal(p)
	if err != nil {
		return Parsed{}, err
	}
	start, end := p.DateStart.UTC(), p.DateEnd.UTC()
	return Parsed{Detail: detail, PeriodStart: &start, PeriodEnd: &end}, nil
}

func parseIncomeLetter(raw json.RawMessage) (Parsed, error) {
	var p IncomeLetter
	if err := decodeStrict(raw, &p); err != nil {
		return Parsed{}, err
	}
	detail, err := marshal(p)
	if err != nil {
		return Parsed{}, err
	}
	return Parsed{Detail: detail}, nil
}

func parseLunchCheckout(raw json.RawMessage) (Parsed, error) {
	var p LunchCheckout
	if err := decodeStrict(raw, &p); err != nil {
		return Parsed{}, err
	}
	detail, err := marshal(p)
	if err != nil {
		return Parsed{}, err
	}
	return Parsed{Detail: detail}, nil
}

func parsePayslipLookup(raw json.RawMessage) (Parsed, error) {
	var p PayslipLookup
	if err := decodeStrict(raw, &p); err != nil {
		return Parsed{}, err
	}
	detail, err := marshal(p)
	if err != nil {
		return Parsed{}, err
	}
	start := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return Parsed{Detail: detail, PeriodStart: &start, PeriodEnd: &end}, nil
}
