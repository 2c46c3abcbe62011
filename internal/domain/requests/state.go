package requests

import (
	"slices"
	"strings"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/auth"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
)

type State string

const (
	StatePending   State = "pending"
	StatePendingHR State = "pending_hr"
	StateApproved  State = "approved"
	StateRejected  State = "rejected"
	StateDelivered State = "delivered"
)

// OpenStates are the states a leave range counts against for overlap.
var OpenStates = []State{StatePending, StatePendingHR, StateApproved}

func ParseState(value string) (State, bool) {
	s := State(strings.ToLower(strings.TrimSpace(value)))
	switch s {
	case StatePending, StatePendingHR, StateApproved, StateRejected, StateDelivered:
		return s, true
	}
	return "", false
}

func (s State) Terminal() bool {
	return s == StateApproved || s == StateRejected || s == StateDelivered
}

// stage orders states along the approval chain: 1 and 2 are the approval
// levels, anything terminal sorts after both.
func (s State) stage() int {
	switch s {
	case StatePending:
		return 1
	case StatePendingHR:
		return 2
	default:
		return 3
	}
}

type Outcome string

const (
	OutcomeApprove Outcome = "approve"
	OutcomeReject  Outcome = "reject"
)

func ParseOutcome(value string) (Outcome, error) {
	switch o := Outcome(strings.ToLower(strings.TrimSpace(value))); o {
	case OutcomeApprove, OutcomeReject:
		return o, nil
	}
	return "", ErrInvalidOutcome
}

// Step is a legal transition together with the approval level it records.
type Step struct {
	From  State
	Next  State
	Level int
}

func (s Step) Final() bool {
	return s.Next.Terminal()
}

// stages lists the approval levels a role may act at.
func stages(role auth.Role) []int {
	switch role {
	case auth.RoleSupervisor:
		return []int{1}
	case auth.RoleHR:
		return []int{2}
	case auth.RoleAdmin:
		return []int{1, 2}
	}
	return nil
}

// Transition validates outcome on a request in current for an actor holding
// role. expected, when set, is the state the actor saw; a mismatch means
// someone else acted first.
func Transition(current State, outcome Outcome, role auth.Role, expected State) (Step, error) {
	if outcome != OutcomeApprove && outcome != OutcomeReject {
		return Step{}, ErrInvalidOutcome
	}
	if current.Terminal() {
		return Step{}, ErrInvalidTransition
	}
	if expected != "" && expected != current {
		return Step{}, ErrInvalidTransition
	}

	level := current.stage()
	allowed := stages(role)
	if !slices.Contains(allowed, level) {
		if len(allowed) > 0 && allowed[len(allowed)-1] < level {
			return Step{}, ErrInvalidTransition
		}
		return Step{}, apperror.ErrForbidden
	}

	step := Step{From: current, Level: level}
	switch {
	case outcome == OutcomeReject:
		step.Next = StateRejected
	case current == StatePending:
		step.Next = StatePendingHR
	default:
		step.Next = StateApproved
	}
	return step, nil
}
