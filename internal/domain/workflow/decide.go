package workflow

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/auth"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/balance"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/requests"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/tracing"
)

type DecideInput struct {
	RequestID string
	Actor     auth.Actor
	Outcome   requests.Outcome
	Comment   string
	// ExpectedState is the state the actor was shown. When set, a request
	// that has since moved is refused as a stale decision.
	ExpectedState requests.State
}

type Decision struct {
	Request requests.Request       `json:"request"`
	Event   requests.ApprovalEvent `json:"event"`
}

// Decide applies one approval or rejection. The request row is locked for
// the whole check-and-write, so of two racing decisions on the same stage
// only the first commits and the second sees the moved state.
func (e *Engine) Decide(ctx context.Context, in DecideInput) (_ Decision, err error) {
	ctx, span := tracing.Start(ctx, "workflow.Decide",
		attribute.String("request.id", in.RequestID),
		attribute.String("actor.role", string(in.Actor.Role)),
		attribute.String("outcome", string(in.Outcome)),
	)
	defer func() { tracing.End(span, err) }()

	fields := []zap.Field{
		zap.String("requestId", in.RequestID),
		zap.String("userId", in.Actor.UserID),
		zap.String("role", string(in.Actor.Role)),
		zap.String("outcome", string(in.Outcome)),
	}

	comment := strings.TrimSpace(in.Comment)
	if len(comment) > maxCommentLength {
		return Decision{}, e.refuse("decide", apperror.ErrValidation.WithMessage("comment is too long"), fields...)
	}

	var (
		req  requests.Request
		step requests.Step
		ev   requests.ApprovalEvent
	)
	err = e.store.InTx(ctx, func(ctx context.Context, tx requests.Tx) error {
		var err error
		req, err = tx.LockRequest(ctx, in.RequestID)
		if err != nil {
			return err
		}

		step, err = requests.Transition(req.State, in.Outcome, in.Actor.Role, in.ExpectedState)
		if err != nil {
			return err
		}
		if in.Actor.EmployeeID != "" && in.Actor.EmployeeID == req.EmployeeID {
			return apperror.ErrForbidden.WithMessage("you cannot decide your own request")
		}
		if err := e.checkApprover(ctx, in.Actor, req, step); err != nil {
			return err
		}
		if err := checkPriorApproval(ctx, tx, req, step, in.Outcome); err != nil {
			return err
		}

		now := e.now().UTC()
		if step.Next == requests.StateApproved && req.IsLeave() {
			if err := debitLeave(ctx, tx, req, now); err != nil {
				return err
			}
		}

		ev = requests.ApprovalEvent{
			RequestID:      req.ID,
			ApproverID:     in.Actor.UserID,
			Level:          step.Level,
			Outcome:        in.Outcome,
			ResultingState: step.Next,
			Comment:        comment,
			At:             now,
		}
		if err := tx.AppendEvent(ctx, &ev); err != nil {
			return err
		}
		if err := tx.UpdateState(ctx, req, step.Next); err != nil {
			return err
		}
		req.State = step.Next
		req.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Decision{}, e.refuse("decide", err, fields...)
	}

	e.log.Info("request decided",
		zap.String("requestId", req.ID),
		zap.String("kind", string(req.Kind)),
		zap.String("from", string(step.From)),
		zap.String("to", string(step.Next)),
		zap.Int("level", step.Level),
		zap.String("userId", in.Actor.UserID),
	)
	e.afterDecide(ctx, in.Actor, req, step, in.Outcome)
	return Decision{Request: req, Event: ev}, nil
}

// checkApprover enforces the reporting line at level 1. Admins act at any
// level without it.
func (e *Engine) checkApprover(ctx context.Context, actor auth.Actor, req requests.Request, step requests.Step) error {
	if step.Level != 1 || actor.Role == auth.RoleAdmin {
		return nil
	}
	if actor.EmployeeID == "" {
		return apperror.ErrForbidden.WithMessage("only the immediate supervisor can decide this request")
	}
	ok, err := e.identity.IsImmediateSupervisor(ctx, actor.EmployeeID, req.EmployeeID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.ErrForbidden.WithMessage("only the immediate supervisor can decide this request")
	}
	return nil
}

// checkPriorApproval requires a level-1 approval on record before a level-2
// approval, except for kinds that are routed straight to HR.
func checkPriorApproval(ctx context.Context, tx requests.Tx, req requests.Request, step requests.Step, outcome requests.Outcome) error {
	if step.Level != 2 || outcome != requests.OutcomeApprove {
		return nil
	}
	spec, ok := requests.Lookup(req.Kind)
	if !ok {
		return requests.ErrUnknownKind
	}
	if spec.SkipsSupervisor() {
		return nil
	}
	approved, err := tx.HasApproval(ctx, req.ID, 1)
	if err != nil {
		return err
	}
	if !approved {
		return requests.ErrMissingPriorApproval
	}
	return nil
}

// debitLeave rechecks the balance on the locked employee row and records the
// days as taken.
func debitLeave(ctx context.Context, tx requests.Tx, req requests.Request, now time.Time) error {
	emp, err := tx.LockEmployee(ctx, req.EmployeeID)
	if err != nil {
		return err
	}
	bal, err := balance.Compute(emp, now)
	if err != nil {
		return err
	}
	if !bal.Covers(req.Days) {
		return requests.ErrInsufficientBalance.WithDetails(map[string]any{
			"available": bal.Available,
			"requested": req.Days,
		})
	}
	return tx.AddDaysTaken(ctx, req.EmployeeID, req.Days)
}
