package workflow

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/balance"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/requests"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/tracing"
)

// CreateLeaveRequest files a leave request for the inclusive range
// start..end. The employee row stays locked while the balance and overlap
// checks run, so two concurrent requests cannot both pass them.
func (e *Engine) CreateLeaveRequest(ctx context.Context, employeeID string, start, end time.Time, reason string) (_ requests.Request, err error) {
	ctx, span := tracing.Start(ctx, "workflow.CreateLeaveRequest", attribute.String("employee.id", employeeID))
	defer func() { tracing.End(span, err) }()

	fields := []zap.Field{zap.String("employeeId", employeeID), zap.String("kind", string(requests.KindLeave))}

	r, err := requests.NewDateRange(start, end)
	if err != nil {
		return requests.Request{}, e.refuse("create_leave", err, fields...)
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > maxReasonLength {
		return requests.Request{}, e.refuse("create_leave", apperror.ErrValidation.WithMessage("reason is too long"), fields...)
	}

	spec, _ := requests.Lookup(requests.KindLeave)
	now := e.now().UTC()
	req := requests.Request{
		Kind:       requests.KindLeave,
		EmployeeID: employeeID,
		State:      spec.InitialState,
		Range:      &r,
		Days:       r.Days(),
		Reason:     reason,
		RequestDay: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = e.store.InTx(ctx, func(ctx context.Context, tx requests.Tx) error {
		emp, err := tx.LockEmployee(ctx, employeeID)
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

		overlap, err := tx.HasOverlap(ctx, employeeID, r)
		if err != nil {
			return err
		}
		if overlap {
			return requests.ErrOverlappingRequest
		}
		return tx.Insert(ctx, &req)
	})
	if err != nil {
		return requests.Request{}, e.refuse("create_leave", err, fields...)
	}

	e.log.Info("leave request created",
		zap.String("requestId", req.ID),
		zap.String("employeeId", employeeID),
		zap.Int("days", req.Days),
	)
	e.afterCreate(ctx, spec, req)
	return req, nil
}

// CreateGenericRequest files a request of any non-leave kind. Kinds that
// start in a terminal state are delivered immediately.
func (e *Engine) CreateGenericRequest(ctx context.Context, kind, employeeID string, payload json.RawMessage) (_ requests.Request, err error) {
	ctx, span := tracing.Start(ctx, "workflow.CreateGenericRequest",
		attribute.String("request.kind", kind),
		attribute.String("employee.id", employeeID),
	)
	defer func() { tracing.End(span, err) }()

	fields := []zap.Field{zap.String("employeeId", employeeID), zap.String("kind", kind)}

	spec, err := requests.LookupGeneric(kind)
	if err != nil {
		return requests.Request{}, e.refuse("create_generic", err, fields...)
	}
	parsed, err := spec.Parse(payload)
	if err != nil {
		return requests.Request{}, e.refuse("create_generic", err, fields...)
	}

	now := e.now().UTC()
	req := requests.Request{
		Kind:        spec.Kind,
		EmployeeID:  employeeID,
		State:       spec.InitialState,
		Detail:      parsed.Detail,
		PeriodStart: parsed.PeriodStart,
		PeriodEnd:   parsed.PeriodEnd,
		RequestDay:  requests.Day(now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = e.store.InTx(ctx, func(ctx context.Context, tx requests.Tx) error {
		emp, err := tx.LockEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		if emp.Status != balance.StatusActive {
			return balance.ErrEmployeeNotFound
		}

		if spec.OncePerDay {
			count, err := tx.CountOnDay(ctx, employeeID, spec.Kind, req.RequestDay)
			if err != nil {
				return err
			}
			if count > 0 {
				return requests.ErrDuplicatePerDay
			}
		}
		return tx.Insert(ctx, &req)
	})
	if err != nil {
		return requests.Request{}, e.refuse("create_generic", err, fields...)
	}

	e.log.Info("request created",
		zap.String("requestId", req.ID),
		zap.String("employeeId", employeeID),
		zap.String("kind", string(req.Kind)),
		zap.String("state", string(req.State)),
	)
	e.afterCreate(ctx, spec, req)
	return req, nil
}
