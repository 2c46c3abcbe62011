package workflow

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/auth"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/balance"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/letters"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/requests"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/tracing"
)

type Detail struct {
	Request requests.Request         `json:"request"`
	Events  []requests.ApprovalEvent `json:"events"`
}

// ListMine returns the employee's leave and generic requests, newest first.
func (e *Engine) ListMine(ctx context.Context, employeeID string) ([]requests.Request, error) {
	items, err := e.store.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, e.refuse("list_mine", err, zap.String("employeeId", employeeID))
	}
	if items == nil {
		items = []requests.Request{}
	}
	return items, nil
}

// pendingFilter maps a role onto the approval queue it works from.
func pendingFilter(actor auth.Actor) (requests.PendingFilter, bool) {
	switch actor.Role {
	case auth.RoleSupervisor:
		return requests.PendingFilter{
			States:               []requests.State{requests.StatePending},
			SupervisorEmployeeID: actor.EmployeeID,
		}, actor.EmployeeID != ""
	case auth.RoleHR:
		return requests.PendingFilter{States: []requests.State{requests.StatePendingHR}}, true
	case auth.RoleAdmin:
		return requests.PendingFilter{States: []requests.State{requests.StatePending, requests.StatePendingHR}}, true
	}
	return requests.PendingFilter{}, false
}

func (e *Engine) ListPending(ctx context.Context, actor auth.Actor) (_ []requests.Request, err error) {
	ctx, span := tracing.Start(ctx, "workflow.ListPending", attribute.String("actor.role", string(actor.Role)))
	defer func() { tracing.End(span, err) }()

	fields := []zap.Field{zap.String("userId", actor.UserID), zap.String("role", string(actor.Role))}
	if !actor.Role.Approver() {
		return nil, e.refuse("list_pending", apperror.ErrForbidden, fields...)
	}
	filter, ok := pendingFilter(actor)
	if !ok {
		return []requests.Request{}, nil
	}

	items, err := e.store.ListPending(ctx, filter)
	if err != nil {
		return nil, e.refuse("list_pending", err, fields...)
	}
	if items == nil {
		items = []requests.Request{}
	}
	return items, nil
}

// canView reports whether actor may read req. Approver roles see every
// request; everyone else only their own.
func canView(actor auth.Actor, req requests.Request) bool {
	if actor.Role.Approver() {
		return true
	}
	return actor.EmployeeID != "" && actor.EmployeeID == req.EmployeeID
}

func (e *Engine) GetDetail(ctx context.Context, requestID string, actor auth.Actor) (Detail, error) {
	fields := []zap.Field{zap.String("requestId", requestID), zap.String("userId", actor.UserID)}

	req, err := e.store.Get(ctx, requestID)
	if err != nil {
		return Detail{}, e.refuse("get_detail", err, fields...)
	}
	if !canView(actor, req) {
		return Detail{}, e.refuse("get_detail", apperror.ErrForbidden, fields...)
	}

	evs, err := e.store.Events(ctx, requestID)
	if err != nil {
		return Detail{}, e.refuse("get_detail", err, fields...)
	}
	if evs == nil {
		evs = []requests.ApprovalEvent{}
	}
	return Detail{Request: req, Events: evs}, nil
}

func (e *Engine) Balance(ctx context.Context, employeeID string) (balance.Balance, error) {
	bal, err := e.ledger.Available(ctx, employeeID)
	if err != nil {
		return balance.Balance{}, e.refuse("balance", err, zap.String("employeeId", employeeID))
	}
	return bal, nil
}

// IncomeLetter renders the PDF for an approved income-letter request. The
// owner, HR and admins may download it.
func (e *Engine) IncomeLetter(ctx context.Context, requestID string, actor auth.Actor) (_ []byte, err error) {
	ctx, span := tracing.Start(ctx, "workflow.IncomeLetter", attribute.String("request.id", requestID))
	defer func() { tracing.End(span, err) }()

	fields := []zap.Field{zap.String("requestId", requestID), zap.String("userId", actor.UserID)}

	req, err := e.store.Get(ctx, requestID)
	if err != nil {
		return nil, e.refuse("income_letter", err, fields...)
	}
	owner := actor.EmployeeID != "" && actor.EmployeeID == req.EmployeeID
	if !owner && actor.Role != auth.RoleHR && actor.Role != auth.RoleAdmin {
		return nil, e.refuse("income_letter", apperror.ErrForbidden, fields...)
	}
	if req.Kind != requests.KindIncomeLetter || req.State != requests.StateApproved {
		return nil, e.refuse("income_letter",
			requests.ErrInvalidTransition.WithMessage("only approved income letters can be issued"), fields...)
	}

	var detail requests.IncomeLetter
	if err := json.Unmarshal(req.Detail, &detail); err != nil {
		return nil, e.refuse("income_letter", err, fields...)
	}
	emp, err := e.ledger.Employee(ctx, req.EmployeeID)
	if err != nil {
		return nil, e.refuse("income_letter", err, fields...)
	}

	out, err := letters.RenderIncomeLetter(letters.IncomeLetter{
		Company:      e.company,
		EmployeeName: emp.FullName,
		HireDate:     emp.HireDate,
		Addressee:    detail.Addressee,
		Purpose:      detail.Purpose,
		IssuedAt:     req.UpdatedAt,
		Reference:    req.ID,
	})
	if err != nil {
		return nil, e.refuse("income_letter", err, fields...)
	}
	return out, nil
}
