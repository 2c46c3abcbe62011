package requests

import (
	"context"
	"time"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/balance"
)

// Tx is the set of operations available inside one workflow transaction.
// Locks taken through it are held until the transaction ends.
type Tx interface {
	LockEmployee(ctx context.Context, employeeID string) (balance.Employee, error)
	HasOverlap(ctx context.Context, employeeID string, r DateRange) (bool, error)
	CountOnDay(ctx context.Context, employeeID string, kind Kind, day time.Time) (int, error)
	Insert(ctx context.Context, req *Request) error
	LockRequest(ctx context.Context, requestID string) (Request, error)
	HasApproval(ctx context.Context, requestID string, level int) (bool, error)
	AppendEvent(ctx context.Context, event *ApprovalEvent) error
	UpdateState(ctx context.Context, req Request, state State) error
	AddDaysTaken(ctx context.Context, employeeID string, days int) error
}

type StoreAPI interface {
	// InTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	ListByEmployee(ctx context.Context, employeeID string) ([]Request, error)
	ListPending(ctx context.Context, filter PendingFilter) ([]Request, error)
	Get(ctx context.Context, requestID string) (Request, error)
	Events(ctx context.Context, requestID string) ([]ApprovalEvent, error)
}
