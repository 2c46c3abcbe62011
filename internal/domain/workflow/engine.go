// Package workflow runs the request approval chain: creation, the
// supervisor and HR decisions, and the notifications and lifecycle events
// that follow a committed change.
package workflow

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/balance"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/identity"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/notifications"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/requests"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/events"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/metrics"
)

const (
	maxReasonLength  = 500
	maxCommentLength = 1000
	publishTimeout   = 5 * time.Second
)

// Notifier fans a notification out to many recipients. It never fails the
// caller; the return value is the number actually stored.
type Notifier interface {
	NotifyMany(ctx context.Context, recipientIDs []string, tmpl notifications.Notification) int
}

type Options struct {
	Store     requests.StoreAPI
	Identity  identity.Resolver
	Employees balance.Reader
	Notifier  Notifier
	Events    events.Publisher
	Metrics   *metrics.Collector
	Logger    *zap.Logger
	// Company is printed on issued letters.
	Company string
	Now     func() time.Time
}

type Engine struct {
	store    requests.StoreAPI
	identity identity.Resolver
	ledger   *balance.Ledger
	notifier Notifier
	events   events.Publisher
	metrics  *metrics.Collector
	log      *zap.Logger
	company  string
	now      func() time.Time
}

func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	pub := opts.Events
	if pub == nil {
		pub = events.NewNoopPublisher()
	}
	return &Engine{
		store:    opts.Store,
		identity: opts.Identity,
		ledger:   balance.NewLedger(opts.Employees).WithClock(now),
		notifier: opts.Notifier,
		events:   pub,
		metrics:  opts.Metrics,
		log:      log.Named("workflow.engine"),
		company:  opts.Company,
		now:      now,
	}
}

// refuse records a failed operation. Domain errors pass through unchanged;
// anything else is a store failure and is wrapped as one.
func (e *Engine) refuse(op string, err error, fields ...zap.Field) error {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		e.log.Error("workflow store failure", append(fields, zap.String("op", op), zap.Error(err))...)
		e.metrics.RecordRejection(apperror.CodeStore)
		return apperror.ErrStore.Wrap(err)
	}

	e.metrics.RecordRejection(appErr.Code)
	switch appErr.Code {
	case apperror.CodeForbidden, apperror.CodeInvalidTransition, apperror.CodeMissingPriorApproval:
		e.log.Warn("workflow operation refused", append(fields, zap.String("op", op), zap.String("code", appErr.Code))...)
	case apperror.CodeStore:
		e.log.Error("workflow store failure", append(fields, zap.String("op", op), zap.Error(err))...)
	default:
		e.log.Debug("workflow operation rejected", append(fields, zap.String("op", op), zap.String("code", appErr.Code))...)
	}
	return err
}
