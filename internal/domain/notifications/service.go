package notifications

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/metrics"
)

var ErrNotificationNotFound = apperror.ErrNotFound.WithMessage("notification not found")

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store   StoreAPI
	Mailer  Mailer
	From    string
	log     *zap.Logger
	metrics *metrics.Collector
}

func New(store StoreAPI, mailer Mailer, from string, log *zap.Logger, m *metrics.Collector) *Service {
	if from == "" {
		from = "no-reply@example.com"
	}
	return &Service{store: store, Mailer: mailer, From: from, log: log.Named("notifications"), metrics: m}
}

// Notify stores one notification and, when a mailer is configured, emails a
// copy. Only the insert can fail the call; mail problems are logged.
func (s *Service) Notify(ctx context.Context, n Notification) error {
	if strings.TrimSpace(n.RecipientID) == "" {
		return apperror.ErrValidation.WithMessage("notification recipient required")
	}
	if err := s.store.CreateNotification(ctx, &n); err != nil {
		return err
	}

	if s.Mailer == nil {
		return nil
	}
	email, err := s.store.UserEmail(ctx, n.RecipientID)
	if err != nil {
		s.log.Warn("notification email lookup failed", zap.String("recipientId", n.RecipientID), zap.Error(err))
		return nil
	}
	if email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, s.From, email, n.Title, n.Body); err != nil {
		s.log.Warn("notification email send failed", zap.String("recipientId", n.RecipientID), zap.Error(err))
	}
	return nil
}

// NotifyMany sends tmpl to each distinct recipient. Failures are logged and
// skipped, never returned; the count of stored notifications is.
func (s *Service) NotifyMany(ctx context.Context, recipientIDs []string, tmpl Notification) int {
	seen := make(map[string]struct{}, len(recipientIDs))
	delivered := 0
	for _, id := range recipientIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		n := tmpl
		n.RecipientID = id
		if err := s.Notify(ctx, n); err != nil {
			s.metrics.RecordNotificationFailure()
			s.log.Warn("notification create failed",
				zap.String("recipientId", id),
				zap.String("category", n.Category),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}
	return delivered
}

func (s *Service) List(ctx context.Context, recipientID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, recipientID, limit, offset)
}

func (s *Service) Count(ctx context.Context, recipientID string) (int, error) {
	return s.store.CountNotifications(ctx, recipientID)
}

func (s *Service) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	return s.store.MarkRead(ctx, recipientID, notificationID)
}
