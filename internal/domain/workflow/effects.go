package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/auth"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/notifications"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/requests"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/events"
)

// Everything in this file runs after the transaction committed. Failures
// are logged and counted but never undo or fail the operation.

func requestLink(id string) string {
	return "/requests/" + id
}

func label(kind requests.Kind) string {
	if spec, ok := requests.Lookup(kind); ok {
		return spec.Label
	}
	return string(kind)
}

func (e *Engine) afterCreate(ctx context.Context, spec requests.Spec, req requests.Request) {
	ctx = context.WithoutCancel(ctx)
	link := requestLink(req.ID)

	if !req.IsLeave() {
		tmpl := notifications.Notification{
			Title:    spec.Label + " submitted",
			Body:     fmt.Sprintf("Your %s request was received.", spec.Label),
			Category: notifications.CategoryRequestSubmitted,
			Link:     link,
		}
		if !spec.RequiresApproval() {
			tmpl.Title = spec.Label + " delivered"
			tmpl.Body = fmt.Sprintf("Your %s request was delivered.", spec.Label)
			tmpl.Category = notifications.CategoryRequestDelivered
		}
		e.notify(ctx, e.requesterRecipients(ctx, req), tmpl)
	}

	switch req.State {
	case requests.StatePending:
		e.notify(ctx, e.supervisorRecipients(ctx, req), notifications.Notification{
			Title:    spec.Label + " awaiting your approval",
			Body:     fmt.Sprintf("A %s request from one of your reports needs a decision.", spec.Label),
			Category: notifications.CategoryAwaitingApproval,
			Link:     link,
		})
	case requests.StatePendingHR:
		e.notify(ctx, e.hrRecipients(ctx), notifications.Notification{
			Title:    spec.Label + " awaiting HR",
			Body:     fmt.Sprintf("A %s request needs HR review.", spec.Label),
			Category: notifications.CategoryAwaitingHR,
			Link:     link,
		})
	}

	e.publish(ctx, events.RequestEvent{
		Type:       events.TypeRequestCreated,
		RequestID:  req.ID,
		Kind:       string(req.Kind),
		EmployeeID: req.EmployeeID,
		To:         string(req.State),
		OccurredAt: req.CreatedAt,
	})
	e.metrics.RecordTransition(fmt.Sprintf("%s:new->%s", req.Kind, req.State))
}

func (e *Engine) afterDecide(ctx context.Context, actor auth.Actor, req requests.Request, step requests.Step, outcome requests.Outcome) {
	ctx = context.WithoutCancel(ctx)
	link := requestLink(req.ID)
	name := label(req.Kind)

	tmpl := notifications.Notification{Link: link}
	switch step.Next {
	case requests.StatePendingHR:
		tmpl.Title = name + " approved by supervisor"
		tmpl.Body = fmt.Sprintf("Your %s request was approved by your supervisor and is now with HR.", name)
		tmpl.Category = notifications.CategoryAwaitingHR
	case requests.StateApproved:
		tmpl.Title = name + " approved"
		tmpl.Body = fmt.Sprintf("Your %s request was approved.", name)
		tmpl.Category = notifications.CategoryRequestApproved
	default:
		tmpl.Title = name + " rejected"
		tmpl.Body = fmt.Sprintf("Your %s request was rejected.", name)
		tmpl.Category = notifications.CategoryRequestRejected
	}
	e.notify(ctx, e.requesterRecipients(ctx, req), tmpl)

	if step.Level == 1 && outcome == requests.OutcomeApprove {
		e.notify(ctx, e.hrRecipients(ctx), notifications.Notification{
			Title:    name + " awaiting HR",
			Body:     fmt.Sprintf("A %s request was approved by the supervisor and needs HR review.", name),
			Category: notifications.CategoryAwaitingHR,
			Link:     link,
		})
	}

	e.publish(ctx, events.RequestEvent{
		Type:       events.TypeRequestTransitioned,
		RequestID:  req.ID,
		Kind:       string(req.Kind),
		EmployeeID: req.EmployeeID,
		From:       string(step.From),
		To:         string(step.Next),
		ActorID:    actor.UserID,
		Level:      step.Level,
		OccurredAt: req.UpdatedAt,
	})
	e.metrics.RecordTransition(fmt.Sprintf("%s:%s->%s", req.Kind, step.From, step.Next))
}

func (e *Engine) notify(ctx context.Context, recipients []string, tmpl notifications.Notification) {
	if e.notifier == nil || len(recipients) == 0 {
		return
	}
	e.notifier.NotifyMany(ctx, recipients, tmpl)
}

func (e *Engine) requesterRecipients(ctx context.Context, req requests.Request) []string {
	userID, err := e.identity.UserIDForEmployee(ctx, req.EmployeeID)
	if err != nil {
		e.recipientFailure("requester", req, err)
		return nil
	}
	if userID == "" {
		return nil
	}
	return []string{userID}
}

// supervisorRecipients is empty when the employee has no supervisor with an
// account; the request then waits for an admin.
func (e *Engine) supervisorRecipients(ctx context.Context, req requests.Request) []string {
	userID, err := e.identity.ImmediateSupervisorUserID(ctx, req.EmployeeID)
	if err != nil {
		e.recipientFailure("supervisor", req, err)
		return nil
	}
	if userID == "" {
		e.log.Info("no supervisor to notify", zap.String("requestId", req.ID), zap.String("employeeId", req.EmployeeID))
		return nil
	}
	return []string{userID}
}

func (e *Engine) hrRecipients(ctx context.Context) []string {
	ids, err := e.identity.UsersWithRole(ctx, auth.RoleHR)
	if err != nil {
		e.metrics.RecordNotificationFailure()
		e.log.Warn("hr recipients lookup failed", zap.Error(err))
		return nil
	}
	return ids
}

func (e *Engine) recipientFailure(who string, req requests.Request, err error) {
	e.metrics.RecordNotificationFailure()
	e.log.Warn("notification recipient lookup failed",
		zap.String("recipient", who),
		zap.String("requestId", req.ID),
		zap.Error(err),
	)
}

func (e *Engine) publish(ctx context.Context, event events.RequestEvent) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := e.events.PublishRequestEvent(ctx, event); err != nil {
		e.metrics.RecordEventFailure()
		e.log.Warn("request event publish failed",
			zap.String("type", event.Type),
			zap.String("requestId", event.RequestID),
			zap.Error(err),
		)
	}
}
