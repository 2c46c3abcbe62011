package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/auth"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/balance"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/notifications"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/requests"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/metrics"
)

var (
	ana      = auth.Actor{UserID: "u-ana", EmployeeID: "e-ana", Role: auth.RoleEmployee}
	low      = auth.Actor{UserID: "u-low", EmployeeID: "e-low", Role: auth.RoleEmployee}
	sup      = auth.Actor{UserID: "u-sup", EmployeeID: "e-sup", Role: auth.RoleSupervisor}
	otherSup = auth.Actor{UserID: "u-other", EmployeeID: "e-other", Role: auth.RoleSupervisor}
	hr       = auth.Actor{UserID: "u-hr", EmployeeID: "e-hr", Role: auth.RoleHR}
	hr2      = auth.Actor{UserID: "u-hr2", Role: auth.RoleHR}
	admin    = auth.Actor{UserID: "u-admin", Role: auth.RoleAdmin}
	reader   = auth.Actor{UserID: "u-reader", EmployeeID: "e-reader", Role: auth.RoleReader}
)

type fixture struct {
	engine   *Engine
	store    *memStore
	identity *memIdentity
	notes    *memNotifications
	pub      *memPublisher
	metrics  *metrics.Collector
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	hire := day(2024, time.January, 1)
	for _, emp := range []balance.Employee{
		{ID: "e-ana", FullName: "Ana Lopez", HireDate: hire, AnnualDays: 20, DaysTaken: 5, SupervisorID: "e-sup", Status: balance.StatusActive},
		{ID: "e-low", FullName: "Luis Perez", HireDate: hire, AnnualDays: 3, SupervisorID: "e-sup", Status: balance.StatusActive},
		{ID: "e-sup", FullName: "Sara Ruiz", HireDate: day(2018, time.June, 1), AnnualDays: 20, SupervisorID: "e-boss", Status: balance.StatusActive},
		{ID: "e-other", FullName: "Omar Diaz", HireDate: day(2018, time.June, 1), AnnualDays: 20, Status: balance.StatusActive},
		{ID: "e-hr", FullName: "Helena Ramos", HireDate: day(2019, time.March, 1), AnnualDays: 20, Status: balance.StatusActive},
		{ID: "e-reader", FullName: "Rita Soto", HireDate: hire, AnnualDays: 15, Status: balance.StatusActive},
	} {
		store.state.employees[emp.ID] = emp
	}

	ident := &memIdentity{
		users: map[string]auth.Actor{},
		supervisors: map[string]string{
			"e-ana": "e-sup",
			"e-low": "e-sup",
			"e-sup": "e-boss",
		},
	}
	for _, a := range []auth.Actor{ana, low, sup, otherSup, hr, hr2, admin, reader} {
		ident.users[a.UserID] = a
	}

	m := metrics.New()
	notes := &memNotifications{failFor: map[string]bool{}}
	pub := &memPublisher{}
	c := &clock{t: time.Date(2025, time.January, 5, 9, 0, 0, 0, time.UTC)}

	engine := New(Options{
		Store:     store,
		Identity:  ident,
		Employees: store,
		Notifier:  notifications.New(notes, nil, "", zap.NewNop(), m),
		Events:    pub,
		Metrics:   m,
		Logger:    zap.NewNop(),
		Company:   "Rosmo",
		Now:       c.Now,
	})
	return &fixture{engine: engine, store: store, identity: ident, notes: notes, pub: pub, metrics: m}
}

func (f *fixture) leave(t *testing.T, who auth.Actor, start, end time.Time) requests.Request {
	t.Helper()
	req, err := f.engine.CreateLeaveRequest(context.Background(), who.EmployeeID, start, end, "family trip")
	require.NoError(t, err)
	return req
}

func (f *fixture) decide(who auth.Actor, id string, outcome requests.Outcome) (Decision, error) {
	return f.engine.Decide(context.Background(), DecideInput{RequestID: id, Actor: who, Outcome: outcome})
}

func (f *fixture) employee(t *testing.T, id string) balance.Employee {
	t.Helper()
	emp, err := f.store.Employee(context.Background(), id)
	require.NoError(t, err)
	return emp
}

func TestCreateLeaveNotifiesSupervisor(t *testing.T) {
	f := newFixture(t)

	req := f.leave(t, ana, day(2025, time.January, 10), day(2025, time.January, 14))

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, requests.StatePending, req.State)
	assert.Equal(t, 5, req.Days)
	assert.Equal(t, []string{notifications.CategoryAwaitingApproval}, f.notes.to("u-sup"))
	assert.Empty(t, f.notes.to("u-ana"))
	assert.Equal(t, []string{"request.created:pending"}, f.pub.types())
}

func TestCreateLeaveOverlapRejected(t *testing.T) {
	f := newFixture(t)
	f.leave(t, ana, day(2025, time.January, 10), day(2025, time.January, 14))

	_, err := f.engine.CreateLeaveRequest(context.Background(), "e-ana", day(2025, time.January, 12), day(2025, time.January, 13), "")

	assert.ErrorIs(t, err, requests.ErrOverlappingRequest)
	assert.Equal(t, 1, f.store.count())
}

func TestCreateLeaveAfterRejectionMayReuseRange(t *testing.T) {
	f := newFixture(t)
	first := f.leave(t, ana, day(2025, time.January, 10), day(2025, time.January, 14))
	_, err := f.decide(sup, first.ID, requests.OutcomeReject)
	require.NoError(t, err)

	second := f.leave(t, ana, day(2025, time.January, 12), day(2025, time.January, 13))
	assert.Equal(t, requests.StatePending, second.State)
}

func TestTwoLevelApproval(t *testing.T) {
	f := newFixture(t)
	req := f.leave(t, ana, day(2025, time.January, 10), day(2025, time.January, 14))
	f.notes.reset()

	res, err := f.decide(sup, req.ID, requests.OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, requests.StatePendingHR, res.Request.State)
	assert.Equal(t, 1, res.Event.Level)
	assert.Equal(t, []string{notifications.CategoryAwaitingHR}, f.notes.to("u-hr"))
	assert.Equal(t, []string{notifications.CategoryAwaitingHR}, f.notes.to("u-hr2"))
	assert.Equal(t, []string{notifications.CategoryAwaitingHR}, f.notes.to("u-ana"))
	assert.Equal(t, 5, f.employee(t, "e-ana").DaysTaken)

	res, err = f.decide(hr, req.ID, requests.OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, requests.StateApproved, res.Request.State)
	assert.Equal(t, 2, res.Event.Level)
	assert.Equal(t, 10, f.employee(t, "e-ana").DaysTaken)
	assert.Equal(t, []string{notifications.CategoryAwaitingHR, notifications.CategoryRequestApproved}, f.notes.to("u-ana"))

	evs := f.store.eventsFor(req.ID)
	require.Len(t, evs, 2)
	assert.Equal(t, "u-sup", evs[0].ApproverID)
	assert.Equal(t, requests.StatePendingHR, evs[0].ResultingState)
	assert.Equal(t, "u-hr", evs[1].ApproverID)
	assert.Equal(t, requests.StateApproved, evs[1].ResultingState)

	assert.Equal(t, []string{
		"request.created:pending",
		"request.transitioned:pending_hr",
		"request.transitioned:approved",
	}, f.pub.types())

	transitions := f.metrics.Snapshot()["transitions"].(map[string]uint64)
	assert.Equal(t, uint64(1), transitions["leave:pending->pending_hr"])
	assert.Equal(t, uint64(1), transitions["leave:pending_hr->approved"])

	bal, err := f.engine.Balance(context.Background(), "e-ana")
	require.NoError(t, err)
	assert.Equal(t, 10, bal.Available)
}

func TestCreateLeaveInsufficientBalance(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateLeaveRequest(context.Background(), "e-low", day(2025, time.February, 3), day(2025, time.February, 7), "")

	require.ErrorIs(t, err, requests.ErrInsufficientBalance)
	appErr := apperror.From(err)
	assert.Equal(t, 3, appErr.Details["available"])
	assert.Equal(t, 5, appErr.Details["requested"])
	assert.Equal(t, 0, f.store.count())
	assert.Empty(t, f.notes.to("u-sup"))
}

func TestCreateLeaveValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.CreateLeaveRequest(ctx, "e-ana", day(2025, time.January, 14), day(2025, time.January, 10), "")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.engine.CreateLeaveRequest(ctx, "e-missing", day(2025, time.January, 10), day(2025, time.January, 10), "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestLunchCheckoutOncePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.engine.CreateGenericRequest(ctx, "lunch_checkout", "e-ana", json.RawMessage(`{"note":"dentist"}`))
	require.NoError(t, err)
	assert.Equal(t, requests.StateDelivered, req.State)
	assert.Equal(t, []string{notifications.CategoryRequestDelivered}, f.notes.to("u-ana"))
	assert.Empty(t, f.notes.to("u-sup"))

	_, err = f.engine.CreateGenericRequest(ctx, "lunch_checkout", "e-ana", nil)
	require.ErrorIs(t, err, requests.ErrDuplicatePerDay)
	assert.Equal(t, 409, apperror.Status(err))
	assert.Equal(t, 1, f.store.count())

	_, err = f.engine.CreateGenericRequest(ctx, "lunch_checkout", "e-low", nil)
	assert.NoError(t, err)
}

func TestCreateGenericValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.CreateGenericRequest(ctx, "vacation", "e-ana", nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.engine.CreateGenericRequest(ctx, "payslip_lookup", "e-ana", json.RawMessage(`{"year":2025,"month":13}`))
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.engine.CreateGenericRequest(ctx, "early_departure", "e-ana",
		json.RawMessage(`{"dateStart":"2025-01-06T16:00:00Z","dateEnd":"2025-01-06T15:00:00Z","reason":"clinic"}`))
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, 0, f.store.count())
}

func TestEarlyDepartureNeedsBothLevels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.engine.CreateGenericRequest(ctx, "early_departure", "e-ana",
		json.RawMessage(`{"dateStart":"2025-01-06T15:00:00Z","dateEnd":"2025-01-06T17:00:00Z","reason":"clinic"}`))
	require.NoError(t, err)
	assert.Equal(t, requests.StatePending, req.State)
	assert.Equal(t, []string{notifications.CategoryAwaitingApproval}, f.notes.to("u-sup"))
	assert.Equal(t, []string{notifications.CategoryRequestSubmitted}, f.notes.to("u-ana"))

	_, err = f.decide(hr, req.ID, requests.OutcomeApprove)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.decide(sup, req.ID, requests.OutcomeApprove)
	require.NoError(t, err)
	res, err := f.decide(hr, req.ID, requests.OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, requests.StateApproved, res.Request.State)
	assert.Equal(t, 5, f.employee(t, "e-ana").DaysTaken)
}

func TestConcurrentDecideOneWins(t *testing.T) {
	f := newFixture(t)
	req := f.leave(t, ana, day(2025, time.January, 10), day(2025, time.January, 14))

	const racers = 2
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.decide(sup, req.ID, requests.OutcomeApprove)
		}()
	}
	wg.Wait()

	var ok, stale int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, requests.ErrInvalidTransition):
			stale++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, stale)
	assert.Len(t, f.store.eventsFor(req.ID), 1)
}

func TestConcurrentFinalApprovalDebitsOnce(t *testing.T) {
	f := newFixture(t)
	req := f.leave(t, ana, day(2025, time.January, 10), day(2025, time.January, 14))
	_, err := f.decide(sup, req.ID, requests.OutcomeApprove)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, who := range []auth.Actor{hr, hr2} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.decide(who, req.ID, requests.OutcomeApprove)
		}()
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, requests.ErrInvalidTransition)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 10, f.employee(t, "e-ana").DaysTaken)
}

func TestDecideStaleExpectedState(t *testing.T) {
	f := newFixture(t)
	req := f.leave(t, ana, day(2025, time.January, 10), day(2025, time.January, 14))
	_, err := f.decide(sup, req.ID, requests.OutcomeApprove)
	require.NoError(t, err)

	_, err = f.engine.Decide(context.Background(), DecideInput{
		RequestID:     req.ID,
		Actor:         admin,
		Outcome:       requests.OutcomeApprove,
		ExpectedState: requests.StatePending,
	})
	assert.ErrorIs(t, err, requests.ErrInvalidTransition)

	got, err := f.store.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, requests.StatePendingHR, got.State)

	events, err := f.store.Events(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 5, f.employee(t, "e-ana").DaysTaken)
}

func TestAdminLosingLevelOneRaceIsNotTakenAsHRApproval(t *testing.T) {
	f := newFixture(t)
	req := f.leave(t, ana, day(2025, time.January, 10), day(2025, time.January, 14))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, actor := range []auth.Actor{sup, admin} {
		wg.Add(1)
		go func(i int, actor auth.Actor) {
			defer wg.Done()
			_, errs[i] = f.engine.Decide(context.Background(), DecideInput{
				RequestID:     req.ID,
				Actor:         actor,
				Outcome:       requests.OutcomeApprove,
				ExpectedState: requests.StatePending,
			})
		}(i, actor)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, requests.ErrInvalidTransition)
			failed++
		}
	}
	assert.Equal(t, 1, failed)

	got, err := f.store.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, requests.StatePendingHR, got.State)
	assert.Equal(t, 5, f.employee(t, "e-ana").DaysTaken)
}

func TestDecideAuthorization(t *testing.T) {
	f := newFixture(t)
	req := f.leave(t, ana, day(2025, time.January, 10), day(2025, time.January, 14))

	cases := []struct {
		name  string
		actor auth.Actor
	}{
		{"employee", low},
		{"reader", reader},
		{"not the immediate supervisor", otherSup},
		{"hr before supervisor", hr},
		{"requester", ana},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.decide(tc.actor, req.ID, requests.OutcomeApprove)
			assert.ErrorIs(t, err, apperror.ErrForbidden)
		})
	}
	assert.Empty(t, f.store.eventsFor(req.ID))

	rejections := f.metrics.Snapshot()["rejections"].(map[string]uint64)
	assert.Equal(t, uint64(len(cases)), rejections[apperror.CodeForbidden])
}

func TestDecideOwnRequestForbidden(t *testing.T) {
	f := newFixture(t)
	f.identity.supervisors["e-sup"] = "e-sup"
	req := f.leave(t, sup, day(2025, time.March, 3), day(2025, time.March, 4))

	_, err := f.decide(sup, req.ID, requests.OutcomeApprove)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestAdminDecidesBothLevels(t *testing.T) {
	f := newFixture(t)
	req := f.leave(t, ana, day(2025, time.January, 10), day(2025, time.January, 14))

	res, err := f.decide(admin, req.ID, requests.OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, requests.StatePendingHR, res.Request.State)

	res, err = f.decide(admin, req.ID, requests.OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, requests.StateApproved, res.Request.State)
}

func TestDecideTerminalIsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	lunch, err := f.engine.CreateGenericRequest(context.Background(), "lunch_checkout", "e-ana", nil)
	require.NoError(t, err)

	_, err = f.decide(admin, lunch.ID, requests.OutcomeApprove)
	assert.ErrorIs(t, err, requests.ErrInvalidTransition)

	req := f.leave(t, ana, day(2025, time.January, 10), day(2025, time.January, 14))
	_, err = f.decide(sup, req.ID, requests.OutcomeReject)
	require.NoError(t, err)
	_, err = f.decide(hr, req.ID, requests.OutcomeReject)
	assert.ErrorIs(t, err, requests.ErrInvalidTransition)

	_, err = f.decide(sup, "r-missing", requests.OutcomeApprove)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.decide(sup, req.ID, requests.Outcome("maybe"))
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func seedPendingHR(f *fixture) string {
	r, _ := requests.NewDateRange(day(2025, time.February, 3), day(2025, time.February, 4))
	f.store.putRequest(requests.Request{
		ID:         "r-seeded",
		Kind:       requests.KindLeave,
		EmployeeID: "e-ana",
		State:      requests.StatePendingHR,
		Range:      &r,
		Days:       r.Days(),
		CreatedAt:  day(2025, time.January, 2),
	})
	return "r-seeded"
}

func TestMissingPriorApproval(t *testing.T) {
	f := newFixture(t)
	id := seedPendingHR(f)

	_, err := f.decide(hr, id, requests.OutcomeApprove)
	require.ErrorIs(t, err, requests.ErrMissingPriorApproval)
	assert.Equal(t, 5, f.employee(t, "e-ana").DaysTaken)
	assert.Empty(t, f.store.eventsFor(id))

	res, err := f.decide(hr, id, requests.OutcomeReject)
	require.NoError(t, err)
	assert.Equal(t, requests.StateRejected, res.Request.State)
}

func TestFinalApprovalRechecksBalance(t *testing.T) {
	f := newFixture(t)
	first := f.leave(t, ana, day(2025, time.February, 3), day(2025, time.February, 12))
	second := f.leave(t, ana, day(2025, time.March, 3), day(2025, time.March, 8))
	require.Equal(t, 10, first.Days)
	require.Equal(t, 6, second.Days)

	for _, id := range []string{first.ID, second.ID} {
		_, err := f.decide(sup, id, requests.OutcomeApprove)
		require.NoError(t, err)
	}
	_, err := f.decide(hr, first.ID, requests.OutcomeApprove)
	require.NoError(t, err)

	_, err = f.decide(hr, second.ID, requests.OutcomeApprove)
	require.ErrorIs(t, err, requests.ErrInsufficientBalance)
	assert.Equal(t, 15, f.employee(t, "e-ana").DaysTaken)

	got, err := f.store.Get(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, requests.StatePendingHR, got.State)
	assert.Len(t, f.store.eventsFor(second.ID), 1)
}

func TestNotificationFailureDoesNotFailDecide(t *testing.T) {
	f := newFixture(t)
	req := f.leave(t, ana, day(2025, time.January, 10), day(2025, time.January, 14))
	f.notes.failFor["u-hr"] = true
	f.pub.err = errors.New("broker unavailable")

	res, err := f.decide(sup, req.ID, requests.OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, requests.StatePendingHR, res.Request.State)
	assert.Empty(t, f.notes.to("u-hr"))
	assert.Equal(t, []string{notifications.CategoryAwaitingHR}, f.notes.to("u-hr2"))

	snap := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), snap["notificationFailuresTotal"])
	assert.Equal(t, uint64(1), snap["eventFailuresTotal"])
}

func TestHRLookupFailureDoesNotFailDecide(t *testing.T) {
	f := newFixture(t)
	req := f.leave(t, ana, day(2025, time.January, 10), day(2025, time.January, 14))
	f.identity.hrErr = errors.New("directory down")

	_, err := f.decide(sup, req.ID, requests.OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, []string{notifications.CategoryAwaitingHR}, f.notes.to("u-ana"))
}

func TestStoreFailureIsWrapped(t *testing.T) {
	f := newFixture(t)
	f.store.failInsert = errors.New("connection reset")

	_, err := f.engine.CreateLeaveRequest(context.Background(), "e-ana", day(2025, time.January, 10), day(2025, time.January, 10), "")
	require.ErrorIs(t, err, apperror.ErrStore)
	assert.Equal(t, 500, apperror.Status(err))
}

func TestListPendingByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.leave(t, ana, day(2025, time.January, 10), day(2025, time.January, 14))
	b := f.leave(t, low, day(2025, time.January, 20), day(2025, time.January, 20))
	_, err := f.decide(sup, b.ID, requests.OutcomeApprove)
	require.NoError(t, err)

	items, err := f.engine.ListPending(ctx, sup)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].ID)

	items, err = f.engine.ListPending(ctx, otherSup)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = f.engine.ListPending(ctx, hr)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)

	items, err = f.engine.ListPending(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = f.engine.ListPending(ctx, ana)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.engine.ListPending(ctx, reader)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestListMineNewestFirst(t *testing.T) {
	f := newFixture(t)
	first := f.leave(t, ana, day(2025, time.January, 10), day(2025, time.January, 10))
	second, err := f.engine.CreateGenericRequest(context.Background(), "payslip_lookup", "e-ana", json.RawMessage(`{"year":2024,"month":12}`))
	require.NoError(t, err)

	items, err := f.engine.ListMine(context.Background(), "e-ana")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)

	items, err = f.engine.ListMine(context.Background(), "e-reader")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestGetDetailVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.leave(t, ana, day(2025, time.January, 10), day(2025, time.January, 14))
	_, err := f.decide(sup, req.ID, requests.OutcomeApprove)
	require.NoError(t, err)

	d, err := f.engine.GetDetail(ctx, req.ID, ana)
	require.NoError(t, err)
	assert.Equal(t, requests.StatePendingHR, d.Request.State)
	assert.Len(t, d.Events, 1)

	for _, who := range []auth.Actor{sup, hr, admin} {
		_, err := f.engine.GetDetail(ctx, req.ID, who)
		assert.NoError(t, err)
	}

	_, err = f.engine.GetDetail(ctx, req.ID, low)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.engine.GetDetail(ctx, req.ID, reader)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.engine.GetDetail(ctx, "r-missing", admin)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestIncomeLetterFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.engine.CreateGenericRequest(ctx, "income_letter", "e-ana",
		json.RawMessage(`{"addressee":"Banco Central","purpose":"Mortgage application"}`))
	require.NoError(t, err)
	assert.Equal(t, requests.StatePendingHR, req.State)
	assert.Equal(t, []string{notifications.CategoryAwaitingHR}, f.notes.to("u-hr"))
	assert.Empty(t, f.notes.to("u-sup"))

	_, err = f.engine.IncomeLetter(ctx, req.ID, ana)
	assert.ErrorIs(t, err, requests.ErrInvalidTransition)

	_, err = f.decide(sup, req.ID, requests.OutcomeApprove)
	assert.ErrorIs(t, err, requests.ErrInvalidTransition)

	res, err := f.decide(hr, req.ID, requests.OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, requests.StateApproved, res.Request.State)

	for _, who := range []auth.Actor{ana, hr, admin} {
		pdf, err := f.engine.IncomeLetter(ctx, req.ID, who)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	}

	_, err = f.engine.IncomeLetter(ctx, req.ID, low)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.engine.IncomeLetter(ctx, req.ID, sup)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}
