package workflow

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/auth"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/balance"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/notifications"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/requests"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/events"
)

type memState struct {
	employees map[string]balance.Employee
	requests  map[string]requests.Request
	events    []requests.ApprovalEvent
	seq       int
}

func (s memState) clone() memState {
	return memState{
		employees: maps.Clone(s.employees),
		requests:  maps.Clone(s.requests),
		events:    slices.Clone(s.events),
		seq:       s.seq,
	}
}

// memStore serializes transactions on one mutex and commits by swapping in
// the working copy, so a failed fn leaves nothing behind.
type memStore struct {
	mu         sync.Mutex
	state      memState
	failInsert error
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		employees: map[string]balance.Employee{},
		requests:  map[string]requests.Request{},
	}}
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx requests.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.state.clone()
	if err := fn(ctx, &memTx{s: &work, failInsert: m.failInsert}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) Employee(_ context.Context, id string) (balance.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	emp, ok := m.state.employees[id]
	if !ok {
		return balance.Employee{}, balance.ErrEmployeeNotFound
	}
	return emp, nil
}

func (m *memStore) putRequest(req requests.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.requests[req.ID] = req
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.requests)
}

func (m *memStore) eventsFor(id string) []requests.ApprovalEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []requests.ApprovalEvent
	for _, ev := range m.state.events {
		if ev.RequestID == id {
			out = append(out, ev)
		}
	}
	return out
}

func sortNewest(items []requests.Request) {
	slices.SortStableFunc(items, func(a, b requests.Request) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

func (m *memStore) ListByEmployee(_ context.Context, employeeID string) ([]requests.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []requests.Request
	for _, r := range m.state.requests {
		if r.EmployeeID == employeeID {
			out = append(out, r)
		}
	}
	sortNewest(out)
	return out, nil
}

func (m *memStore) ListPending(_ context.Context, filter requests.PendingFilter) ([]requests.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []requests.Request
	for _, r := range m.state.requests {
		if !slices.Contains(filter.States, r.State) {
			continue
		}
		if filter.SupervisorEmployeeID != "" && m.state.employees[r.EmployeeID].SupervisorID != filter.SupervisorEmployeeID {
			continue
		}
		out = append(out, r)
	}
	sortNewest(out)
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (requests.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.state.requests[id]
	if !ok {
		return requests.Request{}, requests.ErrRequestNotFound
	}
	return r, nil
}

func (m *memStore) Events(_ context.Context, id string) ([]requests.ApprovalEvent, error) {
	return m.eventsFor(id), nil
}

type memTx struct {
	s          *memState
	failInsert error
}

func (t *memTx) LockEmployee(_ context.Context, id string) (balance.Employee, error) {
	emp, ok := t.s.employees[id]
	if !ok {
		return balance.Employee{}, balance.ErrEmployeeNotFound
	}
	return emp, nil
}

func (t *memTx) HasOverlap(_ context.Context, employeeID string, r requests.DateRange) (bool, error) {
	for _, req := range t.s.requests {
		if req.EmployeeID != employeeID || !req.IsLeave() || req.Range == nil {
			continue
		}
		if slices.Contains(requests.OpenStates, req.State) && req.Range.Overlaps(r) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CountOnDay(_ context.Context, employeeID string, kind requests.Kind, day time.Time) (int, error) {
	n := 0
	for _, req := range t.s.requests {
		if req.EmployeeID == employeeID && req.Kind == kind && requests.Day(req.RequestDay).Equal(requests.Day(day)) {
			n++
		}
	}
	return n, nil
}

func (t *memTx) Insert(_ context.Context, req *requests.Request) error {
	if t.failInsert != nil {
		return t.failInsert
	}
	t.s.seq++
	req.ID = fmt.Sprintf("r-%03d", t.s.seq)
	t.s.requests[req.ID] = *req
	return nil
}

func (t *memTx) LockRequest(_ context.Context, id string) (requests.Request, error) {
	r, ok := t.s.requests[id]
	if !ok {
		return requests.Request{}, requests.ErrRequestNotFound
	}
	return r, nil
}

func (t *memTx) HasApproval(_ context.Context, id string, level int) (bool, error) {
	for _, ev := range t.s.events {
		if ev.RequestID == id && ev.Level == level && ev.Outcome == requests.OutcomeApprove {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) AppendEvent(_ context.Context, ev *requests.ApprovalEvent) error {
	t.s.seq++
	ev.ID = fmt.Sprintf("ev-%03d", t.s.seq)
	t.s.events = append(t.s.events, *ev)
	return nil
}

func (t *memTx) UpdateState(_ context.Context, req requests.Request, state requests.State) error {
	cur, ok := t.s.requests[req.ID]
	if !ok {
		return requests.ErrRequestNotFound
	}
	cur.State = state
	t.s.requests[req.ID] = cur
	return nil
}

func (t *memTx) AddDaysTaken(_ context.Context, employeeID string, days int) error {
	emp, ok := t.s.employees[employeeID]
	if !ok {
		return balance.ErrEmployeeNotFound
	}
	emp.DaysTaken += days
	t.s.employees[employeeID] = emp
	return nil
}

// memIdentity keeps its own copy of the org chart so lookups made while a
// memStore transaction is open never touch the store mutex.
type memIdentity struct {
	users       map[string]auth.Actor
	supervisors map[string]string
	hrErr       error
}

func (r *memIdentity) ResolveActor(_ context.Context, userID string) (auth.Actor, error) {
	a, ok := r.users[userID]
	if !ok {
		return auth.Actor{}, apperror.ErrUnauthorized
	}
	return a, nil
}

func (r *memIdentity) userForEmployee(employeeID string) string {
	for id, a := range r.users {
		if employeeID != "" && a.EmployeeID == employeeID {
			return id
		}
	}
	return ""
}

func (r *memIdentity) ImmediateSupervisorUserID(_ context.Context, employeeID string) (string, error) {
	return r.userForEmployee(r.supervisors[employeeID]), nil
}

func (r *memIdentity) UsersWithRole(_ context.Context, role auth.Role) ([]string, error) {
	if role == auth.RoleHR && r.hrErr != nil {
		return nil, r.hrErr
	}
	var out []string
	for id, a := range r.users {
		if a.Role == role {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *memIdentity) UserIDForEmployee(_ context.Context, employeeID string) (string, error) {
	return r.userForEmployee(employeeID), nil
}

func (r *memIdentity) IsImmediateSupervisor(_ context.Context, supervisorEmployeeID, employeeID string) (bool, error) {
	sup, ok := r.supervisors[employeeID]
	return ok && sup != "" && sup == supervisorEmployeeID, nil
}

type sentNotification struct {
	Recipient string
	Category  string
}

type memNotifications struct {
	mu      sync.Mutex
	sent    []sentNotification
	failFor map[string]bool
}

func (n *memNotifications) CreateNotification(_ context.Context, item *notifications.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[item.RecipientID] {
		return errors.New("notifications table unavailable")
	}
	n.sent = append(n.sent, sentNotification{Recipient: item.RecipientID, Category: item.Category})
	return nil
}

func (n *memNotifications) UserEmail(context.Context, string) (string, error) { return "", nil }

func (n *memNotifications) ListNotifications(context.Context, string, int, int) ([]notifications.Notification, error) {
	return nil, nil
}

func (n *memNotifications) CountNotifications(context.Context, string) (int, error) { return 0, nil }

func (n *memNotifications) MarkRead(context.Context, string, string) error { return nil }

func (n *memNotifications) to(recipient string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		if s.Recipient == recipient {
			out = append(out, s.Category)
		}
	}
	return out
}

func (n *memNotifications) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []events.RequestEvent
	err    error
}

func (p *memPublisher) PublishRequestEvent(_ context.Context, ev events.RequestEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *memPublisher) Close() error { return nil }

func (p *memPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type+":"+ev.To)
	}
	return out
}

// clock advances one minute per reading so creation order is observable.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(time.Minute)
	return now
}
