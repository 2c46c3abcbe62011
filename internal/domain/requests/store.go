package requests

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/balance"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/querier"
)

type Store struct {
	DB  querier.TxBeginner
	log *zap.Logger
}

func NewStore(db querier.TxBeginner, log *zap.Logger) *Store {
	return &Store{DB: db, log: log.Named("requests.store")}
}

var _ StoreAPI = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	if err := fn(ctx, &txStore{q: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.log.Warn("request tx rollback failed", zap.Error(rbErr))
		}
		return err
	}
	return tx.Commit(ctx)
}

const leaveColumns = `id::text, employee_id::text, state, start_date, end_date, days, reason, created_at, updated_at`

const genericColumns = `id::text, employee_id::text, type, state, detail, period_start, period_end, request_day, created_at, updated_at`

func scanLeave(row pgx.Row) (Request, error) {
	var req Request
	var state string
	var r DateRange
	if err := row.Scan(&req.ID, &req.EmployeeID, &state, &r.Start, &r.End, &req.Days, &req.Reason, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return Request{}, err
	}
	req.Kind = KindLeave
	req.State = State(state)
	r.Start, r.End = Day(r.Start), Day(r.End)
	req.Range = &r
	return req, nil
}

func scanGeneric(row pgx.Row) (Request, error) {
	var req Request
	var kind, state string
	var detail []byte
	if err := row.Scan(&req.ID, &req.EmployeeID, &kind, &state, &detail, &req.PeriodStart, &req.PeriodEnd, &req.RequestDay, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return Request{}, err
	}
	req.Kind = Kind(kind)
	req.State = State(state)
	req.Detail = detail
	return req, nil
}

func stateStrings(states []State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// getRequest loads a request from either table; lock appends FOR UPDATE.
func getRequest(ctx context.Context, q querier.Querier, requestID string, lock bool) (Request, error) {
	if !validID(requestID) {
		return Request{}, ErrRequestNotFound
	}
	suffix := ""
	if lock {
		suffix = " FOR UPDATE"
	}

	req, err := scanLeave(q.QueryRow(ctx, "SELECT "+leaveColumns+" FROM leave_requests WHERE id = $1"+suffix, requestID))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Request{}, err
	}

	req, err = scanGeneric(q.QueryRow(ctx, "SELECT "+genericColumns+" FROM generic_requests WHERE id = $1"+suffix, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrRequestNotFound
	}
	return req, err
}

func collect(rows pgx.Rows, scan func(pgx.Row) (Request, error), out []Request) ([]Request, error) {
	defer rows.Close()
	for rows.Next() {
		req, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func newestFirst(items []Request) {
	slices.SortStableFunc(items, func(a, b Request) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
}

func (s *Store) Get(ctx context.Context, requestID string) (Request, error) {
	return getRequest(ctx, s.DB, requestID, false)
}

func (s *Store) ListByEmployee(ctx context.Context, employeeID string) ([]Request, error) {
	if !validID(employeeID) {
		return nil, nil
	}
	rows, err := s.DB.Query(ctx, "SELECT "+leaveColumns+" FROM leave_requests WHERE employee_id = $1", employeeID)
	if err != nil {
		return nil, err
	}
	out, err := collect(rows, scanLeave, nil)
	if err != nil {
		return nil, err
	}

	rows, err = s.DB.Query(ctx, "SELECT "+genericColumns+" FROM generic_requests WHERE employee_id = $1", employeeID)
	if err != nil {
		return nil, err
	}
	out, err = collect(rows, scanGeneric, out)
	if err != nil {
		return nil, err
	}
	newestFirst(out)
	return out, nil
}

func (s *Store) ListPending(ctx context.Context, filter PendingFilter) ([]Request, error) {
	if len(filter.States) == 0 {
		return nil, nil
	}
	states := stateStrings(filter.States)

	rows, err := s.DB.Query(ctx, `
    SELECT r.id::text, r.employee_id::text, r.state, r.start_date, r.end_date, r.days, r.reason, r.created_at, r.updated_at
    FROM leave_requests r
    JOIN employees e ON e.id = r.employee_id
    WHERE r.state = ANY($1) AND ($2::text = '' OR COALESCE(e.supervisor_id::text, '') = $2::text)
  `, states, filter.SupervisorEmployeeID)
	if err != nil {
		return nil, err
	}
	out, err := collect(rows, scanLeave, nil)
	if err != nil {
		return nil, err
	}

	rows, err = s.DB.Query(ctx, `
    SELECT r.id::text, r.employee_id::text, r.type, r.state, r.detail, r.period_start, r.period_end, r.request_day, r.created_at, r.updated_at
    FROM generic_requests r
    JOIN employees e ON e.id = r.employee_id
    WHERE r.state = ANY($1) AND ($2::text = '' OR COALESCE(e.supervisor_id::text, '') = $2::text)
  `, states, filter.SupervisorEmployeeID)
	if err != nil {
		return nil, err
	}
	out, err = collect(rows, scanGeneric, out)
	if err != nil {
		return nil, err
	}
	newestFirst(out)
	return out, nil
}

func (s *Store) Events(ctx context.Context, requestID string) ([]ApprovalEvent, error) {
	if !validID(requestID) {
		return nil, nil
	}
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, request_id::text, approver_id::text, level, outcome, resulting_state, comment, at
    FROM approval_events
    WHERE request_id = $1
    ORDER BY at, id
  `, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ApprovalEvent
	for rows.Next() {
		var ev ApprovalEvent
		var outcome, state string
		if err := rows.Scan(&ev.ID, &ev.RequestID, &ev.ApproverID, &ev.Level, &outcome, &state, &ev.Comment, &ev.At); err != nil {
			return nil, err
		}
		ev.Outcome = Outcome(outcome)
		ev.ResultingState = State(state)
		events = append(events, ev)
	}
	return events, rows.Err()
}

type txStore struct {
	q querier.Querier
}

func (t *txStore) LockEmployee(ctx context.Context, employeeID string) (balance.Employee, error) {
	return balance.LoadEmployee(ctx, t.q, employeeID, true)
}

func (t *txStore) HasOverlap(ctx context.Context, employeeID string, r DateRange) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM leave_requests
      WHERE employee_id = $1
        AND state = ANY($2)
        AND NOT (end_date < $3 OR start_date > $4)
    )
  `, employeeID, stateStrings(OpenStates), r.Start, r.End).Scan(&exists)
	return exists, err
}

func (t *txStore) CountOnDay(ctx context.Context, employeeID string, kind Kind, day time.Time) (int, error) {
	var count int
	err := t.q.QueryRow(ctx, `
    SELECT COUNT(1) FROM generic_requests
    WHERE employee_id = $1 AND type = $2 AND request_day = $3
  `, employeeID, string(kind), Day(day)).Scan(&count)
	return count, err
}

func (t *txStore) Insert(ctx context.Context, req *Request) error {
	if req.IsLeave() {
		if req.Range == nil {
			return ErrInvalidRange
		}
		return t.q.QueryRow(ctx, `
      INSERT INTO leave_requests (employee_id, start_date, end_date, days, reason, state, created_at, updated_at)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
      RETURNING id::text
    `, req.EmployeeID, req.Range.Start, req.Range.End, req.Days, req.Reason, string(req.State), req.CreatedAt).Scan(&req.ID)
	}

	return t.q.QueryRow(ctx, `
    INSERT INTO generic_requests (employee_id, type, detail, state, period_start, period_end, request_day, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
    RETURNING id::text
  `, req.EmployeeID, string(req.Kind), string(req.Detail), string(req.State), req.PeriodStart, req.PeriodEnd, Day(req.RequestDay), req.CreatedAt).Scan(&req.ID)
}

func (t *txStore) LockRequest(ctx context.Context, requestID string) (Request, error) {
	return getRequest(ctx, t.q, requestID, true)
}

func (t *txStore) HasApproval(ctx context.Context, requestID string, level int) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM approval_events
      WHERE request_id = $1 AND level = $2 AND outcome = $3
    )
  `, requestID, level, string(OutcomeApprove)).Scan(&exists)
	return exists, err
}

func (t *txStore) AppendEvent(ctx context.Context, event *ApprovalEvent) error {
	return t.q.QueryRow(ctx, `
    INSERT INTO approval_events (request_id, approver_id, level, outcome, resulting_state, comment, at)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id::text
  `, event.RequestID, event.ApproverID, event.Level, string(event.Outcome), string(event.ResultingState), event.Comment, event.At).Scan(&event.ID)
}

func (t *txStore) UpdateState(ctx context.Context, req Request, state State) error {
	table := "generic_requests"
	if req.IsLeave() {
		table = "leave_requests"
	}
	tag, err := t.q.Exec(ctx, "UPDATE "+table+" SET state = $2, updated_at = now() WHERE id = $1", req.ID, string(state))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func (t *txStore) AddDaysTaken(ctx context.Context, employeeID string, days int) error {
	return balance.AddDaysTaken(ctx, t.q, employeeID, days)
}
