package requestshandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/auth"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/balance"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/requests"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/workflow"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/transport/http/api"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/transport/http/middleware"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/transport/http/shared"
)

const (
	maxReasonLength  = 500
	maxCommentLength = 1000
)

// Engine is the workflow surface the handlers drive.
type Engine interface {
	CreateLeaveRequest(ctx context.Context, employeeID string, start, end time.Time, reason string) (requests.Request, error)
	CreateGenericRequest(ctx context.Context, kind, employeeID string, payload json.RawMessage) (requests.Request, error)
	Decide(ctx context.Context, in workflow.DecideInput) (workflow.Decision, error)
	ListMine(ctx context.Context, employeeID string) ([]requests.Request, error)
	ListPending(ctx context.Context, actor auth.Actor) ([]requests.Request, error)
	GetDetail(ctx context.Context, requestID string, actor auth.Actor) (workflow.Detail, error)
	Balance(ctx context.Context, employeeID string) (balance.Balance, error)
	IncomeLetter(ctx context.Context, requestID string, actor auth.Actor) ([]byte, error)
}

type Handler struct {
	Engine Engine
}

func NewHandler(engine Engine) *Handler {
	return &Handler{Engine: engine}
}

var errNoEmployee = apperror.ErrForbidden.WithMessage("your account is not linked to an employee")

func (h *Handler) RegisterRoutes(r chi.Router) {
	approvers := middleware.RequireRole(auth.RoleSupervisor, auth.RoleHR, auth.RoleAdmin)

	r.Route("/requests", func(r chi.Router) {
		r.Post("/leave", h.handleCreateLeave)
		r.Get("/mine", h.handleListMine)
		r.With(approvers).Get("/pending", h.handleListPending)
		r.Get("/{id}", h.handleGet)
		r.With(approvers).Post("/{id}/decision", h.handleDecide)
		r.Get("/{id}/letter.pdf", h.handleLetter)
		// POST /requests/{id} creates a request of kind {id}.
		r.Post("/{id}", h.handleCreateGeneric)
	})
	r.Get("/balance", h.handleBalance)
}

type leavePayload struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason"`
}

func (h *Handler) handleCreateLeave(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	if actor.EmployeeID == "" {
		api.FailError(w, errNoEmployee, reqID)
		return
	}

	var payload leavePayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.FailError(w, err, reqID)
		return
	}

	v := shared.NewValidator()
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	v.MaxLength("reason", payload.Reason, maxReasonLength)
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Engine.CreateLeaveRequest(r.Context(), actor.EmployeeID, start, end, payload.Reason)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, created, reqID)
}

func (h *Handler) handleCreateGeneric(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	if actor.EmployeeID == "" {
		api.FailError(w, errNoEmployee, reqID)
		return
	}

	raw, err := shared.ReadRaw(r)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	created, err := h.Engine.CreateGenericRequest(r.Context(), chi.URLParam(r, "id"), actor.EmployeeID, raw)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, created, reqID)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	if actor.EmployeeID == "" {
		api.Success(w, []requests.Request{}, reqID)
		return
	}

	items, err := h.Engine.ListMine(r.Context(), actor.EmployeeID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(items)))
	api.Success(w, items, reqID)
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	items, err := h.Engine.ListPending(r.Context(), actor)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(items)))
	api.Success(w, items, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	detail, err := h.Engine.GetDetail(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, detail, reqID)
}

type decisionPayload struct {
	Outcome       string `json:"outcome"`
	Comment       string `json:"comment"`
	ExpectedState string `json:"expectedState"`
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload decisionPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.FailError(w, err, reqID)
		return
	}

	v := shared.NewValidator()
	outcome := v.Outcome("outcome", payload.Outcome)
	expected := v.State("expectedState", payload.ExpectedState)
	v.MaxLength("comment", payload.Comment, maxCommentLength)
	if v.Reject(w, reqID) {
		return
	}

	decision, err := h.Engine.Decide(r.Context(), workflow.DecideInput{
		RequestID:     chi.URLParam(r, "id"),
		Actor:         actor,
		Outcome:       outcome,
		Comment:       payload.Comment,
		ExpectedState: expected,
	})
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, decision, reqID)
}

func (h *Handler) handleLetter(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "id")

	pdf, err := h.Engine.IncomeLetter(r.Context(), id, actor)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="income-letter-%s.pdf"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// handleBalance returns the caller's balance. HR and admins may pass
// ?employeeId= to read anyone's.
func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	employeeID := actor.EmployeeID
	if other := strings.TrimSpace(r.URL.Query().Get("employeeId")); other != "" && other != actor.EmployeeID {
		if actor.Role != auth.RoleHR && actor.Role != auth.RoleAdmin {
			api.FailError(w, apperror.ErrForbidden, reqID)
			return
		}
		employeeID = other
	}
	if employeeID == "" {
		api.FailError(w, errNoEmployee, reqID)
		return
	}

	bal, err := h.Engine.Balance(r.Context(), employeeID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, bal, reqID)
}
