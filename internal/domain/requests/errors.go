package requests

import (
	"net/http"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
)

var (
	ErrRequestNotFound = apperror.ErrNotFound.WithMessage("request not found")
	ErrUnknownKind     = apperror.ErrValidation.WithMessage("unknown request type")
	ErrInvalidRange    = apperror.ErrValidation.WithMessage("start date must be on or before end date")
	ErrInvalidOutcome  = apperror.ErrValidation.WithMessage("outcome must be approve or reject")

	ErrInsufficientBalance = apperror.New(
		apperror.CodeInsufficientBalance,
		"insufficient leave balance",
		http.StatusBadRequest,
	)
	ErrOverlappingRequest = apperror.New(
		apperror.CodeOverlappingRequest,
		"the requested range overlaps an existing request",
		http.StatusBadRequest,
	)
	ErrDuplicatePerDay = apperror.New(
		apperror.CodeDuplicatePerDay,
		"a request of this type already exists for today",
		http.StatusConflict,
	)
	ErrInvalidTransition = apperror.New(
		apperror.CodeInvalidTransition,
		"the request cannot move from its current state",
		http.StatusBadRequest,
	)
	ErrMissingPriorApproval = apperror.New(
		apperror.CodeMissingPriorApproval,
		"supervisor approval is required before HR approval",
		http.StatusBadRequest,
	)
)
