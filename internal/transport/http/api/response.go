package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
)

type Envelope struct {
	Success   bool           `json:"success"`
	Data      any            `json:"data,omitempty"`
	Message   string         `json:"message,omitempty"`
	Code      string         `json:"code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("write json failed", zap.Error(err))
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Code: code, Message: message, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]any, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Code: code, Message: message, Details: details, RequestID: requestID})
}

// FailError writes err in the envelope. Unknown errors become a generic
// STORE_ERROR; their cause is logged, never sent.
func FailError(w http.ResponseWriter, err error, requestID string) {
	appErr := apperror.From(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		var cause error = appErr
		if unwrapped := errors.Unwrap(appErr); unwrapped != nil {
			cause = unwrapped
		}
		zap.L().Error("request failed", zap.String("requestId", requestID), zap.String("code", appErr.Code), zap.Error(cause))
	}
	FailWithDetails(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details, requestID)
}
