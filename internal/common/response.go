package common

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the payload under the "error" key of every failed response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError writes {"error": {...}}.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]ErrorBody{
		"error": {Code: code, Message: message, Details: details},
	})
}

// WriteAppError renders err when it wraps an *AppError and reports whether it did.
func WriteAppError(w http.ResponseWriter, err error) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
	return true
}
