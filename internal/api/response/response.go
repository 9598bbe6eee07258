// Package response writes JSON and problem responses.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mentionwatch/console/internal/api/middleware"
	"github.com/mentionwatch/console/internal/api/models"
)

// maxBodyBytes bounds request bodies; every console request body is tiny.
const maxBodyBytes = 64 << 10

// JSON writes data with status, echoing the request id.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// OK writes a 200 response.
func OK(w http.ResponseWriter, r *http.Request, data any) {
	JSON(w, r, http.StatusOK, data)
}

// Accepted writes a 202 response with an optional Location header.
func Accepted(w http.ResponseWriter, r *http.Request, location string, data any) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	JSON(w, r, http.StatusAccepted, data)
}

// Error writes problem with the request path as its instance.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.WithInstance(r.URL.Path).Write(w)
}

// BadRequest writes a 400 problem.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errors))
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(middleware.GetRequestID(r.Context()), detail))
}

// Conflict writes a 409 problem.
func Conflict(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewConflict(middleware.GetRequestID(r.Context()), detail))
}

// Unprocessable writes a 422 problem.
func Unprocessable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewUnprocessable(middleware.GetRequestID(r.Context()), detail))
}

// InternalError writes a 500 problem. The detail is generic; callers log
// the underlying error.
func InternalError(w http.ResponseWriter, r *http.Request) {
	Error(w, r, models.NewInternalError(middleware.GetRequestID(r.Context()), "an unexpected error occurred"))
}

// ServiceUnavailable writes a 503 problem.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewServiceUnavailable(middleware.GetRequestID(r.Context()), detail))
}

// DecodeJSON decodes a bounded JSON body into v, rejecting unknown fields
// and trailing data.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("decoding request body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
