package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/factory-log/internal/apperr"
	"github.com/ukydev/factory-log/internal/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrIllegalTransition), errors.Is(err, apperr.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidReference):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}
	var fe *apperr.FieldError
	if errors.As(err, &fe) {
		resp.Field = fe.Field
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("request_id", middleware.GetRequestID(r.Context())).Error("Request failed")
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	return decode(r, v, false)
}

// decodeOptionalJSON is decodeJSON for bodies that may be left out.
func decodeOptionalJSON(r *http.Request, v interface{}) error {
	return decode(r, v, true)
}

func decode(r *http.Request, v interface{}, optional bool) error {
	if r.Body == nil {
		if optional {
			return nil
		}
		return apperr.Invalid("body", "is empty")
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperr.Invalid("body", "failed to read request body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		if optional {
			return nil
		}
		return apperr.Invalid("body", "is empty")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperr.Invalid("body", "invalid JSON")
	}
	return nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Empty is zero.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, apperr.Invalid(field, fmt.Sprintf("%q is not a date", s))
}

func pathID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		return primitive.NilObjectID, apperr.Invalid("id", "malformed id")
	}
	return id, nil
}
