// Package http serves the ledger as a JSON API.
//
// This file implements the builder used by every handler to write JSON
// bodies, plus the mapping from domain errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"cardledger/internal/core"
	"cardledger/internal/debt"
	applog "cardledger/internal/log"
	"cardledger/internal/retention"
	"cardledger/internal/services"
	"cardledger/internal/storage"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	data       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.data == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.data)
}

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, kind, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Data(ErrorBody{Error: message, Kind: kind})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, applog.ErrorTypeValidation, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, applog.ErrorTypeNotFound, message)
}

var validationErrors = []error{
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrInvalidDate,
	core.ErrInvalidPeriod,
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrEmptyName,
	core.ErrInvalidType,
	core.ErrInvalidStatus,
	core.ErrCardRequired,
	core.ErrInvalidInstalment,
	debt.ErrInvalidTarget,
	storage.ErrInvalidDocument,
	storage.ErrUnsupportedVersion,
}

var conflictErrors = []error{
	core.ErrNotRecurring,
	services.ErrNotApplicable,
	services.ErrCardCancelled,
	services.ErrStale,
	retention.ErrInvariantViolation,
}

// classify maps err to a status code and an error kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, applog.ErrorTypeNotFound
	case isAny(err, validationErrors):
		return http.StatusUnprocessableEntity, applog.ErrorTypeValidation
	case isAny(err, conflictErrors):
		return http.StatusConflict, applog.ErrorTypeConflict
	case errors.Is(err, storage.ErrCapacityExceeded):
		return http.StatusInsufficientStorage, applog.ErrorTypeCapacity
	case errors.Is(err, services.ErrNotDurable):
		return http.StatusInsufficientStorage, applog.ErrorTypeDurability
	case errors.Is(err, services.ErrSheetsDisabled), errors.Is(err, services.ErrNoArchive):
		return http.StatusServiceUnavailable, applog.ErrorTypeUpstream
	case errors.Is(err, retention.ErrExportFailed):
		return http.StatusBadGateway, applog.ErrorTypeUpstream
	}
	return http.StatusInternalServerError, applog.ErrorTypeInternal
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// writeError logs err with the request's logger and writes its JSON form.
// Internal errors are not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, kind := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	fields := applog.NewFields().
		WithOperation(op).
		WithError(err).
		WithErrorType(kind)
	applog.FromContext(r.Context()).
		WithComponent(applog.ComponentHTTP).
		LogContext(r.Context(), applog.StatusLevel(status), "Request failed", fields.ToSlice()...)
	ErrorResponse(status, kind, msg).Write(w)
}
