package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hszk-dev/gostream/internal/api/middleware"
	"github.com/hszk-dev/gostream/internal/api/problem"
	"github.com/hszk-dev/gostream/internal/domain/model"
	"github.com/hszk-dev/gostream/internal/domain/repository"
	"github.com/hszk-dev/gostream/internal/usecase"
)

// Problem is an RFC 7807 Problem Details error body. Defined in the problem
// package so the auth middleware — which fires before any handler — can
// write the same shape without importing this package back.
type Problem = problem.Problem

// WriteProblem writes status and detail as an RFC 7807 body.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	problem.Write(w, r, status, title, detail)
}

// WriteValidationProblem writes a 400 with field-level detail.
func WriteValidationProblem(w http.ResponseWriter, r *http.Request, errs map[string]string) {
	problem.WriteValidation(w, r, errs)
}

// HandleServiceError maps a usecase-layer error to its HTTP status per
// spec.md §7's error handling design and writes the corresponding Problem
// Details body. Unrecognized errors are logged with full detail and
// returned to the client as a generic 500 — storage paths, stack traces,
// and FFmpeg stderr never reach the response.
func HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrVideoNotFound), errors.Is(err, repository.ErrUserNotFound):
		WriteProblem(w, r, http.StatusNotFound, "not found", "the requested resource does not exist")

	case errors.Is(err, usecase.ErrNotOwner):
		WriteProblem(w, r, http.StatusForbidden, "forbidden", "you do not have access to this resource")

	case errors.Is(err, usecase.ErrAlreadyProcessing), errors.Is(err, repository.ErrIllegalTransition), errors.Is(err, repository.ErrVersionConflict):
		WriteProblem(w, r, http.StatusConflict, "conflict", err.Error())

	case errors.Is(err, usecase.ErrUploadTooLarge):
		WriteProblem(w, r, http.StatusRequestEntityTooLarge, "payload too large", err.Error())

	case errors.Is(err, usecase.ErrEmptyUpload),
		errors.Is(err, usecase.ErrInvalidFilename),
		errors.Is(err, usecase.ErrInvalidExtension),
		errors.Is(err, usecase.ErrInvalidContentType),
		errors.Is(err, usecase.ErrInvalidMagicBytes),
		errors.Is(err, usecase.ErrVideoNotReady),
		errors.Is(err, model.ErrEmptyDescription),
		errors.Is(err, model.ErrInvalidResolution):
		WriteProblem(w, r, http.StatusBadRequest, "validation failed", err.Error())

	case errors.Is(err, repository.ErrDuplicateUsername), errors.Is(err, repository.ErrDuplicateStoragePath):
		WriteProblem(w, r, http.StatusConflict, "conflict", err.Error())

	case errors.Is(err, usecase.ErrInvalidCredentials):
		WriteProblem(w, r, http.StatusUnauthorized, "unauthorized", "invalid username or password")

	default:
		requestID := middleware.GetRequestID(r.Context())
		slog.Error("unhandled service error", "request_id", requestID, "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "internal error", "an unexpected error occurred")
	}
}
