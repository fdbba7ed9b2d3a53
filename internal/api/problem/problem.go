// Package problem implements RFC 7807 Problem Details bodies shared by the
// API handlers and the auth middleware, which fires before any handler and
// needs to produce the same response shape on a 401.
package problem

import (
	"encoding/json"
	"net/http"
	"time"
)

// Problem is an RFC 7807 Problem Details error body.
type Problem struct {
	Type      string            `json:"type,omitempty"`
	Title     string            `json:"title"`
	Status    int               `json:"status"`
	Detail    string            `json:"detail,omitempty"`
	Instance  string            `json:"instance,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Errors    map[string]string `json:"errors,omitempty"`
}

const contentType = "application/problem+json"

// Write writes status and detail as an RFC 7807 body.
func Write(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Title:     title,
		Status:    status,
		Detail:    detail,
		Instance:  r.URL.Path,
		Timestamp: time.Now(),
	})
}

// WriteValidation writes a 400 with field-level detail.
func WriteValidation(w http.ResponseWriter, r *http.Request, errs map[string]string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(Problem{
		Title:     "validation failed",
		Status:    http.StatusBadRequest,
		Instance:  r.URL.Path,
		Timestamp: time.Now(),
		Errors:    errs,
	})
}
