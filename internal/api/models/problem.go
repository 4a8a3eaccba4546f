package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 problem document. It also carries an error field
// so that clients reading {"error": "..."} keep working.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`

	// Error is the message clients display: Detail, or Title when there is
	// no detail.
	Error string `json:"error"`

	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// TraceID echoes the X-Request-Id of the failed request.
	TraceID string `json:"traceId"`

	Errors []FieldError `json:"errors,omitempty"`
}

// FieldError points at one invalid query parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// FieldCodeRequired marks a missing parameter.
const FieldCodeRequired = "REQUIRED"

// RequiredField reports that the named parameter is missing or blank.
func RequiredField(field string) FieldError {
	return FieldError{Field: field, Message: "is required", Code: FieldCodeRequired}
}

const problemBase = "https://api.troski.app/problems/"

// Problem type URIs.
const (
	ProblemTypeValidation       = problemBase + "validation-error"
	ProblemTypeUnauthorized     = problemBase + "unauthorized"
	ProblemTypeNotFound         = problemBase + "not-found"
	ProblemTypeMethodNotAllowed = problemBase + "method-not-allowed"
	ProblemTypeTooManyRequests  = problemBase + "too-many-requests"
	ProblemTypeTLSRequired      = problemBase + "tls-required"
	ProblemTypeInternal         = problemBase + "internal-error"
)

// NewProblem creates a Problem whose error message is its title.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		Error:   title,
		TraceID: traceID,
	}
}

// WithDetail sets the detail; a non-empty detail also becomes the error message.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	if detail != "" {
		p.Error = detail
	}
	return p
}

func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write sends the problem with its status and the request ID header.
func (p *Problem) Write(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		h.Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// kind is a problem type with its fixed title and status.
type kind struct {
	typ    string
	title  string
	status int
}

var (
	kindValidation       = kind{ProblemTypeValidation, "Validation error", http.StatusBadRequest}
	kindUnauthorized     = kind{ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized}
	kindNotFound         = kind{ProblemTypeNotFound, "Not found", http.StatusNotFound}
	kindMethodNotAllowed = kind{ProblemTypeMethodNotAllowed, "Method not allowed", http.StatusMethodNotAllowed}
	kindTooManyRequests  = kind{ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests}
	kindInternal         = kind{ProblemTypeInternal, "Internal server error", http.StatusInternalServerError}
)

func (k kind) problem(traceID, detail string) *Problem {
	return NewProblem(k.typ, k.title, k.status, traceID).WithDetail(detail)
}

// NewBadRequest creates a 400 validation problem.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	return kindValidation.problem(traceID, detail).WithErrors(errors)
}

// NewUnauthorized creates a 401 problem.
func NewUnauthorized(traceID, detail string) *Problem {
	return kindUnauthorized.problem(traceID, detail)
}

// NewNotFound creates a 404 problem.
func NewNotFound(traceID, detail string) *Problem {
	return kindNotFound.problem(traceID, detail)
}

// NewMethodNotAllowed creates a 405 problem.
func NewMethodNotAllowed(traceID, detail string) *Problem {
	return kindMethodNotAllowed.problem(traceID, detail)
}

// NewTooManyRequests creates a 429 problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	return kindTooManyRequests.problem(traceID, detail)
}

// NewInternalError creates a 500 problem. detail must not leak internals.
func NewInternalError(traceID, detail string) *Problem {
	return kindInternal.problem(traceID, detail)
}
