package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrHospitalNotFound = errors.New("hospital not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrBadCredentials   = errors.New("incorrect email or password")
	ErrTicketClosed     = errors.New("ticket is already closed")

	// ErrServer is the transport failure class: the request never produced an HTTP response.
	ErrServer       = errors.New("server error")
	ErrNoSession    = errors.New("not logged in")
	ErrNotConfirmed = errors.New("close not confirmed")
	ErrBusy         = errors.New("operation already in progress")
	ErrScopeClosed  = errors.New("view closed before response arrived")
)

// ValidationError is a local check that failed before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// FieldError is one entry of a list-shaped "detail" body.
type FieldError struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status int
	Detail string
	Fields []FieldError
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return "Validation error: " + JoinFieldErrors(e.Fields)
	}
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed (%d)", e.Status)
}

// JoinFieldErrors renders validation entries as "field.path: msg | ...", dropping the
// leading location segment ("body", "query").
func JoinFieldErrors(fields []FieldError) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		loc := f.Loc
		if len(loc) > 1 {
			loc = loc[1:]
		}
		parts = append(parts, strings.Join(loc, ".")+": "+f.Msg)
	}
	return strings.Join(parts, " | ")
}

// Message converts any portal error into the single line shown next to a form.
// fallback is used when the backend gave no detail.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var ae *APIError
	if errors.As(err, &ae) {
		if len(ae.Fields) > 0 || ae.Detail != "" {
			return ae.Error()
		}
		return fallback
	}
	switch {
	case errors.Is(err, ErrServer):
		return "Server error"
	case errors.Is(err, ErrNoSession):
		return "Please log in first"
	case errors.Is(err, ErrNotConfirmed), errors.Is(err, ErrBusy),
		errors.Is(err, ErrTicketNotFound), errors.Is(err, ErrTicketClosed):
		return upperFirst(err.Error())
	}
	return fallback
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
