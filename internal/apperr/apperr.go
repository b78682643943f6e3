// Package apperr maps domain failures onto HTTP responses.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	Conflict
	Forbidden
	UpstreamParse
	UpstreamSchema
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation_error"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Forbidden:
		return "forbidden"
	case UpstreamParse:
		return "upstream_parse_error"
	case UpstreamSchema:
		return "upstream_schema_error"
	default:
		return "internal_error"
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Forbidden:
		return http.StatusForbidden
	case UpstreamParse:
		return http.StatusBadGateway
	case UpstreamSchema:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Message is safe to show to clients; Details
// carries optional structured context (raw model output, schema issues).
type Error struct {
	Kind    Kind
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

func Validationf(format string, args ...interface{}) *Error {
	return New(Validation, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...interface{}) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

// KindOf reports the kind of err, Internal when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Response is the JSON error envelope.
type Response struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

const internalMessage = "An internal error occurred"

// Respond writes err as a JSON error envelope. Unclassified errors are logged
// and reported with a generic message.
func Respond(w http.ResponseWriter, log zerolog.Logger, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = Wrap(Internal, internalMessage, err)
	}

	resp := Response{Error: e.Kind.String(), Message: e.Message, Details: e.Details}
	if e.Kind == Internal {
		log.Error().Err(err).Msg("request failed")
		resp.Message = internalMessage
		resp.Details = nil
	}

	Write(w, e.Kind.Status(), resp)
}

// Write encodes an explicit envelope, for handlers that build their own
// error type strings.
func Write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
