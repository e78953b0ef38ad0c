package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Kind classifies an error. The numeric order is the precedence used when
// several errors are reported together.
type Kind int

const (
	KindBadRequest Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindUnprocessableEntity
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindUnprocessableEntity:
		return "unprocessable_entity"
	default:
		return "server_error"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for candidate := KindBadRequest; candidate <= KindServerError; candidate++ {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", text)
}

// HTTPStatus maps a kind to its response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUnprocessableEntity:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is a user facing failure with an optional list of reasons.
type Error struct {
	Kind    Kind     `json:"kind"`
	Message string   `json:"message"`
	Reasons []string `json:"reasons"`
}

func (e *Error) Error() string {
	if len(e.Reasons) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Reasons)
}

func New(kind Kind, message string, reasons ...string) *Error {
	if reasons == nil {
		reasons = []string{}
	}
	return &Error{Kind: kind, Message: message, Reasons: reasons}
}

func BadRequest(message string, reasons ...string) *Error {
	return New(KindBadRequest, message, reasons...)
}

func NotFound(message string, reasons ...string) *Error {
	return New(KindNotFound, message, reasons...)
}

func ServerError(message string, reasons ...string) *Error {
	return New(KindServerError, message, reasons...)
}

// From returns err as an *Error. Foreign errors become a ServerError that
// hides the cause from the client.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return ServerError("Internal server error")
}

// Sorted orders errors by kind precedence, keeping the input order for
// errors of the same kind.
func Sorted(errs []*Error) []*Error {
	out := make([]*Error, len(errs))
	copy(out, errs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Status derives the response status from the highest precedence error.
func Status(errs []*Error) int {
	if len(errs) == 0 {
		return http.StatusOK
	}
	return Sorted(errs)[0].Kind.HTTPStatus()
}
