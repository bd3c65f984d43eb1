package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnreachable is matched by errors.Is when no response was received from the API.
	ErrUnreachable = errors.New("api unreachable")

	// ErrSessionExpired is returned when a 401 could not be recovered by a token refresh.
	// The token store has already been cleared when it is returned.
	ErrSessionExpired = errors.New("session expired")

	errNoRefreshCredentials = errors.New("no refresh credentials stored")
)

// Kind classifies a failed API call.
type Kind int

const (
	// KindHTTP is a response that carried a failure status, either in the
	// HTTP status line or mirrored in the body.
	KindHTTP Kind = iota + 1
	// KindDecode is a success response whose body could not be decoded.
	KindDecode
	// KindUnreachable means no response was received.
	KindUnreachable
	// KindSessionExpired means authentication failed and could not be refreshed.
	KindSessionExpired
)

func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindDecode:
		return "decode"
	case KindUnreachable:
		return "unreachable"
	case KindSessionExpired:
		return "session_expired"
	default:
		return "unknown"
	}
}

// APIError is the normalised failure of an API call.
type APIError struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
	case e.Message != "":
		return "api error: " + e.Message
	case e.Err != nil:
		return fmt.Sprintf("api %s error: %v", e.Kind, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	default:
		return fmt.Sprintf("api %s error", e.Kind)
	}
}

func (e *APIError) Unwrap() []error {
	var errs []error
	switch e.Kind {
	case KindUnreachable:
		errs = append(errs, ErrUnreachable)
	case KindSessionExpired:
		errs = append(errs, ErrSessionExpired)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// MessageOr returns the server-provided message, or fallback when the server sent none.
func (e *APIError) MessageOr(fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	return fallback
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
