package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed operation so callers can choose how to render it.
type Kind string

const (
	// KindValidation: input rejected locally, no request was sent.
	KindValidation Kind = "validation"
	// KindAuthentication: login or registration rejected by the server.
	KindAuthentication Kind = "authentication"
	// KindAuthorization: the credential was rejected (401). The session has
	// already been signed out when this is returned.
	KindAuthorization Kind = "authorization"
	KindForbidden     Kind = "forbidden"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindServer        Kind = "server"
	KindTransport     Kind = "transport"
	KindDecode        Kind = "decode"
)

// Sentinels for errors.Is matching against *Error.
var (
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("authentication failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrServer         = errors.New("server error")
	ErrTransport      = errors.New("service unreachable")
	ErrDecode         = errors.New("malformed response")
)

// TransportMessage is shown when the service cannot be reached at all.
const TransportMessage = "unable to reach the events service"

var kindSentinels = map[Kind]error{
	KindValidation:     ErrValidation,
	KindAuthentication: ErrAuthentication,
	KindAuthorization:  ErrUnauthorized,
	KindForbidden:      ErrForbidden,
	KindNotFound:       ErrNotFound,
	KindConflict:       ErrConflict,
	KindServer:         ErrServer,
	KindTransport:      ErrTransport,
	KindDecode:         ErrDecode,
}

// Error is the single failure type returned by every gateway operation.
type Error struct {
	Op      string
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

// KindOf returns the Kind of err, or "" if err is not a gateway error.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return ""
}

// Message returns the text a caller should show for err: the server-supplied
// message for gateway errors, err.Error() otherwise.
func Message(err error) string {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func validationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindValidation, Message: err.Error(), Err: err}
}

func transportError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindTransport, Message: TransportMessage, Err: err}
}

func decodeError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindDecode, Message: "unexpected response from the events service", Err: err}
}

// statusError builds the error for a non-2xx response. Auth endpoints turn
// every client error into KindAuthentication since the form was rejected.
func statusError(op string, status int, body []byte, contentType string, authEndpoint bool, fallback string) *Error {
	msg := serverMessage(body, contentType)
	if msg == "" {
		msg = fallback
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	kind := KindServer
	switch {
	case authEndpoint && status >= 400 && status < 500:
		kind = KindAuthentication
	case status == http.StatusUnauthorized:
		kind = KindAuthorization
	case status == http.StatusForbidden:
		kind = KindForbidden
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusConflict:
		kind = KindConflict
	}
	return &Error{Op: op, Kind: kind, Status: status, Message: msg}
}

// serverMessage extracts a human message from an error body. It understands
// {"message"}, RFC 7807 problem documents and {"error"}; plain-text bodies are
// used as-is when short.
func serverMessage(body []byte, contentType string) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '{' {
		var payload struct {
			Message string          `json:"message"`
			Detail  string          `json:"detail"`
			Title   string          `json:"title"`
			Error   json.RawMessage `json:"error"`
		}
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return ""
		}
		var errText string
		_ = json.Unmarshal(payload.Error, &errText)
		for _, candidate := range []string{payload.Message, payload.Detail, errText, payload.Title} {
			if s := strings.TrimSpace(candidate); s != "" {
				return s
			}
		}
		return ""
	}
	if strings.HasPrefix(contentType, "text/plain") && len(trimmed) <= 200 {
		return string(trimmed)
	}
	return ""
}
