package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/abhisek/edubot/internal/content"
)

// ErrResponseTooLarge is wrapped when a reply exceeds the body size limit.
var ErrResponseTooLarge = errors.New("response too large")

// Kind classifies a failed call by how the client should recover from it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNetwork: unreachable backend, dropped connection or timeout.
	KindNetwork
	// KindAuth: missing, invalid or expired credential.
	KindAuth
	// KindAuthorization: the credential is valid but the role is not.
	KindAuthorization
	// KindValidation: the request was malformed or the reply unusable.
	KindValidation
	// KindNotFound: a stale id.
	KindNotFound
	// KindServer: 5xx.
	KindServer
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindNetwork:       "network",
	KindAuth:          "auth",
	KindAuthorization: "authorization",
	KindValidation:    "validation",
	KindNotFound:      "not found",
	KindServer:        "server",
}

func (k Kind) String() string { return kindNames[k] }

// Transient reports whether the failure is worth retrying or showing as a
// dismissible banner.
func (k Kind) Transient() bool {
	return k == KindNetwork || k == KindServer || k == KindUnknown
}

// Error is a classified backend failure.
type Error struct {
	Kind   Kind
	Op     string // e.g. "GET /api/reading/history"
	Status int    // 0 when no response arrived
	Detail string // server-provided message, if any
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the text shown to the user.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	switch e.Kind {
	case KindNetwork:
		return "Could not reach the server. Check your connection and try again."
	case KindAuth:
		return "Your session has expired. Please log in again."
	case KindAuthorization:
		return "You do not have permission to do that."
	case KindNotFound:
		return "That item no longer exists."
	case KindServer:
		return "The server had a problem. Please try again."
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "Something went wrong."
}

// KindOf classifies any error returned by a ContentService.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	var verr *content.ValidationError
	if errors.As(err, &verr) || errors.Is(err, content.ErrInvalidPayload) || errors.Is(err, content.ErrAnswerMismatch) {
		return KindValidation
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindUnknown
}

// Message returns a user-facing description of err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	var verr *content.ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		return verr.Fields[0].Message
	}
	if KindOf(err) == KindNetwork {
		return (&Error{Kind: KindNetwork}).Message()
	}
	return err.Error()
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusForbidden:
		return KindAuthorization
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity,
		status == http.StatusConflict, status == http.StatusRequestEntityTooLarge:
		return KindValidation
	case status >= 500:
		return KindServer
	}
	return KindUnknown
}

// statusError builds an Error from a non-2xx reply. FastAPI sends
// {"detail": "..."} or, for request validation, {"detail": [{"msg": ...}]}.
func statusError(op string, status int, body []byte) *Error {
	return &Error{
		Kind:   kindForStatus(status),
		Op:     op,
		Status: status,
		Detail: detailOf(body),
	}
}

func detailOf(body []byte) string {
	var env struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if len(env.Detail) == 0 {
		return env.Message
	}
	var s string
	if json.Unmarshal(env.Detail, &s) == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
		Loc []any  `json:"loc"`
	}
	if json.Unmarshal(env.Detail, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg == "" {
				continue
			}
			if len(it.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
