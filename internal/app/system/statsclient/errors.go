package statsclient

import (
	"errors"
	"fmt"
)

// ErrUnknownCategory is returned for a category with no stats endpoint.
var ErrUnknownCategory = errors.New("statsclient: unknown stats category")

// Kind classifies a failed fetch.
type Kind string

const (
	// KindTransport: the request never got an HTTP answer (DNS, refused
	// connection, timeout, cancelled context).
	KindTransport Kind = "transport"
	// KindUnauthorized: the service rejected our credentials (401/403).
	KindUnauthorized Kind = "unauthorized"
	// KindServer: any other non-2xx status, or a body with success=false.
	KindServer Kind = "server"
	// KindMalformed: a 2xx answer whose body is not the expected JSON.
	KindMalformed Kind = "malformed"
)

// FetchError describes a failed stats fetch.
type FetchError struct {
	Kind       Kind
	StatusCode int    // 0 for transport failures
	Message    string // message reported by the service, if any
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("stats fetch %s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("stats fetch %s (HTTP %d)", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("stats fetch %s: %v", e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("stats fetch %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("stats fetch %s", e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" if err is not a *FetchError.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
