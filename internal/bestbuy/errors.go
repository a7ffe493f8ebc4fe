package bestbuy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies why an upstream call failed.
type Kind string

const (
	KindTimeout   Kind = "timeout"
	KindStatus    Kind = "status"
	KindTransport Kind = "transport"
	KindDecode    Kind = "decode"
)

// UpstreamError captures a failed catalog call. It never carries the request URL.
type UpstreamError struct {
	Operation  string
	Kind       Kind
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Kind == KindStatus && e.Body == "":
		return fmt.Sprintf("%s request failed: status %d", e.Operation, e.StatusCode)
	case e.Kind == KindStatus:
		return fmt.Sprintf("%s request failed: status %d: %s", e.Operation, e.StatusCode, e.Body)
	case e.Kind == KindTimeout:
		return fmt.Sprintf("%s request timed out: %v", e.Operation, e.Err)
	default:
		return fmt.Sprintf("%s request failed (%s): %v", e.Operation, e.Kind, e.Err)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Reason is the caller-facing summary of the failure.
func (e *UpstreamError) Reason() string {
	if e.Kind == KindTimeout {
		return "Upstream timeout"
	}
	return "Upstream error"
}

// Status is the HTTP status the failure should surface as: the upstream status when
// there was one, otherwise 500.
func (e *UpstreamError) Status() int {
	if e.Kind == KindStatus && e.StatusCode >= 400 && e.StatusCode <= 599 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// Details is a sanitized description safe to hand to callers.
func (e *UpstreamError) Details() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("%s: upstream did not respond in time", e.Operation)
	case KindStatus:
		return fmt.Sprintf("%s: upstream returned status %d", e.Operation, e.StatusCode)
	case KindDecode:
		return fmt.Sprintf("%s: upstream response could not be read", e.Operation)
	default:
		return fmt.Sprintf("%s: upstream unreachable", e.Operation)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
