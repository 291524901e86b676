package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Request failure categories. Each wraps the underlying colly or net error
// and is reported under its label in metrics and CrawlResult.ErrorsByType.

// ErrTimeout is a request that ran past the configured timeout.
type ErrTimeout struct{ Err error }

func (e ErrTimeout) Error() string { return "timeout: " + errText(e.Err) }
func (e ErrTimeout) Unwrap() error { return e.Err }

// ErrConnection is a dial or transport failure.
type ErrConnection struct{ Err error }

func (e ErrConnection) Error() string { return "connection: " + errText(e.Err) }
func (e ErrConnection) Unwrap() error { return e.Err }

// ErrForbidden is an HTTP 403. It is not retried.
type ErrForbidden struct{ Err error }

func (e ErrForbidden) Error() string { return "forbidden: " + errText(e.Err) }
func (e ErrForbidden) Unwrap() error { return e.Err }

// ErrNotFound is an HTTP 404. It is not retried.
type ErrNotFound struct{ Err error }

func (e ErrNotFound) Error() string { return "not_found: " + errText(e.Err) }
func (e ErrNotFound) Unwrap() error { return e.Err }

// ErrRateLimited is an HTTP 429.
type ErrRateLimited struct{ Err error }

func (e ErrRateLimited) Error() string { return "rate_limited: " + errText(e.Err) }
func (e ErrRateLimited) Unwrap() error { return e.Err }

// ErrServer is any 5xx response.
type ErrServer struct {
	Status int
	Err    error
}

func (e ErrServer) Error() string {
	return fmt.Sprintf("server_error (%d): %s", e.Status, errText(e.Err))
}
func (e ErrServer) Unwrap() error { return e.Err }

func errText(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}

// errorTypeLabel maps a classified error to its metric label.
func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var (
		timeout     ErrTimeout
		conn        ErrConnection
		forbidden   ErrForbidden
		notFound    ErrNotFound
		rateLimited ErrRateLimited
		server      ErrServer
	)
	switch {
	case errors.As(err, &timeout):
		return "timeout"
	case errors.As(err, &conn):
		return "connection"
	case errors.As(err, &forbidden):
		return "forbidden"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &rateLimited):
		return "rate_limited"
	case errors.As(err, &server):
		return "server_error"
	}
	return "other"
}

// classifyError wraps err in the category matching its cause or, failing
// that, the HTTP status.
func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	cause := err
	if cause == nil {
		cause = fmt.Errorf("http status %d", statusCode)
	}
	switch {
	case statusCode == http.StatusForbidden:
		return ErrForbidden{Err: cause}
	case statusCode == http.StatusNotFound:
		return ErrNotFound{Err: cause}
	case statusCode == http.StatusTooManyRequests:
		return ErrRateLimited{Err: cause}
	case statusCode >= http.StatusInternalServerError:
		return ErrServer{Status: statusCode, Err: cause}
	}
	return err
}

// isRetryable reports whether a failed request may succeed later.
func isRetryable(err error) bool {
	var forbidden ErrForbidden
	var notFound ErrNotFound
	return !errors.As(err, &forbidden) && !errors.As(err, &notFound)
}
