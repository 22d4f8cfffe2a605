package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"
)

// ErrUpstreamUnavailable is returned when a backing store could not answer
// within its deadline or the connection to it failed.
var ErrUpstreamUnavailable = errors.New("upstream store unavailable")

const (
	// connectionExceptionClass is the SQLSTATE class for connection failures
	connectionExceptionClass pq.ErrorClass = "08"
	// queryCanceled is raised when a statement is cancelled or times out
	queryCanceled pq.ErrorCode = "57014"
)

// Classify wraps transport-level failures with ErrUpstreamUnavailable and
// returns every other error unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUpstreamUnavailable) {
		return err
	}
	if IsUpstreamFailure(err) {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return err
}

// ClassifyContext is Classify for errors returned while ctx was in force.
// Drivers report a cancelled statement in their own terms, so a done
// context marks any failure as upstream.
func ClassifyContext(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ErrUpstreamUnavailable) {
		return fmt.Errorf("%w: %w (%v)", ErrUpstreamUnavailable, ctxErr, err)
	}
	return Classify(err)
}

// IsUpstreamFailure reports whether err describes an unreachable or timed
// out backing store rather than a domain answer.
func IsUpstreamFailure(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrUpstreamUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == connectionExceptionClass || pqErr.Code == queryCanceled
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// WithTimeout bounds ctx by timeout. A non-positive timeout leaves ctx
// unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
