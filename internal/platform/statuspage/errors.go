package statuspage

import (
	"fmt"
	"net/http"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// Transient marks a failure worth retrying with backoff. Only rate limiting
// is transient.
type Transient struct {
	Err error
}

func (e *Transient) Error() string { return "transient: " + e.Err.Error() }

func (e *Transient) Unwrap() error { return e.Err }

// Fatal marks a failure that is returned to the caller without retry.
type Fatal struct {
	Err error
}

func (e *Fatal) Error() string { return e.Err.Error() }

func (e *Fatal) Unwrap() error { return e.Err }

// StatusError is a non-2xx response from the status feed.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status feed HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Is lets callers match 429s with errors.Is(err, domain.ErrRateLimited).
func (e *StatusError) Is(target error) bool {
	return target == domain.ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}
