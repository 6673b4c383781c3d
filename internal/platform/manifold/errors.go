package manifold

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// APIError is a non-2xx response from the Manifold API.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("manifold api error %d: %s", e.StatusCode, e.Message)
}

// Is maps auth and rate-limit statuses onto the domain sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case domain.ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// newAPIError prefers the API's {"message": "..."} body over the bare status
// text.
func newAPIError(statusCode int, body []byte) *APIError {
	var payload struct {
		Message string `json:"message"`
	}
	msg := http.StatusText(statusCode)
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		msg = payload.Message
	}
	return &APIError{StatusCode: statusCode, Message: msg, Body: body}
}
