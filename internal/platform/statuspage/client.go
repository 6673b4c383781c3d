// Package statuspage polls a Statuspage.io status feed (GitHub Status by
// default) for the current incident indicator.
package statuspage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// DefaultURL is the GitHub Status summary endpoint.
const DefaultURL = "https://www.githubstatus.com/api/v2/status.json"

// Client fetches the current incident status.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	backoff    Backoff
	newTimer   func() backoff.Timer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a status feed client for url.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:  slog.Default().With(slog.String("component", "statuspage")),
		backoff:  DefaultBackoff(),
		newTimer: func() backoff.Timer { return nil },
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger.With(slog.String("component", "statuspage"))
	}
}

// WithBackoff sets the rate-limit backoff policy.
func WithBackoff(b Backoff) ClientOption {
	return func(c *Client) {
		c.backoff = b
	}
}

// WithTimer replaces the timer used to wait between rate-limited attempts.
// Tests use it to observe the backoff schedule without sleeping.
func WithTimer(fn func() backoff.Timer) ClientOption {
	return func(c *Client) {
		c.newTimer = fn
	}
}

// GetIncidentStatus returns the current status envelope.
//
// HTTP 429 responses are Transient and retried with exponential backoff for
// as long as ctx allows. Every other failure (transport, non-2xx status,
// undecodable body) is Fatal and returned on the first occurrence.
func (c *Client) GetIncidentStatus(ctx context.Context) (domain.StatusEnvelope, error) {
	var env domain.StatusEnvelope
	attempt := 0

	op := func() error {
		attempt++
		got, err := c.fetch(ctx)
		if err == nil {
			env = got
			return nil
		}
		var transient *Transient
		if !errors.As(err, &transient) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.DebugContext(ctx, "status feed rate limited, backing off",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", wait),
		)
	}

	policy := backoff.WithContext(c.backoff.exponential(), ctx)
	if err := backoff.RetryNotifyWithTimer(op, policy, notify, c.newTimer()); err != nil {
		return domain.StatusEnvelope{}, fmt.Errorf("statuspage: get incident status: %w", err)
	}
	return env, nil
}

// fetch performs a single GET and classifies the outcome.
func (c *Client) fetch(ctx context.Context) (domain.StatusEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return domain.StatusEnvelope{}, &Fatal{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.StatusEnvelope{}, &Fatal{Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.StatusEnvelope{}, &Fatal{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.StatusEnvelope{}, &Transient{Err: &StatusError{StatusCode: resp.StatusCode, Body: body}}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.StatusEnvelope{}, &Fatal{Err: &StatusError{StatusCode: resp.StatusCode, Body: body}}
	}

	var env domain.StatusEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.StatusEnvelope{}, &Fatal{Err: fmt.Errorf("decode status: %w", err)}
	}

	return env, nil
}

// Backoff describes an exponential schedule with a capped interval and
// symmetric jitter. There is no overall deadline: rate limiting is retried
// until ctx ends.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter is the randomisation factor: each wait is drawn uniformly from
	// [interval*(1-Jitter), interval*(1+Jitter)].
	Jitter float64
}

// DefaultBackoff returns 500ms growing by 1.5x up to 1 minute, ±50%.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:    500 * time.Millisecond,
		Max:        time.Minute,
		Multiplier: 1.5,
		Jitter:     0.5,
	}
}

func (b Backoff) exponential() *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = b.Initial
	eb.MaxInterval = b.Max
	eb.Multiplier = b.Multiplier
	eb.RandomizationFactor = b.Jitter
	eb.MaxElapsedTime = 0
	eb.Reset()
	return eb
}
