// Package manifold is a minimal REST client for the Manifold Markets API:
// listing markets and placing bets.
package manifold

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// DefaultBaseURL is the public Manifold API root.
const DefaultBaseURL = "https://manifold.markets/api"

const (
	marketsPath = "/v0/markets"
	betPath     = "/v0/bet"
)

// Client is the REST client for the Manifold API. It is safe for concurrent
// use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger

	pageSize int
	maxPages int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new Manifold client. apiKey is sent as
// "Authorization: Key <apiKey>" on every request.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:   slog.Default().With(slog.String("component", "manifold")),
		maxPages: 1,
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
		c.logger = logger.With(slog.String("component", "manifold"))
	}
}

// WithPaging makes ListMarkets request pageSize markets at a time and follow
// the "before" cursor for up to maxPages pages. A pageSize of 0 leaves the
// limit to the server.
func WithPaging(pageSize, maxPages int) ClientOption {
	return func(c *Client) {
		c.pageSize = pageSize
		if maxPages > 0 {
			c.maxPages = maxPages
		}
	}
}

// ListMarkets returns the most recently created markets.
func (c *Client) ListMarkets(ctx context.Context) ([]domain.Market, error) {
	var all []domain.Market
	before := ""

	for page := 0; page < c.maxPages; page++ {
		query := url.Values{}
		if c.pageSize > 0 {
			query.Set("limit", strconv.Itoa(c.pageSize))
		}
		if before != "" {
			query.Set("before", before)
		}

		path := marketsPath
		if len(query) > 0 {
			path += "?" + query.Encode()
		}

		body, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, fmt.Errorf("manifold: list markets: %w", err)
		}

		var markets []domain.Market
		if err := json.Unmarshal(body, &markets); err != nil {
			return nil, fmt.Errorf("manifold: decode markets: %w", err)
		}

		all = append(all, markets...)

		if c.pageSize <= 0 || len(markets) < c.pageSize {
			break
		}
		before = markets[len(markets)-1].ID
	}

	return all, nil
}

// betPayload is the JSON body of POST /v0/bet.
type betPayload struct {
	Amount     int            `json:"amount"`
	Outcome    domain.Outcome `json:"outcome"`
	ContractID string         `json:"contractId"`
}

// Bet places a single wager. This spends real currency and cannot be
// undone. Any non-2xx response is returned as an *APIError; there is no
// retry.
func (c *Client) Bet(ctx context.Context, contractID string, outcome domain.Outcome, amount int) error {
	payload := betPayload{
		Amount:     amount,
		Outcome:    outcome,
		ContractID: contractID,
	}

	body, err := c.doRequest(ctx, http.MethodPost, betPath, payload)
	if err != nil {
		return fmt.Errorf("manifold: bet on %s: %w", contractID, err)
	}

	c.logger.DebugContext(ctx, "bet placed",
		slog.String("contract_id", contractID),
		slog.String("outcome", string(outcome)),
		slog.Int("amount", amount),
		slog.Int("response_bytes", len(body)),
	)
	return nil
}

// doRequest builds, sends and reads an authenticated request.
func (c *Client) doRequest(ctx context.Context, method, path string, reqBody any) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	return respBody, nil
}
