// Package dashv1 provides a client for the per-scope v1 dashboard API
package dashv1

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/finbrook/fundview/internal/common"
	"github.com/finbrook/fundview/internal/interfaces"
	"github.com/finbrook/fundview/internal/models"
	"github.com/finbrook/fundview/internal/query"
)

const (
	DefaultBaseURL   = "http://localhost:5000"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client talks to the v1 per-scope endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new v1 dashboard client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs a rate-limited GET request and decodes the response.
func (c *Client) get(ctx context.Context, path string, params query.Params, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.NewTransportError(path, fmt.Errorf("rate limit wait: %w", err))
	}

	reqURL := c.baseURL + path
	if qs := params.Encode(); qs != "" {
		reqURL += "?" + qs
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.NewTransportError(path, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", path).Msg("Dashboard v1 request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.NewTransportError(path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.NewProtocolError(path, resp.StatusCode, readErrorDetail(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return models.NewMalformedError(path, err)
	}

	return nil
}

// readErrorDetail extracts the detail from a structured {error, detail}
// body, falling back to the raw body text.
func readErrorDetail(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	var structured struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &structured); err == nil {
		if structured.Detail != "" {
			return structured.Detail
		}
		if structured.Error != "" {
			return structured.Error
		}
	}
	return string(body)
}

func filterParams(filters models.TextFilters) query.Params {
	state := models.NewSelectionState()
	state.Filters = filters
	return query.Build(state, query.Options{})
}

// GetOverview retrieves the global snapshot.
func (c *Client) GetOverview(ctx context.Context, filters models.TextFilters) (*models.DashboardData, error) {
	var data models.DashboardData
	if err := c.get(ctx, "/api/overview", filterParams(filters), &data); err != nil {
		return nil, err
	}
	data.ExactSeries = true
	return &data, nil
}

// GetByDate retrieves the snapshot as of a specific date.
func (c *Client) GetByDate(ctx context.Context, date time.Time, filters models.TextFilters) (*models.DashboardData, error) {
	var data models.DashboardData
	path := "/api/date/" + date.Format("2006-01-02")
	if err := c.get(ctx, path, filterParams(filters), &data); err != nil {
		return nil, err
	}
	data.ExactSeries = true
	return &data, nil
}

// GetClient retrieves data scoped to one client.
func (c *Client) GetClient(ctx context.Context, clientID string, filters models.TextFilters) (*models.DashboardData, error) {
	var data models.DashboardData
	path := "/api/client/" + url.PathEscape(clientID)
	if err := c.get(ctx, path, filterParams(filters), &data); err != nil {
		return nil, err
	}
	data.ExactSeries = true
	return &data, nil
}

// GetFund retrieves data scoped to one fund.
func (c *Client) GetFund(ctx context.Context, fundName string, filters models.TextFilters) (*models.DashboardData, error) {
	var data models.DashboardData
	path := "/api/fund/" + url.PathEscape(fundName)
	if err := c.get(ctx, path, filterParams(filters), &data); err != nil {
		return nil, err
	}
	data.ExactSeries = true
	return &data, nil
}

// GetAccount retrieves data scoped to one account.
func (c *Client) GetAccount(ctx context.Context, accountID string, filters models.TextFilters) (*models.DashboardData, error) {
	var data models.DashboardData
	path := "/api/account/" + url.PathEscape(accountID)
	if err := c.get(ctx, path, filterParams(filters), &data); err != nil {
		return nil, err
	}
	data.ExactSeries = true
	return &data, nil
}

// GetAccountFund retrieves data for one account restricted to one fund.
func (c *Client) GetAccountFund(ctx context.Context, accountID, fundName string, filters models.TextFilters) (*models.DashboardData, error) {
	var data models.DashboardData
	path := "/api/account/" + url.PathEscape(accountID) + "/fund/" + url.PathEscape(fundName)
	if err := c.get(ctx, path, filterParams(filters), &data); err != nil {
		return nil, err
	}
	data.ExactSeries = true
	return &data, nil
}

// GetClientFund retrieves data for one client-fund combination.
func (c *Client) GetClientFund(ctx context.Context, clientID, fundName string, filters models.TextFilters) (*models.DashboardData, error) {
	var data models.DashboardData
	path := "/api/client/" + url.PathEscape(clientID) + "/fund/" + url.PathEscape(fundName)
	if err := c.get(ctx, path, filterParams(filters), &data); err != nil {
		return nil, err
	}
	data.ExactSeries = true
	return &data, nil
}

// GetUnified is not available on the v1 protocol.
func (c *Client) GetUnified(ctx context.Context, state *models.SelectionState) (*models.DashboardData, error) {
	return nil, models.NewProtocolError("/api/v2/dashboard", http.StatusNotImplemented, "unified endpoint requires the v2 protocol")
}

// SupportsUnified reports false: v1 has no unified endpoint.
func (c *Client) SupportsUnified() bool { return false }

// Ensure Client implements DashboardSource
var _ interfaces.DashboardSource = (*Client)(nil)
