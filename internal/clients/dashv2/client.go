// Package dashv2 provides a client for the unified v2 dashboard API
package dashv2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/finbrook/fundview/internal/common"
	"github.com/finbrook/fundview/internal/interfaces"
	"github.com/finbrook/fundview/internal/models"
	"github.com/finbrook/fundview/internal/query"
)

const (
	DefaultBaseURL       = "http://localhost:5000"
	DefaultTimeout       = 30 * time.Second
	DefaultRetryAttempts = 2
	DefaultRetryDelay    = time.Second

	endpoint = "/api/v2/dashboard"
)

// Client talks to the unified v2 dashboard endpoint. Every scope maps to
// the same endpoint with different selection parameters, so the backend
// always computes exact filtered series.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	logger        *common.Logger
	retryAttempts int
	retryDelay    time.Duration
	timeout       time.Duration
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

// WithRetry sets the attempt count and the fixed delay between attempts
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		if attempts > 0 {
			c.retryAttempts = attempts
		}
		c.retryDelay = delay
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient creates a new v2 dashboard client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		httpClient:    &http.Client{},
		logger:        common.NewSilentLogger(),
		retryAttempts: DefaultRetryAttempts,
		retryDelay:    DefaultRetryDelay,
		timeout:       DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// response is the v2 wire shape.
type response struct {
	ClientBalances []models.Client  `json:"client_balances"`
	FundBalances   []models.Fund    `json:"fund_balances"`
	AccountDetails []models.Account `json:"account_details"`
	Charts         struct {
		RecentHistory   []models.HistoryPoint `json:"recent_history"`
		LongTermHistory []models.HistoryPoint `json:"long_term_history"`
	} `json:"charts"`
	KPIMetrics *models.KPIMetrics `json:"kpi_metrics"`
	Metadata   struct {
		FiltersApplied bool `json:"filters_applied"`
	} `json:"metadata"`
}

// fetch performs the unified request with bounded retry and fixed delay.
// A request exceeding the configured timeout is aborted and treated as a
// transport failure.
func (c *Client) fetch(ctx context.Context, params query.Params) (*models.DashboardData, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		data, err := c.doRequest(ctx, params)
		if err == nil {
			return data, nil
		}
		lastErr = err

		// Do not burn retries on a cancelled parent context.
		if ctx.Err() != nil {
			break
		}

		if attempt < c.retryAttempts {
			c.logger.Debug().
				Int("attempt", attempt).
				Err(err).
				Msg("Dashboard v2 request failed, retrying")
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return nil, models.NewTransportError(endpoint, ctx.Err())
			}
		}
	}

	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, params query.Params) (*models.DashboardData, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := c.baseURL + endpoint
	if qs := params.Encode(); qs != "" {
		reqURL += "?" + qs
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, models.NewTransportError(endpoint, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", reqURL).Msg("Dashboard v2 request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() != nil {
			return nil, models.NewTransportError(endpoint, fmt.Errorf("request timed out after %s: %w", c.timeout, err))
		}
		return nil, models.NewTransportError(endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.NewProtocolError(endpoint, resp.StatusCode, readErrorDetail(resp.Body))
	}

	var wire response
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, models.NewMalformedError(endpoint, err)
	}

	return &models.DashboardData{
		ClientBalances:  wire.ClientBalances,
		FundBalances:    wire.FundBalances,
		AccountDetails:  wire.AccountDetails,
		RecentHistory:   wire.Charts.RecentHistory,
		LongTermHistory: wire.Charts.LongTermHistory,
		KPIs:            wire.KPIMetrics,
		FiltersApplied:  wire.Metadata.FiltersApplied,
		ExactSeries:     true,
	}, nil
}

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

func stateFor(filters models.TextFilters) *models.SelectionState {
	state := models.NewSelectionState()
	state.Filters = filters
	return state
}

// GetOverview retrieves the global snapshot.
func (c *Client) GetOverview(ctx context.Context, filters models.TextFilters) (*models.DashboardData, error) {
	return c.fetch(ctx, query.BuildUnified(stateFor(filters), ""))
}

// GetByDate retrieves the snapshot as of a specific date.
func (c *Client) GetByDate(ctx context.Context, date time.Time, filters models.TextFilters) (*models.DashboardData, error) {
	state := stateFor(filters)
	state.SetPinnedDate(&date)
	return c.fetch(ctx, query.BuildUnified(state, ""))
}

// GetClient retrieves data scoped to one client.
func (c *Client) GetClient(ctx context.Context, clientID string, filters models.TextFilters) (*models.DashboardData, error) {
	state := stateFor(filters)
	state.Clients[clientID] = struct{}{}
	return c.fetch(ctx, query.BuildUnified(state, "table"))
}

// GetFund retrieves data scoped to one fund.
func (c *Client) GetFund(ctx context.Context, fundName string, filters models.TextFilters) (*models.DashboardData, error) {
	state := stateFor(filters)
	state.Funds[fundName] = struct{}{}
	return c.fetch(ctx, query.BuildUnified(state, "table"))
}

// GetAccount retrieves data scoped to one account.
func (c *Client) GetAccount(ctx context.Context, accountID string, filters models.TextFilters) (*models.DashboardData, error) {
	state := stateFor(filters)
	state.Accounts[accountID] = struct{}{}
	return c.fetch(ctx, query.BuildUnified(state, "table"))
}

// GetAccountFund retrieves data for one account restricted to one fund.
func (c *Client) GetAccountFund(ctx context.Context, accountID, fundName string, filters models.TextFilters) (*models.DashboardData, error) {
	state := stateFor(filters)
	state.Accounts[accountID] = struct{}{}
	state.Funds[fundName] = struct{}{}
	return c.fetch(ctx, query.BuildUnified(state, "table"))
}

// GetClientFund retrieves data for one client-fund combination.
func (c *Client) GetClientFund(ctx context.Context, clientID, fundName string, filters models.TextFilters) (*models.DashboardData, error) {
	state := stateFor(filters)
	state.Clients[clientID] = struct{}{}
	state.Funds[fundName] = struct{}{}
	return c.fetch(ctx, query.BuildUnified(state, "table"))
}

// GetUnified retrieves data for an arbitrary selection in one call.
func (c *Client) GetUnified(ctx context.Context, state *models.SelectionState) (*models.DashboardData, error) {
	return c.fetch(ctx, query.BuildUnified(state, "table"))
}

// SupportsUnified reports true: the v2 backend filters every selection
// server-side and returns exact series.
func (c *Client) SupportsUnified() bool { return true }

// Ensure Client implements DashboardSource
var _ interfaces.DashboardSource = (*Client)(nil)
