// Package clients assembles the dashboard data source from the protocol
// clients.
package clients

import (
	"context"
	"time"

	"github.com/finbrook/fundview/internal/common"
	"github.com/finbrook/fundview/internal/interfaces"
	"github.com/finbrook/fundview/internal/models"
)

// FallbackSource presents one fetch interface over a primary (v2) and a
// secondary (v1) source. Every call tries the primary first; on a
// transport or protocol failure the equivalent secondary call is made
// once. When both fail the primary's typed error is surfaced so the
// resolver can apply its fail-static policy.
type FallbackSource struct {
	primary   interfaces.DashboardSource
	secondary interfaces.DashboardSource
	logger    *common.Logger
}

// NewFallbackSource wires the two protocol sources together.
func NewFallbackSource(primary, secondary interfaces.DashboardSource, logger *common.Logger) *FallbackSource {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &FallbackSource{primary: primary, secondary: secondary, logger: logger}
}

// call runs the primary fetch and falls back to the secondary.
func (s *FallbackSource) call(ctx context.Context, op string,
	primary func(interfaces.DashboardSource) (*models.DashboardData, error),
	secondary func(interfaces.DashboardSource) (*models.DashboardData, error),
) (*models.DashboardData, error) {
	data, primaryErr := primary(s.primary)
	if primaryErr == nil {
		return data, nil
	}

	// A cancelled caller context is not a protocol problem; do not
	// double the damage with a second doomed request.
	if ctx.Err() != nil {
		return nil, models.NewTransportError(op, ctx.Err())
	}

	s.logger.Warn().
		Str("op", op).
		Err(primaryErr).
		Msg("Primary dashboard source failed, falling back")

	data, secondaryErr := secondary(s.secondary)
	if secondaryErr == nil {
		return data, nil
	}

	s.logger.Error().
		Str("op", op).
		Err(secondaryErr).
		Msg("Fallback dashboard source failed")

	return nil, primaryErr
}

// GetOverview retrieves the global snapshot.
func (s *FallbackSource) GetOverview(ctx context.Context, filters models.TextFilters) (*models.DashboardData, error) {
	return s.call(ctx, "overview",
		func(src interfaces.DashboardSource) (*models.DashboardData, error) { return src.GetOverview(ctx, filters) },
		func(src interfaces.DashboardSource) (*models.DashboardData, error) { return src.GetOverview(ctx, filters) },
	)
}

// GetByDate retrieves the snapshot as of a specific date.
func (s *FallbackSource) GetByDate(ctx context.Context, date time.Time, filters models.TextFilters) (*models.DashboardData, error) {
	return s.call(ctx, "by-date",
		func(src interfaces.DashboardSource) (*models.DashboardData, error) { return src.GetByDate(ctx, date, filters) },
		func(src interfaces.DashboardSource) (*models.DashboardData, error) { return src.GetByDate(ctx, date, filters) },
	)
}

// GetClient retrieves data scoped to one client.
func (s *FallbackSource) GetClient(ctx context.Context, clientID string, filters models.TextFilters) (*models.DashboardData, error) {
	return s.call(ctx, "client",
		func(src interfaces.DashboardSource) (*models.DashboardData, error) { return src.GetClient(ctx, clientID, filters) },
		func(src interfaces.DashboardSource) (*models.DashboardData, error) { return src.GetClient(ctx, clientID, filters) },
	)
}

// GetFund retrieves data scoped to one fund.
func (s *FallbackSource) GetFund(ctx context.Context, fundName string, filters models.TextFilters) (*models.DashboardData, error) {
	return s.call(ctx, "fund",
		func(src interfaces.DashboardSource) (*models.DashboardData, error) { return src.GetFund(ctx, fundName, filters) },
		func(src interfaces.DashboardSource) (*models.DashboardData, error) { return src.GetFund(ctx, fundName, filters) },
	)
}

// GetAccount retrieves data scoped to one account.
func (s *FallbackSource) GetAccount(ctx context.Context, accountID string, filters models.TextFilters) (*models.DashboardData, error) {
	return s.call(ctx, "account",
		func(src interfaces.DashboardSource) (*models.DashboardData, error) { return src.GetAccount(ctx, accountID, filters) },
		func(src interfaces.DashboardSource) (*models.DashboardData, error) { return src.GetAccount(ctx, accountID, filters) },
	)
}

// GetAccountFund retrieves data for one account restricted to one fund.
func (s *FallbackSource) GetAccountFund(ctx context.Context, accountID, fundName string, filters models.TextFilters) (*models.DashboardData, error) {
	return s.call(ctx, "account-fund",
		func(src interfaces.DashboardSource) (*models.DashboardData, error) {
			return src.GetAccountFund(ctx, accountID, fundName, filters)
		},
		func(src interfaces.DashboardSource) (*models.DashboardData, error) {
			return src.GetAccountFund(ctx, accountID, fundName, filters)
		},
	)
}

// GetClientFund retrieves data for one client-fund combination.
func (s *FallbackSource) GetClientFund(ctx context.Context, clientID, fundName string, filters models.TextFilters) (*models.DashboardData, error) {
	return s.call(ctx, "client-fund",
		func(src interfaces.DashboardSource) (*models.DashboardData, error) {
			return src.GetClientFund(ctx, clientID, fundName, filters)
		},
		func(src interfaces.DashboardSource) (*models.DashboardData, error) {
			return src.GetClientFund(ctx, clientID, fundName, filters)
		},
	)
}

// GetUnified retrieves data for an arbitrary selection. There is no v1
// equivalent of the unified call, so no fallback is attempted here; the
// resolver handles unified failures through its own combination paths.
func (s *FallbackSource) GetUnified(ctx context.Context, state *models.SelectionState) (*models.DashboardData, error) {
	return s.primary.GetUnified(ctx, state)
}

// SupportsUnified reports whether the primary source can serve arbitrary
// selections.
func (s *FallbackSource) SupportsUnified() bool {
	return s.primary.SupportsUnified()
}

// Ensure FallbackSource implements DashboardSource
var _ interfaces.DashboardSource = (*FallbackSource)(nil)
