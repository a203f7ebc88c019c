// Package interfaces defines service contracts for fundview
package interfaces

import (
	"context"
	"time"

	"github.com/finbrook/fundview/internal/models"
)

// DashboardSource provides dashboard data regardless of backend protocol
// version. Implementations are selected once at construction; callers
// never branch on protocol versions themselves.
type DashboardSource interface {
	// GetOverview retrieves the global snapshot.
	GetOverview(ctx context.Context, filters models.TextFilters) (*models.DashboardData, error)

	// GetByDate retrieves the snapshot as of a specific date.
	GetByDate(ctx context.Context, date time.Time, filters models.TextFilters) (*models.DashboardData, error)

	// GetClient retrieves data scoped to one client.
	GetClient(ctx context.Context, clientID string, filters models.TextFilters) (*models.DashboardData, error)

	// GetFund retrieves data scoped to one fund.
	GetFund(ctx context.Context, fundName string, filters models.TextFilters) (*models.DashboardData, error)

	// GetAccount retrieves data scoped to one account.
	GetAccount(ctx context.Context, accountID string, filters models.TextFilters) (*models.DashboardData, error)

	// GetAccountFund retrieves data for one account restricted to one fund.
	GetAccountFund(ctx context.Context, accountID, fundName string, filters models.TextFilters) (*models.DashboardData, error)

	// GetClientFund retrieves data for one client-fund combination.
	GetClientFund(ctx context.Context, clientID, fundName string, filters models.TextFilters) (*models.DashboardData, error)

	// GetUnified retrieves data for an arbitrary selection in one call.
	// Sources that cannot serve arbitrary selections return a protocol
	// error; check SupportsUnified first.
	GetUnified(ctx context.Context, state *models.SelectionState) (*models.DashboardData, error)

	// SupportsUnified reports whether GetUnified serves arbitrary selections
	// with backend-computed (exact) series.
	SupportsUnified() bool
}

// TelemetryRecorder accepts individual telemetry events. Recording is
// non-blocking; implementations drop events rather than stall a
// resolution pass.
type TelemetryRecorder interface {
	Record(event TelemetryEvent)
}

// TelemetrySink receives buffered telemetry events on flush.
type TelemetrySink interface {
	Flush(events []TelemetryEvent)
}

// TelemetryEvent is one recorded occurrence.
type TelemetryEvent struct {
	Name     string            `json:"name"`
	At       time.Time         `json:"at"`
	Duration time.Duration     `json:"duration,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}
