package resolver

import (
	"testing"

	"github.com/finbrook/fundview/internal/models"
)

func kpiFixture() *models.DashboardData {
	return &models.DashboardData{
		ClientBalances: []models.Client{
			{ClientID: "C1", TotalBalance: 600, YTDChange: pf(10)},
			{ClientID: "C2", TotalBalance: 400, YTDChange: pf(5)},
		},
		FundBalances: []models.Fund{
			{FundName: "Growth Fund", TotalBalance: 700, YTDChange: pf(12)},
			{FundName: "Income Fund", TotalBalance: 300, YTDChange: pf(4)},
		},
		AccountDetails: []models.Account{
			{AccountID: "A1", Balance: 600, YTDChange: pf(8)},
			{AccountID: "A2", Balance: 400, YTDChange: pf(2)},
		},
		FundAllocation: []models.FundSlice{
			{FundName: "Growth Fund", Balance: 350},
			{FundName: "Income Fund", Balance: 250},
		},
		RecentHistory: series(900, 950, 1000),
	}
}

func TestBuildKPIsCountCardPerContext(t *testing.T) {
	tests := []struct {
		fctx      models.FilterContext
		label     string
		icon      string
		count     int
		fundCount int
	}{
		{models.ContextOverview, "Active Clients", "C", 2, 2},
		{models.ContextDatePinned, "Active Clients", "C", 2, 2},
		{models.ContextSingleClient, "Active Accounts", "A", 2, 2},
		{models.ContextMultiClient, "Active Accounts", "A", 2, 2},
		{models.ContextSingleFund, "Active Clients", "C", 2, 1},
		{models.ContextMultiFund, "Active Clients", "C", 2, 2},
		{models.ContextClientFund, "Active Accounts", "A", 2, 1},
		{models.ContextClientFundAccount, "Active Accounts", "A", 2, 1},
		{models.ContextSingleAccount, "Active Accounts", "A", 1, 2},
		{models.ContextAccountFund, "Active Accounts", "A", 1, 2},
		{models.ContextClientAccount, "Active Accounts", "A", 2, 2},
		{models.ContextMultiAccount, "Active Accounts", "A", 2, 2},
		{models.ContextMultiIntersection, "Active Accounts", "A", 2, 2},
	}
	data := kpiFixture()
	for _, tt := range tests {
		t.Run(string(tt.fctx), func(t *testing.T) {
			kpis := buildKPIs(tt.fctx, data)
			if kpis.CountLabel != tt.label {
				t.Errorf("label = %q, want %q", kpis.CountLabel, tt.label)
			}
			if kpis.CountIcon != tt.icon {
				t.Errorf("icon = %q, want %q", kpis.CountIcon, tt.icon)
			}
			if kpis.CountValue != tt.count {
				t.Errorf("count = %d, want %d", kpis.CountValue, tt.count)
			}
			if kpis.FundCount != tt.fundCount {
				t.Errorf("fund count = %d, want %d", kpis.FundCount, tt.fundCount)
			}
		})
	}
}

func TestBuildKPIsAUMFromLatestPoint(t *testing.T) {
	kpis := buildKPIs(models.ContextOverview, kpiFixture())
	if kpis.TotalAUM != 1000 {
		t.Errorf("TotalAUM = %v, want 1000", kpis.TotalAUM)
	}

	empty := buildKPIs(models.ContextOverview, &models.DashboardData{})
	if empty.TotalAUM != 0 {
		t.Errorf("empty TotalAUM = %v, want 0", empty.TotalAUM)
	}
}

func TestChange30D(t *testing.T) {
	if got := change30D(series(1, 2, 3)); got != nil {
		t.Errorf("short series should give nil, got %v", *got)
	}

	points := make([]models.HistoryPoint, 0, 40)
	for i := 0; i < 40; i++ {
		points = append(points, models.HistoryPoint{TotalBalance: 100})
	}
	points[len(points)-30].TotalBalance = 80
	points[len(points)-1].TotalBalance = 100
	got := change30D(points)
	if got == nil || *got != 25 {
		t.Errorf("change30D = %v, want 25", got)
	}

	points[len(points)-30].TotalBalance = 0
	if change30D(points) != nil {
		t.Error("zero baseline should give nil")
	}
}

func TestAvgYTDGrowthPopulationPerContext(t *testing.T) {
	data := kpiFixture()

	// Overview weights clients: (10*600 + 5*400) / 1000.
	if got := avgYTDGrowth(models.ContextOverview, data); got != 8 {
		t.Errorf("overview growth = %v, want 8", got)
	}
	// Client views weight the client's funds: (12*700 + 4*300) / 1000.
	if got := avgYTDGrowth(models.ContextSingleClient, data); got != 9.6 {
		t.Errorf("client growth = %v, want 9.6", got)
	}
	// Account views weight the accounts: (8*600 + 2*400) / 1000.
	if got := avgYTDGrowth(models.ContextSingleAccount, data); got != 5.6 {
		t.Errorf("account growth = %v, want 5.6", got)
	}
	// Client-fund prefers the single fund balance when present.
	single := kpiFixture()
	single.FundBalance = &models.Fund{FundName: "Growth Fund", TotalBalance: 700, YTDChange: pf(12)}
	if got := avgYTDGrowth(models.ContextClientFund, single); got != 12 {
		t.Errorf("client-fund growth = %v, want 12", got)
	}
}
