package resolver

import (
	"testing"

	"github.com/finbrook/fundview/internal/models"
)

func TestAggregatorSumsAccountAcrossFunds(t *testing.T) {
	agg := newAggregator()
	agg.add("fund:A", &models.DashboardData{
		AccountDetails: []models.Account{{AccountID: "ACC-1", FundName: "Fund A", Balance: 100}},
		ExactSeries:    true,
	})
	agg.add("fund:B", &models.DashboardData{
		AccountDetails: []models.Account{{AccountID: "ACC-1", FundName: "Fund B", Balance: 50}},
		ExactSeries:    true,
	})

	merged := agg.result()
	if len(merged.AccountDetails) != 1 {
		t.Fatalf("expected 1 merged account, got %d", len(merged.AccountDetails))
	}
	acc := merged.AccountDetails[0]
	if acc.Balance != 150 {
		t.Errorf("expected summed balance 150, got %v", acc.Balance)
	}
	if acc.FundName != "Multiple" {
		t.Errorf("expected cross-fund account labeled Multiple, got %q", acc.FundName)
	}
}

func TestAggregatorIgnoresDuplicateLeg(t *testing.T) {
	part := &models.DashboardData{
		ClientBalances: []models.Client{{ClientID: "C1", TotalBalance: 100}},
		ExactSeries:    true,
	}
	agg := newAggregator()
	agg.add("client:C1", part)
	agg.add("client:C1", part)

	merged := agg.result()
	if merged.ClientBalances[0].TotalBalance != 100 {
		t.Errorf("duplicate leg double counted: got %v", merged.ClientBalances[0].TotalBalance)
	}
}

func TestAggregatorSumsSeriesByDate(t *testing.T) {
	agg := newAggregator()
	agg.add("client:C1", &models.DashboardData{
		RecentHistory: []models.HistoryPoint{
			{BalanceDate: "2025-07-02", TotalBalance: 20},
			{BalanceDate: "2025-07-01", TotalBalance: 10},
		},
		ExactSeries: true,
	})
	agg.add("client:C2", &models.DashboardData{
		RecentHistory: []models.HistoryPoint{
			{BalanceDate: "2025-07-01", TotalBalance: 5},
		},
		ExactSeries: true,
	})

	merged := agg.result()
	if len(merged.RecentHistory) != 2 {
		t.Fatalf("expected 2 points, got %d", len(merged.RecentHistory))
	}
	if merged.RecentHistory[0].BalanceDate != "2025-07-01" || merged.RecentHistory[0].TotalBalance != 15 {
		t.Errorf("unexpected first point: %+v", merged.RecentHistory[0])
	}
	if !merged.ExactSeries {
		t.Error("all parts exact, merged series should be exact")
	}
}

func TestAggregatorFailedPartClearsExact(t *testing.T) {
	agg := newAggregator()
	agg.add("client:C1", &models.DashboardData{
		RecentHistory: []models.HistoryPoint{{BalanceDate: "2025-07-01", TotalBalance: 10}},
		ExactSeries:   true,
	})
	agg.addFailed()

	if agg.result().ExactSeries {
		t.Error("a failed combination must not leave the series exact")
	}
}

func TestWeightedGrowthExclusions(t *testing.T) {
	ten := 10.0
	twenty := 20.0
	tests := []struct {
		name     string
		changes  []*float64
		balances []float64
		want     float64
	}{
		{"simple weighting", []*float64{&ten, &twenty}, []float64{300, 100}, 12.5},
		{"nil change excluded", []*float64{&ten, nil}, []float64{100, 900}, 10},
		{"non-positive balance excluded", []*float64{&ten, &twenty}, []float64{100, 0}, 10},
		{"no qualifying rows", []*float64{nil}, []float64{100}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := weightedGrowth(tt.changes, tt.balances); got != tt.want {
				t.Errorf("weightedGrowth = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScaleSeries(t *testing.T) {
	scaled := scaleSeries([]models.HistoryPoint{
		{BalanceDate: "2025-07-01", TotalBalance: 100},
		{BalanceDate: "2025-07-02", TotalBalance: 200},
	}, 0.25)

	if scaled[0].TotalBalance != 25 || scaled[1].TotalBalance != 50 {
		t.Errorf("unexpected scaled values: %+v", scaled)
	}
	if scaleSeries(nil, 0.5) != nil {
		t.Error("empty series should scale to nil")
	}
}

func TestFilterAccounts(t *testing.T) {
	accounts := []models.Account{
		{AccountID: "A1"},
		{AccountID: "A2"},
	}
	kept := filterAccounts(accounts, map[string]struct{}{"A2": {}})
	if len(kept) != 1 || kept[0].AccountID != "A2" {
		t.Errorf("unexpected filter result: %+v", kept)
	}
	if got := filterAccounts(accounts, nil); len(got) != 2 {
		t.Error("empty keep set should pass everything through")
	}
}
