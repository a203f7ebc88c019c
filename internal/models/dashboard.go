package models

// KPIMetrics carries backend-computed headline numbers (v2 responses only).
type KPIMetrics struct {
	TotalAUM       float64  `json:"total_aum"`
	Change30DPct   *float64 `json:"change_30d_pct"`
	ActiveClients  int      `json:"active_clients"`
	ActiveFunds    int      `json:"active_funds"`
	ActiveAccounts int      `json:"active_accounts"`
}

// DashboardData is one fetched fragment of dashboard state. Different
// endpoints populate different subsets; consumers treat missing lists
// as empty.
type DashboardData struct {
	ClientBalances  []Client       `json:"client_balances"`
	FundBalances    []Fund         `json:"fund_balances"`
	AccountDetails  []Account      `json:"account_details"`
	FundAllocation  []FundSlice    `json:"fund_allocation"`
	ClientBalance   *Client        `json:"client_balance"`
	FundBalance     *Fund          `json:"fund_balance"`
	RecentHistory   []HistoryPoint `json:"recent_history"`
	LongTermHistory []HistoryPoint `json:"long_term_history"`
	KPIs            *KPIMetrics    `json:"kpi_metrics,omitempty"`
	FiltersApplied  bool           `json:"filters_applied,omitempty"`
	ExactSeries     bool           `json:"-"` // backend computed the series for this exact scope
}

// TotalClientBalance sums the client rows.
func (d *DashboardData) TotalClientBalance() float64 {
	var total float64
	for _, c := range d.ClientBalances {
		total += c.TotalBalance
	}
	return total
}

// TotalFundBalance sums the fund rows.
func (d *DashboardData) TotalFundBalance() float64 {
	var total float64
	for _, f := range d.FundBalances {
		total += f.TotalBalance
	}
	return total
}

// TotalAllocation sums the account fund-allocation slices.
func (d *DashboardData) TotalAllocation() float64 {
	var total float64
	for _, s := range d.FundAllocation {
		total += s.Balance
	}
	return total
}
