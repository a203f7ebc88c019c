package models

// KPISet holds the resolved headline numbers for the KPI cards.
// Change30D and percentage aggregates stay nil when unavailable rather
// than rendering NaN.
type KPISet struct {
	TotalAUM     float64  `json:"total_aum"`
	Change30D    *float64 `json:"change_30d_pct"`
	CountLabel   string   `json:"count_label"`
	CountIcon    string   `json:"count_icon"`
	CountValue   int      `json:"count_value"`
	FundCount    int      `json:"fund_count"`
	AvgYTDGrowth float64  `json:"avg_ytd_growth"`
}

// ClientRow is a client table row with its selection flag.
type ClientRow struct {
	Client
	Selected bool `json:"selected"`
}

// FundRow is a fund table row with its selection flag.
type FundRow struct {
	Fund
	Selected bool `json:"selected"`
}

// AccountRow is an account table row with its selection flag.
type AccountRow struct {
	Account
	Selected bool `json:"selected"`
}

// ViewModel is the single canonical output of a resolution pass. All
// consumers (KPI cards, charts, tables) render from the same instance.
type ViewModel struct {
	Context     FilterContext `json:"context"`
	FilterLabel string        `json:"filter_label"`

	KPIs           KPISet         `json:"kpis"`
	RecentSeries   []HistoryPoint `json:"recent_series"`
	LongTermSeries []HistoryPoint `json:"long_term_series"`

	ClientRows  []ClientRow  `json:"client_rows"`
	FundRows    []FundRow    `json:"fund_rows"`
	AccountRows []AccountRow `json:"account_rows"`

	// SeriesApproximate is set when the chart series is a proportional
	// estimate (full-population series scaled by selected/total balance)
	// rather than an exact backend-filtered series.
	SeriesApproximate bool `json:"series_approximate"`

	// Stale is set when the backend was unreachable and this is the last
	// successfully resolved view, retained instead of a blank screen.
	Stale bool `json:"stale"`

	Pass uint64 `json:"-"`
}

// MarkRows applies the selection flags from state to all table rows.
func (v *ViewModel) MarkRows(state *SelectionState) {
	for i := range v.ClientRows {
		v.ClientRows[i].Selected = state.Selected(DimensionClient, v.ClientRows[i].ClientID)
	}
	for i := range v.FundRows {
		v.FundRows[i].Selected = state.Selected(DimensionFund, v.FundRows[i].FundName)
	}
	for i := range v.AccountRows {
		v.AccountRows[i].Selected = state.Selected(DimensionAccount, v.AccountRows[i].AccountID)
	}
}
