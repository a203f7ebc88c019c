package resolver

import (
	"sort"

	"github.com/finbrook/fundview/internal/models"
)

// weighted accumulates a balance-weighted percentage average. Legs with a
// nil change or a non-positive balance stay out of both numerator and
// denominator.
type weighted struct {
	sum    float64
	weight float64
}

func (w *weighted) add(change *float64, balance float64) {
	if change == nil || balance <= 0 {
		return
	}
	w.sum += *change * balance
	w.weight += balance
}

func (w weighted) value() *float64 {
	if w.weight == 0 {
		return nil
	}
	v := w.sum / w.weight
	return &v
}

// weightedGrowth is the headline growth rule: balance-weighted average of
// the rows' change percentages, 0 when no row qualifies.
func weightedGrowth(changes []*float64, balances []float64) float64 {
	var w weighted
	for i := range changes {
		w.add(changes[i], balances[i])
	}
	if v := w.value(); v != nil {
		return *v
	}
	return 0
}

type clientAccum struct {
	id      string
	name    string
	balance float64
	qtd     weighted
	ytd     weighted
}

type fundAccum struct {
	name     string
	ticker   string
	balance  float64
	accounts int
	qtd      weighted
	ytd      weighted
}

type accountAccum struct {
	id      string
	client  string
	fund    string
	balance float64
	qtd     weighted
	ytd     weighted
}

// aggregator merges the responses of a multi-combination pass into one
// DashboardData. Entities are keyed by identity so an entity appearing in
// several combinations is summed once per distinct leg; a leg is the
// (combination tag, entity id) pair, so re-delivery of the same leg is a
// no-op rather than a double count.
type aggregator struct {
	clients      map[string]*clientAccum
	clientOrder  []string
	funds        map[string]*fundAccum
	fundOrder    []string
	accounts     map[string]*accountAccum
	accountOrder []string
	legs         map[string]struct{}

	recent   map[string]float64
	longTerm map[string]float64
	parts    int
	exact    bool
}

func newAggregator() *aggregator {
	return &aggregator{
		clients:  make(map[string]*clientAccum),
		funds:    make(map[string]*fundAccum),
		accounts: make(map[string]*accountAccum),
		legs:     make(map[string]struct{}),
		recent:   make(map[string]float64),
		longTerm: make(map[string]float64),
		exact:    true,
	}
}

func (a *aggregator) seen(tag, kind, id string) bool {
	key := tag + "\x00" + kind + "\x00" + id
	if _, ok := a.legs[key]; ok {
		return true
	}
	a.legs[key] = struct{}{}
	return false
}

// add folds one combination's response in. tag identifies the combination
// so overlapping entities across combinations sum while duplicate
// deliveries of the same combination do not.
func (a *aggregator) add(tag string, data *models.DashboardData) {
	if data == nil {
		return
	}
	a.parts++

	for _, c := range data.ClientBalances {
		if c.ClientID == "" || a.seen(tag, "client", c.ClientID) {
			continue
		}
		acc, ok := a.clients[c.ClientID]
		if !ok {
			acc = &clientAccum{id: c.ClientID, name: c.ClientName}
			a.clients[c.ClientID] = acc
			a.clientOrder = append(a.clientOrder, c.ClientID)
		}
		acc.balance += c.TotalBalance
		acc.qtd.add(c.QTDChange, c.TotalBalance)
		acc.ytd.add(c.YTDChange, c.TotalBalance)
	}

	for _, f := range data.FundBalances {
		if f.FundName == "" || a.seen(tag, "fund", f.FundName) {
			continue
		}
		acc, ok := a.funds[f.FundName]
		if !ok {
			acc = &fundAccum{name: f.FundName, ticker: f.FundTicker}
			a.funds[f.FundName] = acc
			a.fundOrder = append(a.fundOrder, f.FundName)
		}
		acc.balance += f.TotalBalance
		acc.accounts += f.AccountCount
		acc.qtd.add(f.QTDChange, f.TotalBalance)
		acc.ytd.add(f.YTDChange, f.TotalBalance)
	}

	for _, d := range data.AccountDetails {
		if d.AccountID == "" || a.seen(tag, "account", d.AccountID) {
			continue
		}
		acc, ok := a.accounts[d.AccountID]
		if !ok {
			acc = &accountAccum{id: d.AccountID, client: d.ClientName, fund: d.FundName}
			a.accounts[d.AccountID] = acc
			a.accountOrder = append(a.accountOrder, d.AccountID)
		} else if acc.fund != d.FundName {
			// Held across funds: the row represents the whole account.
			acc.fund = "Multiple"
		}
		acc.balance += d.Balance
		acc.qtd.add(d.QTDChange, d.Balance)
		acc.ytd.add(d.YTDChange, d.Balance)
	}

	if len(data.RecentHistory) > 0 {
		for _, p := range data.RecentHistory {
			a.recent[p.BalanceDate] += p.TotalBalance
		}
		for _, p := range data.LongTermHistory {
			a.longTerm[p.BalanceDate] += p.TotalBalance
		}
	} else {
		a.exact = false
	}
	if !data.ExactSeries {
		a.exact = false
	}
}

// addFailed records a combination that contributed nothing. Its absence
// makes the summed series unusable as an exact result.
func (a *aggregator) addFailed() {
	a.exact = false
}

func seriesFromMap(points map[string]float64) []models.HistoryPoint {
	if len(points) == 0 {
		return nil
	}
	out := make([]models.HistoryPoint, 0, len(points))
	for date, balance := range points {
		out = append(out, models.HistoryPoint{BalanceDate: date, TotalBalance: balance})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BalanceDate < out[j].BalanceDate })
	return out
}

// result assembles the merged DashboardData. ExactSeries is set only when
// every combination contributed a backend-computed series.
func (a *aggregator) result() *models.DashboardData {
	data := &models.DashboardData{}

	for _, id := range a.clientOrder {
		c := a.clients[id]
		data.ClientBalances = append(data.ClientBalances, models.Client{
			ClientID:     c.id,
			ClientName:   c.name,
			TotalBalance: c.balance,
			QTDChange:    c.qtd.value(),
			YTDChange:    c.ytd.value(),
		})
	}
	for _, name := range a.fundOrder {
		f := a.funds[name]
		data.FundBalances = append(data.FundBalances, models.Fund{
			FundName:     f.name,
			FundTicker:   f.ticker,
			TotalBalance: f.balance,
			AccountCount: f.accounts,
			QTDChange:    f.qtd.value(),
			YTDChange:    f.ytd.value(),
		})
	}
	for _, id := range a.accountOrder {
		d := a.accounts[id]
		data.AccountDetails = append(data.AccountDetails, models.Account{
			AccountID:  d.id,
			ClientName: d.client,
			FundName:   d.fund,
			Balance:    d.balance,
			QTDChange:  d.qtd.value(),
			YTDChange:  d.ytd.value(),
		})
	}

	data.RecentHistory = seriesFromMap(a.recent)
	data.LongTermHistory = seriesFromMap(a.longTerm)
	data.ExactSeries = a.exact && a.parts > 0
	return data
}

// scaleSeries returns a proportional estimate of the series: every point
// multiplied by factor. Used when no exact scoped series is available; it
// assumes the selection's share of the total held constant over the
// window, which is an approximation.
func scaleSeries(series []models.HistoryPoint, factor float64) []models.HistoryPoint {
	if len(series) == 0 {
		return nil
	}
	out := make([]models.HistoryPoint, len(series))
	for i, p := range series {
		out[i] = models.HistoryPoint{BalanceDate: p.BalanceDate, TotalBalance: p.TotalBalance * factor}
	}
	return out
}

// filterAccounts keeps only the accounts whose id is in keep.
func filterAccounts(accounts []models.Account, keep map[string]struct{}) []models.Account {
	if len(keep) == 0 {
		return accounts
	}
	var out []models.Account
	for _, a := range accounts {
		if _, ok := keep[a.AccountID]; ok {
			out = append(out, a)
		}
	}
	return out
}
