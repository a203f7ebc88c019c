package resolver

import (
	"github.com/finbrook/fundview/internal/models"
)

// buildKPIs computes the headline cards from the scoped response. The
// count card and the growth population change meaning with the filter
// context: client-centric views count accounts, fund-centric views count
// clients, account views count the one account.
func buildKPIs(fctx models.FilterContext, data *models.DashboardData) models.KPISet {
	kpis := models.KPISet{
		TotalAUM:  latestBalance(data.RecentHistory),
		Change30D: change30D(data.RecentHistory),
	}

	switch fctx {
	case models.ContextSingleClient, models.ContextClientFund, models.ContextClientAccount,
		models.ContextClientFundAccount, models.ContextMultiClient, models.ContextMultiIntersection,
		models.ContextMultiAccount:
		kpis.CountLabel = "Active Accounts"
		kpis.CountIcon = "A"
		kpis.CountValue = len(data.AccountDetails)
	case models.ContextSingleAccount, models.ContextAccountFund:
		kpis.CountLabel = "Active Accounts"
		kpis.CountIcon = "A"
		kpis.CountValue = 1
	default:
		// Overview, date-pinned and fund-centric views count clients.
		kpis.CountLabel = "Active Clients"
		kpis.CountIcon = "C"
		kpis.CountValue = len(data.ClientBalances)
	}

	switch fctx {
	case models.ContextSingleFund, models.ContextClientFund, models.ContextClientFundAccount:
		kpis.FundCount = 1
	case models.ContextSingleAccount, models.ContextAccountFund, models.ContextClientAccount:
		kpis.FundCount = len(data.FundAllocation)
	default:
		kpis.FundCount = len(data.FundBalances)
	}

	kpis.AvgYTDGrowth = avgYTDGrowth(fctx, data)
	return kpis
}

// latestBalance is the AUM headline: the newest point of the scoped
// recent series, 0 when the series is empty.
func latestBalance(recent []models.HistoryPoint) float64 {
	if len(recent) == 0 {
		return 0
	}
	return recent[len(recent)-1].TotalBalance
}

// change30D compares the newest point against the point 30 entries back.
// Shorter series (or a zero baseline) yield nil rather than a bogus
// percentage.
func change30D(recent []models.HistoryPoint) *float64 {
	if len(recent) < 30 {
		return nil
	}
	latest := recent[len(recent)-1].TotalBalance
	baseline := recent[len(recent)-30].TotalBalance
	if baseline == 0 {
		return nil
	}
	pct := (latest - baseline) / baseline * 100
	return &pct
}

// avgYTDGrowth picks the growth population for the context and computes
// the balance-weighted average of its ytd changes.
func avgYTDGrowth(fctx models.FilterContext, data *models.DashboardData) float64 {
	var changes []*float64
	var balances []float64

	addClient := func(c models.Client) {
		changes = append(changes, c.YTDChange)
		balances = append(balances, c.TotalBalance)
	}
	addFund := func(f models.Fund) {
		changes = append(changes, f.YTDChange)
		balances = append(balances, f.TotalBalance)
	}
	addAccount := func(a models.Account) {
		changes = append(changes, a.YTDChange)
		balances = append(balances, a.Balance)
	}

	switch fctx {
	case models.ContextSingleClient, models.ContextClientAccount:
		for _, f := range data.FundBalances {
			addFund(f)
		}
	case models.ContextClientFund, models.ContextClientFundAccount:
		if data.FundBalance != nil {
			addFund(*data.FundBalance)
		} else {
			for _, f := range data.FundBalances {
				addFund(f)
			}
		}
	case models.ContextMultiFund, models.ContextMultiIntersection:
		for _, f := range data.FundBalances {
			addFund(f)
		}
	case models.ContextSingleAccount, models.ContextAccountFund, models.ContextMultiAccount:
		for _, a := range data.AccountDetails {
			addAccount(a)
		}
	default:
		// Overview, date-pinned, fund and multi-client views weight the
		// client rows.
		for _, c := range data.ClientBalances {
			addClient(c)
		}
	}

	return weightedGrowth(changes, balances)
}
