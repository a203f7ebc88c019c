// Package resolver turns a selection state into one canonical view. It
// owns the fetch planning per filter context, the merge rules for
// multi-selections, and the retention policy when the backend is down.
package resolver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/finbrook/fundview/internal/cache"
	"github.com/finbrook/fundview/internal/common"
	"github.com/finbrook/fundview/internal/interfaces"
	"github.com/finbrook/fundview/internal/models"
	"github.com/finbrook/fundview/internal/query"
)

// maxConcurrentFetches bounds one pass's combination fan-out.
const maxConcurrentFetches = 4

// Resolver resolves selection states into view models. Safe for
// concurrent use; overlapping passes are sequenced and a pass finishing
// after a newer one has rendered is discarded.
type Resolver struct {
	source   interfaces.DashboardSource
	cache    *cache.Cache
	logger   *common.Logger
	recorder interfaces.TelemetryRecorder

	seq atomic.Uint64

	mu       sync.Mutex
	applied  uint64
	last     *models.ViewModel
	universe *models.DashboardData
	lastSig  string
	sigSet   bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(logger *common.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRecorder attaches a telemetry recorder.
func WithRecorder(rec interfaces.TelemetryRecorder) Option {
	return func(r *Resolver) {
		r.recorder = rec
	}
}

// New creates a resolver over the given data source and cache.
func New(source interfaces.DashboardSource, c *cache.Cache, opts ...Option) *Resolver {
	r := &Resolver{
		source: source,
		cache:  c,
		logger: common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve computes the view for the given selection state. On failure the
// last successfully resolved view is returned alongside the error,
// flagged Stale, so the caller keeps rendering instead of going blank.
func (r *Resolver) Resolve(ctx context.Context, state *models.SelectionState) (*models.ViewModel, error) {
	pass := r.seq.Add(1)
	snap := state.Clone()
	start := time.Now()

	r.invalidateOnChange(snap)

	fctx := snap.Classify()
	vm, err := r.resolve(ctx, snap, fctx)
	if err != nil {
		r.logger.Warn().
			Str("context", string(fctx)).
			Err(err).
			Msg("Resolution pass failed")
		r.record("resolve_failed", start, map[string]string{"context": string(fctx)})

		r.mu.Lock()
		defer r.mu.Unlock()
		if pass < r.applied {
			// A newer pass already rendered; this failure is moot.
			return nil, models.ErrSuperseded
		}
		if r.last != nil {
			stale := *r.last
			stale.Stale = true
			return &stale, err
		}
		return nil, err
	}

	vm.Pass = pass
	vm.FilterLabel = snap.Describe()
	vm.MarkRows(snap)

	r.mu.Lock()
	defer r.mu.Unlock()
	if pass < r.applied {
		return nil, models.ErrSuperseded
	}
	r.applied = pass
	r.last = vm

	r.logger.Debug().
		Str("context", string(fctx)).
		Uint64("pass", pass).
		Dur("elapsed", time.Since(start)).
		Msg("Resolution pass applied")
	r.record("resolve", start, map[string]string{"context": string(fctx)})
	return vm, nil
}

// LastView returns the most recently applied view, or nil before the
// first successful pass.
func (r *Resolver) LastView() *models.ViewModel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Warm prefetches the overview so the first interactive pass is served
// from cache.
func (r *Resolver) Warm(ctx context.Context) error {
	if u := r.universeData(ctx, models.TextFilters{}); u == nil {
		return models.ErrBackendUnavailable
	}
	return nil
}

// invalidateOnChange drops all memoized query results whenever the
// selection, a text filter or the pinned date changed since the previous
// pass. Entity snapshots are kept; only their TTL retires them.
func (r *Resolver) invalidateOnChange(snap *models.SelectionState) {
	sig := query.Build(snap, query.Options{IncludeSelections: true}).CacheKey("selection")
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sigSet && sig != r.lastSig {
		r.cache.InvalidateQueries()
	}
	r.lastSig = sig
	r.sigSet = true
}

func (r *Resolver) record(name string, start time.Time, fields map[string]string) {
	if r.recorder == nil {
		return
	}
	r.recorder.Record(interfaces.TelemetryEvent{
		Name:     name,
		At:       start,
		Duration: time.Since(start),
		Fields:   fields,
	})
}

func (r *Resolver) resolve(ctx context.Context, snap *models.SelectionState, fctx models.FilterContext) (*models.ViewModel, error) {
	if snap.Pinned != nil {
		return r.resolveDatePinned(ctx, snap, fctx)
	}

	switch fctx {
	case models.ContextOverview:
		return r.resolveOverview(ctx, snap)
	case models.ContextSingleClient:
		id := snap.ClientIDs()[0]
		return r.resolveScoped(ctx, snap, fctx, "client/"+id, func() (*models.DashboardData, error) {
			return r.source.GetClient(ctx, id, snap.Filters)
		})
	case models.ContextSingleFund:
		name := snap.FundNames()[0]
		return r.resolveScoped(ctx, snap, fctx, "fund/"+name, func() (*models.DashboardData, error) {
			return r.source.GetFund(ctx, name, snap.Filters)
		})
	case models.ContextClientFund:
		return r.resolveClientFund(ctx, snap, fctx)
	case models.ContextSingleAccount, models.ContextClientAccount:
		// Account priority: the account view wins over a coexisting
		// client selection.
		return r.resolveAccount(ctx, snap, fctx, snap.AccountIDs()[0], "")
	case models.ContextAccountFund:
		return r.resolveAccount(ctx, snap, fctx, snap.AccountIDs()[0], snap.FundNames()[0])
	case models.ContextClientFundAccount:
		if accounts := snap.AccountIDs(); len(accounts) == 1 {
			return r.resolveAccount(ctx, snap, fctx, accounts[0], snap.FundNames()[0])
		}
		return r.resolveMulti(ctx, snap, fctx)
	default:
		return r.resolveMulti(ctx, snap, fctx)
	}
}

// fetchCached serves the fetch from the query cache when possible and
// memoizes a fresh response otherwise.
func (r *Resolver) fetchCached(endpoint string, params query.Params, fn func() (*models.DashboardData, error)) (*models.DashboardData, error) {
	key := params.CacheKey(endpoint)
	if res, ok := r.cache.GetQuery(key); ok {
		return r.cache.Denormalize(res), nil
	}
	data, err := fn()
	if err != nil {
		return nil, err
	}
	r.cache.PutQuery(key, r.cache.Normalize(data), 0)
	return data, nil
}

func textParams(filters models.TextFilters) query.Params {
	var p query.Params
	if filters.FundTicker != "" {
		p = append(p, query.Param{Key: "fund_ticker", Value: filters.FundTicker})
	}
	if filters.ClientName != "" {
		p = append(p, query.Param{Key: "client_name", Value: filters.ClientName})
	}
	if filters.AccountNumber != "" {
		p = append(p, query.Param{Key: "account_number", Value: filters.AccountNumber})
	}
	return p
}

// universeData returns the full-population snapshot used for the "show
// all, highlight selected" tables. Falls back to the last known universe
// when the overview fetch fails; nil when none exists yet.
func (r *Resolver) universeData(ctx context.Context, filters models.TextFilters) *models.DashboardData {
	data, err := r.fetchCached("overview", textParams(filters), func() (*models.DashboardData, error) {
		return r.source.GetOverview(ctx, filters)
	})
	if err == nil {
		r.mu.Lock()
		r.universe = data
		r.mu.Unlock()
		return data
	}
	r.logger.Warn().Err(err).Msg("Overview fetch failed, reusing last known universe")
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.universe
}

func clientRows(list []models.Client) []models.ClientRow {
	rows := make([]models.ClientRow, len(list))
	for i, c := range list {
		rows[i] = models.ClientRow{Client: c}
	}
	return rows
}

func fundRows(list []models.Fund) []models.FundRow {
	rows := make([]models.FundRow, len(list))
	for i, f := range list {
		rows[i] = models.FundRow{Fund: f}
	}
	return rows
}

func accountRows(list []models.Account) []models.AccountRow {
	rows := make([]models.AccountRow, len(list))
	for i, a := range list {
		rows[i] = models.AccountRow{Account: a}
	}
	return rows
}

func (r *Resolver) resolveOverview(ctx context.Context, snap *models.SelectionState) (*models.ViewModel, error) {
	data := r.universeData(ctx, snap.Filters)
	if data == nil {
		return nil, models.ErrBackendUnavailable
	}
	vm := &models.ViewModel{
		Context:        models.ContextOverview,
		KPIs:           buildKPIs(models.ContextOverview, data),
		RecentSeries:   data.RecentHistory,
		LongTermSeries: data.LongTermHistory,
		ClientRows:     clientRows(data.ClientBalances),
		FundRows:       fundRows(data.FundBalances),
		AccountRows:    accountRows(data.AccountDetails),
	}
	return vm, nil
}

// resolveScoped handles the single-client and single-fund views: one
// scoped fetch for KPIs and charts, full-universe tables around it.
// A failed scoped fetch degrades to the overview rendering.
func (r *Resolver) resolveScoped(ctx context.Context, snap *models.SelectionState, fctx models.FilterContext, endpoint string, call func() (*models.DashboardData, error)) (*models.ViewModel, error) {
	data, err := r.fetchCached(endpoint, textParams(snap.Filters), call)
	if err != nil {
		r.logger.Warn().
			Str("endpoint", endpoint).
			Err(err).
			Msg("Scoped fetch failed, degrading to overview")
		vm, oerr := r.resolveOverview(ctx, snap)
		if oerr != nil {
			return nil, err
		}
		vm.Context = fctx
		return vm, nil
	}

	vm := &models.ViewModel{
		Context:           fctx,
		KPIs:              buildKPIs(fctx, data),
		RecentSeries:      data.RecentHistory,
		LongTermSeries:    data.LongTermHistory,
		SeriesApproximate: !data.ExactSeries,
	}
	if universe := r.universeData(ctx, snap.Filters); universe != nil {
		vm.ClientRows = clientRows(universe.ClientBalances)
		vm.FundRows = fundRows(universe.FundBalances)
		vm.AccountRows = accountRows(universe.AccountDetails)
	} else {
		vm.ClientRows = clientRows(data.ClientBalances)
		vm.FundRows = fundRows(data.FundBalances)
		vm.AccountRows = accountRows(data.AccountDetails)
	}
	return vm, nil
}

// resolveClientFund renders the client×fund combination. The combo fetch
// drives KPIs, charts and the account table; its intersection may be
// empty, in which case the account table is empty and the AUM zero. The
// fund table lists the selected client's own funds, refetched from the
// parent entity; the client table stays the full universe.
func (r *Resolver) resolveClientFund(ctx context.Context, snap *models.SelectionState, fctx models.FilterContext) (*models.ViewModel, error) {
	id := snap.ClientIDs()[0]
	name := snap.FundNames()[0]
	endpoint := "client/" + id + "/fund/" + name
	data, err := r.fetchCached(endpoint, textParams(snap.Filters), func() (*models.DashboardData, error) {
		return r.source.GetClientFund(ctx, id, name, snap.Filters)
	})
	if err != nil {
		r.logger.Warn().
			Str("endpoint", endpoint).
			Err(err).
			Msg("Combination fetch failed, degrading to overview")
		vm, oerr := r.resolveOverview(ctx, snap)
		if oerr != nil {
			return nil, err
		}
		vm.Context = fctx
		return vm, nil
	}

	vm := &models.ViewModel{
		Context:           fctx,
		KPIs:              buildKPIs(fctx, data),
		RecentSeries:      data.RecentHistory,
		LongTermSeries:    data.LongTermHistory,
		AccountRows:       accountRows(data.AccountDetails),
		SeriesApproximate: !data.ExactSeries,
	}

	universe := r.universeData(ctx, snap.Filters)
	if universe != nil {
		vm.ClientRows = clientRows(universe.ClientBalances)
	} else {
		vm.ClientRows = clientRows(data.ClientBalances)
	}

	parent, perr := r.fetchCached("client/"+id, textParams(snap.Filters), func() (*models.DashboardData, error) {
		return r.source.GetClient(ctx, id, snap.Filters)
	})
	switch {
	case perr == nil && len(parent.FundBalances) > 0:
		vm.FundRows = fundRows(parent.FundBalances)
	case universe != nil:
		r.logger.Debug().Str("client", id).Msg("Parent fund list unavailable, using universe funds")
		vm.FundRows = fundRows(universe.FundBalances)
	default:
		vm.FundRows = fundRows(data.FundBalances)
	}

	return vm, nil
}

// resolveAccount renders the account-scoped views: the fund table comes
// from the account's allocation, the owning client's row is rebalanced to
// the allocation total, and the account table reflects the surrounding
// client/fund selection rather than the single account.
func (r *Resolver) resolveAccount(ctx context.Context, snap *models.SelectionState, fctx models.FilterContext, accountID, fundName string) (*models.ViewModel, error) {
	endpoint := "account/" + accountID
	call := func() (*models.DashboardData, error) {
		return r.source.GetAccount(ctx, accountID, snap.Filters)
	}
	if fundName != "" {
		endpoint += "/fund/" + fundName
		call = func() (*models.DashboardData, error) {
			return r.source.GetAccountFund(ctx, accountID, fundName, snap.Filters)
		}
	}

	data, err := r.fetchCached(endpoint, textParams(snap.Filters), call)
	if err != nil {
		r.logger.Warn().
			Str("endpoint", endpoint).
			Err(err).
			Msg("Account fetch failed, degrading to overview")
		vm, oerr := r.resolveOverview(ctx, snap)
		if oerr != nil {
			return nil, err
		}
		vm.Context = fctx
		return vm, nil
	}

	vm := &models.ViewModel{
		Context:           fctx,
		KPIs:              buildKPIs(fctx, data),
		RecentSeries:      data.RecentHistory,
		LongTermSeries:    data.LongTermHistory,
		SeriesApproximate: !data.ExactSeries,
	}

	vm.FundRows = allocationFundRows(data.FundAllocation)

	universe := r.universeData(ctx, snap.Filters)
	if universe != nil {
		vm.ClientRows = rebalancedClientRows(universe.ClientBalances, data)
	} else if data.ClientBalance != nil {
		vm.ClientRows = clientRows([]models.Client{*data.ClientBalance})
	}

	vm.AccountRows = accountRows(r.relatedAccounts(ctx, snap, data, universe))
	return vm, nil
}

// allocationFundRows builds the fund table from an account's fund
// allocation: one row per holding, account count 1, no change figures.
func allocationFundRows(allocation []models.FundSlice) []models.FundRow {
	rows := make([]models.FundRow, len(allocation))
	for i, slice := range allocation {
		rows[i] = models.FundRow{Fund: models.Fund{
			FundName:     slice.FundName,
			TotalBalance: slice.Balance,
			AccountCount: 1,
		}}
	}
	return rows
}

// rebalancedClientRows lists the universe clients with the account's
// owning client rebalanced to the allocation total.
func rebalancedClientRows(universe []models.Client, data *models.DashboardData) []models.ClientRow {
	owner := data.ClientBalance
	if owner == nil && len(data.ClientBalances) == 1 {
		owner = &data.ClientBalances[0]
	}
	rows := clientRows(universe)
	if owner == nil {
		return rows
	}
	total := data.TotalAllocation()
	for i := range rows {
		if rows[i].ClientID == owner.ClientID {
			rows[i].Client = *owner
			if total > 0 {
				rows[i].TotalBalance = total
			}
		}
	}
	return rows
}

// relatedAccounts picks the account table's population for an account
// view: the wider client+fund combination when both are selected, then
// client-only, then fund-only, otherwise the whole universe. Fetch
// failures degrade to the universe list.
func (r *Resolver) relatedAccounts(ctx context.Context, snap *models.SelectionState, data *models.DashboardData, universe *models.DashboardData) []models.Account {
	clients := snap.ClientIDs()
	funds := snap.FundNames()

	var (
		endpoint string
		call     func() (*models.DashboardData, error)
	)
	switch {
	case len(clients) == 1 && len(funds) == 1:
		endpoint = "client/" + clients[0] + "/fund/" + funds[0]
		call = func() (*models.DashboardData, error) {
			return r.source.GetClientFund(ctx, clients[0], funds[0], snap.Filters)
		}
	case len(clients) == 1:
		endpoint = "client/" + clients[0]
		call = func() (*models.DashboardData, error) {
			return r.source.GetClient(ctx, clients[0], snap.Filters)
		}
	case len(funds) == 1:
		endpoint = "fund/" + funds[0]
		call = func() (*models.DashboardData, error) {
			return r.source.GetFund(ctx, funds[0], snap.Filters)
		}
	}

	if call != nil {
		if related, err := r.fetchCached(endpoint, textParams(snap.Filters), call); err == nil {
			return related.AccountDetails
		}
		r.logger.Debug().Str("endpoint", endpoint).Msg("Related account fetch failed, using universe")
	}
	if universe != nil {
		return universe.AccountDetails
	}
	return data.AccountDetails
}

// combo is one fetch of a multi-selection plan.
type combo struct {
	tag      string
	endpoint string
	call     func() (*models.DashboardData, error)
}

// combinationPlan expands the selection into individual scoped fetches.
// Account selections take priority; with funds also selected each
// account is fetched per fund, otherwise plain. Without accounts the
// plan is the client set, the fund set, or their cross product.
func (r *Resolver) combinationPlan(ctx context.Context, snap *models.SelectionState) []combo {
	clients := snap.ClientIDs()
	funds := snap.FundNames()
	accounts := snap.AccountIDs()
	filters := snap.Filters

	var combos []combo
	switch {
	case len(accounts) > 0 && len(funds) > 0:
		for _, id := range accounts {
			for _, name := range funds {
				id, name := id, name
				combos = append(combos, combo{
					tag:      "account:" + id + "|fund:" + name,
					endpoint: "account/" + id + "/fund/" + name,
					call: func() (*models.DashboardData, error) {
						return r.source.GetAccountFund(ctx, id, name, filters)
					},
				})
			}
		}
	case len(accounts) > 0:
		for _, id := range accounts {
			id := id
			combos = append(combos, combo{
				tag:      "account:" + id,
				endpoint: "account/" + id,
				call: func() (*models.DashboardData, error) {
					return r.source.GetAccount(ctx, id, filters)
				},
			})
		}
	case len(clients) > 0 && len(funds) > 0:
		for _, id := range clients {
			for _, name := range funds {
				id, name := id, name
				combos = append(combos, combo{
					tag:      "client:" + id + "|fund:" + name,
					endpoint: "client/" + id + "/fund/" + name,
					call: func() (*models.DashboardData, error) {
						return r.source.GetClientFund(ctx, id, name, filters)
					},
				})
			}
		}
	case len(clients) > 0:
		for _, id := range clients {
			id := id
			combos = append(combos, combo{
				tag:      "client:" + id,
				endpoint: "client/" + id,
				call: func() (*models.DashboardData, error) {
					return r.source.GetClient(ctx, id, filters)
				},
			})
		}
	case len(funds) > 0:
		for _, name := range funds {
			name := name
			combos = append(combos, combo{
				tag:      "fund:" + name,
				endpoint: "fund/" + name,
				call: func() (*models.DashboardData, error) {
					return r.source.GetFund(ctx, name, filters)
				},
			})
		}
	}
	return combos
}

// resolveMulti serves the multi-selection contexts: one unified call
// when the source supports it, otherwise concurrent combination fetches
// joined with per-combination fault tolerance.
func (r *Resolver) resolveMulti(ctx context.Context, snap *models.SelectionState, fctx models.FilterContext) (*models.ViewModel, error) {
	if r.source.SupportsUnified() {
		params := query.BuildUnified(snap, string(fctx))
		data, err := r.fetchCached("v2/dashboard", params, func() (*models.DashboardData, error) {
			return r.source.GetUnified(ctx, snap)
		})
		if err == nil {
			return r.assembleMulti(ctx, snap, fctx, data), nil
		}
		r.logger.Warn().Err(err).Msg("Unified fetch failed, resolving per combination")
	}

	combos := r.combinationPlan(ctx, snap)
	if len(combos) == 0 {
		return r.resolveOverview(ctx, snap)
	}

	results := make([]*models.DashboardData, len(combos))
	errs := make([]error, len(combos))

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for i, cmb := range combos {
		i, cmb := i, cmb
		g.Go(func() error {
			results[i], errs[i] = r.fetchCached(cmb.endpoint, textParams(snap.Filters), cmb.call)
			return nil
		})
	}
	_ = g.Wait()

	agg := newAggregator()
	failed := 0
	for i, cmb := range combos {
		if errs[i] != nil {
			failed++
			agg.addFailed()
			r.logger.Warn().
				Str("combination", cmb.tag).
				Err(errs[i]).
				Msg("Combination fetch failed, contributing nothing")
			r.record("combination_failed", time.Now(), map[string]string{"combination": cmb.tag})
			continue
		}
		agg.add(cmb.tag, results[i])
	}
	if failed == len(combos) {
		return nil, fmt.Errorf("all %d combination fetches failed: %w", len(combos), models.ErrBackendUnavailable)
	}

	merged := agg.result()
	if len(snap.Accounts) > 0 {
		keep := make(map[string]struct{}, len(snap.Accounts))
		for id := range snap.Accounts {
			keep[id] = struct{}{}
		}
		merged.AccountDetails = filterAccounts(merged.AccountDetails, keep)
	}
	return r.assembleMulti(ctx, snap, fctx, merged), nil
}

// assembleMulti builds the multi-selection view: universe tables, merged
// KPIs, and either the exact merged series or a proportional estimate
// scaled off the universe series.
func (r *Resolver) assembleMulti(ctx context.Context, snap *models.SelectionState, fctx models.FilterContext, data *models.DashboardData) *models.ViewModel {
	vm := &models.ViewModel{
		Context: fctx,
		KPIs:    buildKPIs(fctx, data),
	}

	universe := r.universeData(ctx, snap.Filters)
	if universe != nil {
		vm.ClientRows = clientRows(universe.ClientBalances)
		vm.FundRows = fundRows(universe.FundBalances)
		vm.AccountRows = accountRows(universe.AccountDetails)
	} else {
		vm.ClientRows = clientRows(data.ClientBalances)
		vm.FundRows = fundRows(data.FundBalances)
		vm.AccountRows = accountRows(data.AccountDetails)
	}

	if data.ExactSeries && len(data.RecentHistory) > 0 {
		vm.RecentSeries = data.RecentHistory
		vm.LongTermSeries = data.LongTermHistory
		return vm
	}

	// No exact scoped series: estimate by scaling the full-population
	// series by the selection's share of the total.
	vm.SeriesApproximate = true
	if universe == nil {
		return vm
	}
	selected := selectedTotal(snap, data)
	system := universe.TotalClientBalance()
	if system <= 0 || selected <= 0 {
		return vm
	}
	factor := selected / system
	vm.RecentSeries = scaleSeries(universe.RecentHistory, factor)
	vm.LongTermSeries = scaleSeries(universe.LongTermHistory, factor)
	return vm
}

// selectedTotal is the merged balance of the selection's dominant
// dimension, the numerator of the proportional series factor.
func selectedTotal(snap *models.SelectionState, data *models.DashboardData) float64 {
	switch {
	case len(snap.Accounts) > 0:
		var total float64
		for _, a := range data.AccountDetails {
			total += a.Balance
		}
		return total
	case len(snap.Clients) > 0:
		return data.TotalClientBalance()
	default:
		return data.TotalFundBalance()
	}
}

// resolveDatePinned serves any view with a pinned date from one date
// snapshot: selections narrow the returned row sets client-side instead
// of refetching per dimension over a fixed day.
func (r *Resolver) resolveDatePinned(ctx context.Context, snap *models.SelectionState, fctx models.FilterContext) (*models.ViewModel, error) {
	date := *snap.Pinned
	endpoint := "date/" + date.Format("2006-01-02")
	data, err := r.fetchCached(endpoint, textParams(snap.Filters), func() (*models.DashboardData, error) {
		return r.source.GetByDate(ctx, date, snap.Filters)
	})
	if err != nil {
		return nil, err
	}

	vm := &models.ViewModel{
		Context:     fctx,
		ClientRows:  clientRows(data.ClientBalances),
		FundRows:    fundRows(data.FundBalances),
		AccountRows: accountRows(data.AccountDetails),
	}

	if snap.Empty() {
		vm.KPIs = buildKPIs(fctx, data)
		vm.RecentSeries = data.RecentHistory
		vm.LongTermSeries = data.LongTermHistory
		return vm, nil
	}

	scoped := scopeSnapshot(data, snap)
	vm.KPIs = buildKPIs(fctx, scoped)
	vm.SeriesApproximate = true
	total := data.TotalClientBalance()
	selected := selectedTotal(snap, scoped)
	if total > 0 && selected > 0 {
		factor := selected / total
		vm.RecentSeries = scaleSeries(data.RecentHistory, factor)
		vm.LongTermSeries = scaleSeries(data.LongTermHistory, factor)
	}
	return vm, nil
}

// scopeSnapshot narrows one day's snapshot to the selection without
// refetching: row sets are filtered by the selected identities.
func scopeSnapshot(data *models.DashboardData, snap *models.SelectionState) *models.DashboardData {
	scoped := &models.DashboardData{
		RecentHistory:   data.RecentHistory,
		LongTermHistory: data.LongTermHistory,
		FundAllocation:  data.FundAllocation,
	}

	if len(snap.Clients) > 0 {
		for _, c := range data.ClientBalances {
			if _, ok := snap.Clients[c.ClientID]; ok {
				scoped.ClientBalances = append(scoped.ClientBalances, c)
			}
		}
	} else {
		scoped.ClientBalances = data.ClientBalances
	}

	if len(snap.Funds) > 0 {
		for _, f := range data.FundBalances {
			if _, ok := snap.Funds[f.FundName]; ok {
				scoped.FundBalances = append(scoped.FundBalances, f)
			}
		}
	} else {
		scoped.FundBalances = data.FundBalances
	}

	for _, a := range data.AccountDetails {
		if len(snap.Accounts) > 0 {
			if _, ok := snap.Accounts[a.AccountID]; !ok {
				continue
			}
		}
		if len(snap.Funds) > 0 && a.FundName != "" {
			if _, ok := snap.Funds[a.FundName]; !ok {
				continue
			}
		}
		scoped.AccountDetails = append(scoped.AccountDetails, a)
	}
	return scoped
}
