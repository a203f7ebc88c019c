// Package cache provides the normalized entity and query cache shared by
// all fetches inside one resolution pass.
package cache

import (
	"sync"
	"time"

	"github.com/finbrook/fundview/internal/common"
	"github.com/finbrook/fundview/internal/models"
)

// QueryResult is a memoized query in normalized form: entity references
// plus the response parts that are not entities.
type QueryResult struct {
	ClientIDs  []string
	FundNames  []string
	AccountIDs []string

	RecentHistory   []models.HistoryPoint
	LongTermHistory []models.HistoryPoint
	FundAllocation  []models.FundSlice
	ClientBalance   *models.Client
	FundBalance     *models.Fund
	KPIs            *models.KPIMetrics
	ExactSeries     bool
}

type entry[T any] struct {
	value   T
	fetched time.Time
}

type queryEntry struct {
	result  *QueryResult
	fetched time.Time
	ttl     time.Duration
}

// Cache stores fetched entities keyed by identity plus TTL-bound query
// memoization. Writes replace whole records; concurrent sub-fetches
// within a pass never leave a partially merged entity behind.
type Cache struct {
	mu sync.RWMutex

	clients  map[string]entry[models.Client]
	funds    map[string]entry[models.Fund]
	accounts map[string]entry[models.Account]
	queries  map[string]queryEntry

	entityTTL time.Duration
	queryTTL  time.Duration
	now       func() time.Time
}

// Option configures the cache.
type Option func(*Cache)

// WithEntityTTL overrides the entity snapshot TTL.
func WithEntityTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.entityTTL = ttl }
}

// WithQueryTTL overrides the default query memoization TTL.
func WithQueryTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.queryTTL = ttl }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache with the default freshness TTLs.
func New(opts ...Option) *Cache {
	c := &Cache{
		clients:   make(map[string]entry[models.Client]),
		funds:     make(map[string]entry[models.Fund]),
		accounts:  make(map[string]entry[models.Account]),
		queries:   make(map[string]queryEntry),
		entityTTL: common.FreshnessEntity,
		queryTTL:  common.FreshnessQuery,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PutClients stores client snapshots keyed by id.
func (c *Cache) PutClients(list []models.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for _, cl := range list {
		if cl.ClientID == "" {
			continue
		}
		c.clients[cl.ClientID] = entry[models.Client]{value: cl, fetched: now}
	}
}

// PutFunds stores fund snapshots keyed by name.
func (c *Cache) PutFunds(list []models.Fund) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for _, f := range list {
		if f.FundName == "" {
			continue
		}
		c.funds[f.FundName] = entry[models.Fund]{value: f, fetched: now}
	}
}

// PutAccounts stores account snapshots keyed by id.
func (c *Cache) PutAccounts(list []models.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for _, a := range list {
		if a.AccountID == "" {
			continue
		}
		c.accounts[a.AccountID] = entry[models.Account]{value: a, fetched: now}
	}
}

func (c *Cache) fresh(fetched time.Time) bool {
	return c.now().Sub(fetched) < c.entityTTL
}

// GetClient returns the cached client snapshot if present and fresh.
func (c *Cache) GetClient(id string) (models.Client, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.clients[id]
	if !ok || !c.fresh(e.fetched) {
		return models.Client{}, false
	}
	return e.value, true
}

// GetFund returns the cached fund snapshot if present and fresh.
func (c *Cache) GetFund(name string) (models.Fund, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.funds[name]
	if !ok || !c.fresh(e.fetched) {
		return models.Fund{}, false
	}
	return e.value, true
}

// GetAccount returns the cached account snapshot if present and fresh.
func (c *Cache) GetAccount(id string) (models.Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.accounts[id]
	if !ok || !c.fresh(e.fetched) {
		return models.Account{}, false
	}
	return e.value, true
}

// PutQuery memoizes a normalized query result. A zero ttl uses the default.
func (c *Cache) PutQuery(key string, result *QueryResult, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.queryTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries[key] = queryEntry{result: result, fetched: c.now(), ttl: ttl}
}

// GetQuery returns the memoized result for the key, lazily purging it
// once its TTL has expired.
func (c *Cache) GetQuery(key string) (*QueryResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.queries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetched) > e.ttl {
		delete(c.queries, key)
		return nil, false
	}
	return e.result, true
}

// Normalize stores the response's entities and returns the normalized
// query result referencing them.
func (c *Cache) Normalize(data *models.DashboardData) *QueryResult {
	res := &QueryResult{
		RecentHistory:   data.RecentHistory,
		LongTermHistory: data.LongTermHistory,
		FundAllocation:  data.FundAllocation,
		ClientBalance:   data.ClientBalance,
		FundBalance:     data.FundBalance,
		KPIs:            data.KPIs,
		ExactSeries:     data.ExactSeries,
	}

	c.PutClients(data.ClientBalances)
	for _, cl := range data.ClientBalances {
		if cl.ClientID != "" {
			res.ClientIDs = append(res.ClientIDs, cl.ClientID)
		}
	}
	c.PutFunds(data.FundBalances)
	for _, f := range data.FundBalances {
		if f.FundName != "" {
			res.FundNames = append(res.FundNames, f.FundName)
		}
	}
	c.PutAccounts(data.AccountDetails)
	for _, a := range data.AccountDetails {
		if a.AccountID != "" {
			res.AccountIDs = append(res.AccountIDs, a.AccountID)
		}
	}

	return res
}

// Denormalize reconstitutes a DashboardData from a normalized result.
// Entity references whose snapshots have expired are skipped.
func (c *Cache) Denormalize(res *QueryResult) *models.DashboardData {
	data := &models.DashboardData{
		RecentHistory:   res.RecentHistory,
		LongTermHistory: res.LongTermHistory,
		FundAllocation:  res.FundAllocation,
		ClientBalance:   res.ClientBalance,
		FundBalance:     res.FundBalance,
		KPIs:            res.KPIs,
		ExactSeries:     res.ExactSeries,
	}
	for _, id := range res.ClientIDs {
		if cl, ok := c.GetClient(id); ok {
			data.ClientBalances = append(data.ClientBalances, cl)
		}
	}
	for _, name := range res.FundNames {
		if f, ok := c.GetFund(name); ok {
			data.FundBalances = append(data.FundBalances, f)
		}
	}
	for _, id := range res.AccountIDs {
		if a, ok := c.GetAccount(id); ok {
			data.AccountDetails = append(data.AccountDetails, a)
		}
	}
	return data
}

// InvalidateEntity removes one entity snapshot and every memoized query
// whose result references it.
func (c *Cache) InvalidateEntity(kind models.EntityKind, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch kind {
	case models.KindClient:
		delete(c.clients, id)
	case models.KindFund:
		delete(c.funds, id)
	case models.KindAccount:
		delete(c.accounts, id)
	}

	for key, e := range c.queries {
		if queryReferences(e.result, kind, id) {
			delete(c.queries, key)
		}
	}
}

func queryReferences(res *QueryResult, kind models.EntityKind, id string) bool {
	var refs []string
	switch kind {
	case models.KindClient:
		refs = res.ClientIDs
	case models.KindFund:
		refs = res.FundNames
	case models.KindAccount:
		refs = res.AccountIDs
	}
	for _, r := range refs {
		if r == id {
			return true
		}
	}
	return false
}

// InvalidateQueries drops all memoized query results, keeping entity
// snapshots. Called on every selection or text-filter change.
func (c *Cache) InvalidateQueries() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = make(map[string]queryEntry)
}

// InvalidateAll drops everything.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients = make(map[string]entry[models.Client])
	c.funds = make(map[string]entry[models.Fund])
	c.accounts = make(map[string]entry[models.Account])
	c.queries = make(map[string]queryEntry)
}

// Stats reports current cache occupancy.
type Stats struct {
	Clients  int `json:"clients"`
	Funds    int `json:"funds"`
	Accounts int `json:"accounts"`
	Queries  int `json:"queries"`
}

// GetStats returns current cache occupancy.
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Clients:  len(c.clients),
		Funds:    len(c.funds),
		Accounts: len(c.accounts),
		Queries:  len(c.queries),
	}
}
