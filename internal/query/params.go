// Package query builds backend query parameters and deterministic cache
// keys from a selection state.
package query

import (
	"net/url"
	"sort"
	"strings"

	"github.com/finbrook/fundview/internal/models"
)

// Param is one key/value pair. Keys may repeat (one entry per selected
// member of a dimension).
type Param struct {
	Key   string
	Value string
}

// Params is an ordered parameter list. Order is stable for a given
// build, but cache keys never depend on it.
type Params []Param

// Options controls which parts of the state are serialized.
type Options struct {
	// IncludeSelections adds the per-member selection entries, the
	// pinned date and the selection source.
	IncludeSelections bool
	// SelectionSource tags the origin of the selection for the v2
	// protocol ("table", "chart", "restore"). Ignored when empty or when
	// IncludeSelections is false.
	SelectionSource string
}

// Build serializes the selection state. Absent and empty fields are
// omitted; there are no error conditions.
func Build(state *models.SelectionState, opts Options) Params {
	var p Params

	if v := state.Filters.FundTicker; v != "" {
		p = append(p, Param{"fund_ticker", v})
	}
	if v := state.Filters.ClientName; v != "" {
		p = append(p, Param{"client_name", v})
	}
	if v := state.Filters.AccountNumber; v != "" {
		p = append(p, Param{"account_number", v})
	}

	if !opts.IncludeSelections {
		return p
	}

	for _, id := range state.ClientIDs() {
		p = append(p, Param{"client_id", id})
	}
	for _, name := range state.FundNames() {
		p = append(p, Param{"fund_name", name})
	}
	for _, id := range state.AccountIDs() {
		p = append(p, Param{"account_id", id})
	}
	if state.Pinned != nil {
		p = append(p, Param{"as_of_date", state.Pinned.Format("2006-01-02")})
	}
	if opts.SelectionSource != "" {
		p = append(p, Param{"selection_source", opts.SelectionSource})
	}

	return p
}

// BuildUnified serializes the state for the v2 unified endpoint, which
// takes comma-joined id lists instead of repeated keys.
func BuildUnified(state *models.SelectionState, source string) Params {
	var p Params

	if ids := state.ClientIDs(); len(ids) > 0 {
		p = append(p, Param{"client_ids", strings.Join(ids, ",")})
	}
	if names := state.FundNames(); len(names) > 0 {
		p = append(p, Param{"fund_names", strings.Join(names, ",")})
	}
	if ids := state.AccountIDs(); len(ids) > 0 {
		p = append(p, Param{"account_ids", strings.Join(ids, ",")})
	}

	if v := state.Filters.FundTicker; v != "" {
		p = append(p, Param{"fund_ticker", v})
	}
	if v := state.Filters.ClientName; v != "" {
		p = append(p, Param{"client_name", v})
	}
	if v := state.Filters.AccountNumber; v != "" {
		p = append(p, Param{"account_number", v})
	}

	if state.Pinned != nil {
		p = append(p, Param{"as_of_date", state.Pinned.Format("2006-01-02")})
	}
	if source != "" {
		p = append(p, Param{"selection_source", source})
	}

	return p
}

// Encode returns the URL query string in build order.
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// CacheKey derives the memoization key for a request: the endpoint plus
// the sorted non-empty parameters. Two logically identical requests hash
// identically regardless of construction order.
func (p Params) CacheKey(endpoint string) string {
	kept := make(Params, 0, len(p))
	for _, kv := range p {
		if kv.Value != "" {
			kept = append(kept, kv)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Key != kept[j].Key {
			return kept[i].Key < kept[j].Key
		}
		return kept[i].Value < kept[j].Value
	})

	var b strings.Builder
	b.WriteString(endpoint)
	b.WriteByte(':')
	for i, kv := range kept {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(kv.Key)
		b.WriteByte('=')
		b.WriteString(kv.Value)
	}
	return b.String()
}
