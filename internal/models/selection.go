package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Dimension is one of the three independent multi-select axes.
type Dimension string

const (
	DimensionClient  Dimension = "client"
	DimensionFund    Dimension = "fund"
	DimensionAccount Dimension = "account"
)

// TextFilters holds the free-text filter fields. Empty string = inactive.
type TextFilters struct {
	FundTicker    string `json:"fund_ticker,omitempty"`
	ClientName    string `json:"client_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
}

// Active reports whether any text filter is set.
func (f TextFilters) Active() bool {
	return f.FundTicker != "" || f.ClientName != "" || f.AccountNumber != ""
}

// FilterContext classifies which combination of selection dimensions is
// active. It drives the fetch strategy and KPI labeling.
type FilterContext string

const (
	ContextOverview          FilterContext = "overview"
	ContextDatePinned        FilterContext = "date-pinned"
	ContextSingleClient      FilterContext = "single-client"
	ContextSingleFund        FilterContext = "single-fund"
	ContextSingleAccount     FilterContext = "single-account"
	ContextClientFund        FilterContext = "client-fund"
	ContextClientAccount     FilterContext = "client-account"
	ContextAccountFund       FilterContext = "account-fund"
	ContextClientFundAccount FilterContext = "client-fund-account"
	ContextMultiClient       FilterContext = "multi-client"
	ContextMultiFund         FilterContext = "multi-fund"
	ContextMultiAccount      FilterContext = "multi-account"
	ContextMultiIntersection FilterContext = "multi-intersection"
)

// SelectionState holds the current multi-select sets, text filters and
// pinned date. It is the single explicit application-state object:
// every view is a pure function of it.
type SelectionState struct {
	Clients  map[string]struct{}
	Funds    map[string]struct{}
	Accounts map[string]struct{}
	Filters  TextFilters
	Pinned   *time.Time
}

// NewSelectionState returns an empty selection.
func NewSelectionState() *SelectionState {
	return &SelectionState{
		Clients:  make(map[string]struct{}),
		Funds:    make(map[string]struct{}),
		Accounts: make(map[string]struct{}),
	}
}

// Toggle adds the member to the dimension if absent, removes it if present.
func (s *SelectionState) Toggle(dim Dimension, id string) error {
	set, err := s.set(dim)
	if err != nil {
		return err
	}
	if _, ok := set[id]; ok {
		delete(set, id)
	} else {
		set[id] = struct{}{}
	}
	return nil
}

// Selected reports whether the member is currently selected.
func (s *SelectionState) Selected(dim Dimension, id string) bool {
	set, err := s.set(dim)
	if err != nil {
		return false
	}
	_, ok := set[id]
	return ok
}

func (s *SelectionState) set(dim Dimension) (map[string]struct{}, error) {
	switch dim {
	case DimensionClient:
		return s.Clients, nil
	case DimensionFund:
		return s.Funds, nil
	case DimensionAccount:
		return s.Accounts, nil
	}
	return nil, fmt.Errorf("unknown selection dimension %q", dim)
}

// SetTextFilter sets one free-text filter field. An empty value clears it.
func (s *SelectionState) SetTextFilter(field, value string) error {
	switch field {
	case "fund_ticker":
		s.Filters.FundTicker = value
	case "client_name":
		s.Filters.ClientName = value
	case "account_number":
		s.Filters.AccountNumber = value
	default:
		return fmt.Errorf("unknown text filter field %q", field)
	}
	return nil
}

// SetPinnedDate pins all data to the given date. A nil date clears the pin.
func (s *SelectionState) SetPinnedDate(d *time.Time) {
	s.Pinned = d
}

// Clear resets all selections, text filters and the pinned date.
func (s *SelectionState) Clear() {
	s.Clients = make(map[string]struct{})
	s.Funds = make(map[string]struct{})
	s.Accounts = make(map[string]struct{})
	s.Filters = TextFilters{}
	s.Pinned = nil
}

// Empty reports whether no dimension has a selected member.
func (s *SelectionState) Empty() bool {
	return len(s.Clients) == 0 && len(s.Funds) == 0 && len(s.Accounts) == 0
}

// Clone returns a deep copy. Resolution passes operate on a snapshot so
// selection changes during an in-flight pass cannot skew its output.
func (s *SelectionState) Clone() *SelectionState {
	c := NewSelectionState()
	for k := range s.Clients {
		c.Clients[k] = struct{}{}
	}
	for k := range s.Funds {
		c.Funds[k] = struct{}{}
	}
	for k := range s.Accounts {
		c.Accounts[k] = struct{}{}
	}
	c.Filters = s.Filters
	if s.Pinned != nil {
		d := *s.Pinned
		c.Pinned = &d
	}
	return c
}

// ClientIDs returns the selected client ids in sorted order.
func (s *SelectionState) ClientIDs() []string { return sortedKeys(s.Clients) }

// FundNames returns the selected fund names in sorted order.
func (s *SelectionState) FundNames() []string { return sortedKeys(s.Funds) }

// AccountIDs returns the selected account ids in sorted order.
func (s *SelectionState) AccountIDs() []string { return sortedKeys(s.Accounts) }

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Classify derives the FilterContext from the current sets. It is a pure
// function of the member counts: toggling a dimension empty again yields
// the same context as never touching it.
//
// A single selected account takes priority over client/fund selections;
// combined with exactly one fund it becomes the account-fund view. Any
// combination with more than one multi-valued dimension (or multiple
// accounts alongside other selections) falls back to the intersection path.
func (s *SelectionState) Classify() FilterContext {
	c, f, a := len(s.Clients), len(s.Funds), len(s.Accounts)

	switch {
	case a == 0:
		switch {
		case c == 0 && f == 0:
			if s.Pinned != nil {
				return ContextDatePinned
			}
			return ContextOverview
		case c == 1 && f == 0:
			return ContextSingleClient
		case c == 0 && f == 1:
			return ContextSingleFund
		case c == 1 && f == 1:
			return ContextClientFund
		case c > 1 && f == 0:
			return ContextMultiClient
		case c == 0 && f > 1:
			return ContextMultiFund
		default:
			return ContextMultiIntersection
		}
	case a == 1:
		switch {
		case c == 0 && f == 0:
			return ContextSingleAccount
		case c == 0 && f == 1:
			return ContextAccountFund
		case c == 1 && f == 0:
			return ContextClientAccount
		case c == 1 && f == 1:
			return ContextClientFundAccount
		default:
			return ContextMultiIntersection
		}
	default: // a > 1
		switch {
		case c == 0 && f == 0:
			return ContextMultiAccount
		case c == 1 && f == 1:
			return ContextClientFundAccount
		default:
			return ContextMultiIntersection
		}
	}
}

// Describe returns a human-readable summary of the active selections,
// e.g. "2 Clients, 1 Fund" or "All Clients - All Funds".
func (s *SelectionState) Describe() string {
	var parts []string
	if n := len(s.Clients); n > 0 {
		parts = append(parts, fmt.Sprintf("%d Client%s", n, plural(n)))
	}
	if n := len(s.Funds); n > 0 {
		parts = append(parts, fmt.Sprintf("%d Fund%s", n, plural(n)))
	}
	if n := len(s.Accounts); n > 0 {
		parts = append(parts, fmt.Sprintf("%d Account%s", n, plural(n)))
	}
	if len(parts) == 0 {
		if s.Pinned != nil {
			return "Date: " + s.Pinned.Format("2006-01-02")
		}
		return "All Clients - All Funds"
	}
	return strings.Join(parts, ", ")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
