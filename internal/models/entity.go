// Package models defines the data types for fundview
package models

import (
	"encoding/json"
	"time"
)

// Client is a snapshot of one client's aggregated balances.
type Client struct {
	ClientID     string   `json:"client_id"`
	ClientName   string   `json:"client_name"`
	TotalBalance float64  `json:"total_balance"`
	QTDChange    *float64 `json:"qtd_change"`
	YTDChange    *float64 `json:"ytd_change"`
}

// Fund is a snapshot of one fund's aggregated balances.
type Fund struct {
	FundName     string   `json:"fund_name"`
	FundTicker   string   `json:"fund_ticker,omitempty"`
	TotalBalance float64  `json:"total_balance"`
	QTDChange    *float64 `json:"qtd_change"`
	YTDChange    *float64 `json:"ytd_change"`
	AccountCount int      `json:"account_count"`
}

// Account is a snapshot of one account. The backend reports the balance
// as either "balance" or "total_balance" depending on the endpoint.
type Account struct {
	AccountID  string   `json:"account_id"`
	ClientName string   `json:"client_name,omitempty"`
	FundName   string   `json:"fund_name,omitempty"`
	Balance    float64  `json:"balance"`
	QTDChange  *float64 `json:"qtd_change"`
	YTDChange  *float64 `json:"ytd_change"`
}

// UnmarshalJSON accepts both balance field spellings.
func (a *Account) UnmarshalJSON(data []byte) error {
	type alias Account
	aux := struct {
		*alias
		TotalBalance *float64 `json:"total_balance"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if a.Balance == 0 && aux.TotalBalance != nil {
		a.Balance = *aux.TotalBalance
	}
	return nil
}

// HistoryPoint is one point of a balance time series. The backend reports
// the value as either "total_balance" or "balance" depending on the endpoint.
type HistoryPoint struct {
	BalanceDate  string  `json:"balance_date"`
	TotalBalance float64 `json:"total_balance"`
}

// UnmarshalJSON accepts both balance field spellings.
func (p *HistoryPoint) UnmarshalJSON(data []byte) error {
	type alias HistoryPoint
	aux := struct {
		*alias
		Balance *float64 `json:"balance"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.TotalBalance == 0 && aux.Balance != nil {
		p.TotalBalance = *aux.Balance
	}
	return nil
}

// Date parses the point's balance date. Returns the zero time on bad input.
func (p *HistoryPoint) Date() time.Time {
	t, err := time.Parse("2006-01-02", p.BalanceDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FundSlice is one fund's share of a single account, from the
// account-scoped fund_allocation list.
type FundSlice struct {
	FundName string  `json:"fund_name"`
	Balance  float64 `json:"balance"`
}

// EntityKind identifies one of the three entity tables.
type EntityKind string

const (
	KindClient  EntityKind = "client"
	KindFund    EntityKind = "fund"
	KindAccount EntityKind = "account"
)
