package models

import (
	"encoding/json"
	"testing"
)

func TestAccount_UnmarshalBothBalanceSpellings(t *testing.T) {
	var a Account
	if err := json.Unmarshal([]byte(`{"account_id":"A1","balance":120.5}`), &a); err != nil {
		t.Fatal(err)
	}
	if a.Balance != 120.5 {
		t.Errorf("Balance = %v, want 120.5", a.Balance)
	}

	var b Account
	if err := json.Unmarshal([]byte(`{"account_id":"A2","total_balance":99}`), &b); err != nil {
		t.Fatal(err)
	}
	if b.Balance != 99 {
		t.Errorf("Balance from total_balance = %v, want 99", b.Balance)
	}
}

func TestAccount_MissingFieldsDefaultToZero(t *testing.T) {
	var a Account
	if err := json.Unmarshal([]byte(`{"account_id":"A1"}`), &a); err != nil {
		t.Fatal(err)
	}
	if a.Balance != 0 {
		t.Errorf("Balance = %v, want 0", a.Balance)
	}
	if a.QTDChange != nil || a.YTDChange != nil {
		t.Error("missing percentage fields must stay nil, not 0")
	}
}

func TestAccount_NullChangesStayNil(t *testing.T) {
	var a Account
	if err := json.Unmarshal([]byte(`{"account_id":"A1","qtd_change":null,"ytd_change":1.5}`), &a); err != nil {
		t.Fatal(err)
	}
	if a.QTDChange != nil {
		t.Error("null qtd_change must decode to nil")
	}
	if a.YTDChange == nil || *a.YTDChange != 1.5 {
		t.Errorf("YTDChange = %v, want 1.5", a.YTDChange)
	}
}

func TestHistoryPoint_UnmarshalBothSpellings(t *testing.T) {
	var p HistoryPoint
	if err := json.Unmarshal([]byte(`{"balance_date":"2024-03-01","balance":40}`), &p); err != nil {
		t.Fatal(err)
	}
	if p.TotalBalance != 40 {
		t.Errorf("TotalBalance from balance = %v, want 40", p.TotalBalance)
	}
	if p.Date().IsZero() {
		t.Error("Date() returned zero time for valid date")
	}

	var q HistoryPoint
	if err := json.Unmarshal([]byte(`{"balance_date":"bad","total_balance":10}`), &q); err != nil {
		t.Fatal(err)
	}
	if !q.Date().IsZero() {
		t.Error("Date() must return zero time for malformed date")
	}
}

func TestDashboardData_Totals(t *testing.T) {
	d := DashboardData{
		ClientBalances: []Client{{TotalBalance: 100}, {TotalBalance: 250}},
		FundBalances:   []Fund{{TotalBalance: 300}},
		FundAllocation: []FundSlice{{Balance: 10}, {Balance: 15}},
	}
	if got := d.TotalClientBalance(); got != 350 {
		t.Errorf("TotalClientBalance() = %v, want 350", got)
	}
	if got := d.TotalFundBalance(); got != 300 {
		t.Errorf("TotalFundBalance() = %v, want 300", got)
	}
	if got := d.TotalAllocation(); got != 25 {
		t.Errorf("TotalAllocation() = %v, want 25", got)
	}
}

func TestDashboardData_MissingArraysDecodeEmpty(t *testing.T) {
	var d DashboardData
	if err := json.Unmarshal([]byte(`{}`), &d); err != nil {
		t.Fatal(err)
	}
	if d.TotalClientBalance() != 0 {
		t.Error("empty response must aggregate to zero, not panic")
	}
}
