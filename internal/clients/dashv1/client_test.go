package dashv1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/finbrook/fundview/internal/common"
	"github.com/finbrook/fundview/internal/models"
)

func newClientUnderTest(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(
		WithBaseURL(server.URL),
		WithLogger(common.NewSilentLogger()),
	)
}

func TestGetOverviewDecodesAndMarksExact(t *testing.T) {
	client := newClientUnderTest(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/overview" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"client_balances": []map[string]interface{}{
				{"client_id": "C1", "client_name": "Alpha Trust", "total_balance": 1200.0},
			},
			"recent_history": []map[string]interface{}{
				{"balance_date": "2025-07-01", "total_balance": 1200.0},
			},
		})
	})

	data, err := client.GetOverview(context.Background(), models.TextFilters{})
	if err != nil {
		t.Fatalf("GetOverview: %v", err)
	}
	if len(data.ClientBalances) != 1 || data.ClientBalances[0].ClientName != "Alpha Trust" {
		t.Fatalf("unexpected client balances: %+v", data.ClientBalances)
	}
	if len(data.RecentHistory) != 1 || data.RecentHistory[0].TotalBalance != 1200 {
		t.Fatalf("unexpected recent history: %+v", data.RecentHistory)
	}
	if !data.ExactSeries {
		t.Fatal("scoped v1 responses should carry exact series")
	}
}

func TestGetAccountAcceptsBalanceSpelling(t *testing.T) {
	client := newClientUnderTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"account_details": []map[string]interface{}{
				{"account_id": "A1", "total_balance": 300.0},
			},
			"recent_history": []map[string]interface{}{
				{"balance_date": "2025-07-01", "balance": 300.0},
			},
		})
	})

	data, err := client.GetAccount(context.Background(), "A1", models.TextFilters{})
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if data.AccountDetails[0].Balance != 300 {
		t.Fatalf("total_balance spelling not accepted: %+v", data.AccountDetails[0])
	}
	if data.RecentHistory[0].TotalBalance != 300 {
		t.Fatalf("balance spelling not accepted: %+v", data.RecentHistory[0])
	}
}

func TestScopedPathsAreEscaped(t *testing.T) {
	var gotPath string
	client := newClientUnderTest(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	ctx := context.Background()
	cases := []struct {
		name string
		call func() error
		path string
	}{
		{"client", func() error {
			_, err := client.GetClient(ctx, "C 1", models.TextFilters{})
			return err
		}, "/api/client/C%201"},
		{"fund", func() error {
			_, err := client.GetFund(ctx, "Growth Fund", models.TextFilters{})
			return err
		}, "/api/fund/Growth%20Fund"},
		{"account_fund", func() error {
			_, err := client.GetAccountFund(ctx, "A/1", "Income Fund", models.TextFilters{})
			return err
		}, "/api/account/A%2F1/fund/Income%20Fund"},
		{"client_fund", func() error {
			_, err := client.GetClientFund(ctx, "C1", "Growth Fund", models.TextFilters{})
			return err
		}, "/api/client/C1/fund/Growth%20Fund"},
		{"date", func() error {
			_, err := client.GetByDate(ctx, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), models.TextFilters{})
			return err
		}, "/api/date/2025-06-30"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); err != nil {
				t.Fatalf("call: %v", err)
			}
			if gotPath != tc.path {
				t.Fatalf("expected path %q, got %q", tc.path, gotPath)
			}
		})
	}
}

func TestTextFiltersSentAsQueryParams(t *testing.T) {
	var gotQuery string
	client := newClientUnderTest(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	filters := models.TextFilters{FundTicker: "GRW", ClientName: "Alpha"}
	if _, err := client.GetOverview(context.Background(), filters); err != nil {
		t.Fatalf("GetOverview: %v", err)
	}
	if gotQuery != "fund_ticker=GRW&client_name=Alpha" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestErrorResponseClassification(t *testing.T) {
	client := newClientUnderTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"unavailable","detail":"warehouse refresh in progress"}`))
	})

	_, err := client.GetOverview(context.Background(), models.TextFilters{})
	var fetchErr *models.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T: %v", err, err)
	}
	if fetchErr.Kind != models.ErrorProtocol {
		t.Fatalf("expected protocol error, got %s", fetchErr.Kind)
	}
	if fetchErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", fetchErr.StatusCode)
	}
	if fetchErr.Detail != "warehouse refresh in progress" {
		t.Fatalf("structured detail not extracted: %q", fetchErr.Detail)
	}
}

func TestMalformedBodyClassification(t *testing.T) {
	client := newClientUnderTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"client_balances": [`))
	})

	_, err := client.GetOverview(context.Background(), models.TextFilters{})
	var fetchErr *models.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T: %v", err, err)
	}
	if fetchErr.Kind != models.ErrorMalformedResponse {
		t.Fatalf("expected malformed error, got %s", fetchErr.Kind)
	}
}

func TestCancelledContextIsTransportError(t *testing.T) {
	client := newClientUnderTest(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.GetOverview(ctx, models.TextFilters{})
	var fetchErr *models.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T: %v", err, err)
	}
	if fetchErr.Kind != models.ErrorTransport {
		t.Fatalf("expected transport error, got %s", fetchErr.Kind)
	}
}

func TestGetUnifiedNotSupported(t *testing.T) {
	client := NewClient(WithLogger(common.NewSilentLogger()))
	if client.SupportsUnified() {
		t.Fatal("v1 client must not report unified support")
	}
	if _, err := client.GetUnified(context.Background(), models.NewSelectionState()); err == nil {
		t.Fatal("expected error from GetUnified on v1")
	}
}
