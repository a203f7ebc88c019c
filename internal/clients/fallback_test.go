package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/finbrook/fundview/internal/clients/dashv1"
	"github.com/finbrook/fundview/internal/clients/dashv2"
	"github.com/finbrook/fundview/internal/common"
	"github.com/finbrook/fundview/internal/models"
)

func newFallbackUnderTest(t *testing.T, v2Handler, v1Handler http.HandlerFunc) (*FallbackSource, *httptest.Server, *httptest.Server) {
	t.Helper()

	v2Server := httptest.NewServer(v2Handler)
	t.Cleanup(v2Server.Close)
	v1Server := httptest.NewServer(v1Handler)
	t.Cleanup(v1Server.Close)

	primary := dashv2.NewClient(
		dashv2.WithBaseURL(v2Server.URL),
		dashv2.WithRetry(1, 0),
		dashv2.WithLogger(common.NewSilentLogger()),
	)
	secondary := dashv1.NewClient(
		dashv1.WithBaseURL(v1Server.URL),
		dashv1.WithLogger(common.NewSilentLogger()),
	)
	return NewFallbackSource(primary, secondary, common.NewSilentLogger()), v2Server, v1Server
}

func writeOverview(w http.ResponseWriter, clientName string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"client_balances": []map[string]interface{}{
			{"client_id": "C1", "client_name": clientName, "total_balance": 100.0},
		},
	})
}

func TestFallbackUsesSecondaryOnServerError(t *testing.T) {
	v1Calls := 0
	source, _, _ := newFallbackUnderTest(t,
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		},
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/overview" {
				t.Errorf("unexpected fallback path %s", r.URL.Path)
			}
			v1Calls++
			writeOverview(w, "Fallback Client")
		},
	)

	data, err := source.GetOverview(context.Background(), models.TextFilters{})
	if err != nil {
		t.Fatalf("GetOverview: %v", err)
	}
	if v1Calls != 1 {
		t.Fatalf("expected 1 fallback call, got %d", v1Calls)
	}
	if len(data.ClientBalances) != 1 || data.ClientBalances[0].ClientName != "Fallback Client" {
		t.Fatalf("fallback data not returned: %+v", data.ClientBalances)
	}
}

func TestFallbackPrefersPrimaryWhenHealthy(t *testing.T) {
	v1Calls := 0
	source, _, _ := newFallbackUnderTest(t,
		func(w http.ResponseWriter, r *http.Request) {
			writeOverview(w, "Primary Client")
		},
		func(w http.ResponseWriter, r *http.Request) {
			v1Calls++
			writeOverview(w, "Fallback Client")
		},
	)

	data, err := source.GetClient(context.Background(), "C1", models.TextFilters{})
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	if v1Calls != 0 {
		t.Fatalf("fallback should not be invoked, got %d calls", v1Calls)
	}
	if data.ClientBalances[0].ClientName != "Primary Client" {
		t.Fatalf("expected primary data, got %q", data.ClientBalances[0].ClientName)
	}
}

func TestFallbackSurfacesPrimaryErrorWhenBothFail(t *testing.T) {
	source, _, _ := newFallbackUnderTest(t,
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"primary down"}`, http.StatusBadGateway)
		},
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"secondary down"}`, http.StatusServiceUnavailable)
		},
	)

	_, err := source.GetFund(context.Background(), "Growth Fund", models.TextFilters{})
	if err == nil {
		t.Fatal("expected error when both sources fail")
	}
	var fetchErr *models.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if fetchErr.Kind != models.ErrorProtocol {
		t.Fatalf("expected protocol error, got %s", fetchErr.Kind)
	}
	if fetchErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected primary status 502 surfaced, got %d", fetchErr.StatusCode)
	}
}

func TestFallbackSkipsSecondaryOnCancelledContext(t *testing.T) {
	v1Calls := 0
	source, _, _ := newFallbackUnderTest(t,
		func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		},
		func(w http.ResponseWriter, r *http.Request) {
			v1Calls++
			writeOverview(w, "Fallback Client")
		},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := source.GetOverview(ctx, models.TextFilters{})
	if err == nil {
		t.Fatal("expected error on cancelled context")
	}
	if v1Calls != 0 {
		t.Fatalf("secondary should not run after cancellation, got %d calls", v1Calls)
	}
}

func TestFallbackByDatePath(t *testing.T) {
	var gotPath string
	source, _, _ := newFallbackUnderTest(t,
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"unavailable"}`, http.StatusServiceUnavailable)
		},
		func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			writeOverview(w, "Dated Client")
		},
	)

	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	if _, err := source.GetByDate(context.Background(), date, models.TextFilters{}); err != nil {
		t.Fatalf("GetByDate: %v", err)
	}
	if gotPath != "/api/date/2025-06-30" {
		t.Fatalf("unexpected fallback path %q", gotPath)
	}
}
