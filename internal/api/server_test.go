package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/tutu-network/ledger/internal/domain"
	"github.com/tutu-network/ledger/internal/infra/observability"
)

func testSnapshot() domain.Snapshot {
	return domain.Snapshot{
		{
			Client:    1,
			Available: decimal.RequireFromString("1.5"),
			Held:      decimal.Zero,
			Total:     decimal.RequireFromString("1.5"),
		},
		{
			Client:    2,
			Available: decimal.Zero,
			Held:      decimal.Zero,
			Total:     decimal.Zero,
			Locked:    true,
		},
	}
}

func do(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(t, NewServer(nil, 4).Handler(), "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestListAccounts(t *testing.T) {
	h := NewServer(testSnapshot(), 4).Handler()
	w := do(t, h, "/api/accounts")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Accounts []accountJSON `json:"accounts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Accounts) != 2 {
		t.Fatalf("accounts = %d, want 2", len(resp.Accounts))
	}
	if resp.Accounts[0].Available != "1.5000" || resp.Accounts[0].Total != "1.5000" {
		t.Errorf("account[0] = %+v", resp.Accounts[0])
	}

	w = do(t, h, "/api/accounts?locked=true")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Accounts) != 1 || resp.Accounts[0].Client != 2 {
		t.Errorf("locked filter = %+v", resp.Accounts)
	}
}

func TestGetAccount(t *testing.T) {
	h := NewServer(testSnapshot(), 2).Handler()

	w := do(t, h, "/api/accounts/2")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var a accountJSON
	if err := json.Unmarshal(w.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !a.Locked || a.Total != "0.00" {
		t.Errorf("account = %+v", a)
	}
}

func TestGetAccount_Errors(t *testing.T) {
	h := NewServer(testSnapshot(), 4).Handler()
	tests := []struct {
		path string
		want int
	}{
		{"/api/accounts/9", http.StatusNotFound},
		{"/api/accounts/abc", http.StatusBadRequest},
		{"/api/accounts/70000", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if w := do(t, h, tt.path); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRun(t *testing.T) {
	s := NewServer(testSnapshot(), 4)
	s.SetRunID("abc-123")
	w := do(t, s.Handler(), "/api/run")

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["run_id"] != "abc-123" || resp["accounts"] != float64(2) || resp["locked"] != float64(1) {
		t.Errorf("resp = %v", resp)
	}
}

func TestMetrics(t *testing.T) {
	s := NewServer(testSnapshot(), 4)
	if w := do(t, s.Handler(), "/metrics"); w.Code != http.StatusNotFound {
		t.Errorf("metrics disabled: status = %d, want 404", w.Code)
	}

	reg := prometheus.NewRegistry()
	m := observability.NewReplayMetrics(reg)
	m.Finish(testSnapshot(), 0)
	s.EnableMetrics(reg)

	w := do(t, s.Handler(), "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), "ledger_replay_locked_accounts 1") {
		t.Errorf("metrics body missing locked gauge:\n%s", body)
	}
}
