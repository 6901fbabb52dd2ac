package observability

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/tutu-network/ledger/internal/domain"
)

func TestReplayMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReplayMetrics(reg)

	m.Observe(domain.Deposit(1, 1, decimal.NewFromInt(1)), domain.Applied)
	m.Observe(domain.Deposit(1, 2, decimal.NewFromInt(1)), domain.Applied)
	m.Observe(domain.Dispute(1, 9), domain.Rejected(domain.RejectUnknownTx))

	if got := testutil.ToFloat64(m.Records.WithLabelValues("deposit", "applied")); got != 2 {
		t.Errorf("deposit/applied = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Records.WithLabelValues("dispute", "unknown_tx")); got != 1 {
		t.Errorf("dispute/unknown_tx = %v, want 1", got)
	}
}

func TestReplayMetrics_MalformedAndFinish(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReplayMetrics(reg)

	m.MalformedRow()
	m.MalformedRow()
	m.Finish(domain.Snapshot{{Client: 1}, {Client: 2, Locked: true}, {Client: 3}}, 20*time.Millisecond)

	if got := testutil.ToFloat64(m.Malformed); got != 2 {
		t.Errorf("malformed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Accounts); got != 3 {
		t.Errorf("accounts = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.Locked); got != 1 {
		t.Errorf("locked = %v, want 1", got)
	}

	expected := `
# HELP ledger_replay_locked_accounts Client accounts locked by a chargeback.
# TYPE ledger_replay_locked_accounts gauge
ledger_replay_locked_accounts 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "ledger_replay_locked_accounts"); err != nil {
		t.Error(err)
	}
	if n := testutil.CollectAndCount(m.Duration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestNewReplayMetrics_SeparateRegistries(t *testing.T) {
	// Registering twice on distinct registries must not panic.
	NewReplayMetrics(prometheus.NewRegistry())
	NewReplayMetrics(prometheus.NewRegistry())
}
