package cli

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutu-network/ledger/internal/app/ledger"
	"github.com/tutu-network/ledger/internal/daemon"
	"github.com/tutu-network/ledger/internal/domain"
	"github.com/tutu-network/ledger/internal/infra/csvio"
	"github.com/tutu-network/ledger/internal/infra/observability"
	"github.com/tutu-network/ledger/internal/infra/sqlite"
)

// replayResult is everything a command needs after a replay.
type replayResult struct {
	RunID     string
	Input     string
	Snapshot  domain.Snapshot
	Stats     ledger.Stats
	Malformed int
	Started   time.Time
	Finished  time.Time
}

func (r *replayResult) runInfo() sqlite.RunInfo {
	return sqlite.RunInfo{
		ID:         r.RunID,
		Input:      r.Input,
		StartedAt:  r.Started,
		FinishedAt: r.Finished,
		Records:    r.Stats.Records,
		Applied:    r.Stats.Applied,
		Rejected:   r.Stats.RejectedTotal(),
		Malformed:  int64(r.Malformed),
	}
}

// replayFile streams the CSV log at path through a fresh ledger.
// metrics may be nil.
func replayFile(path string, cfg daemon.Config, log *zap.Logger, metrics *observability.ReplayMetrics) (*replayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	res := &replayResult{
		RunID:   uuid.NewString(),
		Input:   path,
		Started: time.Now(),
	}
	log = log.With(zap.String("run_id", res.RunID))
	log.Info("replay started", zap.String("input", path), zap.Bool("strict", cfg.Input.Strict))

	readerOpts := []csvio.ReaderOption{
		csvio.WithStrict(cfg.Input.Strict),
		csvio.WithLogger(log),
	}
	ledgerOpts := []ledger.Option{ledger.WithLogger(log)}
	if metrics != nil {
		readerOpts = append(readerOpts, csvio.WithMalformedHook(func(*csvio.RecordError) { metrics.MalformedRow() }))
		ledgerOpts = append(ledgerOpts, ledger.WithObserver(metrics))
	}

	reader := csvio.NewReader(bufio.NewReader(f), readerOpts...)
	l := ledger.ProcessSeq(reader.Records(), ledgerOpts...)
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	res.Snapshot = l.Snapshot()
	res.Stats = l.Stats()
	res.Malformed = reader.Skipped()
	res.Finished = time.Now()
	if metrics != nil {
		metrics.Finish(res.Snapshot, res.Finished.Sub(res.Started))
	}

	log.Info("replay finished",
		zap.Int64("records", res.Stats.Records),
		zap.Int64("applied", res.Stats.Applied),
		zap.Int64("rejected", res.Stats.RejectedTotal()),
		zap.Int("malformed", res.Malformed),
		zap.Int("accounts", len(res.Snapshot)),
		zap.Duration("elapsed", res.Finished.Sub(res.Started)),
	)
	return res, nil
}
