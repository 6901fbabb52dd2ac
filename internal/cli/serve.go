package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tutu-network/ledger/internal/api"
	"github.com/tutu-network/ledger/internal/daemon"
	"github.com/tutu-network/ledger/internal/domain"
	"github.com/tutu-network/ledger/internal/infra/observability"
	"github.com/tutu-network/ledger/internal/infra/sqlite"
)

// ─── serve ──────────────────────────────────────────────────────────────────

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [INPUT_FILE]",
		Short: "Replay a log and serve the final balances over HTTP",
		Long: `Replay INPUT_FILE once, then serve the resulting account table read-only:

  GET /health
  GET /api/run
  GET /api/accounts[?locked=true]
  GET /api/accounts/{client}
  GET /metrics

With --from-db, serve a snapshot previously exported with --sqlite instead
of replaying a file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (default from config: 127.0.0.1:8088)")
	cmd.Flags().String("from-db", "", "Serve an exported SQLite snapshot instead of replaying")
	cmd.Flags().String("run", "", "Run id to load with --from-db (default: latest)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := daemon.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewReplayMetrics(reg)

	fromDB, _ := cmd.Flags().GetString("from-db")
	runID, _ := cmd.Flags().GetString("run")
	snap, id, err := loadServeSnapshot(args, fromDB, runID, cfg, log, metrics)
	if err != nil {
		return err
	}

	srv := api.NewServer(snap, cfg.Output.Places)
	srv.SetRunID(id)
	if cfg.Serve.Metrics {
		srv.EnableMetrics(reg)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return listenAndServe(ctx, cfg.Serve.Addr, srv.Handler(), log)
}

// loadServeSnapshot replays args[0] or loads an export, whichever was asked.
func loadServeSnapshot(args []string, fromDB, runID string, cfg daemon.Config, log *zap.Logger, metrics *observability.ReplayMetrics) (domain.Snapshot, string, error) {
	switch {
	case fromDB != "" && len(args) > 0:
		return nil, "", errors.New("pass either INPUT_FILE or --from-db, not both")
	case fromDB != "":
		db, err := sqlite.OpenExisting(fromDB)
		if err != nil {
			return nil, "", err
		}
		defer db.Close()
		if runID == "" {
			if runID, err = db.LatestRunID(); err != nil {
				return nil, "", fmt.Errorf("%s: %w", fromDB, err)
			}
		}
		snap, err := db.LoadAccounts(runID)
		return snap, runID, err
	case len(args) == 1:
		res, err := replayFile(args[0], cfg, log, metrics)
		if err != nil {
			return nil, "", err
		}
		return res.Snapshot, res.RunID, nil
	default:
		return nil, "", errors.New("serve needs INPUT_FILE or --from-db")
	}
}

// listenAndServe runs the HTTP server until ctx is cancelled, then drains
// in-flight requests.
func listenAndServe(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("serving ledger", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
