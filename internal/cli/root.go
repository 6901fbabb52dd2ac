// Package cli implements the ledger command line.
//
//	ledger [flags] INPUT_FILE      replay a CSV log, print accounts as CSV
//	ledger serve INPUT_FILE        replay, then serve the result over HTTP
//	ledger version
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tutu-network/ledger/internal/daemon"
	"github.com/tutu-network/ledger/internal/infra/csvio"
	"github.com/tutu-network/ledger/internal/infra/sqlite"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the full command tree. A fresh tree per call keeps flag
// state out of package globals.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ledger INPUT_FILE",
		Short: "Replay a transaction log and print final client balances",
		Long: `Replay a CSV log of deposits, withdrawals, disputes, resolutions and
chargebacks in file order, then print one CSV row per client:

  client,available,held,total,locked

Rows that cannot be parsed are skipped with a warning unless --strict is set.
Business-rule violations (insufficient funds, unknown transactions, locked
accounts) are silently ignored.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runReplay,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Path to a TOML config file")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.Bool("strict", false, "Fail on the first malformed input row")
	pf.Int32("places", -1, "Fractional digits printed for amounts")

	root.Flags().String("sqlite", "", "Also export the final snapshot to this SQLite file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// loadConfig reads --config and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command) (daemon.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := daemon.LoadConfig(path)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("strict") {
		cfg.Input.Strict, _ = flags.GetBool("strict")
	}
	if flags.Changed("places") {
		cfg.Output.Places, _ = flags.GetInt32("places")
	}
	if f := flags.Lookup("sqlite"); f != nil && f.Changed {
		cfg.Output.SQLitePath = f.Value.String()
	}
	if flags.Changed("addr") {
		cfg.Serve.Addr, _ = flags.GetString("addr")
	}
	return cfg, cfg.Validate()
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := daemon.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	res, err := replayFile(args[0], cfg, log, nil)
	if err != nil {
		return err
	}

	if err := csvio.NewWriter(cmd.OutOrStdout(), cfg.Output.Places).WriteSnapshot(res.Snapshot); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if cfg.Output.SQLitePath != "" {
		if err := exportSQLite(cfg.Output.SQLitePath, res); err != nil {
			return err
		}
		log.Info("exported snapshot", zap.String("run_id", res.RunID), zap.String("path", cfg.Output.SQLitePath))
	}
	return nil
}

func exportSQLite(path string, res *replayResult) error {
	db, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Sink(res.runInfo()).WriteSnapshot(res.Snapshot); err != nil {
		return fmt.Errorf("export sqlite: %w", err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ledger version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ledger %s\n", Version)
		},
	}
}
