package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/catalog"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/config"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/ingest"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/logging"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/worker"
)

type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  catalog.Store
	close  func()
}

func newRootCmd() *cobra.Command {
	var (
		a       app
		idMode  string
		workers int
	)

	root := &cobra.Command{
		Use:           "importer",
		Short:         "Load scraper batch files into the deal catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg = config.Load()
			if cmd.Flags().Changed("id-mode") {
				a.cfg.IDMode = idMode
			}
			if cmd.Flags().Changed("workers") {
				a.cfg.ImportWorkers = workers
			}

			logger, err := logging.New("importer", a.cfg.Env, a.cfg.LogLevel)
			if err != nil {
				return err
			}
			a.logger = logger

			res, err := catalog.NewStore(cmd.Context(), catalog.FactoryConfig{
				Backend:       a.cfg.StateBackend,
				MySQLDSN:      a.cfg.MySQLDSN,
				RunMigrations: a.cfg.RunMigrations,
				MigrationsDir: a.cfg.MigrationsDir,
			})
			if err != nil {
				return fmt.Errorf("catalog store init: %w", err)
			}
			a.store = res.Store
			a.close = func() {
				if res.DB != nil {
					_ = res.DB.Close()
				}
				_ = logger.Sync()
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.close != nil {
				a.close()
			}
		},
	}

	root.PersistentFlags().StringVar(&idMode, "id-mode", "source", "Id scheme: source or stable")
	root.PersistentFlags().IntVar(&workers, "workers", 4, "Files imported concurrently")

	root.AddCommand(newImportCmd(&a), newScheduleCmd(&a))
	return root
}

func (a *app) dirImporter() *ingest.DirImporter {
	im := ingest.NewImporter(a.store, ingest.ParseIDMode(a.cfg.IDMode), a.logger.Named("import"), nil)
	return ingest.NewDirImporter(im, a.cfg.ImportWorkers)
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import [dir|file]",
		Short: "Import one batch file or every batch file in a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.DataDir
			if len(args) == 1 {
				path = args[0]
			}

			info, err := os.Stat(path)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			di := a.dirImporter()

			var results []ingest.FileResult
			if info.IsDir() {
				results, err = di.ImportDir(ctx, path)
			} else {
				res, ferr := di.ImportFile(ctx, path)
				fr := ingest.FileResult{Path: path, Result: res}
				if ferr != nil {
					fr.Err = ferr.Error()
				}
				results = []ingest.FileResult{fr}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(results); encErr != nil {
				return encErr
			}
			if err != nil {
				return err
			}

			failed := 0
			for _, fr := range results {
				if fr.Err != "" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d batch files failed", failed, len(results))
			}
			return nil
		},
	}
}

func newScheduleCmd(a *app) *cobra.Command {
	var (
		schedule   string
		runOnStart bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Import the data directory on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if schedule == "" {
				schedule = a.cfg.ImportSchedule
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r := worker.Runner{
				Importer:   a.dirImporter(),
				Dir:        a.cfg.DataDir,
				Schedule:   schedule,
				RunOnStart: runOnStart,
				Logger:     a.logger.Named("worker"),
			}

			err := r.Run(ctx)
			if errors.Is(err, context.Canceled) {
				a.logger.Info("shutdown complete")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron spec; defaults to IMPORT_SCHEDULE, then hourly")
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", true, "Run one pass before waiting for the schedule")
	return cmd
}
