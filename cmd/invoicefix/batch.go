package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-corrector/internal/batch"
	"github.com/garyjia/invoice-corrector/internal/config"
	"github.com/garyjia/invoice-corrector/internal/reconcile"
	"github.com/garyjia/invoice-corrector/internal/report"
	"github.com/garyjia/invoice-corrector/internal/repository"
	"github.com/garyjia/invoice-corrector/internal/service"
	"github.com/garyjia/invoice-corrector/internal/storage"
	"github.com/garyjia/invoice-corrector/pkg/database"
)

type batchOptions struct {
	report    string
	outputDir string
	workers   int
}

func newBatchCmd(global *globalOptions) *cobra.Command {
	opts := &batchOptions{}

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Correct every invoice document of a directory",
		Long: `Correct every document of a directory matching batch.pattern. Outputs
go to storage.output_dir, one sub-directory per document, and every run
is recorded in the correction history database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(global.configPath)
			if err != nil {
				return err
			}
			if opts.outputDir != "" {
				cfg.Storage.OutputDir = opts.outputDir
			}
			if opts.workers > 0 {
				cfg.Batch.Workers = opts.workers
			}

			logger, err := global.logger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			return runBatch(cmd.Context(), cmd.OutOrStdout(), args[0], cfg, opts.report, logger)
		},
	}

	cmd.Flags().StringVar(&opts.report, "report", "", "write an Excel summary to this path")
	cmd.Flags().StringVarP(&opts.outputDir, "out", "o", "", "override storage.output_dir")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "override batch.workers")
	return cmd
}

func runBatch(ctx context.Context, out io.Writer, inputDir string, cfg *config.Config, reportPath string, logger *zap.Logger) error {
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.NewMigrator(db, logger).Run(database.Migrations()); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	svc := service.NewCorrectionService(
		reconcile.NewCorrector(),
		repository.NewCorrectionRepository(db.DB, logger),
		storage.NewLocalFileStorage(cfg.Storage.OutputDir, logger),
		logger,
	)

	items, err := batch.NewRunner(svc, cfg.Batch.Workers, cfg.Batch.Pattern, logger).Run(ctx, inputDir)
	if err != nil {
		return err
	}

	failed := 0
	for _, item := range items {
		name := filepath.Base(item.Path)
		switch {
		case item.Record == nil:
			fmt.Fprintf(out, "%-40s FAILED  %v\n", name, item.Err)
		case item.Failed():
			fmt.Fprintf(out, "%-40s %-12s %v\n", name, item.Record.Status, item.Err)
		default:
			fmt.Fprintf(out, "%-40s %-12s %s -> %s h\n", name, item.Record.Status,
				item.Record.OriginalHours.StringFixed(2), item.Record.CorrectedHours.StringFixed(2))
		}
		if item.Failed() {
			failed++
		}
	}
	fmt.Fprintf(out, "%d document(s), %d failed\n", len(items), failed)

	if reportPath != "" {
		if err := report.NewSummaryWriter(logger).WriteWorkbook(reportPath, items); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report:        %s\n", reportPath)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents could not be corrected", failed, len(items))
	}
	return nil
}
