package cmd

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mlbb-ai/coach/internal/app"
	"github.com/mlbb-ai/coach/internal/ingest"
	"github.com/mlbb-ai/coach/internal/knowledge"
)

// runIngest indexes guide HTML files into one knowledge partition.
func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	partitionFlag := fs.String("partition", "", "target partition: heroes, equipment, or tactics")
	lockPath := fs.String("lock", "", "lock file path (default: system temp)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing ingest flags: %w", err)
	}

	partition := knowledge.Partition(*partitionFlag)
	if !partition.Valid() {
		return fmt.Errorf("invalid -partition %q (heroes, equipment, or tactics)", *partitionFlag)
	}
	files := fs.Args()
	if len(files) == 0 {
		return fmt.Errorf("usage: mlbb-coach ingest -partition name <file.html ...>")
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("ingest requires a database: set COACH_POSTGRES_DSN")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	runner := ingest.NewRunner(a.Knowledge, *lockPath, logger)
	stats, err := runner.Run(ctx, partition, files)
	if err != nil {
		return fmt.Errorf("ingesting: %w", err)
	}

	total, err := a.Knowledge.Count(ctx, partition)
	if err != nil {
		return fmt.Errorf("counting partition: %w", err)
	}

	fmt.Printf("Indexed %d documents from %d files into %s (%d passages total)\n",
		stats.Documents, stats.Files, partition, total)
	return nil
}
