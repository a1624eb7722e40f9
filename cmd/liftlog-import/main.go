package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/claude/liftlog/internal/classify"
	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/importer"
	"github.com/claude/liftlog/internal/journal"
	"github.com/claude/liftlog/internal/storage"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	logPath := flag.String("path", "", "directory of .txt/.log/.json workout logs (required)")
	dryRun := flag.Bool("dry-run", false, "parse and count without writing to storage")
	flag.Parse()

	if *logPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftlog-import [-config config.yaml] -path /path/to/logs [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := cfg.Log.Logger(os.Stdout)

	info, err := os.Stat(*logPath)
	if err != nil || !info.IsDir() {
		log.Error("log path does not exist or is not a directory", "path", *logPath)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var target importer.Target
	if *dryRun {
		log.Info("DRY RUN mode: nothing will be written to storage")
	} else {
		store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.Path, cfg.Database.DSN())
		if err != nil {
			log.Error("failed to open storage", "error", err)
			os.Exit(1)
		}
		defer store.Close()

		classifier := classify.Default()
		if cfg.Classifier.Table != "" {
			if classifier, err = classify.LoadFile(cfg.Classifier.Table); err != nil {
				log.Error("failed to load muscle table", "error", err)
				os.Exit(1)
			}
		}

		j := journal.New(store, classifier, journal.Options{Key: cfg.Storage.Key}, log)
		if err := j.Load(ctx); err != nil {
			log.Error("failed to load sessions", "error", err)
			os.Exit(1)
		}
		target = j
	}

	imp := importer.New(target, log, *dryRun)
	stats, err := imp.Import(ctx, *logPath)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"sessions_received", stats.SessionsReceived,
		"sets_received", stats.SetsReceived,
		"sessions_added", stats.SessionsAdded,
		"sessions_replaced", stats.SessionsReplaced,
	)
	if len(stats.ErroredFiles) > 0 {
		log.Info("files with errors", "files", stats.ErroredFiles)
	}
}
