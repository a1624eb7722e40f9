package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/claude/liftlog/internal/classify"
	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/journal"
	liftmcp "github.com/claude/liftlog/internal/mcp"
	"github.com/claude/liftlog/internal/storage"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// liftlog-mcp serves MCP over stdio. With -server it forwards every call to
// a running LiftLog server; otherwise it opens the configured storage.
func main() {
	configPath := flag.String("config", "", "path to config file (local mode)")
	serverURL := flag.String("server", "", "LiftLog server URL for remote mode")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	// stdout carries the protocol.
	log := cfg.Log.Logger(os.Stderr)

	var ds liftmcp.DataSource
	if *serverURL != "" {
		ds = liftmcp.NewHTTPClient(*serverURL)
		log.Info("remote mode", "server", *serverURL)
	} else {
		ctx := context.Background()
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

		j := journal.New(store, classifier, journal.Options{Key: cfg.Storage.Key, SeedDemo: cfg.SeedDemo}, log)
		if err := j.Load(ctx); err != nil {
			log.Error("failed to load sessions", "error", err)
			os.Exit(1)
		}
		ds = j
	}

	if err := mcpserver.ServeStdio(liftmcp.New(ds, Version, log)); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
