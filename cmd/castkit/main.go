package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/castkit/castkit/internal/config"
	"github.com/castkit/castkit/internal/controller"
	"github.com/castkit/castkit/internal/engine"
	"github.com/castkit/castkit/internal/log"
	"github.com/castkit/castkit/internal/provider"
	"github.com/castkit/castkit/internal/store"
	"github.com/castkit/castkit/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Parse()

	if showVersion {
		fmt.Printf("castkit %s\n", Version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.SetupLogger(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting castkit", "version", Version)

	if !cfg.IsConfigured() {
		return fmt.Errorf("no feed configured: set feed.url in the config file or CASTKIT_FEED_URL")
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("castkit requires an interactive terminal")
	}

	// Open persistence, falling back to memory-only when the DB file is
	// unavailable (locked by another instance, unwritable path).
	db, err := store.Open(cfg.Storage.Path, cfg.Storage.Prefix, logger)
	if err != nil {
		logger.Warn("falling back to in-memory storage", "path", cfg.Storage.Path, "error", err)
		db, err = store.Open("", cfg.Storage.Prefix, logger)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
	}
	defer db.Close()

	positions := store.NewPositionStore(db, cfg.Storage.MaxPositions)
	states := store.NewStateStore(db)
	cache := store.NewFeedCache(db)

	feed := provider.New(cfg.Feed.URL, cache, cfg.Feed.CacheTTL, cfg.Feed.Timeout, logger)

	eng := engine.NewBeep(cfg.Playback.SkipStep, logger)
	defer eng.Close()

	ctrl := controller.New(eng, feed, positions, states, cfg.Playback.SaveInterval, logger)
	defer ctrl.Close()

	model := tui.NewModel(ctrl, eng)

	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI")
	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}
