package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/consultprep-dev/consultprep/internal/cases"
	"github.com/consultprep-dev/consultprep/internal/config"
	"github.com/consultprep-dev/consultprep/internal/interview"
	"github.com/consultprep-dev/consultprep/internal/interviewer"
	plog "github.com/consultprep-dev/consultprep/internal/log"
	"github.com/consultprep-dev/consultprep/internal/metrics"
	"github.com/consultprep-dev/consultprep/internal/session"
	"github.com/consultprep-dev/consultprep/internal/stats"
)

// diagLogFile receives diagnostics when --verbose is off.
const diagLogFile = "consultprep.log"

// workspace is everything a command needs, opened from one .consultprep/
// directory.
type workspace struct {
	root       string
	cfg        *config.Config
	logger     *zap.Logger
	library    *cases.Library
	store      *session.Store
	metrics    *metrics.Metrics
	controller *interview.Controller
}

// resolveRoot returns the --dir flag or the working directory.
func resolveRoot(opts *options) (string, error) {
	if opts.dir != "" {
		return opts.dir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return dir, nil
}

// loadConfig reads the config file and applies environment overrides.
func loadConfig(opts *options) (string, *config.Config, error) {
	root, err := resolveRoot(opts)
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.ReadConfig(root)
	if err != nil {
		return "", nil, err
	}
	cfg.ApplyEnv(opts.getenv)
	if err := cfg.Validate(); err != nil {
		return "", nil, fmt.Errorf("invalid config: %w", err)
	}
	return root, cfg, nil
}

// openWorkspace wires config, logging, storage and the interview
// controller. withController is false for read-only commands.
func openWorkspace(ctx context.Context, opts *options, withController bool) (*workspace, error) {
	root, cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	stateDir := filepath.Join(root, config.Dir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	level, logPath := cfg.LogLevel, filepath.Join(stateDir, diagLogFile)
	if opts.verbose {
		level, logPath = "debug", ""
	}
	logger, err := plog.NewZap(level, logPath)
	if err != nil {
		return nil, err
	}

	library, err := cases.Builtin()
	if err != nil {
		return nil, err
	}

	store, err := session.NewStore(filepath.Join(stateDir, session.DBFile))
	if err != nil {
		return nil, err
	}

	ws := &workspace{
		root:    root,
		cfg:     cfg,
		logger:  logger,
		library: library,
		store:   store,
		metrics: metrics.NewMetrics(),
	}
	if !withController {
		return ws, nil
	}

	journal, err := plog.NewLogger(stateDir)
	if err != nil {
		ws.Close()
		return nil, err
	}
	gen, err := interviewer.New(ctx, cfg, logger)
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("creating interviewer: %w", err)
	}

	ws.controller = interview.NewController(gen, store,
		interview.WithLogger(logger),
		interview.WithTimeout(cfg.Interviewer.TimeoutDuration()),
		interview.WithCandidate(cfg.Candidate.Name),
		interview.WithObserver(plog.NewJournal(journal, logger)),
		interview.WithObserver(ws.metrics.Observer()),
	)
	return ws, nil
}

func (w *workspace) statsOptions() stats.Options {
	return stats.Options{
		MinutesPerCase: w.cfg.History.MinutesPerCase,
		TrendWindow:    w.cfg.History.TrendWindow,
	}
}

// Close releases the store and flushes the logger.
func (w *workspace) Close() {
	if err := w.store.Close(); err != nil {
		w.logger.Warn("closing store", zap.Error(err))
	}
	_ = w.logger.Sync()
}
