package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"exohunt/internal/config"
	"exohunt/internal/logging"
	"exohunt/internal/runctl"
	"exohunt/internal/services"
	"exohunt/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", "invalid configuration", err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// quietLogger builds a stderr logger for read-only commands so stdout stays
// free for tables and JSON.
func (c *commandContext) quietLogger() *slog.Logger {
	cfg := c.configValue()
	opts := logging.Options{Level: "warn", Format: "console", OutputPaths: []string{"stderr"}}
	if cfg != nil {
		opts.Format = cfg.Logging.Format
	}
	logger, err := logging.New(opts)
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// runSession holds what a pipeline command needs for one run: the run lock,
// a per-run logger and the cancellation controller.
type runSession struct {
	cfg    *config.Config
	runID  string
	logger *slog.Logger
	runLog *logging.RunLog
	ctrl   *runctl.Controller
	lock   *runctl.RunLock
}

func (c *commandContext) startRun(cmd *cobra.Command, stage string) (*runSession, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	lock, err := runctl.AcquireLock(cfg.LockPath())
	if err != nil {
		if errors.Is(err, runctl.ErrLocked) {
			return nil, fmt.Errorf("%w; wait for the other run to finish", err)
		}
		return nil, err
	}

	runID := uuid.NewString()
	logger, runLog, err := logging.NewRunLogger(cfg, runID)
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String(logging.FieldStage, stage))

	if removed := logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: "exohunt-*.log",
		Exclude: []string{runLog.Path},
	}); removed > 0 {
		logger.Debug("pruned old run logs", logging.Int("removed", removed))
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	parent = services.WithStage(services.WithRunID(parent, runID), stage)
	ctrl := runctl.New(parent, runctl.OptionsFromConfig(cfg), logger)
	ctrl.Start()

	logger.Info("run started",
		logging.String("config", c.configPath()),
		logging.String("data_dir", cfg.Paths.DataDir),
		logging.String(logging.FieldEventType, "run_started"),
	)
	return &runSession{
		cfg:    cfg,
		runID:  runID,
		logger: logger,
		runLog: runLog,
		ctrl:   ctrl,
		lock:   lock,
	}, nil
}

func (s *runSession) Context() context.Context {
	return s.ctrl.Context()
}

func (s *runSession) Close() {
	s.ctrl.Stop()
	if err := s.lock.Release(); err != nil {
		s.logger.Warn("release run lock failed", logging.Error(err))
	}
	_ = s.runLog.Close()
}

// openIndex opens the processed-file index unless run.use_index is off, in
// which case it returns nil.
func openIndex(cfg *config.Config) (*store.Store, error) {
	if !cfg.Run.UseIndex {
		return nil, nil
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return st, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
