package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"songrank/internal/config"
	"songrank/internal/engine"
	"songrank/internal/logging"
	"songrank/internal/remote"
	"songrank/internal/session"
	"songrank/internal/snapshot"
)

type commandContext struct {
	configFlag  *string
	jsonFlag    *bool
	verboseFlag *bool

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, jsonFlag, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		jsonFlag:    jsonFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// loggerFor builds the command logger once. A logger that cannot open its
// file degrades to console-only output rather than failing the command.
func (c *commandContext) loggerFor(cmd *cobra.Command) *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		console := cmd.ErrOrStderr()
		if c.verboseFlag == nil || !*c.verboseFlag {
			console = nil
		}
		logger, err := logging.NewFromConfig(cfg, console)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			logger = logging.NewNop()
		}
		logging.PruneFromConfig(logger, cfg)
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) openSession() (*session.Session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	sess, err := session.Open(session.NewFileStore(cfg.SessionPath()), cfg.Session.DefaultRanking)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return sess, nil
}

// workspace bundles everything a list command needs.
type workspace struct {
	cfg       *config.Config
	logger    *slog.Logger
	session   *session.Session
	client    *remote.Client
	snapshots *snapshot.Store
	engine    *engine.Engine
}

func (w *workspace) Close() {
	if w.snapshots != nil {
		_ = w.snapshots.Close()
	}
}

func (c *commandContext) openWorkspace(cmd *cobra.Command) (*workspace, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.loggerFor(cmd)
	sess, err := c.openSession()
	if err != nil {
		return nil, err
	}
	client, err := remote.New(cfg, sess, logger)
	if err != nil {
		return nil, err
	}
	snapshots, err := snapshot.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	eng, err := engine.New(client, sess, logger, engine.WithRecorder(snapshots))
	if err != nil {
		_ = snapshots.Close()
		return nil, err
	}
	return &workspace{
		cfg:       cfg,
		logger:    logger,
		session:   sess,
		client:    client,
		snapshots: snapshots,
		engine:    eng,
	}, nil
}

// withWorkspace opens a workspace, loads the selected ranking when load is
// set, and runs fn.
func (c *commandContext) withWorkspace(cmd *cobra.Command, load bool, fn func(*workspace) error) error {
	ws, err := c.openWorkspace(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()
	if load {
		if err := ws.engine.Load(cmd.Context()); err != nil {
			return err
		}
	}
	return fn(ws)
}

// withEditLock serialises commands that change a list across processes.
func (c *commandContext) withEditLock(fn func() error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	lock, err := session.AcquireEditLock(cfg.LockPath())
	if err != nil {
		if errors.Is(err, session.ErrLocked) {
			return fmt.Errorf("%w (lock file %s)", err, cfg.LockPath())
		}
		return err
	}
	defer lock.Release()
	return fn()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
