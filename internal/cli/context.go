package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/forensic-lab/internal/application"
	"github.com/bryanwahyu/forensic-lab/internal/application/batch"
	"github.com/bryanwahyu/forensic-lab/internal/application/lifecycle"
	"github.com/bryanwahyu/forensic-lab/internal/domain/submission"
	"github.com/bryanwahyu/forensic-lab/internal/infra/apiclient"
	"github.com/bryanwahyu/forensic-lab/internal/infra/workspace"
	"github.com/bryanwahyu/forensic-lab/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	clock        application.Clock

	configOnce sync.Once
	config     Config
	configErr  error

	logOnce sync.Once
	logger  *zap.Logger
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		clock:        application.SystemClock{},
	}
}

func (c *commandContext) ensureConfig() (Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = LoadConfig(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) log() *zap.Logger {
	c.logOnce.Do(func() {
		level := c.config.LogLevel
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			level = *c.logLevelFlag
		}
		if level == "" {
			level = "warn"
		}
		l, err := logging.New(level, "console")
		if err != nil {
			l = zap.NewNop()
		}
		c.logger = l
	})
	return c.logger
}

func (c *commandContext) withWorkspace(ctx context.Context, fn func(*workspace.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	ws, err := workspace.Open(ctx, cfg.Workspace)
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}
	defer ws.Close()
	ws.SetFallbackModel(cfg.Model)
	if err := c.recoverInterrupted(ctx, ws); err != nil {
		return err
	}
	return fn(ws)
}

// recoverInterrupted fails submissions left analyzing by a process that
// died mid-call. A held lock means another process is still working, so its
// rows are left alone.
func (c *commandContext) recoverInterrupted(ctx context.Context, ws *workspace.Store) error {
	unlock, ok, err := ws.TryLock()
	if err != nil || !ok {
		return err
	}
	defer unlock()
	n, err := ws.ResetStuckAnalyzing(ctx, c.now())
	if err != nil {
		return err
	}
	if n > 0 {
		c.log().Info("reset interrupted submissions", zap.Int64("count", n))
	}
	return nil
}

// exclusive runs fn while holding the workspace lock.
func exclusive(ws *workspace.Store, fn func() error) error {
	unlock, ok, err := ws.TryLock()
	if err != nil {
		return err
	}
	if !ok {
		return batch.ErrBatchRunning
	}
	defer unlock()
	return fn()
}

func (c *commandContext) client() *apiclient.Client {
	return apiclient.New(c.config.ServerURL, c.config.RequestTimeout.Duration)
}

func (c *commandContext) runner(ws *workspace.Store) *lifecycle.Runner {
	return &lifecycle.Runner{
		Store:    ws,
		Settings: ws,
		Gateway:  c.client(),
		Clock:    c.clock,
		Log:      c.log().Named("lifecycle"),
	}
}

func (c *commandContext) orchestrator(ws *workspace.Store) *batch.Orchestrator {
	return &batch.Orchestrator{
		Runner: c.runner(ws),
		Lock:   ws,
		Log:    c.log().Named("batch"),
	}
}

func (c *commandContext) now() time.Time { return c.clock.Now() }

// resolveID accepts a full id or a unique prefix of one.
func resolveID(ctx context.Context, ws *workspace.Store, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("submission id is required")
	}
	subs, err := ws.List(ctx)
	if err != nil {
		return "", err
	}
	var match string
	for _, s := range subs {
		if s.ID == ref {
			return s.ID, nil
		}
		if strings.HasPrefix(s.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("id prefix %q is ambiguous", ref)
			}
			match = s.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", submission.ErrNotFound, ref)
	}
	return match, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
