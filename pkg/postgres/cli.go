package postgres

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pgraft/pgraft/pkg/pgerrors"
)

// CLIController drives a local PostgreSQL instance via pg_ctl, psql, and
// pg_basebackup subprocess invocation.
type CLIController struct {
	DataDir string
	Port    int

	// PreV12 selects recovery.conf instead of postgresql.auto.conf +
	// standby.signal for WriteRecoveryConfig, per the version branch named
	// in the streaming-setup contract.
	PreV12 bool
}

// NewCLIController builds a controller for the PostgreSQL instance rooted
// at dataDir listening on port.
func NewCLIController(dataDir string, port int) *CLIController {
	return &CLIController{DataDir: dataDir, Port: port}
}

func (c *CLIController) run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		return stdout.String(), fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

// Start starts the PostgreSQL server for DataDir.
func (c *CLIController) Start(ctx context.Context) error {
	_, err := c.run(ctx, "pg_ctl", "start", "-D", c.DataDir, "-w")
	return err
}

// Stop stops the PostgreSQL server, best-effort if force is true.
func (c *CLIController) Stop(ctx context.Context, force bool) error {
	mode := "fast"
	if force {
		mode = "immediate"
	}
	_, err := c.run(ctx, "pg_ctl", "stop", "-D", c.DataDir, "-m", mode, "-w")
	if err != nil && force {
		return nil
	}
	return err
}

// Promote ends recovery mode, turning a standby into a primary.
func (c *CLIController) Promote(ctx context.Context) error {
	_, err := c.run(ctx, "pg_ctl", "promote", "-D", c.DataDir, "-w")
	if err != nil {
		return fmt.Errorf("%v: %w", err, pgerrors.PromotionFailed)
	}
	return nil
}

// Status reports whether the server is running and its recovery state.
func (c *CLIController) Status(ctx context.Context) (Status, error) {
	_, err := c.run(ctx, "pg_ctl", "status", "-D", c.DataDir)
	if err != nil {
		return Status{}, nil // pg_ctl exits non-zero when not running; not an error for us
	}

	out, err := c.run(ctx, "psql", "-h", "127.0.0.1", "-p", fmt.Sprintf("%d", c.Port), "-U", "postgres", "-tAc", "select pg_is_in_recovery()")
	if err != nil {
		return Status{Running: true, AcceptsConnections: false}, nil
	}
	inRecovery := strings.TrimSpace(out) == "t"
	return Status{Running: true, AcceptsConnections: true, IsInRecovery: inRecovery}, nil
}

// Basebackup takes a physical copy of primaryConnInfo's data directory into
// DataDir.
func (c *CLIController) Basebackup(ctx context.Context, primaryConnInfo string) error {
	_, err := c.run(ctx, "pg_basebackup", "-D", c.DataDir, "-d", primaryConnInfo, "-R", "-P")
	if err != nil {
		return fmt.Errorf("%v: %w", err, pgerrors.BasebackupFailed)
	}
	return nil
}

// WriteRecoveryConfig writes the version-appropriate recovery configuration
// into DataDir: recovery.conf pre-12, postgresql.auto.conf + standby.signal
// from 12 on.
func (c *CLIController) WriteRecoveryConfig(ctx context.Context, cfg RecoveryConfig) error {
	lines := []string{
		fmt.Sprintf("primary_conninfo = '%s'", cfg.PrimaryConnInfo),
	}
	if cfg.RecoveryTargetTimeline != "" {
		lines = append(lines, fmt.Sprintf("recovery_target_timeline = '%s'", cfg.RecoveryTargetTimeline))
	}

	if c.PreV12 {
		if cfg.PromoteTriggerFile != "" {
			lines = append(lines, fmt.Sprintf("trigger_file = '%s'", cfg.PromoteTriggerFile))
		}
		path := filepath.Join(c.DataDir, "recovery.conf")
		return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600)
	}

	autoConfPath := filepath.Join(c.DataDir, "postgresql.auto.conf")
	existing, _ := os.ReadFile(autoConfPath)
	content := string(existing) + "\n" + strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(autoConfPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("%v: %w", err, pgerrors.RecoveryConfigFailed)
	}

	signalPath := filepath.Join(c.DataDir, "standby.signal")
	if err := os.WriteFile(signalPath, nil, 0o600); err != nil {
		return fmt.Errorf("%v: %w", err, pgerrors.RecoveryConfigFailed)
	}
	return nil
}

// ReloadConfig asks a running server to reload its configuration.
func (c *CLIController) ReloadConfig(ctx context.Context) error {
	_, err := c.run(ctx, "pg_ctl", "reload", "-D", c.DataDir)
	return err
}

// SetSynchronousStandbyNames updates the synchronous_standby_names GUC via
// ALTER SYSTEM and reloads configuration.
func (c *CLIController) SetSynchronousStandbyNames(ctx context.Context, value string) error {
	sql := fmt.Sprintf("alter system set synchronous_standby_names = '%s'", value)
	if _, err := c.run(ctx, "psql", "-h", "127.0.0.1", "-p", fmt.Sprintf("%d", c.Port), "-U", "postgres", "-c", sql); err != nil {
		return err
	}
	return c.ReloadConfig(ctx)
}

// WipeDataDir removes DataDir's contents, the precursor to a
// basebackup-driven rebuild.
func (c *CLIController) WipeDataDir(ctx context.Context) error {
	entries, err := os.ReadDir(c.DataDir)
	if err != nil {
		return fmt.Errorf("reading data dir %s: %w", c.DataDir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.DataDir, e.Name())); err != nil {
			return fmt.Errorf("wiping %s: %w", e.Name(), err)
		}
	}
	return nil
}
