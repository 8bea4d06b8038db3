// Package shell executes approved actions against the host: shell
// commands, file writes and deletes, and package operations.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/warden/internal/agent"
	"github.com/haasonsaas/warden/internal/observability"
)

const (
	defaultTimeout   = 2 * time.Minute
	defaultMaxOutput = 64000
)

// Config tunes the runner.
type Config struct {
	// Timeout bounds each command. Zero means the default of two
	// minutes.
	Timeout time.Duration

	// MaxOutput caps captured stdout and stderr, each. Zero means the
	// default of 64 KB.
	MaxOutput int

	// BackupDir receives pre-delete copies of files. Zero value means
	// a .warden-trash directory under the user's home.
	BackupDir string
}

// Runner executes actions with a per-command timeout and bounded output
// capture. It implements agent.Runner.
type Runner struct {
	config Config
	logger *observability.Logger
}

// NewRunner creates a host runner.
func NewRunner(config Config, logger *observability.Logger) *Runner {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxOutput <= 0 {
		config.MaxOutput = defaultMaxOutput
	}
	if config.BackupDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			config.BackupDir = filepath.Join(home, ".warden-trash")
		} else {
			config.BackupDir = filepath.Join(os.TempDir(), "warden-trash")
		}
	}
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Runner{config: config, logger: logger.WithComponent("shell")}
}

// Run dispatches an action to the matching executor.
func (r *Runner) Run(ctx context.Context, action *agent.Action) (string, error) {
	switch action.Kind {
	case agent.ActionCommand:
		return r.runCommand(ctx, action.Command)
	case agent.ActionFileWrite:
		return r.writeFile(action.Path, action.Content)
	case agent.ActionFileDelete:
		return r.deleteFile(action.Path)
	case agent.ActionPackage:
		return r.managePackage(ctx, action.PkgAction, action.Package)
	}
	return "", fmt.Errorf("unsupported action kind %q", action.Kind)
}

func (r *Runner) runCommand(ctx context.Context, command string) (string, error) {
	if command == "" {
		return "", fmt.Errorf("command is required")
	}

	runCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", command)
	stdout := newLimitedBuffer(r.config.MaxOutput)
	stderr := newLimitedBuffer(r.config.MaxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	r.logger.Debug(ctx, "command finished",
		"command", command, "exit_code", exitCode(err), "duration", time.Since(start))

	if runCtx.Err() == context.DeadlineExceeded {
		return stdout.String(), fmt.Errorf("command timed out after %s", r.config.Timeout)
	}
	if err != nil {
		out := stderr.String()
		if out == "" {
			out = stdout.String()
		}
		return stdout.String(), fmt.Errorf("command failed (exit %d): %s", exitCode(err), strings.TrimSpace(out))
	}
	return stdout.String(), nil
}

func (r *Runner) writeFile(path, content string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(content), path), nil
}

// deleteFile copies the file into the backup directory before removing
// it, so a confirmed delete is still reversible.
func (r *Runner) deleteFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory, not a file", path)
	}

	backup, err := r.backup(path)
	if err != nil {
		return "", fmt.Errorf("backup before delete: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("delete %s: %w", path, err)
	}
	return fmt.Sprintf("Deleted %s (backup at %s)", path, backup), nil
}

func (r *Runner) backup(path string) (string, error) {
	if err := os.MkdirAll(r.config.BackupDir, 0o700); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s.%d", filepath.Base(path), time.Now().UnixNano())
	dst := filepath.Join(r.config.BackupDir, name)

	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		os.Remove(dst)
		return "", err
	}
	return dst, nil
}

func (r *Runner) managePackage(ctx context.Context, action, pkg string) (string, error) {
	switch action {
	case "install":
		return r.runCommand(ctx, "apt-get install -y "+pkg)
	case "remove":
		return r.runCommand(ctx, "apt-get remove -y "+pkg)
	}
	return "", fmt.Errorf("unsupported package action %q", action)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

// limitedBuffer caps captured output so a chatty command cannot exhaust
// memory.
type limitedBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newLimitedBuffer(max int) *limitedBuffer {
	return &limitedBuffer{max: max}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max > 0 && len(b.buf) >= b.max {
		return len(p), nil
	}
	remaining := b.max - len(b.buf)
	if b.max > 0 && len(p) > remaining {
		b.buf = append(b.buf, p[:remaining]...)
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
