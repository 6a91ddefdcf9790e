package provisioner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/EternisAI/vpn-admin-bot/internal/metrics"
)

const (
	DefaultTimeout    = 60 * time.Second
	DefaultCreateFlag = "--create"
	DefaultRemoveFlag = "--remove"

	// Time allowed for pipes to drain after the process is killed.
	waitDelay = 2 * time.Second
	// Longest diagnostic surfaced to the chat.
	maxDiagnostic = 1500
)

var (
	ErrToolNotFound = errors.New("provisioning tool not found or not executable")
	ErrToolTimeout  = errors.New("provisioning tool timed out")
)

type Op string

const (
	OpCreate Op = "create"
	OpRemove Op = "remove"
)

// Provisioner creates and removes VPN clients.
type Provisioner interface {
	Create(ctx context.Context, client string) error
	Remove(ctx context.Context, client string) error
}

type Config struct {
	Path        string        `mapstructure:"path"`
	CreateFlag  string        `mapstructure:"create_flag"`
	RemoveFlag  string        `mapstructure:"remove_flag"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

// ExecError reports a tool run that started but did not succeed.
type ExecError struct {
	Op     Op
	Client string
	Output string
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Op, e.Client, e.Cause())
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Cause is the tool's own diagnostic when it printed one. A timeout is
// always named, even after partial output.
func (e *ExecError) Cause() string {
	if e.Output != "" {
		if errors.Is(e.Err, ErrToolTimeout) {
			return e.Output + "\n" + e.Err.Error()
		}
		return e.Output
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Tool runs the external provisioning executable as
// "<path> <flag> <client>".
type Tool struct {
	path       string
	createFlag string
	removeFlag string
	timeout    time.Duration
}

func NewTool(cfg Config) *Tool {
	t := &Tool{
		path:       cfg.Path,
		createFlag: cfg.CreateFlag,
		removeFlag: cfg.RemoveFlag,
		timeout:    cfg.Timeout,
	}
	if t.createFlag == "" {
		t.createFlag = DefaultCreateFlag
	}
	if t.removeFlag == "" {
		t.removeFlag = DefaultRemoveFlag
	}
	if t.timeout <= 0 {
		t.timeout = DefaultTimeout
	}
	return t
}

func (t *Tool) Create(ctx context.Context, client string) error {
	return t.run(ctx, OpCreate, t.createFlag, client)
}

func (t *Tool) Remove(ctx context.Context, client string) error {
	return t.run(ctx, OpRemove, t.removeFlag, client)
}

func (t *Tool) run(ctx context.Context, op Op, flag, client string) error {
	path, err := t.lookPath()
	if err != nil {
		metrics.ToolRuns.WithLabelValues(string(op), "not_found").Inc()
		slog.Error("Provisioning tool unavailable", "path", t.path, "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, flag, client)
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)
	metrics.ToolDuration.WithLabelValues(string(op)).Observe(elapsed.Seconds())

	if runErr == nil {
		metrics.ToolRuns.WithLabelValues(string(op), "success").Inc()
		slog.Info("Provisioning tool succeeded", "op", op, "client", client, "duration", elapsed)
		return nil
	}

	if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, os.ErrPermission) {
		metrics.ToolRuns.WithLabelValues(string(op), "not_found").Inc()
		return fmt.Errorf("%w: %s: %v", ErrToolNotFound, t.path, runErr)
	}

	execErr := &ExecError{
		Op:     op,
		Client: client,
		Output: diagnostic(out.String()),
		Err:    runErr,
	}
	outcome := "failure"
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		execErr.Err = fmt.Errorf("%w after %s", ErrToolTimeout, t.timeout)
		outcome = "timeout"
	} else if ctx.Err() != nil {
		execErr.Err = ctx.Err()
		outcome = "cancelled"
	}
	metrics.ToolRuns.WithLabelValues(string(op), outcome).Inc()

	slog.Warn("Provisioning tool failed",
		"op", op,
		"client", client,
		"duration", elapsed,
		"outcome", outcome,
		"error", execErr)
	return execErr
}

func (t *Tool) lookPath() (string, error) {
	if t.path == "" {
		return "", fmt.Errorf("%w: no path configured", ErrToolNotFound)
	}
	path, err := exec.LookPath(t.path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrToolNotFound, t.path, err)
	}
	return path, nil
}

func diagnostic(output string) string {
	output = strings.ToValidUTF8(strings.TrimSpace(output), "\uFFFD")
	if len(output) <= maxDiagnostic {
		return output
	}
	// keep the tail, which is where scripts print their final error
	cut := len(output) - maxDiagnostic
	for cut < len(output) && !utf8.RuneStart(output[cut]) {
		cut++
	}
	return "..." + output[cut:]
}
