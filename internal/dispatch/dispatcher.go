package dispatch

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/pushgate/internal/execlog"
	"github.com/mattjoyce/pushgate/internal/hook"
	"github.com/mattjoyce/pushgate/internal/log"
	"github.com/mattjoyce/pushgate/internal/metrics"
)

const (
	// maxCaptureBytes caps captured stdout and stderr per hook.
	maxCaptureBytes = 64 * 1024

	// terminationGracePeriod is the wait after SIGTERM before SIGKILL.
	terminationGracePeriod = 5 * time.Second
)

// ExecutionResult is one hook's recorded outcome.
type ExecutionResult struct {
	Hook     string
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Skipped  bool
	Duration time.Duration
}

// outcome returns the metrics label for this result.
func (r ExecutionResult) outcome() string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.TimedOut:
		return "timeout"
	case r.ExitCode != 0:
		return "failed"
	default:
		return "ok"
	}
}

// Dispatcher executes the immutable hook set for accepted pushes.
type Dispatcher struct {
	hooks   []hook.Hook
	execLog *execlog.Log
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Dispatcher.
func New(hooks []hook.Hook, execLog *execlog.Log, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		hooks:   hooks,
		execLog: execLog,
		timeout: timeout,
		logger:  log.WithComponent("dispatch"),
	}
}

// Dispatch runs every hook once with the branch as its argument. No lock is
// held while subprocesses run; only the per-hook execution log write is
// serialized.
func (d *Dispatcher) Dispatch(ctx context.Context, branch string) []ExecutionResult {
	cycleLogger := log.WithDispatch(uuid.NewString()).With("branch", branch)
	cycleLogger.Info("dispatch cycle starting", "hooks", len(d.hooks))

	results := make([]ExecutionResult, 0, len(d.hooks))
	for _, h := range d.hooks {
		res := d.runHook(ctx, h, branch, cycleLogger.With("hook", h.Name))
		results = append(results, res)

		metrics.HookExecutions.WithLabelValues(res.outcome()).Inc()
		metrics.HookDuration.Observe(res.Duration.Seconds())

		if err := d.execLog.Set(ctx, execlog.Record{
			Hook:     h.Name,
			Branch:   branch,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			At:       time.Now(),
		}); err != nil {
			cycleLogger.Error("failed to persist execution record", "error", err)
		}
	}

	cycleLogger.Info("dispatch cycle complete")
	return results
}

// runHook executes a single hook subprocess with output capture, exit
// status recording and timeout enforcement.
func (d *Dispatcher) runHook(ctx context.Context, h hook.Hook, branch string, logger *slog.Logger) ExecutionResult {
	start := time.Now()

	// A hook that changed on disk since discovery is not the hook the
	// operator installed. Refuse to run it.
	if err := h.Verify(); err != nil {
		logger.Error("hook skipped", "error", err)
		return ExecutionResult{
			Hook:     h.Name,
			ExitCode: -1,
			Stderr:   err.Error(),
			Skipped:  true,
			Duration: time.Since(start),
		}
	}

	timeoutTimer := time.NewTimer(d.timeout)
	defer timeoutTimer.Stop()

	// Termination is managed explicitly below, so no CommandContext.
	cmd := exec.Command(h.Path, branch)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("spawning hook", "path", h.Path, "timeout", d.timeout)

	if err := cmd.Start(); err != nil {
		logger.Error("hook spawn failed", "error", err)
		return ExecutionResult{
			Hook:     h.Name,
			ExitCode: -1,
			Stderr:   err.Error(),
			Duration: time.Since(start),
		}
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	var (
		timedOut bool
		exitCode int
	)

	select {
	case <-timeoutTimer.C:
		timedOut = true
		logger.Warn("hook timed out, sending SIGTERM", "timeout", d.timeout)
		if cmd.Process != nil {
			if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
				logger.Error("failed to send SIGTERM", "error", err)
			}
		}

		grace := time.NewTimer(terminationGracePeriod)
		defer grace.Stop()

		select {
		case <-waitErr:
			logger.Info("hook exited after SIGTERM")
		case <-grace.C:
			logger.Warn("hook did not exit after SIGTERM, sending SIGKILL")
			if cmd.Process != nil {
				if err := cmd.Process.Kill(); err != nil {
					logger.Error("failed to send SIGKILL", "error", err)
				}
			}
			<-waitErr
		}
		exitCode = -1

	case err := <-waitErr:
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else if err != nil {
			logger.Error("wait for hook failed", "error", err)
			exitCode = -1
		}
	}

	res := ExecutionResult{
		Hook:     h.Name,
		ExitCode: exitCode,
		Stdout:   truncate(stdout.String()),
		Stderr:   truncate(stderr.String()),
		TimedOut: timedOut,
		Duration: time.Since(start),
	}

	// Non-zero exit is reported, not escalated: the push stays accepted
	// and the remaining hooks still run.
	if res.ExitCode != 0 {
		logger.Error("hook failed",
			"exit_code", res.ExitCode,
			"timed_out", res.TimedOut,
			"stderr", res.Stderr,
		)
	} else {
		logger.Info("hook succeeded", "duration_ms", res.Duration.Milliseconds())
	}

	return res
}

// truncate caps captured output at maxCaptureBytes.
func truncate(s string) string {
	if len(s) <= maxCaptureBytes {
		return s
	}
	return s[:maxCaptureBytes] + "\n...[truncated]"
}
