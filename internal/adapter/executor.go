package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

const (
	// CoverageEnvVar tells the target where to write its block trace.
	CoverageEnvVar = "COV_PATH"
	// CoverageFileName is the trace file the target writes inside CoverageEnvVar.
	CoverageFileName = "cov.cov"

	programFileName = "program.js"
	maxOutputBytes  = 64 << 10
)

// Executor runs a program against the target and reports what happened.
// Execute blocks until the target exits or the profile timeout expires.
type Executor interface {
	Execute(ctx context.Context, program *m.Program, purpose m.Purpose) (m.Execution, error)
}

// ProcessExecutor runs the target binary once per program. Each instance
// owns a private work directory and must be used by one worker only.
type ProcessExecutor struct {
	profile     Profile
	programPath string
	coverageDir string
	metrics     Metrics
}

// NewProcessExecutor prepares workDir and returns an executor for profile.
func NewProcessExecutor(profile Profile, workDir string, metrics Metrics) (*ProcessExecutor, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	coverageDir := filepath.Join(workDir, "cov")
	if err := os.MkdirAll(coverageDir, 0o750); err != nil {
		return nil, fmt.Errorf("create executor work dir: %w", err)
	}

	if metrics == nil {
		metrics = NopMetrics{}
	}

	return &ProcessExecutor{
		profile:     profile,
		programPath: filepath.Join(workDir, programFileName),
		coverageDir: coverageDir,
		metrics:     metrics,
	}, nil
}

// CoverageFile returns the path the target writes its trace to.
func (e *ProcessExecutor) CoverageFile() string {
	return filepath.Join(e.coverageDir, CoverageFileName)
}

// Execute writes the program as a JavaScript script to the work directory
// and runs the target on it. Errors are returned only when the target cannot be run at
// all; target failures are reported through the outcome.
func (e *ProcessExecutor) Execute(ctx context.Context, program *m.Program, purpose m.Purpose) (m.Execution, error) {
	if err := os.WriteFile(e.programPath, []byte(e.profile.Script(program)), 0o600); err != nil {
		return m.Execution{}, fmt.Errorf("write program: %w", err)
	}

	coverageFile := e.CoverageFile()
	if err := os.Remove(coverageFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return m.Execution{}, fmt.Errorf("remove stale trace: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.profile.Timeout())
	defer cancel()

	cmd := e.command(runCtx)

	var output bytes.Buffer

	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	outcome, err := classifyRun(runCtx, runErr, cmd.ProcessState)
	if err != nil {
		slog.Error("Failed to run target", "binary", e.profile.Binary, "error", err)
		return m.Execution{}, fmt.Errorf("run target %s: %w", e.profile.Binary, err)
	}

	e.metrics.ObserveExecution(purpose, outcome, elapsed)

	out := output.Bytes()
	if len(out) > maxOutputBytes {
		out = out[len(out)-maxOutputBytes:]
	}

	return m.Execution{
		Outcome:      outcome,
		Purpose:      purpose,
		ExecTime:     elapsed,
		Output:       string(out),
		CoverageFile: coverageFile,
	}, nil
}

func (e *ProcessExecutor) command(ctx context.Context) *exec.Cmd {
	args := append(append([]string{}, e.profile.Args...), e.programPath)

	cmd := exec.CommandContext(ctx, e.profile.Binary, args...)
	cmd.Env = append(os.Environ(), CoverageEnvVar+"="+e.coverageDir)

	for key, value := range e.profile.Env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	// The target runs in its own process group so a timeout also kills
	// anything it spawned.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = 100 * time.Millisecond

	return cmd
}

// classifyRun maps the result of running the target to an outcome. A
// target whose children keep its output open past WaitDelay is judged by
// its own exit status.
func classifyRun(ctx context.Context, runErr error, state *os.ProcessState) (m.Outcome, error) {
	if runErr == nil {
		return m.Succeeded, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return m.TimedOut, nil
	}

	if errors.Is(runErr, exec.ErrWaitDelay) && state != nil {
		return outcomeOf(state), nil
	}

	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		return m.Failed, runErr
	}

	return outcomeOf(exitErr.ProcessState), nil
}

func outcomeOf(state *os.ProcessState) m.Outcome {
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return m.Crashed
	}

	if state.Success() {
		return m.Succeeded
	}

	return m.Failed
}
