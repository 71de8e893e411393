package adapter

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

func shellProfile(script string) Profile {
	return Profile{
		Name:      "sh",
		Binary:    "/bin/sh",
		Args:      []string{"-c", script, "sh"},
		TimeoutMS: 2000,
	}
}

func sampleProgram(t *testing.T) *m.Program {
	t.Helper()

	b := m.NewProgramBuilder()
	v0 := b.Emit1(m.OpLoadInteger, "1")
	b.Emit1(m.OpGetProperty, "length", v0)

	p, err := b.Finalize()
	require.NoError(t, err)

	return p
}

func newShellExecutor(t *testing.T, profile Profile, metrics Metrics) *ProcessExecutor {
	t.Helper()

	executor, err := NewProcessExecutor(profile, t.TempDir(), metrics)
	require.NoError(t, err)

	return executor
}

func TestProcessExecutor_Outcomes(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   m.Outcome
	}{
		{"exit zero", "exit 0", m.Succeeded},
		{"exit non-zero", "exit 3", m.Failed},
		{"killed by signal", "kill -SEGV $$", m.Crashed},
		{"aborted", "kill -ABRT $$", m.Crashed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := newShellExecutor(t, shellProfile(tt.script), nil)

			execution, err := executor.Execute(context.Background(), sampleProgram(t), m.PurposeFuzzing)
			require.NoError(t, err)

			assert.Equal(t, tt.want, execution.Outcome)
			assert.Equal(t, m.PurposeFuzzing, execution.Purpose)
			assert.Equal(t, executor.CoverageFile(), execution.CoverageFile)
		})
	}
}

func TestProcessExecutor_Timeout(t *testing.T) {
	profile := shellProfile("sleep 10 & sleep 10")
	profile.TimeoutMS = 50

	executor := newShellExecutor(t, profile, nil)

	start := time.Now()
	execution, err := executor.Execute(context.Background(), sampleProgram(t), m.PurposeFuzzing)
	require.NoError(t, err)

	assert.Equal(t, m.TimedOut, execution.Outcome)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestProcessExecutor_ProgramAndCoverage(t *testing.T) {
	profile := shellProfile(`cat "$1"; echo "$EXTRA"; printf '0xa\nb\n' > "$COV_PATH/cov.cov"`)
	profile.Env = map[string]string{"EXTRA": "from-profile"}
	profile.CodePrefix = "// setup"
	profile.CodeSuffix = "gc();\n"

	executor := newShellExecutor(t, profile, nil)
	program := sampleProgram(t)

	execution, err := executor.Execute(context.Background(), program, m.PurposeDeterminismCheck)
	require.NoError(t, err)

	require.Equal(t, m.Succeeded, execution.Outcome)
	assert.Equal(t, m.PurposeDeterminismCheck, execution.Purpose)
	assert.Contains(t, execution.Output, "// setup\nlet v0 = 1;\nlet v1 = v0.length;\ngc();\n")
	assert.NotContains(t, execution.Output, string(m.OpLoadInteger))
	assert.Contains(t, execution.Output, "from-profile")

	trace, err := NewLocalTraceReader().ReadTrace(context.Background(), m.Path(execution.CoverageFile))
	require.NoError(t, err)
	assert.Equal(t, []uint64{0xa, 0xb}, trace)
}

func TestProcessExecutor_RemovesStaleTrace(t *testing.T) {
	executor := newShellExecutor(t, shellProfile("exit 0"), nil)
	require.NoError(t, os.WriteFile(executor.CoverageFile(), []byte("0x1\n"), 0o600))

	_, err := executor.Execute(context.Background(), sampleProgram(t), m.PurposeFuzzing)
	require.NoError(t, err)

	_, err = os.Stat(executor.CoverageFile())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProcessExecutor_MissingBinary(t *testing.T) {
	profile := Profile{Name: "missing", Binary: filepath.Join(t.TempDir(), "js")}
	executor := newShellExecutor(t, profile, nil)

	_, err := executor.Execute(context.Background(), sampleProgram(t), m.PurposeFuzzing)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProcessExecutor_InvalidProfile(t *testing.T) {
	_, err := NewProcessExecutor(Profile{Name: "empty"}, t.TempDir(), nil)
	require.ErrorIs(t, err, ErrInvalidProfile)
}

func TestProcessExecutor_ReportsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)
	executor := newShellExecutor(t, shellProfile("exit 1"), metrics)

	for range 2 {
		_, err := executor.Execute(context.Background(), sampleProgram(t), m.PurposeFuzzing)
		require.NoError(t, err)
	}

	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.executions.WithLabelValues("fuzzing", "failed")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.execTime))
}

func TestProcessExecutor_ChildKeepsOutputOpen(t *testing.T) {
	executor := newShellExecutor(t, shellProfile("sleep 2 & exit 0"), nil)

	execution, err := executor.Execute(context.Background(), sampleProgram(t), m.PurposeFuzzing)
	require.NoError(t, err)
	assert.Equal(t, m.Succeeded, execution.Outcome)
}

func TestProcessExecutor_RunsJavaScript(t *testing.T) {
	node, err := exec.LookPath("node")
	if err != nil {
		t.Skip("node not installed")
	}

	b := m.NewProgramBuilder()
	v0 := b.Emit1(m.OpLoadInteger, "7")
	v1 := b.Emit1(m.OpLoadInteger, "-1")
	v2 := b.Emit1(m.OpBinaryOperation, "**", v0, v1)
	v3 := b.Emit1(m.OpLoadString, "a\"b\n")
	v4 := b.Emit1(m.OpCreateArray, "", v2, v3)
	v5 := b.Emit1(m.OpGetProperty, "length", v4)
	v6 := b.Emit1(m.OpGetProperty, "0", v4)
	b.Emit1(m.OpCompare, "===", v5, v6)
	b.Emit(m.OpReassign, "", 0, v0, v5)
	v7 := b.Emit1(m.OpLoadBuiltin, "Math")
	v8 := b.Emit1(m.OpGetProperty, "max", v7)
	b.Emit1(m.OpCallFunction, "", v8, v0, v1)

	program, err := b.Finalize()
	require.NoError(t, err)

	executor := newShellExecutor(t, Profile{Name: "node", Binary: node, TimeoutMS: 5000}, nil)

	execution, err := executor.Execute(context.Background(), program, m.PurposeFuzzing)
	require.NoError(t, err)
	assert.Equal(t, m.Succeeded, execution.Outcome, execution.Output)
}
