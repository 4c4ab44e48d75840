package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meza/project-builder/internal/lifecycle"
	"github.com/meza/project-builder/internal/perf"
)

func baseDeps(calls *[]string) runDeps {
	return runDeps{
		execute: func(context.Context) error {
			*calls = append(*calls, "execute")
			return nil
		},
		telemetryInit: func() {
			*calls = append(*calls, "telemetryInit")
		},
		telemetryShutdown: func(context.Context) {
			*calls = append(*calls, "telemetryShutdown")
		},
		register: func(handler lifecycle.Handler) lifecycle.HandlerID {
			*calls = append(*calls, "register")
			return 42
		},
		unregister: func(id lifecycle.HandlerID) {
			*calls = append(*calls, "unregister")
		},
	}
}

func TestRunWithDeps_RecordsLifecycleSpans(t *testing.T) {
	perf.Reset()
	t.Cleanup(perf.Reset)

	var calls []string
	deps := baseDeps(&calls)
	deps.unregister = func(id lifecycle.HandlerID) {
		calls = append(calls, "unregister")
		assert.Equal(t, lifecycle.HandlerID(42), id)
	}

	exitCode := runWithDeps(deps)

	assert.Equal(t, 0, exitCode)
	assert.Equal(t, []string{"telemetryInit", "register", "execute", "telemetryShutdown", "unregister"}, calls)

	spans, err := perf.GetSpans()
	require.NoError(t, err)
	assertSpanExists(t, spans, perfLifecycle)
	assertSpanExists(t, spans, perfLifecycleStartup)
	assertSpanExists(t, spans, perfLifecycleExecute)
	shutdownSpan, ok := perf.FindSpanByName(spans, perfLifecycleShutdown)
	require.True(t, ok)
	assert.Equal(t, string(shutdownTriggerNormal), shutdownSpan.Attributes["trigger"])
}

func TestRunWithDeps_SignalShutdownIsRecordedOnce(t *testing.T) {
	perf.Reset()
	t.Cleanup(perf.Reset)

	var calls []string
	var registeredHandler lifecycle.Handler
	deps := baseDeps(&calls)
	deps.register = func(handler lifecycle.Handler) lifecycle.HandlerID {
		calls = append(calls, "register")
		registeredHandler = handler
		return 7
	}
	deps.execute = func(context.Context) error {
		require.NotNil(t, registeredHandler)
		registeredHandler(os.Interrupt)
		return nil
	}

	assert.Equal(t, 0, runWithDeps(deps))

	shutdownCalls := 0
	for _, call := range calls {
		if call == "telemetryShutdown" {
			shutdownCalls++
		}
	}
	assert.Equal(t, 1, shutdownCalls)

	spans, err := perf.GetSpans()
	require.NoError(t, err)
	shutdownSpan, ok := perf.FindSpanByName(spans, perfLifecycleShutdown)
	require.True(t, ok)
	assert.Equal(t, string(shutdownTriggerSignal), shutdownSpan.Attributes["trigger"])
	assert.Equal(t, os.Interrupt.String(), shutdownSpan.Attributes["signal"])
}

func TestRunWithDeps_ErrorIsPrintedAndExitsOne(t *testing.T) {
	perf.Reset()
	t.Cleanup(perf.Reset)

	var calls []string
	stderr := &bytes.Buffer{}
	deps := baseDeps(&calls)
	deps.stderr = stderr
	deps.execute = func(context.Context) error {
		return errors.New("META.json file not found.")
	}

	assert.Equal(t, 1, runWithDeps(deps))
	assert.Equal(t, "[ERROR] META.json file not found.\n", stderr.String())
	assert.Contains(t, calls, "telemetryShutdown")
}

func TestRunWithDeps_CanceledIsSilent(t *testing.T) {
	perf.Reset()
	t.Cleanup(perf.Reset)

	var calls []string
	stderr := &bytes.Buffer{}
	deps := baseDeps(&calls)
	deps.stderr = stderr
	deps.execute = func(context.Context) error {
		return context.Canceled
	}

	assert.Equal(t, 1, runWithDeps(deps))
	assert.Empty(t, stderr.String())
}

func TestRunWithDeps_ExportsPerfTrace(t *testing.T) {
	perf.Reset()
	t.Cleanup(perf.Reset)

	dir := t.TempDir()
	var calls []string
	deps := baseDeps(&calls)
	deps.getwd = func() (string, error) { return dir, nil }
	deps.args = []string{"--build", "--perf", "--perf-out-dir", "perf"}

	assert.Equal(t, 0, runWithDeps(deps))

	_, err := os.Stat(filepath.Join(dir, "perf", "builder-perf.json"))
	assert.NoError(t, err)
}

func TestRunWithDeps_NoPerfTraceByDefault(t *testing.T) {
	perf.Reset()
	t.Cleanup(perf.Reset)

	dir := t.TempDir()
	var calls []string
	deps := baseDeps(&calls)
	deps.getwd = func() (string, error) { return dir, nil }
	deps.args = []string{"--build"}

	assert.Equal(t, 0, runWithDeps(deps))

	_, err := os.Stat(filepath.Join(dir, "builder-perf.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestPerfExportConfigFromArgs_DefaultsToWorkingDir(t *testing.T) {
	cwd := filepath.FromSlash("/workdir")
	cfg := perfExportConfigFromArgs([]string{"--perf"}, cwd)

	assert.True(t, cfg.enabled)
	assert.Equal(t, cwd, cfg.baseDir)
	assert.Equal(t, cwd, cfg.outDir)
}

func TestPerfExportConfigFromArgs_PerfOutDir(t *testing.T) {
	cwd := filepath.FromSlash("/workdir")

	cfg := perfExportConfigFromArgs([]string{"--perf", "--perf-out-dir=traces"}, cwd)
	assert.Equal(t, filepath.Join(cwd, "traces"), cfg.outDir)

	absolute := filepath.Join(t.TempDir(), "traces")
	cfg = perfExportConfigFromArgs([]string{"--perf", "--perf-out-dir", absolute}, cwd)
	assert.Equal(t, absolute, cfg.outDir)
	assert.Equal(t, cwd, cfg.baseDir)
}

func TestPerfExportConfigFromArgs_CapturesDebugFlag(t *testing.T) {
	cfg := perfExportConfigFromArgs([]string{"--perf", "--debug"}, "/workdir")
	assert.True(t, cfg.debug)
	assert.False(t, perfExportConfigFromArgs([]string{"--", "--perf"}, "/workdir").enabled)
}

func assertSpanExists(t *testing.T, spans []perf.SpanSnapshot, name string) {
	t.Helper()
	_, ok := perf.FindSpanByName(spans, name)
	assert.True(t, ok, "expected span %q to exist", name)
}
