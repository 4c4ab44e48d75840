package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/project-builder/cmd/builder"
	"github.com/meza/project-builder/internal/lifecycle"
	"github.com/meza/project-builder/internal/logger"
	"github.com/meza/project-builder/internal/perf"
	"github.com/meza/project-builder/internal/telemetry"
)

const (
	perfLifecycle         = "app.lifecycle"
	perfLifecycleStartup  = "app.lifecycle.startup"
	perfLifecycleExecute  = "app.lifecycle.execute"
	perfLifecycleShutdown = "app.lifecycle.shutdown"

	shutdownTimeout = 3 * time.Second
)

type shutdownTrigger string

const (
	shutdownTriggerNormal shutdownTrigger = "normal"
	shutdownTriggerSignal shutdownTrigger = "signal"
)

type runDeps struct {
	execute           func(context.Context) error
	telemetryInit     func()
	telemetryShutdown func(context.Context)
	register          func(lifecycle.Handler) lifecycle.HandlerID
	unregister        func(lifecycle.HandlerID)
	args              []string
	getwd             func() (string, error)
	stdout            io.Writer
	stderr            io.Writer
}

var exit = os.Exit

func main() {
	exit(runWithDeps(runDeps{
		execute:           builder.Execute,
		telemetryInit:     telemetry.Init,
		telemetryShutdown: telemetry.Shutdown,
		register:          lifecycle.Register,
		unregister:        lifecycle.Unregister,
		args:              os.Args[1:],
		getwd:             os.Getwd,
		stdout:            os.Stdout,
		stderr:            os.Stderr,
	}))
}

func runWithDeps(deps runDeps) int {
	if deps.getwd == nil {
		deps.getwd = os.Getwd
	}
	if deps.stdout == nil {
		deps.stdout = io.Discard
	}
	if deps.stderr == nil {
		deps.stderr = io.Discard
	}

	cwd, err := deps.getwd()
	if err != nil {
		cwd = "."
	}
	exportConfig := perfExportConfigFromArgs(deps.args, cwd)
	log := logger.New(deps.stdout, deps.stderr, false, exportConfig.debug)

	rootCtx, rootSpan := perf.StartSpan(context.Background(), perfLifecycle)

	_, startupSpan := perf.StartSpan(rootCtx, perfLifecycleStartup)
	deps.telemetryInit()

	var shutdownOnce sync.Once
	shutdown := func(trigger shutdownTrigger, sig os.Signal) {
		shutdownOnce.Do(func() {
			_, shutdownSpan := perf.StartSpan(rootCtx, perfLifecycleShutdown)
			shutdownSpan.SetAttributes(attribute.String("trigger", string(trigger)))
			if sig != nil {
				shutdownSpan.SetAttributes(attribute.String("signal", sig.String()))
			}

			rootSpan.End()

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			deps.telemetryShutdown(ctx)

			shutdownSpan.End()

			if exportConfig.enabled {
				path, err := perf.ExportToFile(exportConfig.outDir, exportConfig.baseDir)
				if err != nil {
					log.Errorf("failed to write performance trace: %v", err)
					return
				}
				log.Debugf("Performance trace written to %s", path)
			}
		})
	}

	handlerID := deps.register(func(sig os.Signal) {
		shutdown(shutdownTriggerSignal, sig)
	})
	startupSpan.End()

	executeCtx, executeSpan := perf.StartSpan(rootCtx, perfLifecycleExecute)
	executeErr := deps.execute(executeCtx)
	if executeErr != nil {
		executeSpan.SetAttributes(attribute.String("error", executeErr.Error()))
	}
	executeSpan.End()

	shutdown(shutdownTriggerNormal, nil)
	deps.unregister(handlerID)

	if executeErr != nil {
		if !errors.Is(executeErr, context.Canceled) {
			log.Error(executeErr.Error())
		}
		return 1
	}
	return 0
}

type perfExportConfig struct {
	enabled bool
	debug   bool
	baseDir string
	outDir  string
}

// perfExportConfigFromArgs reads the perf flags straight from the arguments
// because the export happens after the command has finished.
func perfExportConfigFromArgs(args []string, cwd string) perfExportConfig {
	config := perfExportConfig{baseDir: cwd, outDir: cwd}

	outDir := ""
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			i = len(args)
		case arg == "--perf":
			config.enabled = true
		case arg == "--debug":
			config.debug = true
		case arg == "--perf-out-dir" && i+1 < len(args):
			outDir = args[i+1]
			i++
		case strings.HasPrefix(arg, "--perf-out-dir="):
			outDir = strings.TrimPrefix(arg, "--perf-out-dir=")
		}
	}

	if outDir != "" {
		if filepath.IsAbs(outDir) {
			config.outDir = filepath.Clean(outDir)
		} else {
			config.outDir = filepath.Join(cwd, outDir)
		}
	}

	return config
}
