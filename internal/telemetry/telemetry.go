// Package telemetry sends an anonymous usage event at the end of each run.
package telemetry

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/posthog/posthog-go"

	"github.com/meza/project-builder/internal/constants"
	"github.com/meza/project-builder/internal/environment"
	"github.com/meza/project-builder/internal/metadata"
	"github.com/meza/project-builder/internal/perf"
	"github.com/meza/project-builder/internal/toolchain"
)

const (
	defaultPosthogHost  = "https://eu.i.posthog.com"
	defaultFlushTimeout = 2 * time.Second
	machineIDEnvVar     = "BUILDER_MACHINE_ID"
	unknownMachineID    = "unknown"
	lifecycleSpanName   = "app.lifecycle"
	execSpanPrefix      = "exec."
)

type Client interface {
	io.Closer
	Enqueue(posthog.Message) error
}

type Logger interface {
	Debugf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}

// CommandTelemetry describes one builder invocation.
type CommandTelemetry struct {
	Command   string
	Actions   []string
	Success   bool
	Error     error
	ExitCode  int
	Duration  time.Duration
	Arguments map[string]interface{}
}

var (
	clientBuilder     = defaultClientFactory
	machineIDProvider = machineid.ID
	baseLogger        Logger
	baseFlushTimeout  = defaultFlushTimeout
)

type telemetryState struct {
	mu           sync.Mutex
	enabled      bool
	client       Client
	machineID    string
	logger       Logger
	flushTimeout time.Duration
	commands     []CommandTelemetry
	closed       bool
}

type stateSnapshot struct {
	enabled      bool
	client       Client
	machineID    string
	logger       Logger
	flushTimeout time.Duration
}

var state = &telemetryState{logger: noopLogger{}}

func (s *telemetryState) snapshot() stateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stateSnapshot{
		enabled:      s.enabled,
		client:       s.client,
		machineID:    s.machineID,
		logger:       s.logger,
		flushTimeout: s.flushTimeout,
	}
}

func defaultClientFactory(apiKey, endpoint string) (Client, error) {
	return posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: endpoint})
}

// Init prepares the client unless telemetry is disabled or no API key was
// compiled in. It is safe to call more than once.
func Init() {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.client != nil {
		return
	}

	logger := baseLogger
	if logger == nil {
		logger = noopLogger{}
	}
	state.logger = logger

	flushTimeout := baseFlushTimeout
	if flushTimeout <= 0 {
		flushTimeout = defaultFlushTimeout
	}
	state.flushTimeout = flushTimeout

	if environment.TelemetryDisabled() {
		state.enabled = false
		return
	}

	apiKey := environment.PosthogAPIKey()
	if apiKey == "" || strings.HasPrefix(apiKey, "REPL_") {
		state.enabled = false
		return
	}

	client, err := clientBuilder(apiKey, defaultPosthogHost)
	if err != nil || client == nil {
		logger.Debugf("telemetry client unavailable: %v", err)
		state.enabled = false
		return
	}

	state.client = client
	state.machineID = resolveMachineID()
	state.enabled = true
	state.closed = false
}

// Reset drops all state so Init can run again.
func Reset() {
	state.mu.Lock()
	defer state.mu.Unlock()

	state.enabled = false
	state.client = nil
	state.machineID = ""
	state.logger = noopLogger{}
	state.flushTimeout = 0
	state.commands = nil
	state.closed = false
	clientBuilder = defaultClientFactory
	machineIDProvider = machineid.ID
	baseLogger = nil
	baseFlushTimeout = defaultFlushTimeout
}

func resolveMachineID() string {
	if value, ok := os.LookupEnv(machineIDEnvVar); ok && value != "" {
		return value
	}

	id, err := machineIDProvider()
	if err != nil || id == "" {
		return unknownMachineID
	}
	return id
}

// Capture enqueues a single event right away. Properties must not carry
// project metadata or paths.
func Capture(event string, properties map[string]interface{}) {
	if event == "" {
		return
	}

	snap := state.snapshot()
	if !snap.enabled || snap.client == nil {
		return
	}

	props := posthog.NewProperties()
	for key, value := range properties {
		props.Set(key, value)
	}
	props.Set("version", environment.AppVersion())
	props.Set("app", constants.AppName)

	if err := snap.client.Enqueue(posthog.Capture{
		Event:      event,
		DistinctId: snap.machineID,
		Properties: props,
	}); err != nil {
		snap.logger.Debugf("telemetry enqueue failed: %v", err)
	}
}

// RecordCommand stores the outcome of a command; it is sent by Shutdown.
func RecordCommand(command CommandTelemetry) {
	if command.Command == "" {
		return
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if !state.enabled {
		return
	}
	state.commands = append(state.commands, command)
}

// Shutdown sends the session event and flushes the client, giving up after
// the flush timeout.
func Shutdown(ctx context.Context) {
	state.mu.Lock()
	if !state.enabled || state.client == nil || state.closed {
		state.mu.Unlock()
		return
	}
	state.closed = true
	commands := append([]CommandTelemetry{}, state.commands...)
	state.commands = nil
	client := state.client
	logger := state.logger
	flushTimeout := state.flushTimeout
	state.mu.Unlock()

	emitSession(client, logger, commands)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- client.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Debugf("telemetry close failed: %v", err)
		}
	case <-ctx.Done():
		logger.Debugf("telemetry flush timed out after %s", flushTimeout)
	}
}

func emitSession(client Client, logger Logger, commands []CommandTelemetry) {
	snap := state.snapshot()

	props := posthog.NewProperties()
	props.Set("type", "session")
	props.Set("version", environment.AppVersion())
	props.Set("app", constants.AppName)
	props.Set("commands", buildCommandSummaries(commands))

	if spans, err := perf.GetSpans(); err == nil && len(spans) > 0 {
		props.Set("performance", performanceSummary(spans))
		if lifecycleSpan, ok := perf.FindSpanByName(spans, lifecycleSpanName); ok {
			props.Set("total_time_ms", lifecycleSpan.EndTime.Sub(lifecycleSpan.StartTime).Milliseconds())
		}
	}

	event := constants.CommandName
	if len(commands) == 1 {
		event = commands[0].Command
	}

	if err := client.Enqueue(posthog.Capture{
		Event:      event,
		DistinctId: snap.machineID,
		Properties: props,
	}); err != nil {
		logger.Debugf("telemetry enqueue failed: %v", err)
	}
}

func buildCommandSummaries(commands []CommandTelemetry) []map[string]interface{} {
	summaries := make([]map[string]interface{}, 0, len(commands))
	for _, command := range commands {
		summary := map[string]interface{}{
			"name":      command.Command,
			"success":   command.Success,
			"exit_code": command.ExitCode,
			"actions":   append([]string{}, command.Actions...),
		}
		if command.Duration > 0 {
			summary["duration_ms"] = command.Duration.Milliseconds()
		}
		if command.Error != nil {
			// Error text carries paths and metadata values, so only its shape is sent.
			summary["error_category"] = errorCategory(command.Error)
			var toolFailure *toolchain.ToolFailureError
			if errors.As(command.Error, &toolFailure) {
				summary["tool"] = reportedTool(toolFailure.Tool())
				summary["tool_exit_code"] = toolFailure.ExitCode
			}
		}
		if len(command.Arguments) > 0 {
			summary["arguments"] = command.Arguments
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// reportedTool keeps the build tools by name; anything else is the project's
// own executable.
func reportedTool(name string) string {
	switch name {
	case "cmake", "cpack":
		return name
	default:
		return "executable"
	}
}

func performanceSummary(spans []perf.SpanSnapshot) []map[string]interface{} {
	summary := make([]map[string]interface{}, 0, len(spans))
	for _, span := range spans {
		name := span.Name
		if tool, ok := strings.CutPrefix(name, execSpanPrefix); ok {
			name = execSpanPrefix + reportedTool(tool)
		}
		summary = append(summary, map[string]interface{}{
			"name":        name,
			"duration_ms": span.EndTime.Sub(span.StartTime).Milliseconds(),
		})
	}
	return summary
}

func errorCategory(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var missingFile *metadata.MissingFileError
	if errors.As(err, &missingFile) {
		return "missing_file"
	}
	var missingField *metadata.MissingFieldError
	if errors.As(err, &missingField) {
		return "missing_field"
	}
	var invalidFile *metadata.InvalidFileError
	if errors.As(err, &invalidFile) {
		return "invalid_file"
	}
	var emptyIdentifier *metadata.EmptyIdentifierError
	if errors.As(err, &emptyIdentifier) {
		return "empty_identifier"
	}
	var toolFailure *toolchain.ToolFailureError
	if errors.As(err, &toolFailure) {
		return "tool_failure"
	}
	return "unknown"
}
