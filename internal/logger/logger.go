// Package logger provides the console output helpers used by every command.
package logger

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const (
	infoMarker  = "[INFO]"
	errorMarker = "[ERROR]"
	debugMarker = "[DEBUG]"
)

type fdWriter interface {
	Fd() uintptr
}

var isTerminalFunc = term.IsTerminal

type Logger struct {
	out   io.Writer
	err   io.Writer
	quiet bool
	debug bool

	infoStyle  lipgloss.Style
	errorStyle lipgloss.Style
	debugStyle lipgloss.Style
}

func New(out io.Writer, err io.Writer, quiet bool, debug bool) *Logger {
	outRenderer := newRenderer(out)
	errRenderer := newRenderer(err)

	return &Logger{
		out:        out,
		err:        err,
		quiet:      quiet,
		debug:      debug,
		infoStyle:  outRenderer.NewStyle().Foreground(lipgloss.ANSIColor(termenv.ANSIGreen)),
		debugStyle: outRenderer.NewStyle().Foreground(lipgloss.ANSIColor(termenv.ANSIBlue)),
		errorStyle: errRenderer.NewStyle().Foreground(lipgloss.ANSIColor(termenv.ANSIRed)),
	}
}

// newRenderer only emits colours for interactive terminals.
func newRenderer(writer io.Writer) *lipgloss.Renderer {
	renderer := lipgloss.NewRenderer(writer)
	profile := termenv.Ascii
	if IsTerminalWriter(writer) {
		profile = termenv.ANSI
	}
	renderer.SetColorProfile(profile)
	return renderer
}

// IsTerminalWriter reports whether the writer wraps a file descriptor bound to a terminal.
func IsTerminalWriter(writer io.Writer) bool {
	if w, ok := writer.(fdWriter); ok {
		return isTerminalFunc(int(w.Fd()))
	}
	return false
}

func (logger *Logger) Log(message string, forceShow bool) {
	if logger.quiet && !forceShow && !logger.debug {
		return
	}
	if _, err := fmt.Fprintln(logger.out, message); err != nil {
		return
	}
}

func (logger *Logger) Info(message string) {
	logger.Log(logger.infoStyle.Render(infoMarker)+" "+message, false)
}

func (logger *Logger) Infof(format string, args ...any) {
	logger.Info(fmt.Sprintf(format, args...))
}

func (logger *Logger) Debug(message string) {
	if !logger.debug {
		return
	}
	if _, err := fmt.Fprintln(logger.out, logger.debugStyle.Render(debugMarker)+" "+message); err != nil {
		return
	}
}

func (logger *Logger) Debugf(format string, args ...any) {
	logger.Debug(fmt.Sprintf(format, args...))
}

func (logger *Logger) Error(message string) {
	if _, err := fmt.Fprintln(logger.err, logger.errorStyle.Render(errorMarker)+" "+message); err != nil {
		return
	}
}

func (logger *Logger) Errorf(format string, args ...any) {
	logger.Error(fmt.Sprintf(format, args...))
}
