package toolchain

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/meza/project-builder/internal/i18n"
)

// ToolFailureError is returned when an external tool could not be started or
// exited with a non-zero status. The tool's own output has already been
// streamed to the terminal.
type ToolFailureError struct {
	Command  []string
	ExitCode int
	Err      error
}

func (e *ToolFailureError) Error() string {
	// Quoted here rather than in the message: apostrophes are syntax there.
	commandLine := "'" + strings.Join(e.Command, " ") + "'"
	if e.ExitCode >= 0 {
		return i18n.T("error.tool_failed", i18n.Tvars{
			Data: &i18n.TData{
				"command": commandLine,
				"code":    strconv.Itoa(e.ExitCode),
			},
		})
	}
	return i18n.T("error.tool_not_started", i18n.Tvars{
		Data: &i18n.TData{
			"command": commandLine,
			"reason":  fmt.Sprint(e.Err),
		},
	})
}

// Tool is the name of the program that failed, without its arguments.
func (e *ToolFailureError) Tool() string {
	if len(e.Command) == 0 {
		return ""
	}
	return toolName(e.Command[0])
}

func (e *ToolFailureError) Unwrap() error {
	return e.Err
}

func newToolFailure(command []string, err error) *ToolFailureError {
	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return &ToolFailureError{
		Command:  append([]string{}, command...),
		ExitCode: exitCode,
		Err:      err,
	}
}
