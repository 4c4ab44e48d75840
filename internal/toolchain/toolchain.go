// Package toolchain invokes the external CMake and CPack tools.
package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/project-builder/internal/constants"
	"github.com/meza/project-builder/internal/metadata"
	"github.com/meza/project-builder/internal/perf"
)

type Mode string

const (
	Debug   Mode = "Debug"
	Release Mode = "Release"
)

type Configuration struct {
	UseVcpkg bool
	BuildDir string
	Mode     Mode
}

func DefaultConfiguration() Configuration {
	return Configuration{
		UseVcpkg: true,
		BuildDir: constants.DefaultBuildDir,
		Mode:     Debug,
	}
}

func (config Configuration) vcpkgFlag() string {
	if config.UseVcpkg {
		return "ON"
	}
	return "OFF"
}

// CommandRunner executes a prepared command and waits for it to finish.
type CommandRunner interface {
	Run(*exec.Cmd) error
}

type execRunner struct{}

func (execRunner) Run(command *exec.Cmd) error {
	command.Stdin = os.Stdin
	command.Stdout = os.Stdout
	command.Stderr = os.Stderr
	return command.Run()
}

// NewExecRunner returns a runner that streams the tool output to the terminal.
func NewExecRunner() CommandRunner {
	return execRunner{}
}

// ConfigureArgs is the cmake configure invocation for the project.
func ConfigureArgs(config Configuration, project metadata.Project) []string {
	return []string{
		"cmake", "-B", config.BuildDir, "-S", ".",
		"-DUSE_VCPKG=" + config.vcpkgFlag(),
		"-DPROJECT_NAME=" + project.SanitizedName,
		"-DEXECUTABLE_NAME=" + project.ExecutableName,
		"-DPROJECT_VERSION=" + project.Version,
		"-DDESCRIPTION=" + project.Description,
		"-DMAINTAINER_NAME=" + project.MaintainerName,
		"-DMAINTAINER_MAIL=" + project.MaintainerEmail,
		"-DHOMEPAGE=" + project.RepoURL,
	}
}

func BuildArgs(config Configuration, mode Mode) []string {
	return []string{"cmake", "--build", config.BuildDir, "--config", string(mode)}
}

// PackageArgs runs from inside the build directory.
func PackageArgs() []string {
	return []string{"cpack", "-G", "NSIS"}
}

// Invoker runs tool command lines from a fixed working directory with a
// fixed environment.
type Invoker struct {
	root   string
	env    []string
	runner CommandRunner
}

func NewInvoker(root string, env []string, runner CommandRunner) *Invoker {
	if runner == nil {
		runner = execRunner{}
	}
	return &Invoker{root: root, env: env, runner: runner}
}

// Run executes args[0] with the remaining arguments. dir is relative to the
// invoker root; an empty dir means the root itself.
func (invoker *Invoker) Run(ctx context.Context, dir string, args ...string) (err error) {
	if len(args) == 0 {
		return fmt.Errorf("no command given")
	}

	_, span := perf.StartSpan(ctx, "exec."+toolName(args[0]))
	span.SetAttributes(
		attribute.String("command", strings.Join(args, " ")),
		attribute.String("dir", invoker.workingDir(dir)),
	)
	defer func() {
		span.SetAttributes(attribute.Bool("success", err == nil))
		span.End()
	}()

	command := exec.CommandContext(ctx, args[0], args[1:]...)
	command.Dir = invoker.workingDir(dir)
	command.Env = invoker.env

	if err := invoker.runner.Run(command); err != nil {
		return newToolFailure(args, err)
	}
	return nil
}

func (invoker *Invoker) workingDir(dir string) string {
	if dir == "" {
		return invoker.root
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(invoker.root, dir)
}

func toolName(executable string) string {
	base := filepath.Base(executable)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
