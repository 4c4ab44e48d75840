// Package builder runs the configure, build, run, archive and installer
// actions against a project directory.
package builder

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/project-builder/internal/archive"
	"github.com/meza/project-builder/internal/constants"
	"github.com/meza/project-builder/internal/i18n"
	"github.com/meza/project-builder/internal/logger"
	"github.com/meza/project-builder/internal/manifest"
	"github.com/meza/project-builder/internal/metadata"
	"github.com/meza/project-builder/internal/perf"
	"github.com/meza/project-builder/internal/telemetry"
	"github.com/meza/project-builder/internal/toolchain"
)

var captureEvent = telemetry.Capture

type toolInvoker interface {
	Run(ctx context.Context, dir string, args ...string) error
}

// Options are fixed for the lifetime of a Builder.
type Options struct {
	Root          string
	Configuration toolchain.Configuration
	// SkipManifest is set when any metadata override was given on the
	// command line; vcpkg.json is then left untouched.
	SkipManifest bool
}

type Builder struct {
	fs      afero.Fs
	log     *logger.Logger
	invoker toolInvoker
	project metadata.Project
	options Options
}

func New(fs afero.Fs, log *logger.Logger, invoker toolInvoker, project metadata.Project, options Options) *Builder {
	if options.Configuration.BuildDir == "" {
		options.Configuration.BuildDir = constants.DefaultBuildDir
	}
	return &Builder{
		fs:      fs,
		log:     log,
		invoker: invoker,
		project: project,
		options: options,
	}
}

// Execute runs the plan in order and stops at the first fatal error.
func (builder *Builder) Execute(ctx context.Context, plan []Action) error {
	for _, action := range plan {
		if err := builder.runAction(ctx, action); err != nil {
			var missing *MissingArtifactError
			if errors.As(err, &missing) {
				builder.log.Error(missing.Error())
				captureEvent("missing_artifact", map[string]interface{}{
					"action": string(action),
				})
				continue
			}
			return err
		}
	}
	return nil
}

func (builder *Builder) runAction(ctx context.Context, action Action) (err error) {
	ctx, span := perf.StartSpan(ctx, "app.action."+string(action))
	defer func() {
		span.SetAttributes(attribute.Bool("success", err == nil))
		span.End()
	}()

	switch action {
	case ActionConfigure:
		return builder.Configure(ctx)
	case ActionBuild:
		return builder.Build(ctx, toolchain.Debug)
	case ActionRun:
		return builder.Run(ctx)
	case ActionArchive:
		return builder.Archive(ctx)
	case ActionCreateInstaller:
		return builder.CreateInstaller(ctx)
	default:
		return &UnknownActionError{Action: action}
	}
}

func (builder *Builder) buildDir() string {
	return builder.options.Configuration.BuildDir
}

// Configure regenerates vcpkg.json unless overrides are active and runs the
// cmake configure step.
func (builder *Builder) Configure(ctx context.Context) error {
	builder.log.Info(i18n.T("builder.configure.start"))

	if !builder.options.SkipManifest {
		if err := manifest.Generate(ctx, builder.fs, builder.options.Root, builder.project, builder.log); err != nil {
			return err
		}
	} else {
		builder.log.Debug(i18n.T("builder.configure.manifest_skipped", i18n.Tvars{
			Data: &i18n.TData{"manifest": constants.ManifestFile},
		}))
	}

	if err := builder.invoker.Run(ctx, "", toolchain.ConfigureArgs(builder.options.Configuration, builder.project)...); err != nil {
		return err
	}

	builder.log.Info(i18n.T("builder.configure.done"))
	return nil
}

// Build compiles the project, configuring it first when the build directory
// does not exist yet. Release builds are packaged with cpack afterwards.
func (builder *Builder) Build(ctx context.Context, mode toolchain.Mode) error {
	builder.log.Info(i18n.T("builder.build.start", i18n.Tvars{
		Data: &i18n.TData{"mode": string(mode)},
	}))

	buildPath := filepath.Join(builder.options.Root, builder.buildDir())
	exists, err := afero.DirExists(builder.fs, buildPath)
	if err != nil {
		return errors.Wrapf(err, "failed to check %s", buildPath)
	}
	if !exists {
		builder.log.Info(i18n.T("builder.build.configure_first"))
		if err := builder.Configure(ctx); err != nil {
			return err
		}
	}

	if err := builder.invoker.Run(ctx, "", toolchain.BuildArgs(builder.options.Configuration, mode)...); err != nil {
		return err
	}

	if mode == toolchain.Release {
		if err := builder.invoker.Run(ctx, builder.buildDir(), toolchain.PackageArgs()...); err != nil {
			return err
		}
	}

	builder.log.Info(i18n.T("builder.build.done"))
	return nil
}

// Run starts the built executable. A missing executable is reported with a
// MissingArtifactError.
func (builder *Builder) Run(ctx context.Context) error {
	builder.log.Info(i18n.T("builder.run.start"))

	relative := filepath.Join(builder.buildDir(), builder.project.ExecutableName)
	executablePath := filepath.Join(builder.options.Root, relative)

	info, err := builder.fs.Stat(executablePath)
	if err != nil || !info.Mode().IsRegular() || builder.project.ExecutableName == "" {
		return &MissingArtifactError{Executable: builder.project.ExecutableName, BuildDir: builder.buildDir()}
	}

	builder.log.Info(i18n.T("builder.run.executing", i18n.Tvars{
		Data: &i18n.TData{"path": relative},
	}))
	return builder.invoker.Run(ctx, "", executablePath)
}

func (builder *Builder) Archive(ctx context.Context) error {
	builder.log.Info(i18n.T("builder.archive.start"))

	count, err := archive.Zip(ctx, builder.fs, builder.options.Root, builder.buildDir())
	if err != nil {
		return err
	}

	builder.log.Debug(i18n.T("builder.archive.count", i18n.Tvars{
		Count: count,
	}))
	builder.log.Info(i18n.T("builder.archive.done", i18n.Tvars{
		Data: &i18n.TData{"file": constants.ArchiveFile},
	}))
	return nil
}

// CreateInstaller produces the NSIS installer from a release build.
func (builder *Builder) CreateInstaller(ctx context.Context) error {
	return builder.Build(ctx, toolchain.Release)
}
