package builder

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/meza/project-builder/cmd/builder/version"
	actions "github.com/meza/project-builder/internal/builder"
	"github.com/meza/project-builder/internal/constants"
	"github.com/meza/project-builder/internal/environment"
	"github.com/meza/project-builder/internal/i18n"
	"github.com/meza/project-builder/internal/logger"
	"github.com/meza/project-builder/internal/metadata"
	"github.com/meza/project-builder/internal/perf"
	"github.com/meza/project-builder/internal/telemetry"
	"github.com/meza/project-builder/internal/toolchain"
)

type commandDeps struct {
	fs            afero.Fs
	runner        toolchain.CommandRunner
	getwd         func() (string, error)
	environ       func() []string
	recordCommand func(telemetry.CommandTelemetry)
}

func defaultDeps() commandDeps {
	return commandDeps{
		fs:            afero.NewOsFs(),
		runner:        toolchain.NewExecRunner(),
		getwd:         os.Getwd,
		environ:       os.Environ,
		recordCommand: telemetry.RecordCommand,
	}
}

type rootOptions struct {
	configure       bool
	build           bool
	run             bool
	zip             bool
	createInstaller bool
	executable      string
	project         string
	version         string
	quiet           bool
	debug           bool
	perf            bool
	perfOutDir      string
}

func (opts *rootOptions) flags() actions.Flags {
	return actions.Flags{
		Configure:       opts.configure,
		Build:           opts.build,
		Run:             opts.run,
		Archive:         opts.zip,
		CreateInstaller: opts.createInstaller,
	}
}

func (opts *rootOptions) overrides() metadata.Overrides {
	return metadata.Overrides{
		ExecutableName: opts.executable,
		ProjectName:    opts.project,
		Version:        opts.version,
	}
}

func Command() *cobra.Command {
	return newCommand(defaultDeps())
}

func newCommand(deps commandDeps) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           constants.CommandName,
		Short:         i18n.T("app.description"),
		Version:       environment.AppVersion(),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoot(cmd, opts, deps)
		},
	}
	cobra.MousetrapHelpText = "" // allow the app to run in windows by clicking the exe

	flags := rootCmd.Flags()
	flags.BoolVar(&opts.configure, "conf", false, i18n.T("cmd.root.flag.conf"))
	flags.BoolVar(&opts.build, "build", false, i18n.T("cmd.root.flag.build"))
	flags.BoolVar(&opts.run, "run", false, i18n.T("cmd.root.flag.run"))
	flags.BoolVar(&opts.zip, "zip", false, i18n.T("cmd.root.flag.zip"))
	flags.StringVar(&opts.executable, "exe", "", i18n.T("cmd.root.flag.exe"))
	flags.StringVar(&opts.project, "proj", "", i18n.T("cmd.root.flag.proj"))
	flags.StringVar(&opts.version, "ver", "", i18n.T("cmd.root.flag.ver"))
	flags.BoolVar(&opts.createInstaller, "create-exe", false, i18n.T("cmd.root.flag.create_exe"))

	persistent := rootCmd.PersistentFlags()
	persistent.BoolVarP(&opts.quiet, "quiet", "q", false, i18n.T("cmd.root.flag.quiet"))
	persistent.BoolVar(&opts.debug, "debug", false, i18n.T("cmd.root.flag.debug"))
	persistent.BoolVar(&opts.perf, "perf", false, i18n.T("cmd.root.flag.perf"))
	persistent.StringVar(&opts.perfOutDir, "perf-out-dir", "", i18n.T("cmd.root.flag.perf_out_dir"))

	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.SetHelpTemplate(rootCmd.HelpTemplate() + "\n" + i18n.T("cmd.help.more", i18n.Tvars{
		Data: &i18n.TData{"url": environment.HelpURL()},
	}) + "\n")
	rootCmd.AddCommand(version.Command())

	translateDefaultHelpFacilities(rootCmd)
	fixFlagUsageAlignment(rootCmd)

	return rootCmd
}

func translateDefaultHelpFacilities(rootCmd *cobra.Command) {
	subcommands := rootCmd.Commands()
	allCommands := make([]*cobra.Command, 0, len(subcommands)+1)
	allCommands = append(allCommands, rootCmd)
	allCommands = append(allCommands, subcommands...)

	for _, cmd := range allCommands {
		cmd.InitDefaultHelpFlag()
		cmd.Flags().Lookup("help").Usage = i18n.T("cmd.help.template", i18n.Tvars{
			Data: &i18n.TData{"command": cmd.Name()},
		})
	}

	rootCmd.InitDefaultHelpCmd()
	helpCmd, _, err := rootCmd.Find([]string{"help"})
	if err != nil {
		return
	}

	helpCmd.Short = i18n.T("cmd.help.usage.short")
	helpCmd.Long = i18n.T("cmd.help.usage.long", i18n.Tvars{
		Data: &i18n.TData{"appName": rootCmd.Name()},
	})
	helpCmd.Run = func(c *cobra.Command, args []string) {
		cmd, _, err := c.Root().Find(args)
		if cmd == nil || err != nil {
			c.PrintErrln(i18n.T("cmd.help.error", i18n.Tvars{
				Data: &i18n.TData{"topic": fmt.Sprintf("%#q", args)},
			}) + "\n")
			cobra.CheckErr(c.Root().Usage())
			return
		}
		cmd.InitDefaultHelpFlag()
		cmd.InitDefaultVersionFlag()
		cobra.CheckErr(cmd.Help())
	}
}

func fixFlagUsageAlignment(rootCmd *cobra.Command) {
	width, _, _ := term.GetSize(int(os.Stdout.Fd()))
	usageTemplate := rootCmd.UsageTemplate()
	usageTemplate = strings.ReplaceAll(usageTemplate, ".FlagUsages", fmt.Sprintf(".FlagUsagesWrapped %d", width))
	rootCmd.SetUsageTemplate(usageTemplate)
}

// Execute runs the builder command with the process arguments.
func Execute(ctx context.Context) error {
	return Command().ExecuteContext(ctx)
}

func runRoot(cmd *cobra.Command, opts *rootOptions, deps commandDeps) (err error) {
	plan := actions.Plan(opts.flags())
	if len(plan) == 0 {
		cmd.PrintErrln(i18n.T("cmd.root.no_actions"))
		return cmd.Usage()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := perf.StartSpan(ctx, "app.command."+constants.CommandName)
	start := time.Now()
	defer func() {
		span.End()
		exitCode := 0
		if err != nil {
			exitCode = 1
		}
		deps.recordCommand(telemetry.CommandTelemetry{
			Command:  constants.CommandName,
			Actions:  actions.Names(plan),
			Success:  err == nil,
			Error:    err,
			ExitCode: exitCode,
			Duration: time.Since(start),
			Arguments: map[string]interface{}{
				"quiet":     opts.quiet,
				"debug":     opts.debug,
				"overrides": opts.overrides().Any(),
			},
		})
	}()

	log := logger.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts.quiet, opts.debug)

	root, err := deps.getwd()
	if err != nil {
		return fmt.Errorf("failed to determine working directory: %w", err)
	}
	log.Debug(i18n.T("cmd.root.debug.project_root", i18n.Tvars{
		Data: &i18n.TData{"path": root},
	}))

	project, err := metadata.Load(ctx, deps.fs, root, log)
	if err != nil {
		return err
	}

	overrides := opts.overrides()
	project, err = project.WithOverrides(overrides)
	if err != nil {
		return err
	}

	env, err := toolchain.Environment(deps.fs, root, deps.environ())
	if err != nil {
		return err
	}

	runner := actions.New(deps.fs, log, toolchain.NewInvoker(root, env, deps.runner), project, actions.Options{
		Root:          root,
		Configuration: toolchain.DefaultConfiguration(),
		SkipManifest:  overrides.Any(),
	})

	return runner.Execute(ctx, plan)
}
