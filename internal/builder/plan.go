package builder

// Action is one step of a builder run.
type Action string

const (
	ActionConfigure       Action = "configure"
	ActionBuild           Action = "build"
	ActionRun             Action = "run"
	ActionArchive         Action = "archive"
	ActionCreateInstaller Action = "create-installer"
)

// Flags mirrors the action switches on the command line.
type Flags struct {
	Configure       bool
	Build           bool
	Run             bool
	Archive         bool
	CreateInstaller bool
}

// Plan lists the selected actions in execution order. The order is fixed and
// does not depend on the order the flags were given in.
func Plan(flags Flags) []Action {
	plan := make([]Action, 0, 5)
	if flags.Configure {
		plan = append(plan, ActionConfigure)
	}
	if flags.Build {
		plan = append(plan, ActionBuild)
	}
	if flags.Run {
		plan = append(plan, ActionRun)
	}
	if flags.Archive {
		plan = append(plan, ActionArchive)
	}
	if flags.CreateInstaller {
		plan = append(plan, ActionCreateInstaller)
	}
	return plan
}

// Names returns the plan as plain strings.
func Names(plan []Action) []string {
	names := make([]string, len(plan))
	for i, action := range plan {
		names[i] = string(action)
	}
	return names
}
