package builder

import "github.com/meza/project-builder/internal/i18n"

// MissingArtifactError is reported when the run action finds no executable.
// It does not stop the remaining actions.
type MissingArtifactError struct {
	Executable string
	BuildDir   string
}

func (e *MissingArtifactError) Error() string {
	return i18n.T("error.missing_artifact", i18n.Tvars{
		Data: &i18n.TData{
			"executable": e.Executable,
			"buildDir":   e.BuildDir,
		},
	})
}

type UnknownActionError struct {
	Action Action
}

func (e *UnknownActionError) Error() string {
	return i18n.T("error.unknown_action", i18n.Tvars{
		Data: &i18n.TData{"action": string(e.Action)},
	})
}
