package metadata

import (
	"path/filepath"

	"github.com/meza/project-builder/internal/i18n"
)

// MissingFileError reports a required project file that does not exist.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return i18n.T("error.missing_file", i18n.Tvars{
		Data: &i18n.TData{"file": filepath.Base(e.Path)},
	})
}

func (e *MissingFileError) Is(target error) bool {
	t, ok := target.(*MissingFileError)
	if !ok {
		return false
	}
	return t.Path == "" || t.Path == e.Path
}

// MissingFieldError reports a required object absent from META.json.
type MissingFieldError struct {
	File  string
	Field string
}

func (e *MissingFieldError) Error() string {
	return i18n.T("error.missing_field", i18n.Tvars{
		Data: &i18n.TData{
			"file":  filepath.Base(e.File),
			"field": e.Field,
		},
	})
}

type InvalidFileError struct {
	Path string
	Err  error
}

func (e *InvalidFileError) Error() string {
	return i18n.T("error.invalid_file", i18n.Tvars{
		Data: &i18n.TData{
			"file":   filepath.Base(e.Path),
			"reason": e.Err.Error(),
		},
	})
}

func (e *InvalidFileError) Unwrap() error {
	return e.Err
}

// EmptyIdentifierError means the project name sanitized down to nothing.
type EmptyIdentifierError struct {
	Source string
}

func (e *EmptyIdentifierError) Error() string {
	return i18n.T("error.empty_identifier", i18n.Tvars{
		Data: &i18n.TData{"source": e.Source},
	})
}
