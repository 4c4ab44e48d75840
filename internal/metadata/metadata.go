// Package metadata loads the project description shared by every build step.
package metadata

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/project-builder/internal/constants"
	"github.com/meza/project-builder/internal/i18n"
	"github.com/meza/project-builder/internal/perf"
	"github.com/meza/project-builder/internal/projectname"
)

// Project is the immutable view of META.json and VERSION for one invocation,
// after command-line overrides have been applied.
type Project struct {
	RawName         string
	SanitizedName   string
	ExecutableName  string
	Description     string
	MaintainerName  string
	MaintainerEmail string
	GithubUsername  string
	RepoURL         string
	Version         string
}

// Overrides are values supplied on the command line for this run only.
type Overrides struct {
	ExecutableName string
	ProjectName    string
	Version        string
}

// Any reports whether at least one override was given.
func (overrides Overrides) Any() bool {
	return overrides.ExecutableName != "" || overrides.ProjectName != "" || overrides.Version != ""
}

type infoLogger interface {
	Info(message string)
}

type metaFile struct {
	ProjectName    string      `json:"project_name"`
	ExecutableName string      `json:"executable_name"`
	Description    string      `json:"description"`
	Maintainer     *maintainer `json:"maintainer"`
	GithubRepoURL  string      `json:"githubRepoUrl"`
}

type maintainer struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	GithubUsername string `json:"githubUsername"`
}

// Load reads META.json and VERSION from dir.
func Load(ctx context.Context, fs afero.Fs, dir string, log infoLogger) (project Project, err error) {
	_, span := perf.StartSpan(ctx, "io.metadata.read")
	defer func() {
		span.SetAttributes(attribute.Bool("success", err == nil))
		span.End()
	}()

	metaPath := filepath.Join(dir, constants.MetaFile)
	meta, err := readMetaFile(fs, metaPath)
	if err != nil {
		return Project{}, err
	}

	versionPath := filepath.Join(dir, constants.VersionFile)
	version, err := readVersionFile(fs, versionPath)
	if err != nil {
		return Project{}, err
	}

	project = Project{
		RawName:         meta.ProjectName,
		SanitizedName:   projectname.Sanitize(meta.ProjectName),
		ExecutableName:  meta.ExecutableName,
		Description:     meta.Description,
		MaintainerName:  meta.Maintainer.Name,
		MaintainerEmail: meta.Maintainer.Email,
		GithubUsername:  meta.Maintainer.GithubUsername,
		RepoURL:         meta.GithubRepoURL,
		Version:         version,
	}

	if project.SanitizedName == "" {
		return Project{}, &EmptyIdentifierError{Source: constants.MetaFile}
	}

	log.Info(i18n.T("metadata.sanitized_name", i18n.Tvars{
		Data: &i18n.TData{"name": project.SanitizedName},
	}))
	span.SetAttributes(attribute.String("project", project.SanitizedName))
	return project, nil
}

func readMetaFile(fs afero.Fs, path string) (metaFile, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return metaFile{}, errors.Wrapf(err, "failed to check %s", path)
	}
	if !exists {
		return metaFile{}, &MissingFileError{Path: path}
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return metaFile{}, errors.Wrapf(err, "failed to read %s", path)
	}

	var meta metaFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return metaFile{}, &InvalidFileError{Path: path, Err: err}
	}

	if meta.Maintainer == nil {
		return metaFile{}, &MissingFieldError{File: path, Field: "maintainer"}
	}

	return meta, nil
}

func readVersionFile(fs afero.Fs, path string) (string, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to check %s", path)
	}
	if !exists {
		return "", &MissingFileError{Path: path}
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}

	return strings.TrimSpace(string(data)), nil
}

// WithOverrides returns a copy of the project with the command-line values
// applied. A project-name override goes through the same sanitizer as the
// META.json value.
func (project Project) WithOverrides(overrides Overrides) (Project, error) {
	resolved := project

	if overrides.ExecutableName != "" {
		resolved.ExecutableName = overrides.ExecutableName
	}

	if overrides.ProjectName != "" {
		resolved.RawName = overrides.ProjectName
		resolved.SanitizedName = projectname.Sanitize(overrides.ProjectName)
		if resolved.SanitizedName == "" {
			return Project{}, &EmptyIdentifierError{Source: "--proj"}
		}
	}

	if overrides.Version != "" {
		resolved.Version = overrides.Version
	}

	return resolved, nil
}
