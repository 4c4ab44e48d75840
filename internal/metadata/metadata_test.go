package metadata

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meza/project-builder/internal/logger"
	"github.com/meza/project-builder/internal/perf"
)

const validMeta = `{
  "project_name": "MyCoolApp",
  "executable_name": "MyCoolApp.exe",
  "description": "A cool app",
  "maintainer": {
    "name": "Jane Doe",
    "email": "jane@example.com",
    "githubUsername": "janedoe"
  },
  "githubRepoUrl": "https://github.com/janedoe/my-cool-app"
}`

func projectFs(t *testing.T, meta string, version string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	if meta != "" {
		require.NoError(t, afero.WriteFile(fs, filepath.FromSlash("/project/META.json"), []byte(meta), 0644))
	}
	if version != "" {
		require.NoError(t, afero.WriteFile(fs, filepath.FromSlash("/project/VERSION"), []byte(version), 0644))
	}
	return fs
}

func testLogger() (*logger.Logger, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return logger.New(out, out, false, false), out
}

func TestLoad(t *testing.T) {
	t.Run("Happy Path", func(t *testing.T) {
		fs := projectFs(t, validMeta, " 1.2.3\n")
		log, out := testLogger()

		project, err := Load(context.Background(), fs, filepath.FromSlash("/project"), log)

		require.NoError(t, err)
		assert.Equal(t, Project{
			RawName:         "MyCoolApp",
			SanitizedName:   "my-cool-app",
			ExecutableName:  "MyCoolApp.exe",
			Description:     "A cool app",
			MaintainerName:  "Jane Doe",
			MaintainerEmail: "jane@example.com",
			GithubUsername:  "janedoe",
			RepoURL:         "https://github.com/janedoe/my-cool-app",
			Version:         "1.2.3",
		}, project)
		assert.Contains(t, out.String(), "[INFO] Sanitized Project Name: my-cool-app")
	})

	t.Run("Optional fields default to empty", func(t *testing.T) {
		fs := projectFs(t, `{"project_name": "App", "maintainer": {}}`, "0.1.0")
		log, _ := testLogger()

		project, err := Load(context.Background(), fs, filepath.FromSlash("/project"), log)

		require.NoError(t, err)
		assert.Equal(t, "app", project.SanitizedName)
		assert.Empty(t, project.ExecutableName)
		assert.Empty(t, project.Description)
		assert.Empty(t, project.MaintainerName)
		assert.Empty(t, project.RepoURL)
	})

	t.Run("Missing META.json", func(t *testing.T) {
		fs := projectFs(t, "", "1.0.0")
		log, _ := testLogger()

		_, err := Load(context.Background(), fs, filepath.FromSlash("/project"), log)

		var missing *MissingFileError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, filepath.FromSlash("/project/META.json"), missing.Path)
		assert.EqualError(t, err, "META.json file not found.")
	})

	t.Run("Missing VERSION", func(t *testing.T) {
		fs := projectFs(t, validMeta, "")
		log, _ := testLogger()

		_, err := Load(context.Background(), fs, filepath.FromSlash("/project"), log)

		var missing *MissingFileError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, filepath.FromSlash("/project/VERSION"), missing.Path)
		assert.EqualError(t, err, "VERSION file not found.")
	})

	t.Run("Missing maintainer", func(t *testing.T) {
		fs := projectFs(t, `{"project_name": "App"}`, "1.0.0")
		log, _ := testLogger()

		_, err := Load(context.Background(), fs, filepath.FromSlash("/project"), log)

		var missing *MissingFieldError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "maintainer", missing.Field)
	})

	t.Run("Null maintainer", func(t *testing.T) {
		fs := projectFs(t, `{"project_name": "App", "maintainer": null}`, "1.0.0")
		log, _ := testLogger()

		_, err := Load(context.Background(), fs, filepath.FromSlash("/project"), log)

		var missing *MissingFieldError
		assert.ErrorAs(t, err, &missing)
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		fs := projectFs(t, "malformed json", "1.0.0")
		log, _ := testLogger()

		_, err := Load(context.Background(), fs, filepath.FromSlash("/project"), log)

		var invalid *InvalidFileError
		require.ErrorAs(t, err, &invalid)
		assert.ErrorContains(t, err, "invalid character")
		assert.NotNil(t, errors.Unwrap(err))
	})

	t.Run("Empty sanitized name", func(t *testing.T) {
		fs := projectFs(t, `{"project_name": "!!!", "maintainer": {}}`, "1.0.0")
		log, out := testLogger()

		_, err := Load(context.Background(), fs, filepath.FromSlash("/project"), log)

		var empty *EmptyIdentifierError
		require.ErrorAs(t, err, &empty)
		assert.EqualError(t, err, "Sanitized PROJECT_NAME is empty. Please check META.json.")
		assert.NotContains(t, out.String(), "Sanitized Project Name")
	})

	t.Run("Records a span", func(t *testing.T) {
		perf.Reset()
		t.Cleanup(perf.Reset)
		fs := projectFs(t, validMeta, "1.0.0")
		log, _ := testLogger()

		_, err := Load(context.Background(), fs, filepath.FromSlash("/project"), log)
		require.NoError(t, err)

		spans, err := perf.GetSpans()
		require.NoError(t, err)
		span, ok := perf.FindSpanByName(spans, "io.metadata.read")
		require.True(t, ok)
		assert.Equal(t, true, span.Attributes["success"])
		assert.Equal(t, "my-cool-app", span.Attributes["project"])
	})
}

func TestMissingFileErrorIs(t *testing.T) {
	err := &MissingFileError{Path: "/project/VERSION"}

	assert.ErrorIs(t, err, &MissingFileError{})
	assert.ErrorIs(t, err, &MissingFileError{Path: "/project/VERSION"})
	assert.NotErrorIs(t, err, &MissingFileError{Path: "/project/META.json"})
}

func TestOverridesAny(t *testing.T) {
	assert.False(t, Overrides{}.Any())
	assert.True(t, Overrides{ExecutableName: "x"}.Any())
	assert.True(t, Overrides{ProjectName: "x"}.Any())
	assert.True(t, Overrides{Version: "x"}.Any())
}

func TestWithOverrides(t *testing.T) {
	base := Project{
		RawName:        "MyCoolApp",
		SanitizedName:  "my-cool-app",
		ExecutableName: "MyCoolApp.exe",
		Version:        "1.0.0",
	}

	t.Run("No overrides", func(t *testing.T) {
		resolved, err := base.WithOverrides(Overrides{})
		require.NoError(t, err)
		assert.Equal(t, base, resolved)
	})

	t.Run("Overrides win over file values", func(t *testing.T) {
		resolved, err := base.WithOverrides(Overrides{
			ExecutableName: "Other.exe",
			ProjectName:    "OtherName",
			Version:        "2.0.0",
		})

		require.NoError(t, err)
		assert.Equal(t, "Other.exe", resolved.ExecutableName)
		assert.Equal(t, "OtherName", resolved.RawName)
		assert.Equal(t, "other-name", resolved.SanitizedName)
		assert.Equal(t, "2.0.0", resolved.Version)
		assert.Equal(t, "1.0.0", base.Version)
	})

	t.Run("Project override that sanitizes to nothing", func(t *testing.T) {
		_, err := base.WithOverrides(Overrides{ProjectName: "---"})

		var empty *EmptyIdentifierError
		require.ErrorAs(t, err, &empty)
		assert.Equal(t, "--proj", empty.Source)
	})
}
