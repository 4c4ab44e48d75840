// Package manifest stamps the project name and version into vcpkg.json.
package manifest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/project-builder/internal/constants"
	"github.com/meza/project-builder/internal/i18n"
	"github.com/meza/project-builder/internal/lifecycle"
	"github.com/meza/project-builder/internal/metadata"
	"github.com/meza/project-builder/internal/perf"
)

const (
	namePlaceholder    = `"name": "project-name"`
	versionPlaceholder = `"version-string": "0.0.0"`
)

type infoLogger interface {
	Info(message string)
}

var registerCleanup = lifecycle.Register
var unregisterCleanup = lifecycle.Unregister

// Substitute applies the placeholder replacements to a single line. Only the
// exact placeholder literals are replaced; everything else is returned as is.
func Substitute(line string, project metadata.Project) string {
	line = strings.ReplaceAll(line, namePlaceholder, fmt.Sprintf(`"name": "%s"`, project.SanitizedName))
	line = strings.ReplaceAll(line, versionPlaceholder, fmt.Sprintf(`"version-string": "%s"`, project.Version))
	return line
}

// Generate rewrites dir/vcpkg.json from a temporary template copy of itself.
// An interrupt while the template exists puts the original file back.
func Generate(ctx context.Context, fs afero.Fs, dir string, project metadata.Project, log infoLogger) (err error) {
	_, span := perf.StartSpan(ctx, "io.manifest.generate")
	defer func() {
		span.SetAttributes(attribute.Bool("success", err == nil))
		span.End()
	}()

	log.Info(i18n.T("manifest.generate.start", i18n.Tvars{
		Data: &i18n.TData{
			"manifest": constants.ManifestFile,
			"meta":     constants.MetaFile,
			"version":  constants.VersionFile,
		},
	}))

	manifestPath := filepath.Join(dir, constants.ManifestFile)
	templatePath := filepath.Join(dir, constants.ManifestTemplateFile)
	span.SetAttributes(attribute.String("path", manifestPath))

	exists, err := afero.Exists(fs, manifestPath)
	if err != nil {
		return errors.Wrapf(err, "failed to check %s", manifestPath)
	}
	if !exists {
		return &metadata.MissingFileError{Path: manifestPath}
	}

	original, err := afero.ReadFile(fs, manifestPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", manifestPath)
	}

	info, err := fs.Stat(manifestPath)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %s", manifestPath)
	}
	mode := info.Mode().Perm()

	cleanupID := registerCleanup(func(os.Signal) {
		restore(fs, manifestPath, templatePath, original, mode)
	})
	defer unregisterCleanup(cleanupID)

	// Until the rendered manifest is in place, any failure puts the original back.
	rendered := false
	defer func() {
		if err != nil && !rendered {
			restore(fs, manifestPath, templatePath, original, mode)
		}
	}()

	if err := afero.WriteFile(fs, templatePath, original, mode); err != nil {
		return errors.Wrapf(err, "failed to copy %s to %s", manifestPath, templatePath)
	}

	if exists, _ := afero.Exists(fs, templatePath); !exists {
		return &metadata.MissingFileError{Path: templatePath}
	}

	template, err := afero.ReadFile(fs, templatePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", templatePath)
	}

	if err := writeFileAtomic(fs, manifestPath, render(string(template), project), mode); err != nil {
		return errors.Wrapf(err, "failed to write %s", manifestPath)
	}
	rendered = true

	if err := fs.Remove(templatePath); err != nil {
		return errors.Wrapf(err, "failed to remove %s", templatePath)
	}

	log.Info(i18n.T("manifest.generate.done", i18n.Tvars{
		Data: &i18n.TData{
			"manifest": constants.ManifestFile,
			"template": constants.ManifestTemplateFile,
		},
	}))
	return nil
}

func render(template string, project metadata.Project) []byte {
	var builder strings.Builder
	builder.Grow(len(template))
	for _, line := range strings.SplitAfter(template, "\n") {
		builder.WriteString(Substitute(line, project))
	}
	return []byte(builder.String())
}

// restore puts the original manifest back and drops the template. It does
// nothing once the template is gone, since the generated file is final then.
func restore(fs afero.Fs, manifestPath string, templatePath string, original []byte, mode os.FileMode) {
	exists, err := afero.Exists(fs, templatePath)
	if err != nil || !exists {
		return
	}
	current, err := afero.ReadFile(fs, manifestPath)
	if err != nil || !bytes.Equal(current, original) {
		if err := writeFileAtomic(fs, manifestPath, original, mode); err != nil {
			return
		}
	}
	_ = fs.Remove(templatePath)
}
