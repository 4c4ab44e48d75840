// Package archive packs the project sources into files.zip.
package archive

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/project-builder/internal/constants"
	"github.com/meza/project-builder/internal/perf"
)

var zipFileInfoHeader = zip.FileInfoHeader

// Zip writes root/files.zip containing every regular file under root except
// the archive itself, the build directory and any top-level directory whose
// name starts with a dot. It returns the number of files written.
func Zip(ctx context.Context, fs afero.Fs, root string, buildDir string) (count int, err error) {
	archivePath := filepath.Join(root, constants.ArchiveFile)

	_, span := perf.StartSpan(ctx, "io.archive.write")
	span.SetAttributes(attribute.String("path", archivePath))
	defer func() {
		span.SetAttributes(
			attribute.Int("files", count),
			attribute.Bool("success", err == nil),
		)
		span.End()
	}()

	outputFile, err := fs.Create(archivePath)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to create %s", archivePath)
	}
	defer func() {
		if closeErr := outputFile.Close(); closeErr != nil && err == nil {
			err = errors.Wrapf(closeErr, "failed to close %s", archivePath)
		}
	}()

	zipWriter := zip.NewWriter(outputFile)
	buildPath := filepath.Join(root, buildDir)

	walkErr := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path == root {
				return nil
			}
			if path == buildPath || isHiddenTopLevel(root, path) {
				return filepath.SkipDir
			}
			return nil
		}

		if path == archivePath || !info.Mode().IsRegular() {
			return nil
		}

		if err := addFile(fs, zipWriter, root, path, info); err != nil {
			return err
		}
		count++
		return nil
	})
	if walkErr != nil {
		_ = zipWriter.Close()
		return count, walkErr
	}

	if err := zipWriter.Close(); err != nil {
		return count, errors.Wrapf(err, "failed to finalize %s", archivePath)
	}

	return count, nil
}

// Hidden directories nested below the root are archived like any other.
func isHiddenTopLevel(root string, path string) bool {
	relative, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return strings.HasPrefix(relative, ".") && !strings.ContainsRune(relative, filepath.Separator)
}

func addFile(fs afero.Fs, zipWriter *zip.Writer, root string, path string, info os.FileInfo) error {
	relative, err := filepath.Rel(root, path)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve %s", path)
	}

	header, err := zipFileInfoHeader(info)
	if err != nil {
		return errors.Wrapf(err, "failed to create zip header for %s", path)
	}
	header.Name = filepath.ToSlash(relative)
	header.Method = zip.Deflate

	entryWriter, err := zipWriter.CreateHeader(header)
	if err != nil {
		return errors.Wrapf(err, "failed to write zip header for %s", path)
	}

	inputFile, err := fs.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	defer func() {
		_ = inputFile.Close()
	}()

	if _, err := io.Copy(entryWriter, inputFile); err != nil {
		return errors.Wrapf(err, "failed to write zip contents for %s", path)
	}
	return nil
}
