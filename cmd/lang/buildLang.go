// Command lang merges the per-area translation sources under
// internal/i18n/localise/<locale>/ into the embedded internal/i18n/lang/<locale>.json.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var exit = os.Exit

func main() {
	exit(runMain(afero.NewOsFs(), os.Args[1:]))
}

func runMain(fs afero.Fs, args []string) int {
	cmd := command(fs)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func command(fs afero.Fs) *cobra.Command {
	var sourceDir, outputDir string

	cmd := &cobra.Command{
		Use:           "lang",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			written, err := buildLanguages(fs, sourceDir, outputDir)
			if err != nil {
				return err
			}
			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceDir, "src", filepath.FromSlash("internal/i18n/localise"), "directory with one sub-directory per locale")
	cmd.Flags().StringVar(&outputDir, "out", filepath.FromSlash("internal/i18n/lang"), "directory the merged files are written to")
	return cmd
}

// buildLanguages writes one merged file per locale directory and returns the
// paths written. A key defined in two source files of the same locale is an
// error.
func buildLanguages(fs afero.Fs, sourceDir string, outputDir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, sourceDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", sourceDir)
	}

	if err := fs.MkdirAll(outputDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", outputDir)
	}

	var written []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		locale := entry.Name()
		merged, err := mergeLocale(fs, filepath.Join(sourceDir, locale))
		if err != nil {
			return written, err
		}

		data, err := encode(merged)
		if err != nil {
			return written, errors.Wrapf(err, "failed to encode %s", locale)
		}

		outputPath := filepath.Join(outputDir, locale+".json")
		if err := afero.WriteFile(fs, outputPath, data, 0o644); err != nil {
			return written, errors.Wrapf(err, "failed to write %s", outputPath)
		}
		written = append(written, outputPath)
	}

	return written, nil
}

func mergeLocale(fs afero.Fs, localeDir string) (map[string]string, error) {
	files, err := afero.ReadDir(fs, localeDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", localeDir)
	}

	merged := make(map[string]string)
	origin := make(map[string]string)
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		path := filepath.Join(localeDir, file.Name())
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}

		var values map[string]string
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", path)
		}

		for key, value := range values {
			if previous, exists := origin[key]; exists {
				return nil, errors.Errorf("key %q is defined in both %s and %s", key, previous, path)
			}
			origin[key] = path
			merged[key] = value
		}
	}

	return merged, nil
}

// encode relies on encoding/json writing map keys in sorted order.
func encode(values map[string]string) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(values); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
