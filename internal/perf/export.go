package perf

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/meza/project-builder/internal/constants"
)

type exportEntry struct {
	Name       string                 `json:"name"`
	Parent     string                 `json:"parent,omitempty"`
	Start      time.Time              `json:"start"`
	DurationNS int64                  `json:"duration_ns"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// ExportToFile writes the recorded spans as JSON to <outDir>/builder-perf.json.
// Absolute paths in path-like attributes are rewritten relative to baseDir.
//
// The export is a diagnostic artifact; callers treat errors as non-fatal.
func ExportToFile(outDir string, baseDir string) (string, error) {
	if outDir == "" {
		outDir = "."
	}

	spans, err := GetSpans()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create perf output directory %s", outDir)
	}

	data, err := json.MarshalIndent(exportSpans(spans, baseDir), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to encode perf spans")
	}

	path := filepath.Join(outDir, constants.PerfExportFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	return path, nil
}

func exportSpans(spans []SpanSnapshot, baseDir string) []exportEntry {
	names := make(map[string]string, len(spans))
	for _, span := range spans {
		names[span.SpanID] = span.Name
	}

	out := make([]exportEntry, 0, len(spans))
	for _, span := range spans {
		out = append(out, exportEntry{
			Name:       span.Name,
			Parent:     names[span.ParentSpanID],
			Start:      span.StartTime,
			DurationNS: span.EndTime.Sub(span.StartTime).Nanoseconds(),
			Attributes: normalizeAttributes(span.Attributes, baseDir),
		})
	}
	return out
}

func normalizeAttributes(attrs map[string]interface{}, baseDir string) map[string]interface{} {
	if len(attrs) == 0 {
		return nil
	}

	out := make(map[string]interface{}, len(attrs))
	for key, value := range attrs {
		out[key] = normalizeValue(key, value, baseDir)
	}
	return out
}

func normalizeValue(key string, value interface{}, baseDir string) interface{} {
	stringValue, ok := value.(string)
	if !ok || !looksLikePathKey(key) {
		return value
	}

	if baseDir != "" && filepath.IsAbs(stringValue) {
		if rel, err := filepath.Rel(baseDir, stringValue); err == nil {
			return exportPath(rel)
		}
	}
	return exportPath(stringValue)
}

func looksLikePathKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	return key == "path" || key == "dir" || strings.HasSuffix(key, "_path") || strings.HasSuffix(key, "_dir")
}

func exportPath(value string) string {
	cleaned := filepath.Clean(value)
	if cleaned == "." {
		return cleaned
	}
	return filepath.ToSlash(strings.TrimPrefix(cleaned, "./"))
}
