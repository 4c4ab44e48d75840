package toolchain

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/meza/project-builder/internal/constants"
)

// Environment returns the environment handed to every external tool: the
// given base environment plus any values from root/.env that it does not
// already define.
func Environment(fs afero.Fs, root string, base []string) ([]string, error) {
	fileValues, err := readEnvFile(fs, filepath.Join(root, constants.EnvFile))
	if err != nil {
		return nil, err
	}

	envMap := envSliceToMap(base)
	for key, value := range fileValues {
		if _, exists := envMap[key]; exists {
			continue
		}
		envMap[key] = value
	}
	return envMapToSlice(envMap), nil
}

func readEnvFile(fs afero.Fs, path string) (map[string]string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	values, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return values, nil
}

func envSliceToMap(entries []string) map[string]string {
	envMap := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		envMap[key] = value
	}
	return envMap
}

func envMapToSlice(envMap map[string]string) []string {
	keys := make([]string, 0, len(envMap))
	for key := range envMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]string, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, key+"="+envMap[key])
	}
	return entries
}
