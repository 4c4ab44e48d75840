package manifest

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// writeFileAtomic replaces targetPath with data through a sibling temp file so
// a failed write never leaves a truncated target behind.
func writeFileAtomic(fs afero.Fs, targetPath string, data []byte, mode os.FileMode) error {
	tempPath, err := nextSiblingPath(fs, targetPath, ".tmp")
	if err != nil {
		return err
	}
	backupPath, err := nextSiblingPath(fs, targetPath, ".bak")
	if err != nil {
		return err
	}

	if err := afero.WriteFile(fs, tempPath, data, mode); err != nil {
		return cleanupTempOnError(fs, tempPath, err)
	}

	exists, err := afero.Exists(fs, targetPath)
	if err != nil {
		return cleanupTempOnError(fs, tempPath, err)
	}
	if !exists {
		return renameTempIntoPlace(fs, tempPath, targetPath)
	}

	return replaceExistingFile(fs, tempPath, targetPath, backupPath)
}

func nextSiblingPath(fs afero.Fs, targetPath string, suffix string) (string, error) {
	base := targetPath + ".builder" + suffix

	candidate := base
	for i := 0; i < 100; i++ {
		exists, err := afero.Exists(fs, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s.%d", base, i+1)
	}

	return "", fmt.Errorf("cannot allocate a sibling path for %s", targetPath)
}

func removePathIfExists(fs afero.Fs, path string) error {
	removeErr := fs.Remove(path)
	if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		return removeErr
	}
	return nil
}

func cleanupTempOnError(fs afero.Fs, tempPath string, cause error) error {
	if cleanupErr := removePathIfExists(fs, tempPath); cleanupErr != nil {
		return errors.Join(cause, fmt.Errorf("failed to remove temp file %s: %w", tempPath, cleanupErr))
	}
	return cause
}

func renameTempIntoPlace(fs afero.Fs, tempPath string, targetPath string) error {
	if renameErr := fs.Rename(tempPath, targetPath); renameErr != nil {
		return cleanupTempOnError(fs, tempPath, renameErr)
	}
	return nil
}

func replaceExistingFile(fs afero.Fs, tempPath string, targetPath string, backupPath string) error {
	// Overwrite-rename keeps the target present throughout where the filesystem allows it.
	if renameErr := fs.Rename(tempPath, targetPath); renameErr == nil {
		return nil
	}

	if renameErr := fs.Rename(targetPath, backupPath); renameErr != nil {
		return cleanupTempOnError(fs, tempPath, renameErr)
	}

	if renameErr := fs.Rename(tempPath, targetPath); renameErr != nil {
		return restoreBackupOnFailure(fs, tempPath, targetPath, backupPath, renameErr)
	}

	if removeErr := removePathIfExists(fs, backupPath); removeErr != nil {
		return fmt.Errorf("failed to remove backup file %s: %w", backupPath, removeErr)
	}
	return nil
}

func restoreBackupOnFailure(fs afero.Fs, tempPath string, targetPath string, backupPath string, renameErr error) error {
	err := cleanupTempOnError(fs, tempPath, renameErr)
	if rollbackErr := fs.Rename(backupPath, targetPath); rollbackErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to restore backup %s: %w", backupPath, rollbackErr))
	}
	return err
}
