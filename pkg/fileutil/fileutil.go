package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rohmanhakim/silent-crawler/pkg/failure"
)

// GetFileExtension extracts the file extension from a path, or empty string if none
func GetFileExtension(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	// Remove the leading dot
	return strings.TrimPrefix(ext, ".")
}

func ensureDir(dir string) failure.ClassifiedError {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &FileError{
			Message:   fmt.Sprintf("%v", err),
			Retryable: false,
			Cause:     ErrCausePathError,
		}
	}
	return nil
}

// WriteFile writes data to path, creating the parent directory first.
// The content is written to a sibling temp file and renamed into place,
// so readers never observe a partially written file.
func WriteFile(path string, data []byte) failure.ClassifiedError {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return writeError(err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return writeError(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return writeError(err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return writeError(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return writeError(err)
	}
	return nil
}

// writeError marks a full disk as retryable; every other write failure is final.
func writeError(err error) *FileError {
	return &FileError{
		Message:   err.Error(),
		Retryable: errors.Is(err, syscall.ENOSPC),
		Cause:     ErrCauseWriteError,
	}
}
