// Package fileutil writes report and config files without leaving partial
// files behind.
package fileutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrEmptyPath indicates an empty file path was provided.
var ErrEmptyPath = errors.New("path is empty")

// WriteAtomic replaces path with data. The data goes to a temp file in the
// target directory first and is renamed into place after an fsync, so
// readers see either the old file or the new one. Missing parent
// directories are created.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return ErrEmptyPath
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	closed := false
	defer func() {
		if !closed {
			_ = tmp.Close()
		}
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("setting temp file permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	closed = true

	if err := os.Rename(tmpPath, path); err != nil { //nolint:gosec // G703: path comes from the user's own config
		return fmt.Errorf("renaming temp file: %w", err)
	}

	if d, err := os.Open(dir); err == nil { //nolint:gosec // G304: dir is derived from path
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// WriteAtomicFunc renders into memory with write and stores the result with
// WriteAtomic. Nothing is written when write fails.
func WriteAtomicFunc(path string, perm os.FileMode, write func(io.Writer) error) error {
	if path == "" {
		return ErrEmptyPath
	}
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	return WriteAtomic(path, buf.Bytes(), perm)
}
