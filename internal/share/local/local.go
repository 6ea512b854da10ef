// Package local delivers backup files into a directory on disk.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Dir writes each delivered file into Path, creating it if needed.
type Dir struct {
	Path string
}

func New(path string) *Dir {
	return &Dir{Path: path}
}

// Deliver writes data to Path/filename. The filename must be a bare name.
func (d *Dir) Deliver(ctx context.Context, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if filename == "" || filepath.Base(filename) != filename {
		return fmt.Errorf("invalid backup filename %q", filename)
	}
	if d.Path == "" {
		return errors.New("download directory is not configured")
	}
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}

	// Write to a temp file first so a partial backup never replaces a good one.
	tmp, err := os.CreateTemp(d.Path, "."+filename+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close backup: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.Path, filename)); err != nil {
		return fmt.Errorf("move backup into place: %w", err)
	}
	return nil
}
