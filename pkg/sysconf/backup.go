package sysconf

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// FileBackup saves a system file once before it is first overwritten and
// puts it back on restore. A file that did not exist is recorded with a
// marker so restore removes what was written in its place.
type FileBackup struct {
	Path string
	Dir  string
}

func (b *FileBackup) backupPath() string {
	return filepath.Join(b.Dir, filepath.Base(b.Path))
}

func (b *FileBackup) markerPath() string {
	return b.backupPath() + ".absent"
}

func (b *FileBackup) Backup() error {
	if exists(b.backupPath()) || exists(b.markerPath()) {
		return nil
	}
	if err := os.MkdirAll(b.Dir, 0o700); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	src, err := os.Open(b.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return os.WriteFile(b.markerPath(), nil, 0o600)
	}
	if err != nil {
		return err
	}
	defer src.Close()

	if err := copyTo(b.backupPath(), src, 0o644); err != nil {
		return fmt.Errorf("back up %s: %w", b.Path, err)
	}
	log.Debugf("backed up %s to %s", b.Path, b.backupPath())
	return nil
}

// Restore returns the file to its saved state. Without a backup the live
// file is left alone.
func (b *FileBackup) Restore() error {
	if exists(b.markerPath()) {
		if err := os.Remove(b.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return os.Remove(b.markerPath())
	}

	src, err := os.Open(b.backupPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	if err := copyTo(b.Path, src, 0o644); err != nil {
		return fmt.Errorf("restore %s: %w", b.Path, err)
	}
	log.Debugf("restored %s from %s", b.Path, b.backupPath())
	return os.Remove(b.backupPath())
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	tmp := path + ".new"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cannot move temp file to %s: %w", path, err)
	}
	return nil
}

func copyTo(path string, r io.Reader, perm fs.FileMode) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data, perm)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
