// Package backup snapshots the deployment's configuration, artifact tree and
// (for database mutations) a logical dump into a timestamp-named directory
// before any destructive operation. Snapshots are write-once and only ever
// deleted by the operator.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Timestamp layout of snapshot directory names, UTC.
const stampLayout = "2006-01-02-15-04-05"

// Error wraps a failed backup or restore step.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("backup: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Record locates the components of one snapshot. Never mutated after
// creation.
type Record struct {
	Timestamp    time.Time
	Purpose      string
	Dir          string
	ConfigPath   string
	ArtifactPath string
	DBDumpPath   string
}

// Manager snapshots and restores the property file and artifact tree of the
// managed application.
type Manager struct {
	// PropertiesPath is the live property file.
	PropertiesPath string
	// ArtifactDir is the live artifact tree (the exploded web archive).
	ArtifactDir string
	// Root is where snapshot directories are created, e.g. ~stack/upgrade.
	Root string

	// now is overridable for tests.
	Now func() time.Time
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

// Snapshot copies the current configuration and artifact into a new
// timestamp-named directory and returns its Record.
func (m *Manager) Snapshot(purpose string) (Record, error) {
	ts := m.now()
	dir := filepath.Join(m.Root, ts.Format(stampLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Record{}, &Error{Op: "create snapshot dir", Err: err}
	}

	rec := Record{
		Timestamp:    ts,
		Purpose:      purpose,
		Dir:          dir,
		ConfigPath:   filepath.Join(dir, filepath.Base(m.PropertiesPath)),
		ArtifactPath: filepath.Join(dir, filepath.Base(filepath.Clean(m.ArtifactDir))),
	}

	if err := copyFile(m.PropertiesPath, rec.ConfigPath); err != nil {
		return Record{}, &Error{Op: "snapshot properties", Err: err}
	}
	if err := copyTree(m.ArtifactDir, rec.ArtifactPath); err != nil {
		return Record{}, &Error{Op: "snapshot artifact", Err: err}
	}
	return rec, nil
}

// Restore copies each snapshot component back to its original location,
// overwriting in place. The copy is not atomic: a failure mid-restore can
// leave a mixed state. The snapshot itself is never deleted.
func (m *Manager) Restore(rec Record) error {
	if err := copyFile(rec.ConfigPath, m.PropertiesPath); err != nil {
		return &Error{Op: "restore properties", Err: err}
	}
	if err := os.RemoveAll(m.ArtifactDir); err != nil {
		return &Error{Op: "clear artifact dir", Err: err}
	}
	if err := copyTree(rec.ArtifactPath, m.ArtifactDir); err != nil {
		return &Error{Op: "restore artifact", Err: err}
	}
	return nil
}

// RestoreConfig reapplies only the snapshotted property file, leaving the
// artifact alone. Upgrades use this after installing a fresh artifact that
// does not ship configuration.
func (m *Manager) RestoreConfig(rec Record) error {
	if err := copyFile(rec.ConfigPath, m.PropertiesPath); err != nil {
		return &Error{Op: "restore properties", Err: err}
	}
	return nil
}

// SaveConfig copies the live property file into dir and returns the copy's
// path.
func (m *Manager) SaveConfig(dir string) (string, error) {
	dst := filepath.Join(dir, filepath.Base(m.PropertiesPath))
	if err := copyFile(m.PropertiesPath, dst); err != nil {
		return "", &Error{Op: "save properties", Err: err}
	}
	return dst, nil
}

// CopyConfig writes an arbitrary property file over the live one; rollback
// uses it when the operator supplies an explicit file.
func (m *Manager) CopyConfig(src string) error {
	if err := copyFile(src, m.PropertiesPath); err != nil {
		return &Error{Op: "restore properties", Err: err}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func copyTree(src, dst string) error {
	src = filepath.Clean(src)
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())
		}
		if d.Type()&os.ModeSymlink != 0 {
			dest, err := os.Readlink(path)
			if err != nil {
				return err
			}
			_ = os.Remove(target)
			return os.Symlink(dest, target)
		}
		return copyFile(path, target)
	})
}
