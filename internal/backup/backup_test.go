package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deployTree(t *testing.T) (props, artifact string) {
	t.Helper()
	root := t.TempDir()
	artifact = filepath.Join(root, "stack")
	classes := filepath.Join(artifact, "WEB-INF", "classes")
	require.NoError(t, os.MkdirAll(classes, 0o755))
	props = filepath.Join(classes, "stack.properties")
	require.NoError(t, os.WriteFile(props, []byte("DB.user = stack\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(artifact, "index.jsp"), []byte("<html/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(classes, "app.xml"), []byte("<beans/>"), 0o644))
	return props, artifact
}

func manager(t *testing.T, props, artifact string) *Manager {
	t.Helper()
	return &Manager{
		PropertiesPath: props,
		ArtifactDir:    artifact,
		Root:           filepath.Join(t.TempDir(), "upgrade"),
		Now:            func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func TestSnapshotLayout(t *testing.T) {
	props, artifact := deployTree(t)
	m := manager(t, props, artifact)

	rec, err := m.Snapshot("upgrade")
	require.NoError(t, err)

	assert.Equal(t, "upgrade", rec.Purpose)
	assert.Equal(t, filepath.Join(m.Root, "2026-01-02-03-04-05"), rec.Dir)
	assert.FileExists(t, rec.ConfigPath)
	assert.FileExists(t, filepath.Join(rec.ArtifactPath, "index.jsp"))
	assert.FileExists(t, filepath.Join(rec.ArtifactPath, "WEB-INF", "classes", "app.xml"))
}

func TestRestoreIsByteIdentical(t *testing.T) {
	props, artifact := deployTree(t)
	m := manager(t, props, artifact)

	rec, err := m.Snapshot("upgrade")
	require.NoError(t, err)

	// mutate the live deployment after the snapshot
	require.NoError(t, os.WriteFile(props, []byte("DB.user = broken\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(artifact, "index.jsp"), []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(artifact, "extra.jar"), []byte("junk"), 0o644))

	require.NoError(t, m.Restore(rec))

	data, err := os.ReadFile(props)
	require.NoError(t, err)
	assert.Equal(t, "DB.user = stack\n", string(data))
	data, err = os.ReadFile(filepath.Join(artifact, "index.jsp"))
	require.NoError(t, err)
	assert.Equal(t, "<html/>", string(data))
	assert.NoFileExists(t, filepath.Join(artifact, "extra.jar"))

	// the snapshot itself survives the restore
	assert.FileExists(t, rec.ConfigPath)
}

func TestRestoreConfigLeavesArtifactAlone(t *testing.T) {
	props, artifact := deployTree(t)
	m := manager(t, props, artifact)

	rec, err := m.Snapshot("upgrade")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(props, []byte("changed\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(artifact, "new-version.txt"), []byte("2.0"), 0o644))

	require.NoError(t, m.RestoreConfig(rec))

	data, err := os.ReadFile(props)
	require.NoError(t, err)
	assert.Equal(t, "DB.user = stack\n", string(data))
	assert.FileExists(t, filepath.Join(artifact, "new-version.txt"))
}

func TestSaveAndCopyConfig(t *testing.T) {
	props, artifact := deployTree(t)
	m := manager(t, props, artifact)

	stash := t.TempDir()
	saved, err := m.SaveConfig(stash)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(stash, "stack.properties"), saved)

	require.NoError(t, os.WriteFile(props, []byte("clobbered\n"), 0o644))
	require.NoError(t, m.CopyConfig(saved))

	data, err := os.ReadFile(props)
	require.NoError(t, err)
	assert.Equal(t, "DB.user = stack\n", string(data))
}

func TestSnapshotMissingPropertiesFails(t *testing.T) {
	_, artifact := deployTree(t)
	m := manager(t, filepath.Join(t.TempDir(), "absent.properties"), artifact)

	_, err := m.Snapshot("upgrade")
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "snapshot properties", be.Op)
}

func TestIndexRoundTrip(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenIndex(filepath.Join(t.TempDir(), ".stackctl", "backups.db"))
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()
	require.NoError(t, idx.EnsureSchema(ctx))

	first := Record{
		Timestamp:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Purpose:      "upgrade",
		Dir:          "/home/stack/upgrade/2026-01-01-00-00-00",
		ConfigPath:   "/home/stack/upgrade/2026-01-01-00-00-00/stack.properties",
		ArtifactPath: "/home/stack/upgrade/2026-01-01-00-00-00/stack",
	}
	second := first
	second.Timestamp = first.Timestamp.Add(24 * time.Hour)
	second.Purpose = "rollback"
	second.Dir = "/home/stack/upgrade/2026-01-02-00-00-00"
	second.DBDumpPath = "/home/stack/db-backup/2026-01-02-00-00-00/backup.sql"

	require.NoError(t, idx.Add(ctx, first))
	require.NoError(t, idx.Add(ctx, second))

	got, err := idx.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// most recent first
	assert.Equal(t, "rollback", got[0].Purpose)
	assert.Equal(t, second.DBDumpPath, got[0].DBDumpPath)
	assert.Equal(t, "upgrade", got[1].Purpose)
	assert.Empty(t, got[1].DBDumpPath)
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenIndex(filepath.Join(t.TempDir(), "backups.db"))
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	require.NoError(t, idx.EnsureSchema(ctx))
	require.NoError(t, idx.EnsureSchema(ctx))
}
