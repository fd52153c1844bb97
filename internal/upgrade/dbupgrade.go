package upgrade

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"stackctl/internal/db"
	"stackctl/internal/runner"
)

// DBUpgrade migrates the deployment database schema forward using the
// migrator shipped inside the installed artifact. A logical dump is taken
// first unless the operator opts out, and the migration refuses to run while
// management nodes are registered as alive.
type DBUpgrade struct {
	Runner   runner.Runner
	Portal   db.Portal
	Schema   db.SchemaInspector
	Lister   db.NodeLister
	Migrator db.Migrator

	// ScriptsDir holds the migration scripts inside the artifact tree.
	ScriptsDir string
	// DumpRoot is where pre-upgrade dumps are placed, one per timestamp.
	DumpRoot string

	Force    bool
	NoBackup bool
	DryRun   bool

	// Sleep and Now are overridable for tests.
	Sleep func(time.Duration)
	Now   func() time.Time

	Log *slog.Logger

	dumpPath string
}

// Dump directories share the snapshot naming convention, UTC.
const dumpStampLayout = "2006-01-02-15-04-05"

func (u *DBUpgrade) log() *slog.Logger {
	if u.Log != nil {
		return u.Log
	}
	return slog.Default()
}

func (u *DBUpgrade) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now().UTC()
}

// DumpPath returns where the pre-upgrade dump was written; empty when no
// dump was taken.
func (u *DBUpgrade) DumpPath() string { return u.dumpPath }

// Run performs the schema upgrade. With DryRun it stops after the safety
// checks and reports what would happen.
func (u *DBUpgrade) Run(ctx context.Context) error {
	for _, tool := range []string{"mysql", "mysqldump"} {
		if err := runner.EnsureTool(ctx, u.Runner, tool); err != nil {
			return err
		}
	}
	if _, err := os.Stat(u.Migrator.Tool); err != nil {
		return fmt.Errorf("cannot find %s. Have you run upgrade_management_node?", u.Migrator.Tool)
	}
	if _, err := os.Stat(u.ScriptsDir); err != nil {
		return fmt.Errorf("cannot find %s. Have you run upgrade_management_node?", u.ScriptsDir)
	}

	if err := db.EnsureNodesStopped(ctx, u.Lister, u.Force, u.Sleep); err != nil {
		return err
	}

	hasVersion, err := u.Schema.HasVersionTable(ctx)
	if err != nil {
		return fmt.Errorf("cannot inspect the database schema: %w", err)
	}

	if u.DryRun {
		current := db.BaselineVersion
		if hasVersion {
			current, err = u.Schema.CurrentVersion(ctx)
			if err != nil {
				return err
			}
		}
		u.log().Info("dry run: the database would be migrated",
			"current_version", current,
			"scripts", u.ScriptsDir,
			"backup", !u.NoBackup)
		return nil
	}

	if !u.NoBackup {
		u.dumpPath = filepath.Join(u.DumpRoot, u.now().Format(dumpStampLayout), "backup.sql")
		u.log().Info("dumping the database before migration", "path", u.dumpPath)
		if err := db.Dump(ctx, u.Runner, u.Portal, u.dumpPath); err != nil {
			return err
		}
	} else {
		u.log().Warn("--no-backup is set; the database will be migrated without a safety dump")
	}

	if !hasVersion {
		u.log().Info("the database predates schema versioning; baselining",
			"version", db.BaselineVersion)
		if err := u.Migrator.Baseline(ctx); err != nil {
			return u.failed(err)
		}
	}
	if err := u.Migrator.Migrate(ctx, u.ScriptsDir); err != nil {
		return u.failed(err)
	}

	u.log().Info("successfully upgraded the database")
	return nil
}

func (u *DBUpgrade) failed(err error) error {
	if u.dumpPath != "" {
		return fmt.Errorf("%w; the pre-upgrade dump is retained at %s, use rollback_db to restore it", err, u.dumpPath)
	}
	return err
}
