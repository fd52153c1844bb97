package upgrade

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"stackctl/internal/db"
	"stackctl/internal/runner"
)

// DBRollback restores a previously taken logical dump over the deployment
// database. Schema migrations are forward-only, so going back in time means
// replacing the data wholesale; the same stopped-nodes gate applies.
type DBRollback struct {
	Runner runner.Runner
	Portal db.Portal
	Lister db.NodeLister

	// DumpPath is the dump to restore, normally produced by upgrade_db.
	DumpPath     string
	RootPassword string
	Force        bool

	Sleep func(time.Duration)
	Log   *slog.Logger
}

func (r *DBRollback) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

func (r *DBRollback) Run(ctx context.Context) error {
	if err := runner.EnsureTool(ctx, r.Runner, "mysql"); err != nil {
		return err
	}
	if _, err := os.Stat(r.DumpPath); err != nil {
		return fmt.Errorf("%s not found", r.DumpPath)
	}

	if err := db.EnsureNodesStopped(ctx, r.Lister, r.Force, r.Sleep); err != nil {
		return err
	}
	if err := db.CheckRootLogin(ctx, r.Runner, r.Portal, r.RootPassword); err != nil {
		return err
	}

	r.log().Info("restoring the database dump", "path", r.DumpPath)
	if err := db.RestoreDump(ctx, r.Runner, r.Portal, r.RootPassword, r.DumpPath); err != nil {
		return err
	}
	r.log().Info("successfully rolled back the database")
	return nil
}
