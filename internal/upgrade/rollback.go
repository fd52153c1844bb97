package upgrade

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"stackctl/internal/backup"
	"stackctl/internal/runner"
	"stackctl/internal/service"
)

// ManagementRollback is the mirror of ManagementUpgrade: it snapshots the
// current (post-failed-upgrade) state, stops the node, installs the
// designated previous artifact and reapplies configuration. There is no
// grace-period verification here; the caller decides which version to go
// back to.
type ManagementRollback struct {
	Backup *backup.Manager
	Index  *backup.Index
	Node   *service.Controller
	Runner runner.Runner

	ArtifactDir string
	// WarFile is the previous artifact: a local path or an http(s) URL.
	WarFile string
	// PropertyFile optionally overrides the configuration to reapply;
	// empty means the configuration snapshotted during BackingUp.
	PropertyFile  string
	InstallScript string
	Tools         []string

	Log *slog.Logger

	state   State
	rec     backup.Record
	warPath string
}

func (r *ManagementRollback) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

// State reports the machine's current phase.
func (r *ManagementRollback) State() State { return r.state }

// Record returns the snapshot of the state being rolled away from.
func (r *ManagementRollback) Record() backup.Record { return r.rec }

func (r *ManagementRollback) needsDownload() bool {
	return strings.HasPrefix(r.WarFile, "http")
}

func (r *ManagementRollback) Run(ctx context.Context) error {
	if err := runner.EnsureTool(ctx, r.Runner, "unzip"); err != nil {
		return err
	}
	if r.needsDownload() {
		if err := runner.EnsureTool(ctx, r.Runner, "wget"); err != nil {
			return err
		}
	} else {
		r.warPath = r.WarFile
		if _, err := os.Stat(r.warPath); err != nil {
			return fmt.Errorf("%s not found", r.warPath)
		}
	}
	if r.PropertyFile != "" {
		if _, err := os.Stat(r.PropertyFile); err != nil {
			return fmt.Errorf("%s not found", r.PropertyFile)
		}
	}

	steps := []step{
		{BackingUp, r.backingUp},
		{Stopping, r.stopping},
		{Replacing, r.replacing},
		{Restoring, r.restoring},
		{Verifying, r.verifying},
	}
	failedAt, err := runSteps(ctx, steps, &r.state)
	if err != nil {
		if r.rec.Dir != "" {
			return fmt.Errorf("rollback failed during %s: %w; the pre-rollback state is retained at %s",
				failedAt, err, r.rec.Dir)
		}
		return fmt.Errorf("rollback failed during %s: %w", failedAt, err)
	}

	r.log().Info("successfully rolled back the management node",
		"backup_dir", r.rec.Dir)
	r.log().Info("the node was left stopped; verify the restored version and start it with start_node")
	return nil
}

func (r *ManagementRollback) backingUp(ctx context.Context) error {
	rec, err := r.Backup.Snapshot("rollback")
	if err != nil {
		return err
	}
	r.rec = rec
	if r.Index != nil {
		if err := r.Index.Add(ctx, rec); err != nil {
			r.log().Warn("could not record snapshot in the backup index", "err", err)
		}
	}
	r.log().Info("backed up the current deployment", "dir", rec.Dir)

	if r.needsDownload() {
		r.warPath = filepath.Join(rec.Dir, filepath.Base(r.WarFile))
		if _, err := runner.Output(ctx, r.Runner,
			runner.New("wget", "--no-check-certificate", r.WarFile, "-O", r.warPath)); err != nil {
			return err
		}
		r.log().Info("downloaded the previous artifact", "path", r.warPath)
	}
	return nil
}

func (r *ManagementRollback) stopping(ctx context.Context) error {
	r.log().Info("stopping the management node")
	return r.Node.Stop(ctx, false)
}

func (r *ManagementRollback) replacing(ctx context.Context) error {
	r.log().Info("installing the previous artifact")
	artifact := filepath.Clean(r.ArtifactDir)
	if err := os.RemoveAll(artifact); err != nil {
		return err
	}
	_, err := runner.Output(ctx, r.Runner, runner.New("unzip", r.warPath, "-d", artifact))
	return err
}

func (r *ManagementRollback) restoring(context.Context) error {
	r.log().Info("restoring the configuration")
	if r.PropertyFile != "" {
		return r.Backup.CopyConfig(r.PropertyFile)
	}
	return r.Backup.RestoreConfig(r.rec)
}

func (r *ManagementRollback) verifying(ctx context.Context) error {
	installer := filepath.Join(r.ArtifactDir, r.InstallScript)
	if _, err := os.Stat(installer); err != nil {
		return fmt.Errorf("cannot find %s, please make sure the management node is installed", installer)
	}
	for _, tool := range r.Tools {
		r.log().Info("reinstalling supporting tool", "tool", tool)
		if _, err := runner.Output(ctx, r.Runner, runner.New("bash", installer, tool)); err != nil {
			return err
		}
	}
	return nil
}
