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

// ManagementUpgrade replaces the management node artifact with a new
// version: snapshot, stop, replace, reapply configuration, reinstall the
// supporting tools. The node is left stopped; starting it again is the
// operator's decision.
type ManagementUpgrade struct {
	Backup *backup.Manager
	Index  *backup.Index // optional ledger
	Node   *service.Controller
	Runner runner.Runner

	// ArtifactDir is the live exploded artifact tree ($STACK_HOME).
	ArtifactDir string
	// WarFile is the new artifact: a local path or an http(s) URL.
	WarFile string
	// InstallScript is the tool installer, relative to ArtifactDir.
	InstallScript string
	// Tools are reinstalled from the new artifact during Verifying.
	Tools []string
	// ServerDir keeps a copy of the new archive next to the container.
	ServerDir string
	// OwnedDir is chowned to Account after the install.
	OwnedDir string
	Account  string

	Log *slog.Logger

	state   State
	rec     backup.Record
	warPath string
}

func (u *ManagementUpgrade) log() *slog.Logger {
	if u.Log != nil {
		return u.Log
	}
	return slog.Default()
}

// State reports the machine's current phase.
func (u *ManagementUpgrade) State() State { return u.state }

// Record returns the snapshot taken by BackingUp; valid once Run has passed
// that phase.
func (u *ManagementUpgrade) Record() backup.Record { return u.rec }

func (u *ManagementUpgrade) needsDownload() bool {
	return strings.HasPrefix(u.WarFile, "http")
}

// Run drives the machine to Done or Failed. On failure the error names the
// phase and, once a snapshot exists, where the backup is retained: the
// inverse rollback command is manual, never automatic.
func (u *ManagementUpgrade) Run(ctx context.Context) error {
	if err := runner.EnsureTool(ctx, u.Runner, "unzip"); err != nil {
		return err
	}
	if u.needsDownload() {
		if err := runner.EnsureTool(ctx, u.Runner, "wget"); err != nil {
			return err
		}
	} else {
		u.warPath = u.WarFile
		if _, err := os.Stat(u.warPath); err != nil {
			return fmt.Errorf("%s not found", u.warPath)
		}
	}

	steps := []step{
		{BackingUp, u.backingUp},
		{Stopping, u.stopping},
		{Replacing, u.replacing},
		{Restoring, u.restoring},
		{Verifying, u.verifying},
	}
	failedAt, err := runSteps(ctx, steps, &u.state)
	if err != nil {
		if u.rec.Dir != "" {
			return fmt.Errorf("upgrade failed during %s: %w; the backup is retained at %s, use rollback_management_node to recover manually",
				failedAt, err, u.rec.Dir)
		}
		return fmt.Errorf("upgrade failed during %s: %w", failedAt, err)
	}

	u.log().Info("successfully upgraded the management node",
		"properties_backup", u.rec.ConfigPath,
		"artifact_backup", u.rec.ArtifactPath,
		"backup_dir", u.rec.Dir)
	u.log().Info("the node was left stopped; test the new version and start it with start_node. " +
		"If anything is wrong, use rollback_management_node with the backup above")
	return nil
}

func (u *ManagementUpgrade) backingUp(ctx context.Context) error {
	rec, err := u.Backup.Snapshot("upgrade")
	if err != nil {
		return err
	}
	u.rec = rec
	if u.Index != nil {
		// the ledger is a convenience; a write failure must not block the upgrade
		if err := u.Index.Add(ctx, rec); err != nil {
			u.log().Warn("could not record snapshot in the backup index", "err", err)
		}
	}
	u.log().Info("backed up the current deployment", "dir", rec.Dir)

	if u.needsDownload() {
		u.warPath = filepath.Join(rec.Dir, "new", filepath.Base(u.WarFile))
		if err := os.MkdirAll(filepath.Dir(u.warPath), 0o755); err != nil {
			return err
		}
		if _, err := runner.Output(ctx, u.Runner,
			runner.New("wget", "--no-check-certificate", u.WarFile, "-O", u.warPath)); err != nil {
			return err
		}
		u.log().Info("downloaded the new artifact", "path", u.warPath)
	}
	return nil
}

func (u *ManagementUpgrade) stopping(ctx context.Context) error {
	u.log().Info("stopping the management node")
	return u.Node.Stop(ctx, false)
}

func (u *ManagementUpgrade) replacing(ctx context.Context) error {
	u.log().Info("replacing the management node artifact")
	artifact := filepath.Clean(u.ArtifactDir)
	webappDir := filepath.Dir(artifact)

	if err := os.RemoveAll(artifact); err != nil {
		return err
	}
	if _, err := runner.Output(ctx, u.Runner, runner.New("cp", u.warPath, webappDir)); err != nil {
		return err
	}
	unzip := runner.New("unzip", "-o", filepath.Base(u.warPath), "-d", filepath.Base(artifact))
	unzip.WorkDir = webappDir
	_, err := runner.Output(ctx, u.Runner, unzip)
	return err
}

func (u *ManagementUpgrade) restoring(context.Context) error {
	u.log().Info("restoring the saved configuration onto the new artifact")
	return u.Backup.RestoreConfig(u.rec)
}

func (u *ManagementUpgrade) verifying(ctx context.Context) error {
	installer := filepath.Join(u.ArtifactDir, u.InstallScript)
	if _, err := os.Stat(installer); err != nil {
		return fmt.Errorf("cannot find %s, please make sure the management node is installed", installer)
	}
	for _, tool := range u.Tools {
		u.log().Info("reinstalling supporting tool", "tool", tool)
		if _, err := runner.Output(ctx, u.Runner, runner.New("bash", installer, tool)); err != nil {
			return err
		}
	}
	if u.ServerDir != "" {
		if _, err := runner.Output(ctx, u.Runner, runner.New("cp", "-f", u.warPath, u.ServerDir)); err != nil {
			return err
		}
	}
	if u.OwnedDir != "" && u.Account != "" {
		owner := u.Account + ":" + u.Account
		if _, err := runner.Output(ctx, u.Runner, runner.New("chown", "-R", owner, u.OwnedDir)); err != nil {
			return err
		}
	}
	return nil
}
