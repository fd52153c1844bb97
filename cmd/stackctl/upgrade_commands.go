package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"stackctl/internal/db"
	"stackctl/internal/runner"
	"stackctl/internal/upgrade"
)

// createUpgradeManagementNodeCommand creates the upgrade_management_node
// subcommand.
func createUpgradeManagementNodeCommand(stackCommand command, flags *UpgradeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade_management_node",
		Short: "Upgrade the management node to a new artifact",
		Long: `Snapshot the current deployment, stop the node, install the new web
archive, reapply the saved configuration and reinstall the supporting
tools. The node is left stopped; nothing rolls back automatically.

Examples:
  stackctl upgrade_management_node --war-file=/tmp/stack.war
  stackctl upgrade_management_node --war-file=http://mirror/stack.war
  stackctl upgrade_management_node --war-file=/tmp/stack.war --host=192.168.0.2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.UpgradeManagementNode(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.WarFile, "war-file", "", "new artifact: local path or http(s) URL (required)")
	cmd.Flags().StringVar(&flags.Host, "host", "", "run on a remote host over SSH")
	if err := cmd.MarkFlagRequired("war-file"); err != nil {
		panic(err)
	}
	return cmd
}

func (c command) UpgradeManagementNode(f UpgradeFlags) error {
	if f.Host != "" {
		return c.remote(f.Host, "upgrade_management_node", "--war-file="+f.WarFile)
	}
	dc, err := c.deployment()
	if err != nil {
		return err
	}
	props, err := dc.Properties()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	local := runner.Local{}
	idx, err := dc.BackupIndex(ctx)
	if err != nil {
		slog.Warn("backup index unavailable, continuing without it", "err", err)
		idx = nil
	} else {
		defer func() { _ = idx.Close() }()
	}

	up := &upgrade.ManagementUpgrade{
		Backup:        dc.Backups(),
		Index:         idx,
		Node:          dc.AppNode(local, props),
		Runner:        local,
		ArtifactDir:   dc.Home,
		WarFile:       f.WarFile,
		InstallScript: dc.InstallScript(),
		Tools:         dc.SupportingTools(),
		ServerDir:     dc.CatalinaDir(),
		OwnedDir:      dc.InstallRoot(),
		Account:       dc.Account.Name,
		Log:           slog.Default(),
	}
	return up.Run(ctx)
}

// createRollbackManagementNodeCommand creates the rollback_management_node
// subcommand.
func createRollbackManagementNodeCommand(stackCommand command, flags *RollbackFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback_management_node",
		Short: "Roll the management node back to a previous artifact",
		Long: `Snapshot the current (presumably broken) state, stop the node, install
the designated previous artifact and reapply configuration: the snapshot
taken during a previous upgrade, or an explicit --property-file.

Examples:
  stackctl rollback_management_node --war-file=/home/stack/upgrade/2026-01-02-03-04-05/stack.war
  stackctl rollback_management_node --war-file=/tmp/old.war --property-file=/backup/stack.properties`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.RollbackManagementNode(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.WarFile, "war-file", "", "previous artifact: local path or http(s) URL (required)")
	cmd.Flags().StringVar(&flags.PropertyFile, "property-file", "", "property file to reapply instead of the snapshot")
	cmd.Flags().StringVar(&flags.Host, "host", "", "run on a remote host over SSH")
	if err := cmd.MarkFlagRequired("war-file"); err != nil {
		panic(err)
	}
	return cmd
}

func (c command) RollbackManagementNode(f RollbackFlags) error {
	if f.Host != "" {
		args := []string{"rollback_management_node", "--war-file=" + f.WarFile}
		if f.PropertyFile != "" {
			args = append(args, "--property-file="+f.PropertyFile)
		}
		return c.remote(f.Host, args...)
	}
	dc, err := c.deployment()
	if err != nil {
		return err
	}
	props, err := dc.Properties()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	local := runner.Local{}
	idx, err := dc.BackupIndex(ctx)
	if err != nil {
		slog.Warn("backup index unavailable, continuing without it", "err", err)
		idx = nil
	} else {
		defer func() { _ = idx.Close() }()
	}

	rb := &upgrade.ManagementRollback{
		Backup:        dc.Backups(),
		Index:         idx,
		Node:          dc.AppNode(local, props),
		Runner:        local,
		ArtifactDir:   dc.Home,
		WarFile:       f.WarFile,
		PropertyFile:  f.PropertyFile,
		InstallScript: dc.InstallScript(),
		Tools:         dc.SupportingTools(),
		Log:           slog.Default(),
	}
	return rb.Run(ctx)
}

// createUpgradeDBCommand creates the upgrade_db subcommand.
func createUpgradeDBCommand(stackCommand command, flags *DBUpgradeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade_db",
		Short: "Migrate the database schema forward",
		Long: `Run the pending schema migrations shipped with the installed artifact.
The migration refuses to run while management nodes are registered as
alive; a logical dump is taken first unless --no-backup is given.

Examples:
  stackctl upgrade_db
  stackctl upgrade_db --dry-run
  stackctl upgrade_db --force --no-backup`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.UpgradeDB(*flags)
		},
	}
	cmd.Flags().BoolVar(&flags.Force, "force", false, "treat unchanging node records as stale")
	cmd.Flags().BoolVar(&flags.NoBackup, "no-backup", false, "skip the pre-migration dump")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "stop after the safety checks")
	return cmd
}

func (c command) UpgradeDB(f DBUpgradeFlags) error {
	dc, err := c.deployment()
	if err != nil {
		return err
	}
	props, err := dc.Properties()
	if err != nil {
		return err
	}
	portal, err := dc.Portal(props)
	if err != nil {
		return err
	}
	handle, err := portal.Open()
	if err != nil {
		return err
	}
	defer func() { _ = handle.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	if err := portal.CheckReachable(ctx, dc.Opts.ProbeTimeout); err != nil {
		return err
	}

	local := runner.Local{}
	up := &upgrade.DBUpgrade{
		Runner: local,
		Portal: portal,
		Schema: db.SQLSchema{DB: handle},
		Lister: db.SQLNodes{DB: handle},
		Migrator: db.Migrator{
			Runner: local,
			Tool:   dc.MigratorTool(),
			Portal: portal,
		},
		ScriptsDir: dc.MigrationScriptsDir(),
		DumpRoot:   dc.DumpRoot(),
		Force:      f.Force,
		NoBackup:   f.NoBackup,
		DryRun:     f.DryRun,
		Log:        slog.Default(),
	}
	return up.Run(ctx)
}

// createRollbackDBCommand creates the rollback_db subcommand.
func createRollbackDBCommand(stackCommand command, flags *DBRollbackFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback_db",
		Short: "Restore the database from a dump",
		Long: `Feed a previously taken dump back into the database as the
administrative user. Migrations are forward-only; this is how the schema
goes back.

Examples:
  stackctl rollback_db --db-dump=/home/stack/db-backup/2026-01-02-03-04-05/backup.sql
  stackctl rollback_db --db-dump=/tmp/backup.sql --root-password=secret --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.RollbackDB(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.DumpPath, "db-dump", "", "dump file to restore (required)")
	cmd.Flags().StringVar(&flags.RootPassword, "root-password", "", "database root password (empty by default)")
	cmd.Flags().BoolVar(&flags.Force, "force", false, "treat unchanging node records as stale")
	if err := cmd.MarkFlagRequired("db-dump"); err != nil {
		panic(err)
	}
	return cmd
}

func (c command) RollbackDB(f DBRollbackFlags) error {
	dc, err := c.deployment()
	if err != nil {
		return err
	}
	props, err := dc.Properties()
	if err != nil {
		return err
	}
	portal, err := dc.Portal(props)
	if err != nil {
		return err
	}
	handle, err := portal.Open()
	if err != nil {
		return err
	}
	defer func() { _ = handle.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	if err := portal.CheckReachable(ctx, dc.Opts.ProbeTimeout); err != nil {
		return err
	}

	rb := &upgrade.DBRollback{
		Runner:       runner.Local{},
		Portal:       portal,
		Lister:       db.SQLNodes{DB: handle},
		DumpPath:     f.DumpPath,
		RootPassword: f.RootPassword,
		Force:        f.Force,
		Log:          slog.Default(),
	}
	return rb.Run(ctx)
}
