package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stackctl/internal/logger"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the root command and wires every subcommand.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	nodeFlags := &NodeFlags{}
	saveFlags := &SaveConfigFlags{}
	restoreFlags := &RestoreConfigFlags{}
	upgradeFlags := &UpgradeFlags{}
	rollbackFlags := &RollbackFlags{}
	dbUpgradeFlags := &DBUpgradeFlags{}
	dbRollbackFlags := &DBRollbackFlags{}
	uiFlags := &HostFlags{}
	tsdbFlags := &TSDBFlags{}

	stackCommand := command{global: globalFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createStatusCommand(stackCommand, &HostFlags{}),
		createStartNodeCommand(stackCommand, nodeFlags),
		createStopNodeCommand(stackCommand, nodeFlags),
		createStartCommand(stackCommand, nodeFlags),
		createStopCommand(stackCommand, nodeFlags),
		createSaveConfigCommand(stackCommand, saveFlags),
		createRestoreConfigCommand(stackCommand, restoreFlags),
		createConfigureCommand(stackCommand),
		createShowConfigurationCommand(stackCommand),
		createSetenvCommand(stackCommand),
		createGetenvCommand(stackCommand),
		createUnsetenvCommand(stackCommand),
		createUpgradeManagementNodeCommand(stackCommand, upgradeFlags),
		createRollbackManagementNodeCommand(stackCommand, rollbackFlags),
		createUpgradeDBCommand(stackCommand, dbUpgradeFlags),
		createRollbackDBCommand(stackCommand, dbRollbackFlags),
		createStartUICommand(stackCommand, uiFlags),
		createStopUICommand(stackCommand, uiFlags),
		createUIStatusCommand(stackCommand, uiFlags),
		createTSDBCommand(stackCommand, tsdbFlags),
	)
	return root
}

// createRootCommand creates the root command with the persistent flags.
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "stackctl",
		Short: "Lifecycle and upgrade control for a stack deployment",
		Long: `stackctl operates a deployment made of a database, a message broker, an
optional time-series store, the management node and an optional web UI.

Examples:
  stackctl status
  stackctl start_node --timeout=300
  stackctl upgrade_management_node --war-file=/tmp/stack.war`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup(flags.Verbose, flags.LogFile)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&flags.LogFile, "log-file", "", "also write logs to this rotating file")

	return root
}
