package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"stackctl/internal/config"
)

// defaultConfigStash is where save_config puts the copy when --save-to is
// not given.
func defaultConfigStash() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stack"
	}
	return filepath.Join(home, ".stack")
}

// createSaveConfigCommand creates the save_config subcommand.
func createSaveConfigCommand(stackCommand command, flags *SaveConfigFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save_config",
		Short: "Save the management node configuration",
		Long: `Copy the live property file aside so it can be reapplied later with
restore_config.

Examples:
  stackctl save_config
  stackctl save_config --save-to=/backup/stack`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.SaveConfig(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.SaveTo, "save-to", "", "directory to save into (default ~/.stack)")
	return cmd
}

func (c command) SaveConfig(f SaveConfigFlags) error {
	dc, err := c.deployment()
	if err != nil {
		return err
	}
	dir := f.SaveTo
	if dir == "" {
		dir = defaultConfigStash()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	saved, err := dc.Backups().SaveConfig(dir)
	if err != nil {
		return err
	}
	printf("saved configuration to %s", saved)
	return nil
}

// createRestoreConfigCommand creates the restore_config subcommand.
func createRestoreConfigCommand(stackCommand command, flags *RestoreConfigFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore_config",
		Short: "Restore a previously saved configuration",
		Long: `Copy a saved property file back over the live one.

Examples:
  stackctl restore_config
  stackctl restore_config --restore-from=/backup/stack/stack.properties`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.RestoreConfig(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.RestoreFrom, "restore-from", "", "saved property file or its directory (default ~/.stack)")
	return cmd
}

func (c command) RestoreConfig(f RestoreConfigFlags) error {
	dc, err := c.deployment()
	if err != nil {
		return err
	}
	src := f.RestoreFrom
	if src == "" {
		src = defaultConfigStash()
	}
	if info, err := os.Stat(src); err == nil && info.IsDir() {
		src = filepath.Join(src, filepath.Base(dc.PropertiesPath()))
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("cannot find saved configuration at %s", src)
	}
	if err := dc.Backups().CopyConfig(src); err != nil {
		return err
	}
	printf("restored configuration from %s", src)
	return nil
}

// createConfigureCommand creates the configure subcommand.
func createConfigureCommand(stackCommand command) *cobra.Command {
	return &cobra.Command{
		Use:   "configure KEY=VALUE ...",
		Short: "Set properties of the management node",
		Long: `Write one or more key=value pairs into the property file. The rewrite
runs under the service account and preserves file order and comments.

Examples:
  stackctl configure DB.url=jdbc:mysql://192.168.0.2:3306
  stackctl configure Bus.serverIp.0=192.168.0.3 Bus.serverIp.1=192.168.0.4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.Configure(args)
		},
	}
}

func (c command) Configure(args []string) error {
	pairs := make([]config.KV, 0, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return fmt.Errorf("invalid argument %q, expected KEY=VALUE", a)
		}
		pairs = append(pairs, config.KV{Key: k, Value: v})
	}
	dc, err := c.deployment()
	if err != nil {
		return err
	}
	props, err := dc.Properties()
	if err != nil {
		return err
	}
	props.SetAll(pairs)
	return props.Write()
}

// createShowConfigurationCommand creates the show_configuration subcommand.
func createShowConfigurationCommand(stackCommand command) *cobra.Command {
	return &cobra.Command{
		Use:   "show_configuration",
		Short: "Print the management node properties",
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.ShowConfiguration()
		},
	}
}

func (c command) ShowConfiguration() error {
	dc, err := c.deployment()
	if err != nil {
		return err
	}
	props, err := dc.Properties()
	if err != nil {
		return err
	}
	for _, kv := range props.All() {
		printf("%s = %s", kv.Key, kv.Value)
	}
	return nil
}

// createSetenvCommand creates the setenv subcommand.
func createSetenvCommand(stackCommand command) *cobra.Command {
	return &cobra.Command{
		Use:   "setenv KEY=VALUE ...",
		Short: "Set variables in the deployment env file",
		Long: `Write key=value pairs into the per-account env file. STACK_HOME set here
changes where every other command looks for the installation.

Examples:
  stackctl setenv STACK_HOME=/opt/stack/apache-tomcat/webapps/stack
  stackctl setenv TSDB_EXEC=/usr/local/tsdb/tsdbd TSDB_CONF=/etc/tsdb.conf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.Setenv(args)
		},
	}
}

func (c command) Setenv(args []string) error {
	pairs := make([]config.KV, 0, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return fmt.Errorf("invalid argument %q, expected KEY=VALUE", a)
		}
		pairs = append(pairs, config.KV{Key: k, Value: v})
	}
	dc, err := c.deployment()
	if err != nil {
		return err
	}
	env, err := dc.Env()
	if err != nil {
		return err
	}
	env.SetAll(pairs)
	return env.Write()
}

// createGetenvCommand creates the getenv subcommand.
func createGetenvCommand(stackCommand command) *cobra.Command {
	return &cobra.Command{
		Use:   "getenv [KEY]",
		Short: "Print variables from the deployment env file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) > 0 {
				key = args[0]
			}
			return stackCommand.Getenv(key)
		},
	}
}

func (c command) Getenv(key string) error {
	dc, err := c.deployment()
	if err != nil {
		return err
	}
	env, err := dc.Env()
	if err != nil {
		return err
	}
	if key == "" {
		for _, kv := range env.All() {
			printf("%s=%s", kv.Key, kv.Value)
		}
		return nil
	}
	v, ok := env.Lookup(key)
	if !ok {
		return fmt.Errorf("%s is not set", key)
	}
	printf("%s=%s", key, v)
	return nil
}

// createUnsetenvCommand creates the unsetenv subcommand.
func createUnsetenvCommand(stackCommand command) *cobra.Command {
	return &cobra.Command{
		Use:   "unsetenv KEY ...",
		Short: "Remove variables from the deployment env file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.Unsetenv(args)
		},
	}
}

func (c command) Unsetenv(keys []string) error {
	dc, err := c.deployment()
	if err != nil {
		return err
	}
	env, err := dc.Env()
	if err != nil {
		return err
	}
	env.Delete(keys...)
	return env.Write()
}
