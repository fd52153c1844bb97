package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRootRegistersAllCommands(t *testing.T) {
	root := buildRoot()

	want := []string{
		"status", "start_node", "stop_node", "start", "stop",
		"save_config", "restore_config", "configure", "show_configuration",
		"setenv", "getenv", "unsetenv",
		"upgrade_management_node", "rollback_management_node",
		"upgrade_db", "rollback_db",
		"start_ui", "stop_ui", "ui_status", "tsdb",
	}
	got := map[string]bool{}
	for _, c := range root.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, got[name], "command %s not registered", name)
	}
}

func TestUpgradeRequiresWarFile(t *testing.T) {
	root := buildRoot()
	root.SetArgs([]string{"upgrade_management_node"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "war-file")
}

func TestConfigureRejectsBareArguments(t *testing.T) {
	c := command{global: &GlobalFlags{}}
	err := c.Configure([]string{"not-a-pair"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KEY=VALUE")
}

func TestRemoteArgsForwardPersistentFlags(t *testing.T) {
	c := command{global: &GlobalFlags{
		ConfigPath: "/etc/stackctl.toml",
		Verbose:    true,
		LogFile:    "/var/log/stackctl.log",
	}}
	assert.Equal(t,
		[]string{"status", "--config=/etc/stackctl.toml", "--verbose", "--log-file=/var/log/stackctl.log"},
		c.remoteArgs([]string{"status"}))

	bare := command{global: &GlobalFlags{}}
	assert.Equal(t, []string{"stop_node", "--force"}, bare.remoteArgs([]string{"stop_node", "--force"}))
}

func TestTSDBRequiresExactlyOneAction(t *testing.T) {
	c := command{global: &GlobalFlags{}}
	err := c.TSDB(TSDBFlags{})
	require.Error(t, err)

	err = c.TSDB(TSDBFlags{Start: true, Stop: true})
	require.Error(t, err)
}
