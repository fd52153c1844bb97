package deploy

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Options are the tool's own tunables, distinct from the managed
// deployment's property file. Loaded from an optional TOML file; everything
// has a working default.
type Options struct {
	Home    string `mapstructure:"home"`
	Account string `mapstructure:"account"`

	APIPort      int           `mapstructure:"api_port"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	BrokerPort   int           `mapstructure:"broker_port"`

	UIInitScript string `mapstructure:"ui_init_script"`

	SSHUser    string `mapstructure:"ssh_user"`
	SSHKeyFile string `mapstructure:"ssh_key_file"`
	SSHPort    int    `mapstructure:"ssh_port"`
}

// DefaultOptions returns the built-in configuration.
func DefaultOptions() Options {
	return Options{
		Home:         "/usr/local/stack/apache-tomcat/webapps/stack/",
		Account:      "stack",
		APIPort:      8080,
		ProbeTimeout: 10 * time.Second,
		BrokerPort:   5672,
		UIInitScript: "/etc/init.d/stack-ui",
	}
}

// DefaultOptionsPath is where LoadOptions looks when no path is given.
func DefaultOptionsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".stackctl", "config.toml")
}

// LoadOptions reads the TOML config at path over the defaults. An absent
// file is not an error; a malformed one is.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		path = DefaultOptionsPath()
	}
	if path == "" {
		return opts, nil
	}
	if _, err := os.Stat(path); err != nil {
		return opts, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return opts, err
	}
	if err := v.Unmarshal(&opts); err != nil {
		return opts, err
	}
	return opts, nil
}
