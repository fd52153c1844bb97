// Package deploy resolves the installation layout once into an explicit
// context object: paths, the service account, and constructors for the
// collaborators every command needs. Nothing here is global state; commands
// receive the context and pass it down.
package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"stackctl/internal/backup"
	"stackctl/internal/config"
	"stackctl/internal/db"
	"stackctl/internal/identity"
	"stackctl/internal/probe"
	"stackctl/internal/procfind"
	"stackctl/internal/runner"
	"stackctl/internal/service"
	"stackctl/internal/topology"
)

const (
	// EnvHomeKey in the env file (or the process environment) points at the
	// exploded artifact tree.
	EnvHomeKey = "STACK_HOME"
	// EnvTSDBExec and EnvTSDBConf mark an installed time-series store.
	EnvTSDBExec = "TSDB_EXEC"
	EnvTSDBConf = "TSDB_CONF"

	// AppToken is the process identity substring the app node's JVM carries.
	AppToken = "appName=stack"

	readinessBody = `{"readiness":{}}`
)

func timeoutSeconds(n int) time.Duration { return time.Duration(n) * time.Second }

// Context is the resolved installation: where things live and who owns them.
type Context struct {
	Opts    Options
	Home    string
	Account identity.Account
	Log     *slog.Logger
}

// Locate resolves the installation. STACK_HOME is taken from the process
// environment first, the per-account env file second, the configured default
// last.
func Locate(opts Options) (*Context, error) {
	acct, err := identity.Lookup(opts.Account)
	if err != nil {
		return nil, err
	}
	c := &Context{Opts: opts, Account: acct}

	home := os.Getenv(EnvHomeKey)
	if home == "" {
		if env, err := config.Load(c.EnvPath()); err == nil {
			home, _ = env.Lookup(EnvHomeKey)
		}
	}
	if home == "" {
		home = opts.Home
	}
	c.Home = filepath.Clean(home)
	return c, nil
}

func (c *Context) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

// PropertiesPath is the managed application's property file.
func (c *Context) PropertiesPath() string {
	return filepath.Join(c.Home, "WEB-INF", "classes", "stack.properties")
}

// EnvPath is the per-account environment property file.
func (c *Context) EnvPath() string {
	return filepath.Join(c.Account.Home, ".stackctl", "env")
}

// writeScope rewrites files under the service account's identity.
func (c *Context) writeScope() config.WriteScope {
	return func(fn func() error) error {
		return identity.As(c.Account.Name, fn)
	}
}

// Properties loads the managed property file with the identity-scoped writer
// installed.
func (c *Context) Properties() (*config.PropertyFile, error) {
	p, err := config.Load(c.PropertiesPath())
	if err != nil {
		return nil, err
	}
	p.SetWriteScope(c.writeScope())
	return p, nil
}

// Env loads the env file, creating it empty on first use.
func (c *Context) Env() (*config.PropertyFile, error) {
	if err := config.Create(c.EnvPath()); err != nil {
		return nil, err
	}
	p, err := config.Load(c.EnvPath())
	if err != nil {
		return nil, err
	}
	p.SetWriteScope(c.writeScope())
	return p, nil
}

// Portal builds the database portal from the managed properties.
func (c *Context) Portal(p *config.PropertyFile) (db.Portal, error) {
	return db.PortalFromProperties(p)
}

// Registry discovers the app node: cmdline token first, recorded pid file
// second. The pid file location is overridable via the pidFilePath property.
func (c *Context) Registry(p *config.PropertyFile) procfind.Registry {
	pidPath := filepath.Join(c.Account.Home, "management-server.pid")
	if p != nil {
		if v, ok := p.Lookup("pidFilePath"); ok && v != "" {
			pidPath = v
		}
	}
	return procfind.Chain{
		procfind.ProcScan{},
		procfind.PIDFile{Path: pidPath},
	}
}

// Readiness is the app node's protocol probe.
func (c *Context) Readiness() probe.HTTPReadiness {
	return probe.HTTPReadiness{
		URL:     fmt.Sprintf("http://127.0.0.1:%d/stack/api", c.Opts.APIPort),
		Body:    readinessBody,
		Timeout: c.Opts.ProbeTimeout,
	}
}

// CatalinaDir is the servlet container root the artifact is deployed into.
func (c *Context) CatalinaDir() string {
	return filepath.Dir(filepath.Dir(c.Home))
}

// InstallRoot is the whole installation tree, chowned after upgrades.
func (c *Context) InstallRoot() string {
	return filepath.Dir(c.CatalinaDir())
}

// CheckAPIPortFree fails when another process already listens on the API
// port; the already-running case is detected earlier by the registry.
func (c *Context) CheckAPIPortFree(context.Context) error {
	if probe.TCPReachable("127.0.0.1", c.Opts.APIPort, c.Opts.ProbeTimeout) {
		return fmt.Errorf("port %d is occupied by another process, please stop it before starting the management node", c.Opts.APIPort)
	}
	return nil
}

// CheckDatabase verifies the configured database answers queries.
func (c *Context) CheckDatabase(p *config.PropertyFile) service.Check {
	return func(ctx context.Context) error {
		portal, err := c.Portal(p)
		if err != nil {
			return err
		}
		return portal.CheckReachable(ctx, c.Opts.ProbeTimeout)
	}
}

// CheckBroker verifies every configured broker endpoint accepts TCP.
func (c *Context) CheckBroker(p *config.PropertyFile) service.Check {
	return func(context.Context) error {
		for _, kv := range p.LookupPrefix("Bus.serverIp.") {
			if !probe.TCPReachable(kv.Value, c.Opts.BrokerPort, c.Opts.ProbeTimeout) {
				return &db.ConnectivityError{
					Endpoint: fmt.Sprintf("%s:%d", kv.Value, c.Opts.BrokerPort),
					Err:      fmt.Errorf("tcp connect failed"),
				}
			}
		}
		return nil
	}
}

// AppNode builds the management node controller with its dependency
// preflights wired in.
func (c *Context) AppNode(r runner.Runner, p *config.PropertyFile) *service.Controller {
	bin := filepath.Join(c.CatalinaDir(), "bin")
	ready := c.Readiness()
	return &service.Controller{
		Desc: service.Descriptor{
			Name:         "management node",
			Kind:         service.KindAppNode,
			Start:        runner.New("su", "-", c.Account.Name, "-c", "bash "+filepath.Join(bin, "startup.sh")),
			Stop:         runner.New("su", "-", c.Account.Name, "-c", "bash "+filepath.Join(bin, "shutdown.sh")),
			Token:        AppToken,
			BootErrorLog: filepath.Join(c.Account.Home, "bootError.log"),
			LogHint:      filepath.Join(c.CatalinaDir(), "logs", "management-server.log"),
		},
		Registry: c.Registry(p),
		Runner:   r,
		Ready:    ready.Check,
		Preflight: []service.Check{
			c.CheckAPIPortFree,
			c.CheckDatabase(p),
			c.CheckBroker(p),
		},
		Log: c.log(),
	}
}

// UI builds the web UI controller. The UI has no protocol probe; process
// presence is its readiness.
func (c *Context) UI(r runner.Runner) *service.Controller {
	return &service.Controller{
		Desc: service.Descriptor{
			Name:  "web UI",
			Kind:  service.KindUI,
			Start: runner.New("bash", c.Opts.UIInitScript, "start"),
			Stop:  runner.New("bash", c.Opts.UIInitScript, "stop"),
			Token: "stack_ui",
		},
		Registry: procfind.ProcScan{},
		Runner:   r,
		Log:      c.log(),
	}
}

// UIInstalled reports whether the UI init script is present on this host.
func (c *Context) UIInstalled() bool {
	_, err := os.Stat(c.Opts.UIInitScript)
	return err == nil
}

// TSDB builds the time-series store controller from the env file markers.
// installed is false when the markers are absent or dangling.
func (c *Context) TSDB(r runner.Runner, env *config.PropertyFile) (ctl *service.Controller, installed bool) {
	exec, ok := env.Lookup(EnvTSDBExec)
	if !ok || exec == "" {
		return nil, false
	}
	if _, err := os.Stat(exec); err != nil {
		return nil, false
	}
	conf, _ := env.Lookup(EnvTSDBConf)

	startLine := exec
	if conf != "" {
		startLine += " -config " + conf
	}
	return &service.Controller{
		Desc: service.Descriptor{
			Name:  "time-series store",
			Kind:  service.KindTimeseries,
			Start: runner.New("bash", "-c", "nohup "+startLine+" >/dev/null 2>&1 &"),
			Stop:  runner.New("pkill", "-f", exec),
			Token: exec,
		},
		Registry: procfind.ProcScan{},
		Runner:   r,
		Log:      c.log(),
	}, true
}

// Topology assembles the whole-deployment controller: tsdb first, then the
// app node, then the UI.
func (c *Context) Topology(r runner.Runner, env, props *config.PropertyFile, startTimeout int) *topology.Controller {
	tsdb, tsdbInstalled := c.TSDB(r, env)
	app := c.AppNode(r, props)
	ui := c.UI(r)

	services := []topology.Service{
		{
			Name:      "time-series store",
			Installed: func() bool { return tsdbInstalled },
			Start:     func(ctx context.Context) error { return tsdb.Start(ctx, c.Opts.ProbeTimeout) },
			Stop:      func(ctx context.Context) error { return tsdb.Stop(ctx, false) },
		},
		{
			Name:  "management node",
			Start: func(ctx context.Context) error { return app.Start(ctx, timeoutSeconds(startTimeout)) },
			Stop:  func(ctx context.Context) error { return app.Stop(ctx, false) },
		},
		{
			Name:          "web UI",
			InstallMarker: c.Opts.UIInitScript,
			Start:         func(ctx context.Context) error { return ui.Start(ctx, c.Opts.ProbeTimeout) },
			Stop:          func(ctx context.Context) error { return ui.Stop(ctx, false) },
		},
	}
	return &topology.Controller{Services: services, Log: c.log()}
}

// Backups builds the snapshot manager rooted in the service account's home.
func (c *Context) Backups() *backup.Manager {
	return &backup.Manager{
		PropertiesPath: c.PropertiesPath(),
		ArtifactDir:    c.Home,
		Root:           filepath.Join(c.Account.Home, "upgrade"),
	}
}

// BackupIndex opens the snapshot ledger; callers treat failures as
// non-fatal.
func (c *Context) BackupIndex(ctx context.Context) (*backup.Index, error) {
	idx, err := backup.OpenIndex(filepath.Join(c.Account.Home, ".stackctl", "backups.db"))
	if err != nil {
		return nil, err
	}
	if err := idx.EnsureSchema(ctx); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}

// Artifact layout used by the upgrade machinery.
func (c *Context) InstallScript() string { return filepath.Join("WEB-INF", "classes", "tools", "install.sh") }
func (c *Context) SupportingTools() []string {
	return []string{"stack-cli", "stack-ctl"}
}
func (c *Context) MigratorTool() string {
	return filepath.Join(c.Home, "WEB-INF", "classes", "tools", "flyway", "flyway")
}
func (c *Context) MigrationScriptsDir() string {
	return filepath.Join(c.Home, "WEB-INF", "classes", "db", "upgrade")
}
func (c *Context) DumpRoot() string {
	return filepath.Join(c.Account.Home, "db-backup")
}
