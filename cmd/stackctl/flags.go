package main

// GlobalFlags holds the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
	LogFile    string
}

// HostFlags is the remote re-invocation flag carried by most commands.
type HostFlags struct {
	Host string
}

// NodeFlags holds management node lifecycle flags.
type NodeFlags struct {
	Timeout int // seconds
	Force   bool
	Host    string
}

type SaveConfigFlags struct {
	SaveTo string
}

type RestoreConfigFlags struct {
	RestoreFrom string
}

type UpgradeFlags struct {
	WarFile string
	Host    string
}

type RollbackFlags struct {
	WarFile      string
	PropertyFile string
	Host         string
}

type DBUpgradeFlags struct {
	Force    bool
	NoBackup bool
	DryRun   bool
}

type DBRollbackFlags struct {
	DumpPath     string
	RootPassword string
	Force        bool
}

type TSDBFlags struct {
	Start       bool
	Stop        bool
	Status      bool
	WaitTimeout int // seconds
}
