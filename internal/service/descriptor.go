package service

import "stackctl/internal/runner"

// Kind classifies the services composing the deployment.
type Kind string

const (
	KindDatabase   Kind = "database"
	KindBroker     Kind = "broker"
	KindTimeseries Kind = "timeseries_store"
	KindAppNode    Kind = "app_node"
	KindUI         Kind = "ui"
)

// Descriptor describes how one logical service is started, stopped and
// discovered. Immutable once loaded.
type Descriptor struct {
	Name  string
	Kind  Kind
	Start runner.Cmd
	Stop  runner.Cmd
	// Token is the process identity substring the service is started with.
	Token string
	// BootErrorLog, when set, is written by the service on a failed boot and
	// aborts the readiness wait early.
	BootErrorLog string
	// LogHint points the operator at the service log in error messages.
	LogHint string
}
