package postgres

import "context"

// RecoveryConfig describes the parameters written to a standby's recovery
// configuration (recovery.conf pre-12, postgresql.auto.conf from 12 on).
type RecoveryConfig struct {
	PrimaryConnInfo      string
	RecoveryTargetTimeline string
	PromoteTriggerFile   string
}

// Controller is the set of administrative operations the orchestrator and
// replication controller drive against one PostgreSQL data directory.
type Controller interface {
	// Start starts the PostgreSQL server for DataDir.
	Start(ctx context.Context) error
	// Stop stops the PostgreSQL server, best-effort if force is true.
	Stop(ctx context.Context, force bool) error
	// Promote ends recovery mode, turning a standby into a primary.
	Promote(ctx context.Context) error
	// Status reports whether the server is running and its recovery state.
	Status(ctx context.Context) (Status, error)
	// Basebackup takes a physical copy of primaryConnInfo's data directory
	// into DataDir, the mechanism used to initialize a new standby.
	Basebackup(ctx context.Context, primaryConnInfo string) error
	// WriteRecoveryConfig writes the version-appropriate recovery
	// configuration into DataDir.
	WriteRecoveryConfig(ctx context.Context, cfg RecoveryConfig) error
	// ReloadConfig asks a running server to reload its configuration
	// (SIGHUP via pg_ctl reload).
	ReloadConfig(ctx context.Context) error
	// SetSynchronousStandbyNames updates the synchronous_standby_names GUC
	// and reloads configuration.
	SetSynchronousStandbyNames(ctx context.Context, value string) error
	// WipeDataDir removes DataDir's contents, the precursor to a
	// basebackup-driven rebuild.
	WipeDataDir(ctx context.Context) error
}

// Status is the administrative snapshot Controller.Status reports.
type Status struct {
	Running           bool
	IsInRecovery      bool
	AcceptsConnections bool
}

// IsPrimary reports whether Status describes a writable primary.
func (s Status) IsPrimary() bool {
	return s.Running && s.AcceptsConnections && !s.IsInRecovery
}
