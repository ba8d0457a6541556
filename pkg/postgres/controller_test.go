package postgres

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeControllerLifecycle(t *testing.T) {
	ctx := context.Background()
	f := &FakeController{}

	require.NoError(t, f.Start(ctx))
	status, err := f.Status(ctx)
	require.NoError(t, err)
	require.True(t, status.Running)

	require.NoError(t, f.Basebackup(ctx, "host=primary"))
	status, _ = f.Status(ctx)
	require.True(t, status.IsInRecovery)

	require.NoError(t, f.Promote(ctx))
	status, _ = f.Status(ctx)
	require.True(t, status.IsPrimary())
}

func TestFakeControllerFaultInjection(t *testing.T) {
	ctx := context.Background()
	f := &FakeController{FailNextStep: "Promote"}
	err := f.Promote(ctx)
	require.Error(t, err)

	// Fault only fires once.
	require.NoError(t, f.Promote(ctx))
}

func TestRecoveryConfigWritesVersionAppropriateFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	pre12 := &CLIController{DataDir: dir, PreV12: true}
	err := pre12.WriteRecoveryConfig(ctx, RecoveryConfig{PrimaryConnInfo: "host=primary port=5432"})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "recovery.conf"))
	require.NoFileExists(t, filepath.Join(dir, "standby.signal"))

	dir12 := t.TempDir()
	v12 := &CLIController{DataDir: dir12}
	require.NoError(t, v12.WriteRecoveryConfig(ctx, RecoveryConfig{PrimaryConnInfo: "host=primary port=5432"}))
	require.FileExists(t, filepath.Join(dir12, "postgresql.auto.conf"))
	require.FileExists(t, filepath.Join(dir12, "standby.signal"))
	_, statErr := os.Stat(filepath.Join(dir12, "recovery.conf"))
	require.True(t, os.IsNotExist(statErr))
}
