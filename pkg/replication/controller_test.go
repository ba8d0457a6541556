package replication

import (
	"context"
	"testing"

	"github.com/pgraft/pgraft/pkg/postgres"
	"github.com/pgraft/pgraft/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestSynchronousStandbyNamesGenerator(t *testing.T) {
	ctx := context.Background()
	fake := &postgres.FakeController{}
	c := New(fake, types.SyncModeRemoteWrite, 1)

	require.NoError(t, c.AddStandby(ctx, 2, "r2"))
	require.NoError(t, c.AddStandby(ctx, 3, "r3"))
	require.Equal(t, "FIRST 1 (r2,r3)", fake.SyncNames)

	require.NoError(t, c.RemoveStandby(ctx, 2))
	require.Equal(t, "FIRST 1 (r3)", fake.SyncNames)
}

func TestSynchronousStandbyNamesEmptyWhenZero(t *testing.T) {
	ctx := context.Background()
	fake := &postgres.FakeController{}
	c := New(fake, types.SyncModeOff, 0)

	require.NoError(t, c.AddStandby(ctx, 2, "r2"))
	require.Equal(t, "", fake.SyncNames)
}

func TestStreamFromSucceeds(t *testing.T) {
	fake := &postgres.FakeController{}
	err := StreamFrom(context.Background(), fake, "host=primary", "")
	require.NoError(t, err)
	require.Equal(t, 1, fake.Basebackups)
}

func TestStreamFromPropagatesBasebackupFailure(t *testing.T) {
	fake := &postgres.FakeController{FailNextStep: "Basebackup"}
	err := StreamFrom(context.Background(), fake, "host=primary", "")
	require.Error(t, err)
}
