package command

import (
	"testing"
	"time"

	"github.com/pgraft/pgraft/pkg/pgerrors"
	"github.com/pgraft/pgraft/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestEnqueueDequeueFIFO(t *testing.T) {
	p := New()
	_, err := p.Enqueue(types.Command{Type: types.CommandInit})
	require.NoError(t, err)
	_, err = p.Enqueue(types.Command{Type: types.CommandAddNode, NodeID: 2})
	require.NoError(t, err)

	first, ok := p.Dequeue()
	require.True(t, ok)
	require.Equal(t, types.CommandInit, first.Type)

	second, ok := p.Dequeue()
	require.True(t, ok)
	require.Equal(t, types.CommandAddNode, second.Type)

	_, ok = p.Dequeue()
	require.False(t, ok)
}

func TestEnqueueRejectsWhenFull(t *testing.T) {
	p := New()
	for i := 0; i < Capacity; i++ {
		_, err := p.Enqueue(types.Command{Type: types.CommandLogAppend, Timestamp: time.Now().Add(time.Duration(i))})
		require.NoError(t, err)
	}
	_, err := p.Enqueue(types.Command{Type: types.CommandLogAppend, Timestamp: time.Now().Add(1000)})
	require.ErrorIs(t, err, pgerrors.QueueFull)
	require.Equal(t, Capacity, p.Len())
}

func TestStatusLifecycle(t *testing.T) {
	p := New()
	ts, err := p.Enqueue(types.Command{Type: types.CommandInit})
	require.NoError(t, err)

	status, ok := p.GetStatus(ts)
	require.True(t, ok)
	require.Equal(t, types.CommandPending, status.Status)

	p.UpdateStatus(ts, types.CommandFailed, "boom")
	status, ok = p.GetStatus(ts)
	require.True(t, ok)
	require.Equal(t, types.CommandFailed, status.Status)
	require.Equal(t, "boom", status.ErrorMessage)

	removed := p.RemoveCompleted()
	require.Equal(t, 1, removed)
	_, ok = p.GetStatus(ts)
	require.False(t, ok)
}

func TestStatusRingEvictsOldest(t *testing.T) {
	p := New()
	var first time.Time
	for i := 0; i <= Capacity; i++ {
		ts, err := p.Enqueue(types.Command{Type: types.CommandInit, Timestamp: time.Now().Add(time.Duration(i) * time.Nanosecond)})
		require.NoError(t, err)
		if i == 0 {
			first = ts
		}
		p.Dequeue()
	}
	_, ok := p.GetStatus(first)
	require.False(t, ok, "oldest status should have been evicted")
}
