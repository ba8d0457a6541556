package command

import (
	"sync"
	"time"

	"github.com/pgraft/pgraft/pkg/pgerrors"
	"github.com/pgraft/pgraft/pkg/types"
)

// Capacity is the fixed size of both the pending queue and the status ring.
const Capacity = types.MaxQueuedCommands

// Pipeline is the command queue plus its status ring. The pending queue
// uses a mutex because multiple producers exist; dequeue is single-consumer
// by convention (only the consensus worker calls it).
type Pipeline struct {
	mu      sync.Mutex
	pending []types.Command

	statusMu sync.Mutex
	statuses map[time.Time]*types.Command
	order    []time.Time
}

// New creates an empty Pipeline.
func New() *Pipeline {
	return &Pipeline{
		statuses: make(map[time.Time]*types.Command),
	}
}

// Enqueue appends cmd to the tail of the pending queue, stamping its
// timestamp (the status ring's key) if unset. Returns QueueFull once the
// queue already holds Capacity commands.
func (p *Pipeline) Enqueue(cmd types.Command) (time.Time, error) {
	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = time.Now()
	}
	cmd.Status = types.CommandPending

	p.mu.Lock()
	if len(p.pending) >= Capacity {
		p.mu.Unlock()
		return time.Time{}, pgerrors.QueueFull
	}
	p.pending = append(p.pending, cmd)
	p.mu.Unlock()

	p.recordStatus(&cmd)
	return cmd.Timestamp, nil
}

// Dequeue pops and returns the head of the pending queue, or ok=false if
// empty. It does not block.
func (p *Pipeline) Dequeue() (types.Command, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) == 0 {
		return types.Command{}, false
	}
	cmd := p.pending[0]
	p.pending = p.pending[1:]
	return cmd, true
}

// Len reports the current depth of the pending queue.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Pipeline) recordStatus(cmd *types.Command) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()

	if _, exists := p.statuses[cmd.Timestamp]; !exists {
		p.order = append(p.order, cmd.Timestamp)
		if len(p.order) > Capacity {
			oldest := p.order[0]
			p.order = p.order[1:]
			delete(p.statuses, oldest)
		}
	}
	cp := *cmd
	p.statuses[cmd.Timestamp] = &cp
}

// GetStatus returns the current status record for the command enqueued at
// ts, if it has not been evicted or pruned.
func (p *Pipeline) GetStatus(ts time.Time) (types.Command, bool) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()

	cmd, ok := p.statuses[ts]
	if !ok {
		return types.Command{}, false
	}
	return *cmd, true
}

// UpdateStatus transitions the command enqueued at ts to status, recording
// errMsg when status is CommandFailed.
func (p *Pipeline) UpdateStatus(ts time.Time, status types.CommandStatus, errMsg string) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()

	cmd, ok := p.statuses[ts]
	if !ok {
		return
	}
	cmd.Status = status
	cmd.ErrorMessage = errMsg
}

// RemoveCompleted prunes every status record that has reached COMPLETED or
// FAILED, the reaper step named in the data model.
func (p *Pipeline) RemoveCompleted() int {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()

	kept := p.order[:0:0]
	removed := 0
	for _, ts := range p.order {
		cmd := p.statuses[ts]
		if cmd.Status == types.CommandCompleted || cmd.Status == types.CommandFailed {
			delete(p.statuses, ts)
			removed++
			continue
		}
		kept = append(kept, ts)
	}
	p.order = kept
	return removed
}
