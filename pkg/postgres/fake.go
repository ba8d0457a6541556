package postgres

import (
	"context"
	"sync"
)

// FakeController is an in-memory Controller double for tests that exercise
// pkg/failover and pkg/replication without a real PostgreSQL install.
type FakeController struct {
	mu sync.Mutex

	Running      bool
	InRecovery   bool
	SyncNames    string
	Basebackups  int
	Promotions   int
	FailNextStep string // name of the next method to fail, for fault injection
}

func (f *FakeController) shouldFail(step string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNextStep == step {
		f.FailNextStep = ""
		return true
	}
	return false
}

func (f *FakeController) Start(ctx context.Context) error {
	if f.shouldFail("Start") {
		return errFake("start")
	}
	f.mu.Lock()
	f.Running = true
	f.mu.Unlock()
	return nil
}

func (f *FakeController) Stop(ctx context.Context, force bool) error {
	f.mu.Lock()
	f.Running = false
	f.mu.Unlock()
	return nil
}

func (f *FakeController) Promote(ctx context.Context) error {
	if f.shouldFail("Promote") {
		return errFake("promote")
	}
	f.mu.Lock()
	f.InRecovery = false
	f.Promotions++
	f.mu.Unlock()
	return nil
}

func (f *FakeController) Status(ctx context.Context) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Status{Running: f.Running, AcceptsConnections: f.Running, IsInRecovery: f.InRecovery}, nil
}

func (f *FakeController) Basebackup(ctx context.Context, primaryConnInfo string) error {
	if f.shouldFail("Basebackup") {
		return errFake("basebackup")
	}
	f.mu.Lock()
	f.Basebackups++
	f.InRecovery = true
	f.mu.Unlock()
	return nil
}

func (f *FakeController) WriteRecoveryConfig(ctx context.Context, cfg RecoveryConfig) error {
	if f.shouldFail("WriteRecoveryConfig") {
		return errFake("recovery config")
	}
	return nil
}

func (f *FakeController) ReloadConfig(ctx context.Context) error {
	return nil
}

func (f *FakeController) SetSynchronousStandbyNames(ctx context.Context, value string) error {
	f.mu.Lock()
	f.SyncNames = value
	f.mu.Unlock()
	return nil
}

func (f *FakeController) WipeDataDir(ctx context.Context) error {
	return nil
}

type fakeError string

func (e fakeError) Error() string { return string(e) }

func errFake(step string) error {
	return fakeError("fake controller: induced failure at " + step)
}
