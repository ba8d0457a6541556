package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatusFlipsUnhealthyAfterRetries(t *testing.T) {
	s := NewStatus()
	cfg := Config{Retries: 3}

	for i := 0; i < 2; i++ {
		s.Update(Result{Healthy: false, CheckedAt: time.Now()}, cfg)
		require.True(t, s.Healthy, "should stay healthy before reaching retry threshold")
	}

	s.Update(Result{Healthy: false, CheckedAt: time.Now()}, cfg)
	require.False(t, s.Healthy)
}

func TestStatusRecoversImmediately(t *testing.T) {
	s := NewStatus()
	cfg := Config{Retries: 3}

	for i := 0; i < 3; i++ {
		s.Update(Result{Healthy: false, CheckedAt: time.Now()}, cfg)
	}
	require.False(t, s.Healthy)

	s.Update(Result{Healthy: true, CheckedAt: time.Now()}, cfg)
	require.True(t, s.Healthy)
}

func TestInStartPeriod(t *testing.T) {
	s := NewStatus()
	cfg := Config{StartPeriod: time.Hour}
	require.True(t, s.InStartPeriod(cfg))

	cfg.StartPeriod = 0
	require.False(t, s.InStartPeriod(cfg))
}
