package health

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTCPCheckerHealthyOnOpenPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	checker := NewTCPChecker(ln.Addr().String())
	result := checker.Check(context.Background())
	require.True(t, result.Healthy)
	require.Equal(t, CheckTypeTCP, checker.Type())
}

func TestTCPCheckerUnhealthyOnClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	checker := NewTCPChecker(addr)
	result := checker.Check(context.Background())
	require.False(t, result.Healthy)
}
