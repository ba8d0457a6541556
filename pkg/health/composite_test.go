package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	healthy bool
	typ     CheckType
}

func (f fakeChecker) Check(ctx context.Context) Result {
	return Result{Healthy: f.healthy}
}

func (f fakeChecker) Type() CheckType { return f.typ }

func TestCompositeCheckerShortCircuitsOnFirstFailure(t *testing.T) {
	second := fakeChecker{healthy: true, typ: CheckTypeExec}
	c := NewCompositeChecker(fakeChecker{healthy: false, typ: CheckTypeTCP}, second)

	result := c.Check(context.Background())
	require.False(t, result.Healthy)
	require.Contains(t, result.Message, "step 1/2")
}

func TestCompositeCheckerRunsAllOnSuccess(t *testing.T) {
	c := NewCompositeChecker(
		fakeChecker{healthy: true, typ: CheckTypeTCP},
		fakeChecker{healthy: true, typ: CheckTypeExec},
	)

	result := c.Check(context.Background())
	require.True(t, result.Healthy)
}
