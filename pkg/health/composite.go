package health

import (
	"context"
	"fmt"
)

// CompositeChecker runs a cheap reachability probe before a more expensive
// one, short-circuiting on the first failure. The health monitor uses it to
// check that a node's PostgreSQL listener is accepting TCP connections
// before spending a subprocess invocation on pg_isready.
type CompositeChecker struct {
	checkers []Checker
}

// NewCompositeChecker builds a CompositeChecker that runs each of checkers
// in order, stopping at the first unhealthy result.
func NewCompositeChecker(checkers ...Checker) *CompositeChecker {
	return &CompositeChecker{checkers: checkers}
}

func (c *CompositeChecker) Check(ctx context.Context) Result {
	var last Result
	for i, checker := range c.checkers {
		last = checker.Check(ctx)
		if !last.Healthy {
			last.Message = fmt.Sprintf("step %d/%d (%s) failed: %s", i+1, len(c.checkers), checker.Type(), last.Message)
			return last
		}
	}
	return last
}

func (c *CompositeChecker) Type() CheckType {
	return CheckTypeExec
}
