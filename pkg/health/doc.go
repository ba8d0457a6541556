/*
Package health provides the pluggable health-check primitives used by the
cluster health monitor (see pkg/monitor) to probe the local PostgreSQL
instance and every remote peer.

# Architecture

Checker implementations share one interface:

	type Checker interface {
		Check(ctx context.Context) Result
		Type() CheckType
	}

  - TCPChecker verifies a PostgreSQL listener is accepting connections.
  - ExecChecker runs pg_isready (via NewPgIsReadyChecker) or any other
    command-line probe and interprets its exit code.
  - CompositeChecker chains checkers and short-circuits on the first
    failure; the health monitor uses one to run the cheap TCP probe before
    the subprocess-invoking pg_isready probe.

# Status tracking

Status applies hysteresis on top of a raw Checker: a node only flips to
unhealthy after Config.Retries consecutive failures, and recovers
immediately on the next success. This absorbs transient network blips
without letting the failover orchestrator react to single missed checks.

# Usage

	checker := health.NewPgIsReadyChecker(node.Address, node.Port)
	status := health.NewStatus()
	cfg := health.Config{Interval: 5 * time.Second, Timeout: 2 * time.Second, Retries: 3}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	result := checker.Check(ctx)
	cancel()
	status.Update(result, cfg)

The health monitor (pkg/monitor) runs one such checker per known node on its
own ticker and folds the resulting Status into the shared cluster view's
per-node liveness fields.
*/
package health
