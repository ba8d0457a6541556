/*
Package log provides structured logging for pgraft using zerolog.

It wraps a single global zerolog.Logger with component-scoped child loggers
(WithComponent, WithNode, WithTerm) so every log line from the Raft
engine, the consensus worker, the health monitor and the failover
orchestrator can be filtered and correlated by node and term without each
component threading its own logger through every call.

Init offers console output (RFC3339 timestamps) and JSON output; the daemon
always initialises JSON output at info level so log lines can be shipped to
an aggregator. Level filtering is global; the daemon's configuration has no
logging options.
*/
package log
