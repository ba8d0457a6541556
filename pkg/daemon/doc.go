/*
Package daemon wires every component into one running process and owns its
lifecycle: construction order, start order, and the ordered shutdown
sequence (metrics collector and reconciler, then the consensus worker via
Worker.Shutdown, then the background goroutines, then the transport
listener, Raft engine, event broker and cluster-view persister), triggered
by the usual SIGINT/SIGTERM handling. The HTTP control surface is not
stopped explicitly; it ends with the process.

Daemon itself does not contain domain logic — it is the composition root.
Every component it builds (store, Raft engine, command pipeline, transport,
consensus worker, health monitor, failover orchestrator, replication
controller, reconciler, metrics collector, HTTP control surface) is built
and tested independently in its own package.
*/
package daemon
