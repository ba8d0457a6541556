/*
Package command implements the bounded command pipeline: a single-consumer
queue of typed commands with backpressure by rejection, and a parallel
status ring tracking each command's outcome. Any caller may enqueue; only
the consensus worker (pkg/consensus) dequeues.
*/
package command
