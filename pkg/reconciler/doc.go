/*
Package reconciler runs a low-frequency background pass that re-validates
the cluster-state invariants (exactly one primary, commit/apply ordering)
independently of the consensus worker. It is a second line of observation,
not a second writer: it only reads the shared store and logs/counts
violations, the same way a level-triggered controller would, so a missed
cycle is harmless and the next one still converges on the truth.
*/
package reconciler
