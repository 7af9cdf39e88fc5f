// Package reconcile provides the shared run-report and unit-of-work
// primitives used by the platform reconciliation engines.
//
// A reconciliation run touches many independent records (leaderboards,
// entries, stat definitions, player values). Each record is processed inside
// its own transaction via InTx; a failure is captured into the Report and the
// run continues with the next record. A run therefore never requires a
// full-batch retry, and a single bad record cannot roll back its siblings.
package reconcile
