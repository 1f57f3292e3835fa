// Package workflow implements the poll-driven agent workflow engine.
//
// A workflow is the transitive dependency closure of one root agent,
// materialized as tasks in a PENDING -> READY -> RUNNING ->
// COMPLETED/FAILED state machine. No execution loop runs in-process:
// clients repeatedly call the execute step, and each call performs one
// bounded unit of work: advance eligible tasks, select READY tasks,
// build the dependency context, and run the batch with bounded
// concurrency. All waiting happens between polls.
//
// Failures are isolated per task: an agent error is captured on its task
// and never aborts sibling tasks or the poll call. Failed workflows can
// be re-armed with Resume; Cancel is terminal and idempotent.
package workflow
