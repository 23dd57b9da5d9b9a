// Package domain contains the core entities and value objects of the batched
// transaction execution engine.
//
// This package is the innermost layer. It has no dependencies on transport,
// storage or logging and holds only the rules the engine relies on.
//
// # Entities
//
//   - [Call]: one target + data + value instruction for the ledger
//   - [SubmitResult]: tagged outcome of an atomic batch submission
//   - [BatchStatus]: polled status of an accepted batch
//   - [Receipt]: finalization result of an individual transaction
//   - [ExecutionState]: the engine's observable state
//   - [SequentialProgress]: bookkeeping for the one-at-a-time fallback
//   - [ExecutionError]: the only failure surfaced to callers
//   - [RunRecord]: summary of a settled or abandoned run
package domain
