// Package ports defines the interfaces (ports) that connect the execution
// engine to the execution environment, storage and logging.
//
// Ports are the boundaries between the engine and the outside world. They
// define what the engine needs without specifying how those needs are met.
//
// # Port Interfaces
//
//   - [BatchSubmitter]: Submits a list of calls as one atomic batch
//   - [BatchStatusQuerier]: Reports the status of an accepted batch
//   - [TransactionSender]: Submits a single call as its own transaction
//   - [ConfirmationWatcher]: Reports receipts of submitted transactions
//   - [AccountProvider]: Supplies the active account and chain
//   - [RunRecorder]: Persists summaries of finished runs
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters (internal/adapters) implement them with JSON-RPC, sqlite, files
// and zerolog.
package ports
