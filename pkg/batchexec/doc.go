// Package batchexec provides an embeddable transaction execution engine.
//
// An [Executor] takes an ordered list of contract calls and tries to execute
// them as one atomic batch through an EIP-5792 capable wallet
// (wallet_sendCalls). If the wallet rejects the batch, or the batch reverts
// on-chain, the executor falls back to sending the calls one at a time with
// eth_sendTransaction, waiting for each receipt before the next step.
//
// # Basic Usage
//
//	cfg := batchexec.Config{RPCURL: "http://127.0.0.1:8545"}
//
//	ex, err := batchexec.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := ex.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer ex.Stop()
//
//	if err := ex.Execute(calls); err != nil {
//	    log.Fatal(err)
//	}
//	state, _ := ex.Wait(ctx)
//
// # Event Handling
//
// Implement [EventHandler], usually by embedding [BaseEventHandler], and pass
// it via [WithEventHandler]. Handlers are called synchronously from engine
// goroutines and should return quickly.
//
// # Dependency Injection
//
// For testing, the endpoint-facing ports can be replaced:
//
//	ex, err := batchexec.New(cfg,
//	    batchexec.WithAccount(account),
//	    batchexec.WithBatchSubmitter(fakeWallet),
//	    batchexec.WithBatchStatusQuerier(fakeWallet),
//	)
//
// Ports that are not injected are served by a JSON-RPC client dialed in Start.
//
// # Execution States
//
// The executor is always in one of [StateIdle], [StatePending],
// [StateConfirming], [StateSuccess] or [StateError]. Terminal states persist
// until [Executor.Reset].
package batchexec
