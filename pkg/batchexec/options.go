package batchexec

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures optional behavior of an Executor.
type Option func(*options)

// options holds the optional configuration for an Executor.
type options struct {
	logger        Logger
	eventHandlers []EventHandler
	recorders     []RunRecorder
	plugins       []Plugin
	registerer    prometheus.Registerer

	account   *Account
	submitter BatchSubmitter
	querier   BatchStatusQuerier
	sender    TransactionSender
	watcher   ConfirmationWatcher

	httpClient     *http.Client
	backoffInitial time.Duration
	backoffMax     time.Duration
}

// needsRPC reports whether any port must be served by the JSON-RPC client.
func (o options) needsRPC() bool {
	return o.submitter == nil || o.querier == nil || o.sender == nil || o.watcher == nil
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler adds a handler for executor events. It may be given more
// than once; handlers are called in registration order.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandlers = append(o.eventHandlers, handler)
	}
}

// WithRecorder adds a store that receives a summary of every finished run.
func WithRecorder(r RunRecorder) Option {
	return func(o *options) {
		o.recorders = append(o.recorders, r)
	}
}

// WithPlugin registers a plugin to be initialized when the Executor starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithMetrics registers the execution metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithAccount sets the sending account and skips account resolution in Start.
func WithAccount(account Account) Option {
	return func(o *options) {
		o.account = &account
	}
}

// WithBatchSubmitter replaces the wallet_sendCalls submitter.
func WithBatchSubmitter(s BatchSubmitter) Option {
	return func(o *options) {
		o.submitter = s
	}
}

// WithBatchStatusQuerier replaces the wallet_getCallsStatus querier.
func WithBatchStatusQuerier(q BatchStatusQuerier) Option {
	return func(o *options) {
		o.querier = q
	}
}

// WithTransactionSender replaces the eth_sendTransaction sender.
func WithTransactionSender(s TransactionSender) Option {
	return func(o *options) {
		o.sender = s
	}
}

// WithConfirmationWatcher replaces the receipt watcher.
func WithConfirmationWatcher(w ConfirmationWatcher) Option {
	return func(o *options) {
		o.watcher = w
	}
}

// WithHTTPClient sets the HTTP client used for http(s) endpoints.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithReceiptBackoff sets the retry intervals used while waiting for a
// transaction receipt.
func WithReceiptBackoff(initial, max time.Duration) Option {
	return func(o *options) {
		o.backoffInitial = initial
		o.backoffMax = max
	}
}
