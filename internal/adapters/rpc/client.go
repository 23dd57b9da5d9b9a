// Package rpc implements the wallet and ledger ports over Ethereum JSON-RPC.
package rpc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	logAdapter "github.com/Heesho/donut-miner-miniapp-sub000/internal/adapters/log"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"
)

// DefaultTimeout bounds a single JSON-RPC request.
const DefaultTimeout = 30 * time.Second

// Client is a thin wrapper around a go-ethereum RPC client that applies a
// per-request timeout and logging.
type Client struct {
	rpc     *gethrpc.Client
	logger  ports.Logger
	timeout time.Duration

	backoffInitial time.Duration
	backoffMax     time.Duration
}

// Option configures a Client.
type Option func(*options)

type options struct {
	logger         ports.Logger
	timeout        time.Duration
	httpClient     *http.Client
	backoffInitial time.Duration
	backoffMax     time.Duration
}

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithHTTPClient sets the HTTP client used by Dial for http(s) endpoints.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithReceiptBackoff sets the retry intervals used while waiting for a
// transaction receipt.
func WithReceiptBackoff(initial, max time.Duration) Option {
	return func(o *options) {
		o.backoffInitial = initial
		o.backoffMax = max
	}
}

func buildOptions(opts []Option) options {
	o := options{
		timeout:        DefaultTimeout,
		backoffInitial: DefaultBackoffInitial,
		backoffMax:     DefaultBackoffMax,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logAdapter.Nop{}
	}
	return o
}

// Dial connects to the endpoint at url.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	o := buildOptions(opts)

	var dialOpts []gethrpc.ClientOption
	if o.httpClient != nil {
		dialOpts = append(dialOpts, gethrpc.WithHTTPClient(o.httpClient))
	}
	c, err := gethrpc.DialOptions(ctx, url, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newClient(c, o), nil
}

// NewClient wraps an existing connection.
func NewClient(c *gethrpc.Client, opts ...Option) *Client {
	return newClient(c, buildOptions(opts))
}

func newClient(c *gethrpc.Client, o options) *Client {
	return &Client{
		rpc:            c,
		logger:         o.logger,
		timeout:        o.timeout,
		backoffInitial: o.backoffInitial,
		backoffMax:     o.backoffMax,
	}
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// ChainID returns the chain id reported by eth_chainId.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := c.call(ctx, &id, "eth_chainId"); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.rpc.CallContext(ctx, result, method, args...); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}
