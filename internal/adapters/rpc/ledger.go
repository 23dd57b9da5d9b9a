package rpc

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"
)

// Ledger sends single transactions and watches for their receipts.
type Ledger struct {
	client *Client
}

// NewLedger creates a ledger adapter over client.
func NewLedger(client *Client) *Ledger {
	return &Ledger{client: client}
}

var (
	_ ports.TransactionSender   = (*Ledger)(nil)
	_ ports.ConfirmationWatcher = (*Ledger)(nil)
)

type txArgs struct {
	From    common.Address  `json:"from"`
	To      *common.Address `json:"to"`
	Data    hexutil.Bytes   `json:"data,omitempty"`
	Value   *hexutil.Big    `json:"value,omitempty"`
	ChainID *hexutil.Big    `json:"chainId,omitempty"`
}

// SendTransaction submits call through eth_sendTransaction. The signing
// endpoint is responsible for nonce and gas.
func (l *Ledger) SendTransaction(ctx context.Context, account domain.Account, call domain.Call) (domain.TxID, error) {
	to := call.Target
	args := txArgs{
		From:  account.Address,
		To:    &to,
		Data:  call.Data,
		Value: (*hexutil.Big)(call.ValueOrZero()),
	}
	if account.ChainID != 0 {
		args.ChainID = (*hexutil.Big)(new(big.Int).SetUint64(account.ChainID))
	}

	var hash common.Hash
	if err := l.client.call(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return domain.TxID{}, err
	}
	if hash == (common.Hash{}) {
		return domain.TxID{}, errors.New("eth_sendTransaction returned an empty hash")
	}
	return hash, nil
}

type rpcReceipt struct {
	TxHash      common.Hash    `json:"transactionHash"`
	Status      hexutil.Uint64 `json:"status"`
	BlockNumber *hexutil.Big   `json:"blockNumber"`
}

func (r *rpcReceipt) receipt() domain.Receipt {
	out := domain.Receipt{TxID: r.TxHash, Status: domain.ReceiptReverted}
	if uint64(r.Status) == types.ReceiptStatusSuccessful {
		out.Status = domain.ReceiptSuccess
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.ToInt().Uint64()
	}
	return out
}

// Watch polls eth_getTransactionReceipt with backoff until the receipt is
// available, delivers it once and closes the channel. The channel is also
// closed, without a value, when ctx ends.
func (l *Ledger) Watch(ctx context.Context, tx domain.TxID) (<-chan domain.Receipt, error) {
	out := make(chan domain.Receipt, 1)
	b := newBackoff(l.client.backoffInitial, l.client.backoffMax)

	go func() {
		defer close(out)
		for {
			var r *rpcReceipt
			err := l.client.call(ctx, &r, "eth_getTransactionReceipt", tx)
			if ctx.Err() != nil {
				return
			}
			switch {
			case err != nil:
				l.client.logger.Warn("receipt query failed",
					ports.String("tx", tx.Hex()),
					ports.Err(err),
				)
			case r != nil && r.BlockNumber != nil:
				out <- r.receipt()
				return
			}
			if b.Wait(ctx) != nil {
				return
			}
		}
	}()
	return out, nil
}
