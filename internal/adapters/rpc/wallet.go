package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"
)

// CallsVersion is the wallet_sendCalls request version.
const CallsVersion = "2.0.0"

// EIP-5792 status code ranges.
const (
	statusPending   = 100
	statusConfirmed = 200
	statusFailed    = 400
)

// Wallet submits atomic batches through a wallet that supports EIP-5792.
type Wallet struct {
	client *Client
}

// NewWallet creates a wallet adapter over client.
func NewWallet(client *Client) *Wallet {
	return &Wallet{client: client}
}

var (
	_ ports.BatchSubmitter     = (*Wallet)(nil)
	_ ports.BatchStatusQuerier = (*Wallet)(nil)
)

type sendCallsParams struct {
	Version        string         `json:"version"`
	From           common.Address `json:"from"`
	ChainID        hexutil.Uint64 `json:"chainId"`
	AtomicRequired bool           `json:"atomicRequired"`
	Calls          []callParams   `json:"calls"`
}

type callParams struct {
	To    common.Address `json:"to"`
	Data  hexutil.Bytes  `json:"data,omitempty"`
	Value *hexutil.Big   `json:"value,omitempty"`
}

func encodeCalls(account domain.Account, calls []domain.Call) sendCallsParams {
	p := sendCallsParams{
		Version:        CallsVersion,
		From:           account.Address,
		ChainID:        hexutil.Uint64(account.ChainID),
		AtomicRequired: true,
		Calls:          make([]callParams, len(calls)),
	}
	for i, c := range calls {
		p.Calls[i] = callParams{To: c.Target, Data: c.Data}
		if c.Value != nil && c.Value.Sign() > 0 {
			p.Calls[i].Value = (*hexutil.Big)(c.Value)
		}
	}
	return p
}

// SubmitBatch sends calls as one wallet_sendCalls request. Every failure,
// including a malformed response, is reported as a rejection.
func (w *Wallet) SubmitBatch(ctx context.Context, account domain.Account, calls []domain.Call) domain.SubmitResult {
	var raw json.RawMessage
	if err := w.client.call(ctx, &raw, "wallet_sendCalls", encodeCalls(account, calls)); err != nil {
		var rpcErr gethrpc.Error
		if errors.As(err, &rpcErr) {
			w.client.logger.Warn("batch submission rejected",
				ports.Int("code", rpcErr.ErrorCode()),
				ports.Err(err),
			)
		}
		return domain.Rejected(fmt.Errorf("%w: %v", domain.ErrSubmissionRejected, err))
	}

	handle, err := decodeHandle(raw)
	if err != nil {
		return domain.Rejected(fmt.Errorf("%w: %v", domain.ErrSubmissionRejected, err))
	}
	return domain.Accepted(handle)
}

// decodeHandle accepts both the legacy bare-string id and the {"id": ...}
// object.
func decodeHandle(raw json.RawMessage) (domain.BatchHandle, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errors.New("empty wallet_sendCalls response")
	}

	var id string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", fmt.Errorf("decode batch id: %w", err)
		}
	} else {
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", fmt.Errorf("decode batch id: %w", err)
		}
		id = obj.ID
	}
	if id == "" {
		return "", errors.New("wallet returned an empty batch id")
	}
	return domain.BatchHandle(id), nil
}

type callsStatus struct {
	Status   json.RawMessage `json:"status"`
	Receipts []struct {
		Status hexutil.Uint64 `json:"status"`
	} `json:"receipts"`
}

// BatchStatus queries wallet_getCallsStatus for handle.
func (w *Wallet) BatchStatus(ctx context.Context, handle domain.BatchHandle) (domain.BatchStatus, error) {
	var res *callsStatus
	if err := w.client.call(ctx, &res, "wallet_getCallsStatus", string(handle)); err != nil {
		return domain.BatchPending, err
	}
	if res == nil {
		return domain.BatchPending, fmt.Errorf("unknown batch %s", handle)
	}
	return res.decode()
}

func (s *callsStatus) decode() (domain.BatchStatus, error) {
	raw := bytes.TrimSpace(s.Status)
	if len(raw) == 0 {
		return domain.BatchPending, errors.New("missing batch status")
	}

	if raw[0] != '"' {
		var code int
		if err := json.Unmarshal(raw, &code); err != nil {
			return domain.BatchPending, fmt.Errorf("decode batch status: %w", err)
		}
		switch {
		case code >= statusPending && code < statusConfirmed:
			return domain.BatchPending, nil
		case code == statusConfirmed:
			return s.fromReceipts(), nil
		case code >= statusFailed:
			return domain.BatchFailure, nil
		default:
			return domain.BatchPending, fmt.Errorf("unexpected batch status code %d", code)
		}
	}

	var legacy string
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return domain.BatchPending, fmt.Errorf("decode batch status: %w", err)
	}
	switch strings.ToUpper(legacy) {
	case "PENDING":
		return domain.BatchPending, nil
	case "CONFIRMED", "SUCCESS":
		return s.fromReceipts(), nil
	case "FAILURE", "FAILED", "REVERTED":
		return domain.BatchFailure, nil
	default:
		return domain.BatchPending, fmt.Errorf("unexpected batch status %q", legacy)
	}
}

// fromReceipts maps a confirmed batch to success unless a receipt reverted.
func (s *callsStatus) fromReceipts() domain.BatchStatus {
	for _, r := range s.Receipts {
		if uint64(r.Status) != types.ReceiptStatusSuccessful {
			return domain.BatchFailure
		}
	}
	return domain.BatchSuccess
}
