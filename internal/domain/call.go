package domain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Call is a single instruction for the ledger: a target contract, its
// pre-encoded calldata and the native value to transfer.
// Calls are treated as immutable once handed to the engine.
type Call struct {
	// Target is the contract or account the call is sent to.
	Target common.Address

	// Data is the encoded calldata. It may be empty for plain transfers.
	Data []byte

	// Value is the amount of native currency attached to the call.
	// A nil Value is treated as zero.
	Value *big.Int
}

// Clone returns a deep copy of the call.
func (c Call) Clone() Call {
	out := Call{Target: c.Target}
	if c.Data != nil {
		out.Data = append([]byte(nil), c.Data...)
	}
	if c.Value != nil {
		out.Value = new(big.Int).Set(c.Value)
	}
	return out
}

// ValueOrZero returns the call value, substituting zero for nil.
func (c Call) ValueOrZero() *big.Int {
	if c.Value == nil {
		return new(big.Int)
	}
	return c.Value
}

// ParseCall builds a call from its text form: a hex address, 0x-prefixed
// calldata and a value in decimal or 0x-prefixed hex without leading zeros.
// Empty data and value are allowed.
func ParseCall(target, data, value string) (Call, error) {
	if !common.IsHexAddress(target) {
		return Call{}, fmt.Errorf("invalid target address %q", target)
	}
	c := Call{Target: common.HexToAddress(target)}

	if data = strings.TrimSpace(data); data != "" && data != "0x" {
		b, err := hexutil.Decode(data)
		if err != nil {
			return Call{}, fmt.Errorf("invalid calldata: %w", err)
		}
		c.Data = b
	}

	if value = strings.TrimSpace(value); value != "" {
		v, err := parseValue(value)
		if err != nil {
			return Call{}, fmt.Errorf("invalid value %q: %w", value, err)
		}
		c.Value = v
	}
	return c, nil
}

func parseValue(value string) (*big.Int, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return hexutil.DecodeBig(value)
	}
	v, ok := new(big.Int).SetString(value, 10)
	if !ok || v.Sign() < 0 {
		return nil, errors.New("not a non-negative decimal integer")
	}
	return v, nil
}

// CloneCalls deep-copies a call list so later mutation by the caller cannot
// affect an in-flight run.
func CloneCalls(calls []Call) []Call {
	out := make([]Call, len(calls))
	for i, c := range calls {
		out[i] = c.Clone()
	}
	return out
}

// Account identifies the originating account and the chain it operates on.
type Account struct {
	Address common.Address
	ChainID uint64
}
