package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"
)

// Accounts holds the active account. It is empty until Set or Resolve
// succeeds, which makes Execute a no-op.
type Accounts struct {
	mu      sync.RWMutex
	account domain.Account
	ok      bool
}

// StaticAccount returns a provider that always reports account.
func StaticAccount(account domain.Account) *Accounts {
	return &Accounts{account: account, ok: true}
}

// ActiveAccount implements ports.AccountProvider.
func (a *Accounts) ActiveAccount() (domain.Account, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.account, a.ok
}

// Set replaces the active account.
func (a *Accounts) Set(account domain.Account) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.account, a.ok = account, true
}

// Clear removes the active account.
func (a *Accounts) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.account, a.ok = domain.Account{}, false
}

// Resolve fills in whatever from and chainID leave unset: the first
// eth_accounts entry for a zero address and eth_chainId for a zero chain id.
// On success the result becomes the active account.
func (a *Accounts) Resolve(ctx context.Context, c *Client, from common.Address, chainID uint64) (domain.Account, error) {
	if from == (common.Address{}) {
		var accounts []common.Address
		if err := c.call(ctx, &accounts, "eth_accounts"); err != nil {
			return domain.Account{}, err
		}
		if len(accounts) == 0 {
			return domain.Account{}, errors.New("no accounts available at the endpoint")
		}
		from = accounts[0]
	}
	if chainID == 0 {
		id, err := c.ChainID(ctx)
		if err != nil {
			return domain.Account{}, fmt.Errorf("resolve chain id: %w", err)
		}
		chainID = id
	}

	account := domain.Account{Address: from, ChainID: chainID}
	a.Set(account)
	c.logger.Info("account resolved",
		ports.String("address", from.Hex()),
		ports.Uint64("chain_id", chainID),
	)
	return account, nil
}
