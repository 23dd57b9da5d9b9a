package ports

import (
	"context"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
)

// TransactionSender submits a single call as an individually confirmed
// transaction.
type TransactionSender interface {
	// SendTransaction submits call from account and returns its id.
	// Once it returns successfully the transaction cannot be unsent.
	SendTransaction(ctx context.Context, account domain.Account, call domain.Call) (domain.TxID, error)
}

// ConfirmationWatcher reports the finalization of submitted transactions.
type ConfirmationWatcher interface {
	// Watch reports the receipt of tx on the returned channel.
	// The same receipt may be delivered more than once (re-subscription,
	// reorg re-checks). The channel is closed when watching stops, which
	// normally happens only after ctx is done.
	Watch(ctx context.Context, tx domain.TxID) (<-chan domain.Receipt, error)
}

// AccountProvider supplies the account the engine submits from.
type AccountProvider interface {
	// ActiveAccount returns the active account, or false if none is connected.
	ActiveAccount() (domain.Account, bool)
}
