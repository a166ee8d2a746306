package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// Provider is the wallet surface the session and transfer flows depend on.
type Provider interface {
	// RequestAccounts asks the holder to connect and returns the exposed
	// accounts, selected account first.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	Accounts(ctx context.Context) ([]common.Address, error)
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
	// SubscribeAccountsChanged delivers the new account list on every change.
	// An empty list means the wallet disconnected.
	SubscribeAccountsChanged(ch chan<- []common.Address) event.Subscription
	Transactor(ctx context.Context, account common.Address) (*bind.TransactOpts, error)
	SendValue(ctx context.Context, from, to common.Address, wei *big.Int) (*types.Transaction, error)
}

// Backend is the chain access a LocalProvider signs and sends through.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}
