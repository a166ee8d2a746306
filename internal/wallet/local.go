package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

const valueTransferGas = 21000

// LocalProvider is a Provider backed by keys held in process.
type LocalProvider struct {
	backend  Backend
	approver Approver

	mu         sync.RWMutex
	keys       map[common.Address]*ecdsa.PrivateKey
	order      []common.Address
	authorized bool
	selected   common.Address
	chainID    *big.Int

	feed event.Feed
}

func NewLocalProvider(backend Backend, approver Approver, keys []*ecdsa.PrivateKey) (*LocalProvider, error) {
	if backend == nil {
		return nil, fmt.Errorf("wallet: backend is nil")
	}
	if approver == nil {
		approver = AutoApprove{}
	}

	p := &LocalProvider{
		backend:  backend,
		approver: approver,
		keys:     make(map[common.Address]*ecdsa.PrivateKey, len(keys)),
	}
	for _, k := range keys {
		addr := crypto.PubkeyToAddress(k.PublicKey)
		if _, dup := p.keys[addr]; dup {
			continue
		}
		p.keys[addr] = k
		p.order = append(p.order, addr)
	}
	return p, nil
}

// Known lists every account the provider can sign for, connected or not.
func (p *LocalProvider) Known() []common.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]common.Address(nil), p.order...)
}

func (p *LocalProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.mu.RLock()
	if p.authorized {
		accts := p.exposedLocked()
		p.mu.RUnlock()
		return accts, nil
	}
	candidates := append([]common.Address(nil), p.order...)
	p.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, &ProviderError{Code: CodeUnauthorized, Message: "no accounts configured"}
	}

	ok, err := p.approver.Approve(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("wallet: approval: %w", err)
	}
	if !ok {
		return nil, &ProviderError{Code: CodeUserRejected, Message: "User rejected the request."}
	}

	p.mu.Lock()
	p.authorized = true
	if p.selected == (common.Address{}) {
		p.selected = candidates[0]
	}
	accts := p.exposedLocked()
	p.mu.Unlock()

	log.Info("wallet connected", "account", accts[0].Hex())
	return accts, nil
}

func (p *LocalProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.authorized {
		return []common.Address{}, nil
	}
	return p.exposedLocked(), nil
}

// exposedLocked returns the selected account first, then the rest.
func (p *LocalProvider) exposedLocked() []common.Address {
	out := []common.Address{p.selected}
	for _, a := range p.order {
		if a != p.selected {
			out = append(out, a)
		}
	}
	return out
}

func (p *LocalProvider) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	return p.backend.BalanceAt(ctx, account, nil)
}

func (p *LocalProvider) SubscribeAccountsChanged(ch chan<- []common.Address) event.Subscription {
	return p.feed.Subscribe(ch)
}

// SelectAccount switches the exposed account and notifies subscribers.
func (p *LocalProvider) SelectAccount(account common.Address) error {
	p.mu.Lock()
	if !p.authorized {
		p.mu.Unlock()
		return &ProviderError{Code: CodeUnauthorized, Message: "wallet is not connected"}
	}
	if _, ok := p.keys[account]; !ok {
		p.mu.Unlock()
		return &ProviderError{Code: CodeUnauthorized, Message: "unknown account " + account.Hex()}
	}
	if p.selected == account {
		p.mu.Unlock()
		return nil
	}
	p.selected = account
	accts := p.exposedLocked()
	p.mu.Unlock()

	p.feed.Send(accts)
	return nil
}

// Disconnect revokes access and notifies subscribers with an empty list.
func (p *LocalProvider) Disconnect() {
	p.mu.Lock()
	wasAuthorized := p.authorized
	p.authorized = false
	p.selected = common.Address{}
	p.mu.Unlock()

	if wasAuthorized {
		p.feed.Send([]common.Address{})
	}
}

func (p *LocalProvider) keyFor(account common.Address) (*ecdsa.PrivateKey, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.authorized {
		return nil, &ProviderError{Code: CodeDisconnected, Message: "wallet is not connected"}
	}
	key, ok := p.keys[account]
	if !ok {
		return nil, &ProviderError{Code: CodeUnauthorized, Message: "unknown account " + account.Hex()}
	}
	return key, nil
}

func (p *LocalProvider) chain(ctx context.Context) (*big.Int, error) {
	p.mu.RLock()
	id := p.chainID
	p.mu.RUnlock()
	if id != nil {
		return id, nil
	}

	id, err := p.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("wallet: chain id: %w", err)
	}
	p.mu.Lock()
	p.chainID = id
	p.mu.Unlock()
	return id, nil
}

// Transactor returns signing options for account with nonce and fees filled in.
func (p *LocalProvider) Transactor(ctx context.Context, account common.Address) (*bind.TransactOpts, error) {
	key, err := p.keyFor(account)
	if err != nil {
		return nil, err
	}
	chainID, err := p.chain(ctx)
	if err != nil {
		return nil, err
	}
	return transactorFromKey(ctx, p.backend, key, chainID)
}

func (p *LocalProvider) SendValue(ctx context.Context, from, to common.Address, wei *big.Int) (*types.Transaction, error) {
	if wei == nil || wei.Sign() <= 0 {
		return nil, fmt.Errorf("wallet: value must be positive")
	}

	opts, err := p.Transactor(ctx, from)
	if err != nil {
		return nil, err
	}
	chainID, err := p.chain(ctx)
	if err != nil {
		return nil, err
	}

	var unsigned *types.Transaction
	if opts.GasFeeCap != nil {
		unsigned = types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     opts.Nonce.Uint64(),
			GasTipCap: opts.GasTipCap,
			GasFeeCap: opts.GasFeeCap,
			Gas:       valueTransferGas,
			To:        &to,
			Value:     wei,
		})
	} else {
		unsigned = types.NewTx(&types.LegacyTx{
			Nonce:    opts.Nonce.Uint64(),
			GasPrice: opts.GasPrice,
			Gas:      valueTransferGas,
			To:       &to,
			Value:    wei,
		})
	}

	signed, err := opts.Signer(from, unsigned)
	if err != nil {
		return nil, fmt.Errorf("wallet: sign value transfer: %w", err)
	}
	if err := p.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("wallet: send value transfer: %w", err)
	}

	log.Info("value transfer sent", "from", from.Hex(), "to", to.Hex(), "wei", wei.String(), "tx", signed.Hash().Hex())
	return signed, nil
}

func transactorFromKey(
	ctx context.Context,
	backend Backend,
	key *ecdsa.PrivateKey,
	chainID *big.Int,
) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, err
	}

	// Nonce
	nonce, err := backend.PendingNonceAt(ctx, opts.From)
	if err != nil {
		return nil, fmt.Errorf("wallet: pending nonce: %w", err)
	}
	opts.Nonce = new(big.Int).SetUint64(nonce)

	// Fees: 1559 preferred, else legacy
	tip, tipErr := backend.SuggestGasTipCap(ctx)
	hdr, hdrErr := backend.HeaderByNumber(ctx, nil)

	if tipErr == nil && hdrErr == nil && hdr != nil && hdr.BaseFee != nil {
		feeCap := new(big.Int).Mul(hdr.BaseFee, big.NewInt(2))
		feeCap.Add(feeCap, tip)
		opts.GasTipCap = tip
		opts.GasFeeCap = feeCap
	} else {
		gp, err := backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("wallet: gas price: %w", err)
		}
		opts.GasPrice = gp
	}

	opts.Context = ctx
	return opts, nil
}
