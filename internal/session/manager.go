package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/quantum-nft-client/internal/nft"
	"github.com/quantumauth-io/quantum-nft-client/internal/wallet"
)

var (
	ErrNoProvider   = wallet.ErrNoProvider
	ErrNotConnected = errors.New("session: no connected account")
)

// Binder builds the contract capability for an account.
type Binder func(ctx context.Context, account common.Address) (*nft.Capability, error)

// Refresher re-resolves the asset view for a capability. A nil capability
// resets the view.
type Refresher interface {
	Refresh(ctx context.Context, c *nft.Capability) nft.AssetListView
}

// Manager owns the current account and its capability. It is the only
// writer of that pair.
type Manager struct {
	provider  wallet.Provider
	bind      Binder
	refresher Refresher

	mu         sync.RWMutex
	account    common.Address
	capability *nft.Capability
	sub        event.Subscription

	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
}

func NewManager(provider wallet.Provider, bind Binder, refresher Refresher) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		provider:  provider,
		bind:      bind,
		refresher: refresher,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Current returns a consistent snapshot of the account and capability.
func (m *Manager) Current() (common.Address, *nft.Capability) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.account, m.capability
}

// Capability returns the current capability or ErrNotConnected.
func (m *Manager) Capability() (*nft.Capability, error) {
	_, c := m.Current()
	if c == nil {
		return nil, ErrNotConnected
	}
	return c, nil
}

// Connect requests account access, binds the capability, starts listening
// for account changes and triggers a refresh.
func (m *Manager) Connect(ctx context.Context) (common.Address, error) {
	if m.provider == nil {
		return common.Address{}, ErrNoProvider
	}

	accounts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		return common.Address{}, wallet.Classify(err)
	}
	if len(accounts) == 0 {
		return common.Address{}, &wallet.ProviderError{Code: wallet.CodeUnauthorized, Message: "no accounts returned"}
	}
	account := accounts[0]

	capability, err := m.bindAccount(ctx, account)
	if err != nil {
		return common.Address{}, err
	}

	m.mu.Lock()
	m.account = account
	m.capability = capability
	m.subscribeLocked()
	m.mu.Unlock()

	log.Info("session connected", "account", account.Hex(), "contract", capability.Contract.Hex())
	m.refreshAsync(capability)

	return account, nil
}

func (m *Manager) bindAccount(ctx context.Context, account common.Address) (*nft.Capability, error) {
	if m.bind == nil {
		return nil, fmt.Errorf("session: no capability binder")
	}
	capability, err := m.bind(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("session: bind capability for %s: %w", account.Hex(), err)
	}
	return capability, nil
}

func (m *Manager) subscribeLocked() {
	if m.sub != nil {
		return
	}
	changes := make(chan []common.Address, 8)
	sub := m.provider.SubscribeAccountsChanged(changes)
	m.sub = sub

	m.workers.Add(1)
	go func() {
		defer m.workers.Done()
		m.listen(sub, changes)
	}()
}

func (m *Manager) listen(sub event.Subscription, changes <-chan []common.Address) {
	for {
		select {
		case accounts := <-changes:
			if !m.handleAccountsChanged(accounts) {
				return
			}
		case <-sub.Err():
			return
		case <-m.ctx.Done():
			return
		}
	}
}

// handleAccountsChanged applies one provider notification. It reports
// whether the listener should keep running.
func (m *Manager) handleAccountsChanged(accounts []common.Address) bool {
	if len(accounts) == 0 {
		log.Info("wallet disconnected, tearing down session")
		m.teardown()
		return false
	}

	next := accounts[0]

	m.mu.RLock()
	same := next == m.account
	m.mu.RUnlock()
	if same {
		return true
	}

	capability, err := m.bindAccount(m.ctx, next)
	if err != nil {
		log.Error("rebind after account change failed", "account", next.Hex(), "error", err)
		m.teardown()
		return false
	}

	m.mu.Lock()
	m.account = next
	m.capability = capability
	m.mu.Unlock()

	log.Info("account changed", "account", next.Hex())
	m.refreshAsync(capability)
	return true
}

// teardown clears the session, releases the subscription and resets the view.
func (m *Manager) teardown() {
	m.mu.Lock()
	m.account = common.Address{}
	m.capability = nil
	if m.sub != nil {
		m.sub.Unsubscribe()
		m.sub = nil
	}
	m.mu.Unlock()

	if m.refresher != nil {
		m.refresher.Refresh(m.ctx, nil)
	}
}

func (m *Manager) refreshAsync(c *nft.Capability) {
	if m.refresher == nil {
		return
	}
	m.workers.Add(1)
	go func() {
		defer m.workers.Done()
		m.refresher.Refresh(m.ctx, c)
	}()
}

// Close releases the subscription and waits for background work.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.sub != nil {
		m.sub.Unsubscribe()
		m.sub = nil
	}
	m.mu.Unlock()

	m.cancel()
	m.workers.Wait()
}
