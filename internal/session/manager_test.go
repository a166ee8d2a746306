package session

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/quantumauth-io/quantum-nft-client/internal/nft"
	"github.com/quantumauth-io/quantum-nft-client/internal/nft/nfttest"
	"github.com/quantumauth-io/quantum-nft-client/internal/wallet"
)

var (
	contract = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	alice    = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type fakeProvider struct {
	accounts   []common.Address
	requestErr error
	feed       event.Feed
}

func (p *fakeProvider) RequestAccounts(context.Context) ([]common.Address, error) {
	return p.accounts, p.requestErr
}

func (p *fakeProvider) Accounts(context.Context) ([]common.Address, error) { return p.accounts, nil }

func (p *fakeProvider) Balance(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (p *fakeProvider) SubscribeAccountsChanged(ch chan<- []common.Address) event.Subscription {
	return p.feed.Subscribe(ch)
}

func (p *fakeProvider) Transactor(ctx context.Context, account common.Address) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{From: account, Context: ctx}, nil
}

func (p *fakeProvider) SendValue(context.Context, common.Address, common.Address, *big.Int) (*types.Transaction, error) {
	return nil, errors.New("not supported")
}

type recordingRefresher struct {
	calls chan *nft.Capability
}

func newRecordingRefresher() *recordingRefresher {
	return &recordingRefresher{calls: make(chan *nft.Capability, 16)}
}

func (r *recordingRefresher) Refresh(_ context.Context, c *nft.Capability) nft.AssetListView {
	r.calls <- c
	return nft.ReadyView("", common.Address{}, common.Address{}, nil)
}

func (r *recordingRefresher) next(t *testing.T) *nft.Capability {
	t.Helper()
	select {
	case c := <-r.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refresh")
		return nil
	}
}

func (r *recordingRefresher) none(t *testing.T) {
	t.Helper()
	select {
	case c := <-r.calls:
		t.Fatalf("unexpected refresh for %v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func binder(coll *nfttest.Collection) Binder {
	return func(ctx context.Context, account common.Address) (*nft.Capability, error) {
		return nfttest.Capability(contract, account, coll, &nfttest.Confirmer{Status: 1}), nil
	}
}

func TestConnectWithoutProvider(t *testing.T) {
	m := NewManager(nil, nil, nil)
	defer m.Close()

	if _, err := m.Connect(context.Background()); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
}

func TestConnectUserRejected(t *testing.T) {
	p := &fakeProvider{requestErr: &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "denied"}}
	refresher := newRecordingRefresher()
	m := NewManager(p, binder(nfttest.NewCollection()), refresher)
	defer m.Close()

	_, err := m.Connect(context.Background())
	var rejected *wallet.UserRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected UserRejectedError, got %v", err)
	}
	if acct, c := m.Current(); acct != (common.Address{}) || c != nil {
		t.Fatal("session should stay empty after rejection")
	}
	refresher.none(t)
}

func TestConnectBindsAndRefreshes(t *testing.T) {
	p := &fakeProvider{accounts: []common.Address{alice}}
	refresher := newRecordingRefresher()
	m := NewManager(p, binder(nfttest.NewCollection()), refresher)
	defer m.Close()

	acct, err := m.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if acct != alice {
		t.Fatalf("account = %s", acct.Hex())
	}
	if c := refresher.next(t); c == nil || c.Account != alice {
		t.Fatalf("unexpected refresh capability %+v", c)
	}
	if _, err := m.Capability(); err != nil {
		t.Fatalf("Capability: %v", err)
	}
}

func TestAccountChanges(t *testing.T) {
	p := &fakeProvider{accounts: []common.Address{alice}}
	refresher := newRecordingRefresher()
	m := NewManager(p, binder(nfttest.NewCollection()), refresher)
	defer m.Close()

	if _, err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	refresher.next(t)

	// same account: no-op
	p.feed.Send([]common.Address{alice})
	refresher.none(t)

	// different account: rebind and refresh
	p.feed.Send([]common.Address{bob})
	if c := refresher.next(t); c == nil || c.Account != bob {
		t.Fatalf("expected refresh for bob, got %+v", c)
	}
	if acct, c := m.Current(); acct != bob || c.Account != bob {
		t.Fatalf("current = %s", acct.Hex())
	}

	// empty: teardown
	p.feed.Send([]common.Address{})
	if c := refresher.next(t); c != nil {
		t.Fatalf("teardown should reset with nil capability, got %+v", c)
	}
	if acct, c := m.Current(); acct != (common.Address{}) || c != nil {
		t.Fatal("session not cleared")
	}
	if _, err := m.Capability(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}

	// listener released on teardown
	deadline := time.Now().Add(2 * time.Second)
	for p.feed.Send([]common.Address{bob}) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription still active after teardown")
		}
		time.Sleep(10 * time.Millisecond)
	}
	refresher.none(t)
}

func TestReconnectAfterTeardownResubscribes(t *testing.T) {
	p := &fakeProvider{accounts: []common.Address{alice}}
	refresher := newRecordingRefresher()
	m := NewManager(p, binder(nfttest.NewCollection()), refresher)
	defer m.Close()

	_, _ = m.Connect(context.Background())
	refresher.next(t)
	p.feed.Send([]common.Address{})
	refresher.next(t)

	if _, err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	refresher.next(t)

	p.feed.Send([]common.Address{bob})
	if c := refresher.next(t); c == nil || c.Account != bob {
		t.Fatalf("expected refresh for bob after reconnect, got %+v", c)
	}
}

func TestCloseUnsubscribes(t *testing.T) {
	p := &fakeProvider{accounts: []common.Address{alice}}
	m := NewManager(p, binder(nfttest.NewCollection()), newRecordingRefresher())

	_, _ = m.Connect(context.Background())
	m.Close()

	if n := p.feed.Send([]common.Address{bob}); n != 0 {
		t.Fatalf("feed still has %d subscribers after Close", n)
	}
}
