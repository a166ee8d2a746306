package transfer

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/quantumauth-io/quantum-nft-client/internal/assets"
	"github.com/quantumauth-io/quantum-nft-client/internal/gateway"
	"github.com/quantumauth-io/quantum-nft-client/internal/metadata"
	"github.com/quantumauth-io/quantum-nft-client/internal/nft"
	"github.com/quantumauth-io/quantum-nft-client/internal/nft/nfttest"
	"github.com/quantumauth-io/quantum-nft-client/internal/ownership"
)

var (
	contract = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	alice    = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type countingRefresher struct {
	calls atomic.Int32
	done  chan *nft.Capability
}

func newCountingRefresher() *countingRefresher {
	return &countingRefresher{done: make(chan *nft.Capability, 4)}
}

func (r *countingRefresher) Refresh(_ context.Context, c *nft.Capability) nft.AssetListView {
	r.calls.Add(1)
	r.done <- c
	return nft.AssetListView{}
}

func newPipeline(t *testing.T) *assets.Pipeline {
	t.Helper()
	gw := gateway.NewResolver("")
	p, err := assets.NewPipeline(assets.PipelineConfig{
		Enumerator: ownership.NewEnumerator(0),
		Fetcher:    metadata.NewFetcher(gw, metadata.Config{}),
		Gateway:    gw,
	})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestTransferValidation(t *testing.T) {
	coll := nfttest.NewCollection()
	coll.Mint(alice, 7, "")
	capability := nfttest.Capability(contract, alice, coll, &nfttest.Confirmer{Status: 1})

	tests := []struct {
		name       string
		capability *nft.Capability
		req        Request
		field      string
	}{
		{"malformed to", capability, Request{TokenID: "7", To: "not-an-address"}, "to"},
		{"missing to", capability, Request{TokenID: "7"}, "to"},
		{"zero to", capability, Request{TokenID: "7", To: "0x0000000000000000000000000000000000000000"}, "to"},
		{"missing token id", capability, Request{To: bob.Hex()}, "tokenId"},
		{"negative token id", capability, Request{TokenID: "-1", To: bob.Hex()}, "tokenId"},
		{"garbage token id", capability, Request{TokenID: "7a", To: bob.Hex()}, "tokenId"},
		{"from other account", capability, Request{TokenID: "7", From: bob.Hex(), To: bob.Hex()}, "from"},
		{"no capability", nil, Request{TokenID: "7", To: bob.Hex()}, "capability"},
		{"oversized token id", capability, Request{TokenID: "0x1" + strings.Repeat("0", 64), To: bob.Hex()}, "tokenId"},
		{"bad to before missing capability", nil, Request{TokenID: "7", To: "not-an-address"}, "to"},
		{"bad token id before missing capability", nil, Request{TokenID: "x", To: bob.Hex()}, "tokenId"},
		{"missing capability before from", nil, Request{TokenID: "7", From: bob.Hex(), To: bob.Hex()}, "capability"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCoordinator(Config{})
			defer c.Close()

			res, err := c.Transfer(context.Background(), tt.capability, tt.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("field = %q, want %q", verr.Field, tt.field)
			}
			if res.State != StateFailed {
				t.Fatalf("state = %q", res.State)
			}
		})
	}

	if coll.TransferCalls.Load() != 0 {
		t.Fatalf("validation failures issued %d calls", coll.TransferCalls.Load())
	}
}

func TestParseTokenID(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"7", "7", true},
		{" 42 ", "42", true},
		{"0x1f", "31", true},
		{"115792089237316195423570985008687907853269984665640564039457584007913129639935", "115792089237316195423570985008687907853269984665640564039457584007913129639935", true},
		{"", "", false},
		{"0x", "", false},
		{"115792089237316195423570985008687907853269984665640564039457584007913129639936", "", false},
		{"+5", "", false},
		{"1.5", "", false},
	}
	for _, tt := range tests {
		id, err := ParseTokenID(tt.in)
		if tt.ok != (err == nil) {
			t.Fatalf("ParseTokenID(%q) err = %v", tt.in, err)
		}
		if tt.ok && id.String() != tt.want {
			t.Fatalf("ParseTokenID(%q) = %s, want %s", tt.in, id, tt.want)
		}
	}
}

func TestTransferThenRefreshExcludesToken(t *testing.T) {
	coll := nfttest.NewCollection()
	coll.Mint(alice, 3, "")
	coll.Mint(alice, 7, "")
	capability := nfttest.Capability(contract, alice, coll, &nfttest.Confirmer{Status: 1})

	pipeline := newPipeline(t)
	sub := pipeline.Views().Subscribe(8)
	defer sub.Unsubscribe()
	views := sub.Views()

	c := NewCoordinator(Config{Refresher: pipeline, RefreshDelay: 10 * time.Millisecond})
	defer c.Close()

	res, err := c.Transfer(context.Background(), capability, Request{TokenID: "7", From: alice.Hex(), To: bob.Hex()})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if res.State != StateConfirmed || res.TxHash == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if coll.OwnerOf(7) != bob {
		t.Fatal("token 7 not moved")
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-views:
			if v.Status != nft.ViewReady {
				continue
			}
			if len(v.Assets) != 1 || v.Assets[0].Token.IDString() != "3" {
				t.Fatalf("expected only token 3 after transfer, got %d assets", len(v.Assets))
			}
			return
		case <-deadline:
			t.Fatal("no refresh after confirmed transfer")
		}
	}
}

func TestTransferRevertedIsFailedWithoutRefresh(t *testing.T) {
	coll := nfttest.NewCollection()
	coll.Mint(alice, 7, "")
	capability := nfttest.Capability(contract, alice, coll, &nfttest.Confirmer{Status: types.ReceiptStatusFailed})
	refresher := newCountingRefresher()

	c := NewCoordinator(Config{Refresher: refresher, RefreshDelay: 0})
	defer c.Close()

	res, err := c.Transfer(context.Background(), capability, Request{TokenID: "7", To: bob.Hex()})
	var cerr *ContractCallError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ContractCallError, got %v", err)
	}
	if res.State != StateFailed || res.TxHash == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	time.Sleep(50 * time.Millisecond)
	if refresher.calls.Load() != 0 {
		t.Fatalf("refresh scheduled for failed transfer")
	}
}

func TestTransferSubmitErrorIsVerbatim(t *testing.T) {
	coll := nfttest.NewCollection()
	coll.Mint(alice, 7, "")
	coll.TransferErr = errors.New("execution reverted: ERC721: caller is not token owner or approved")
	capability := nfttest.Capability(contract, alice, coll, &nfttest.Confirmer{Status: 1})

	c := NewCoordinator(Config{})
	defer c.Close()

	res, err := c.Transfer(context.Background(), capability, Request{TokenID: "7", To: bob.Hex()})
	if err == nil || err.Error() != coll.TransferErr.Error() {
		t.Fatalf("error = %v, want %q", err, coll.TransferErr)
	}
	if !errors.Is(err, coll.TransferErr) {
		t.Fatal("expected wrapped submission error")
	}
	if res.Error != coll.TransferErr.Error() {
		t.Fatalf("recorded error = %q", res.Error)
	}
	if coll.TransferCalls.Load() != 1 {
		t.Fatalf("transfer calls = %d, want exactly 1", coll.TransferCalls.Load())
	}
}

func TestAttemptsAreRecorded(t *testing.T) {
	coll := nfttest.NewCollection()
	coll.Mint(alice, 7, "")
	capability := nfttest.Capability(contract, alice, coll, &nfttest.Confirmer{Status: 1})

	c := NewCoordinator(Config{RefreshDelay: -1})
	defer c.Close()

	if _, ok := c.Last(); ok {
		t.Fatal("no attempts yet")
	}

	first, _ := c.Transfer(context.Background(), capability, Request{TokenID: "x", To: bob.Hex()})
	second, err := c.Transfer(context.Background(), capability, Request{TokenID: "7", To: bob.Hex()})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("attempt ids must differ")
	}

	got, ok := c.Attempt(first.ID)
	if !ok || got.State != StateFailed {
		t.Fatalf("first attempt = %+v", got)
	}
	last, ok := c.Last()
	if !ok || last.ID != second.ID || last.State != StateConfirmed || !last.State.Terminal() {
		t.Fatalf("last attempt = %+v", last)
	}
}

func TestMintRefreshes(t *testing.T) {
	coll := nfttest.NewCollection()
	capability := nfttest.Capability(contract, alice, coll, &nfttest.Confirmer{Status: 1})
	refresher := newCountingRefresher()

	c := NewCoordinator(Config{Refresher: refresher, RefreshDelay: 0})
	defer c.Close()

	res, err := c.Mint(context.Background(), capability, "", "ipfs://cid/0.json")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if res.Kind != KindMint || res.To != alice.Hex() {
		t.Fatalf("unexpected result %+v", res)
	}
	if coll.OwnerOf(0) != alice {
		t.Fatal("token not minted to session account")
	}

	select {
	case got := <-refresher.done:
		if got != capability {
			t.Fatal("refresh ran with a different capability")
		}
	case <-time.After(time.Second):
		t.Fatal("no refresh after mint")
	}
}

type fakeSender struct {
	from, to common.Address
	wei      *big.Int
	err      error
}

func (s *fakeSender) SendValue(_ context.Context, from, to common.Address, wei *big.Int) (*types.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.from, s.to, s.wei = from, to, wei
	return types.NewTx(&types.LegacyTx{To: &to, Value: wei, Gas: 21000, GasPrice: big.NewInt(1)}), nil
}

func TestSendNative(t *testing.T) {
	capability := nfttest.Capability(contract, alice, nfttest.NewCollection(), &nfttest.Confirmer{Status: 1})
	sender := &fakeSender{}
	c := NewCoordinator(Config{Sender: sender})
	defer c.Close()

	res, err := c.SendNative(context.Background(), capability, bob.Hex(), "0.5")
	if err != nil {
		t.Fatalf("SendNative: %v", err)
	}
	if res.State != StateConfirmed || res.Kind != KindNative {
		t.Fatalf("unexpected result %+v", res)
	}
	if sender.from != alice || sender.to != bob || sender.wei.String() != "500000000000000000" {
		t.Fatalf("unexpected send %s -> %s %s", sender.from.Hex(), sender.to.Hex(), sender.wei)
	}

	if _, err := c.SendNative(context.Background(), capability, "nope", "1"); err == nil {
		t.Fatal("expected validation error for bad address")
	}
	if _, err := c.SendNative(context.Background(), nil, bob.Hex(), "1"); err == nil {
		t.Fatal("expected validation error without capability")
	}
}

func TestParseEther(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1", "1000000000000000000", true},
		{"0.000000000000000001", "1", true},
		{"2.5", "2500000000000000000", true},
		{"0", "", false},
		{"-1", "", false},
		{"abc", "", false},
		{"", "", false},
		{"0.0000000000000000001", "", false},
	}
	for _, tt := range tests {
		wei, err := ParseEther(tt.in)
		if tt.ok != (err == nil) {
			t.Fatalf("ParseEther(%q) err = %v", tt.in, err)
		}
		if tt.ok && wei.String() != tt.want {
			t.Fatalf("ParseEther(%q) = %s, want %s", tt.in, wei, tt.want)
		}
	}
}

type sessionStub struct {
	mu         sync.Mutex
	capability *nft.Capability
}

func (s *sessionStub) set(c *nft.Capability) {
	s.mu.Lock()
	s.capability = c
	s.mu.Unlock()
}

func (s *sessionStub) Current() (common.Address, *nft.Capability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capability == nil {
		return common.Address{}, nil
	}
	return s.capability.Account, s.capability
}

func TestDelayedRefreshFollowsSessionAccount(t *testing.T) {
	tests := []struct {
		name        string
		after       func(aliceCap, bobCap *nft.Capability) *nft.Capability
		wantRefresh bool
	}{
		{name: "same account", after: func(a, _ *nft.Capability) *nft.Capability { return a }, wantRefresh: true},
		{name: "switched account", after: func(_, b *nft.Capability) *nft.Capability { return b }, wantRefresh: false},
		{name: "disconnected", after: func(_, _ *nft.Capability) *nft.Capability { return nil }, wantRefresh: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coll := nfttest.NewCollection()
			coll.Mint(alice, 7, "")
			confirmer := &nfttest.Confirmer{Status: 1}
			aliceCap := nfttest.Capability(contract, alice, coll, confirmer)
			bobCap := nfttest.Capability(contract, bob, coll, confirmer)

			session := &sessionStub{capability: aliceCap}
			refresher := newCountingRefresher()
			c := NewCoordinator(Config{Refresher: refresher, Session: session, RefreshDelay: 50 * time.Millisecond})
			defer c.Close()

			if _, err := c.Transfer(context.Background(), aliceCap, Request{TokenID: "7", To: bob.Hex()}); err != nil {
				t.Fatalf("Transfer: %v", err)
			}
			session.set(tt.after(aliceCap, bobCap))

			select {
			case got := <-refresher.done:
				if !tt.wantRefresh {
					t.Fatalf("stale refresh ran for %s", got.Account.Hex())
				}
				if got.Account != alice {
					t.Fatalf("refreshed %s", got.Account.Hex())
				}
			case <-time.After(300 * time.Millisecond):
				if tt.wantRefresh {
					t.Fatal("no refresh after confirmed transfer")
				}
			}
		})
	}
}
