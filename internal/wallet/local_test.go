package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type fakeBackend struct {
	mu      sync.Mutex
	baseFee *big.Int
	sent    []*types.Transaction
}

func (b *fakeBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(11155111), nil }

func (b *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return big.NewInt(5e18), nil
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 7, nil }

func (b *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) { return big.NewInt(2), nil }

func (b *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) { return big.NewInt(30), nil }

func (b *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1), BaseFee: b.baseFee}, nil
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	return nil
}

type denyAll struct{}

func (denyAll) Approve(context.Context, []common.Address) (bool, error) { return false, nil }

func mustKeys(t *testing.T, n int) []*ecdsa.PrivateKey {
	t.Helper()
	keys := make([]*ecdsa.PrivateKey, n)
	for i := range keys {
		k, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("GenerateKey: %v", err)
		}
		keys[i] = k
	}
	return keys
}

func TestRequestAccountsApproved(t *testing.T) {
	keys := mustKeys(t, 2)
	p, err := NewLocalProvider(&fakeBackend{}, AutoApprove{}, keys)
	if err != nil {
		t.Fatalf("NewLocalProvider: %v", err)
	}

	before, _ := p.Accounts(context.Background())
	if len(before) != 0 {
		t.Fatalf("expected no accounts before connect, got %d", len(before))
	}

	accts, err := p.RequestAccounts(context.Background())
	if err != nil {
		t.Fatalf("RequestAccounts: %v", err)
	}
	want := crypto.PubkeyToAddress(keys[0].PublicKey)
	if len(accts) != 2 || accts[0] != want {
		t.Fatalf("unexpected accounts %v", accts)
	}
}

func TestRequestAccountsRejected(t *testing.T) {
	p, _ := NewLocalProvider(&fakeBackend{}, denyAll{}, mustKeys(t, 1))

	_, err := p.RequestAccounts(context.Background())
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Code != CodeUserRejected {
		t.Fatalf("expected 4001 provider error, got %v", err)
	}

	var rejected *UserRejectedError
	if !errors.As(Classify(err), &rejected) {
		t.Fatalf("Classify did not produce UserRejectedError: %v", Classify(err))
	}
}

func TestRequestAccountsWithoutKeys(t *testing.T) {
	p, _ := NewLocalProvider(&fakeBackend{}, AutoApprove{}, nil)
	_, err := p.RequestAccounts(context.Background())
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Code != CodeUnauthorized {
		t.Fatalf("expected 4100 provider error, got %v", err)
	}
}

func TestSelectAndDisconnectNotify(t *testing.T) {
	keys := mustKeys(t, 2)
	p, _ := NewLocalProvider(&fakeBackend{}, AutoApprove{}, keys)
	if _, err := p.RequestAccounts(context.Background()); err != nil {
		t.Fatalf("RequestAccounts: %v", err)
	}

	ch := make(chan []common.Address, 2)
	sub := p.SubscribeAccountsChanged(ch)
	defer sub.Unsubscribe()

	second := crypto.PubkeyToAddress(keys[1].PublicKey)
	if err := p.SelectAccount(second); err != nil {
		t.Fatalf("SelectAccount: %v", err)
	}
	p.Disconnect()

	select {
	case got := <-ch:
		if len(got) == 0 || got[0] != second {
			t.Fatalf("unexpected change %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no change after select")
	}
	select {
	case got := <-ch:
		if len(got) != 0 {
			t.Fatalf("expected empty list on disconnect, got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no change after disconnect")
	}

	if _, err := p.Transactor(context.Background(), second); err == nil {
		t.Fatal("expected transactor to fail after disconnect")
	}
}

func TestSelectUnknownAccount(t *testing.T) {
	p, _ := NewLocalProvider(&fakeBackend{}, AutoApprove{}, mustKeys(t, 1))
	_, _ = p.RequestAccounts(context.Background())

	err := p.SelectAccount(common.HexToAddress("0x0000000000000000000000000000000000000bad"))
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Code != CodeUnauthorized {
		t.Fatalf("expected 4100, got %v", err)
	}
}

func TestTransactorFees(t *testing.T) {
	tests := []struct {
		name       string
		baseFee    *big.Int
		wantFeeCap *big.Int
		wantPrice  *big.Int
	}{
		{name: "eip1559", baseFee: big.NewInt(10), wantFeeCap: big.NewInt(22)},
		{name: "legacy", baseFee: nil, wantPrice: big.NewInt(30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := mustKeys(t, 1)
			p, _ := NewLocalProvider(&fakeBackend{baseFee: tt.baseFee}, AutoApprove{}, keys)
			_, _ = p.RequestAccounts(context.Background())

			opts, err := p.Transactor(context.Background(), crypto.PubkeyToAddress(keys[0].PublicKey))
			if err != nil {
				t.Fatalf("Transactor: %v", err)
			}
			if opts.Nonce.Uint64() != 7 {
				t.Fatalf("nonce = %s", opts.Nonce)
			}
			if tt.wantFeeCap != nil && (opts.GasFeeCap == nil || opts.GasFeeCap.Cmp(tt.wantFeeCap) != 0) {
				t.Fatalf("fee cap = %v, want %v", opts.GasFeeCap, tt.wantFeeCap)
			}
			if tt.wantPrice != nil && (opts.GasPrice == nil || opts.GasPrice.Cmp(tt.wantPrice) != 0) {
				t.Fatalf("gas price = %v, want %v", opts.GasPrice, tt.wantPrice)
			}
		})
	}
}

func TestSendValueSignsAndSends(t *testing.T) {
	keys := mustKeys(t, 1)
	backend := &fakeBackend{baseFee: big.NewInt(10)}
	p, _ := NewLocalProvider(backend, AutoApprove{}, keys)
	_, _ = p.RequestAccounts(context.Background())

	from := crypto.PubkeyToAddress(keys[0].PublicKey)
	to := common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	tx, err := p.SendValue(context.Background(), from, to, big.NewInt(1000))
	if err != nil {
		t.Fatalf("SendValue: %v", err)
	}

	if len(backend.sent) != 1 || backend.sent[0].Hash() != tx.Hash() {
		t.Fatalf("transaction not sent")
	}
	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(11155111)), tx)
	if err != nil {
		t.Fatalf("Sender: %v", err)
	}
	if sender != from {
		t.Fatalf("sender = %s, want %s", sender.Hex(), from.Hex())
	}
	if tx.Value().Cmp(big.NewInt(1000)) != 0 || *tx.To() != to {
		t.Fatalf("unexpected tx value/to")
	}
}

func TestSendValueRejectsNonPositive(t *testing.T) {
	keys := mustKeys(t, 1)
	p, _ := NewLocalProvider(&fakeBackend{}, AutoApprove{}, keys)
	_, _ = p.RequestAccounts(context.Background())
	from := crypto.PubkeyToAddress(keys[0].PublicKey)
	if _, err := p.SendValue(context.Background(), from, from, big.NewInt(0)); err == nil {
		t.Fatal("expected error for zero value")
	}
}

func TestLoadKeys(t *testing.T) {
	dir := t.TempDir()
	stored, _ := crypto.GenerateKey()
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	if _, err := ks.ImportECDSA(stored, "secret"); err != nil {
		t.Fatalf("ImportECDSA: %v", err)
	}

	inline, _ := crypto.GenerateKey()
	hexKey := "0x" + common.Bytes2Hex(crypto.FromECDSA(inline))

	keys, err := LoadKeys(KeyConfig{
		KeystoreDir: dir,
		Passphrase:  "secret",
		PrivateKeys: []string{hexKey, hexKey, ""},
	})
	if err != nil {
		t.Fatalf("LoadKeys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
	if crypto.PubkeyToAddress(keys[0].PublicKey) != crypto.PubkeyToAddress(inline.PublicKey) {
		t.Fatal("inline key should come first")
	}
	if crypto.PubkeyToAddress(keys[1].PublicKey) != crypto.PubkeyToAddress(stored.PublicKey) {
		t.Fatal("keystore key mismatch")
	}

	if _, err := LoadKeys(KeyConfig{KeystoreDir: dir, Passphrase: "wrong"}); err == nil {
		t.Fatal("expected decrypt failure with wrong passphrase")
	}
}

func TestLoadKeysMissingDir(t *testing.T) {
	keys, err := LoadKeys(KeyConfig{KeystoreDir: t.TempDir() + "/absent"})
	if err != nil || len(keys) != 0 {
		t.Fatalf("expected no keys and no error, got %d, %v", len(keys), err)
	}
}
