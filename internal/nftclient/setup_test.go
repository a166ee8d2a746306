package nftclient

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/quantumauth-io/quantum-nft-client/internal/contracts/bindings/go/erc721"
	"github.com/quantumauth-io/quantum-nft-client/internal/contracts/contracttest"
	"github.com/quantumauth-io/quantum-nft-client/internal/wallet"
)

var collection = common.HexToAddress("0x00000000000000000000000000000000000000c1")

func TestCapabilityBinderReadsThroughBinding(t *testing.T) {
	backend, err := contracttest.NewBackend(erc721.ERC721MetaData.ABI)
	if err != nil {
		t.Fatal(err)
	}
	backend.Handle("balanceOf", func(_ common.Address, args []interface{}) ([]interface{}, error) {
		return []interface{}{big.NewInt(2)}, nil
	})

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	provider, err := wallet.NewLocalProvider(backend, wallet.AutoApprove{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	account := crypto.PubkeyToAddress(key.PublicKey)

	capability, err := capabilityBinder(collection, backend, provider)(context.Background(), account)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := capability.Validate(); err != nil {
		t.Fatalf("capability incomplete: %v", err)
	}
	if capability.Contract != collection || capability.Account != account {
		t.Fatalf("unexpected capability %+v", capability)
	}

	bal, err := capability.Collection.BalanceOf(context.Background(), account)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if bal.Int64() != 2 {
		t.Fatalf("balance = %s", bal)
	}
}

func TestVerifyDeployed(t *testing.T) {
	backend, err := contracttest.NewBackend(erc721.ERC721MetaData.ABI)
	if err != nil {
		t.Fatal(err)
	}
	if err := verifyDeployed(context.Background(), backend, collection); err != nil {
		t.Fatalf("verifyDeployed: %v", err)
	}
}
