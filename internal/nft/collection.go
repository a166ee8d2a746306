package nft

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/quantumauth-io/quantum-nft-client/internal/contracts/bindings/go/erc721"
)

// Collection is the read surface of an enumerable ERC-721 contract.
type Collection interface {
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	TokenOfOwnerByIndex(ctx context.Context, owner common.Address, index *big.Int) (*big.Int, error)
	TokenURI(ctx context.Context, tokenID *big.Int) (string, error)
}

// MutableCollection adds the write calls used by the transfer and mint flows.
type MutableCollection interface {
	Collection
	SafeTransferFrom(opts *bind.TransactOpts, from, to common.Address, tokenID *big.Int) (*types.Transaction, error)
	SafeMint(opts *bind.TransactOpts, to common.Address, uri string) (*types.Transaction, error)
}

// Confirmer waits until a submitted transaction is mined.
type Confirmer interface {
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// TransactorFunc yields signing options for the bound account.
type TransactorFunc func(ctx context.Context) (*bind.TransactOpts, error)

// Capability binds a collection, an account and its signing identity.
type Capability struct {
	Contract   common.Address
	Account    common.Address
	Collection MutableCollection
	Transactor TransactorFunc
	Confirmer  Confirmer
}

var ErrCapabilityIncomplete = errors.New("nft: capability is missing collection, account or signer")

func (c *Capability) Validate() error {
	if c == nil || c.Collection == nil || c.Transactor == nil || c.Confirmer == nil {
		return ErrCapabilityIncomplete
	}
	if c.Account == (common.Address{}) {
		return ErrCapabilityIncomplete
	}
	return nil
}

// BoundCollection adapts the generated ERC-721 binding to Collection.
type BoundCollection struct {
	token *erc721.ERC721
}

func NewBoundCollection(address common.Address, backend bind.ContractBackend) (*BoundCollection, error) {
	token, err := erc721.NewERC721(address, backend)
	if err != nil {
		return nil, err
	}
	return &BoundCollection{token: token}, nil
}

func (b *BoundCollection) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return b.token.BalanceOf(&bind.CallOpts{Context: ctx}, owner)
}

func (b *BoundCollection) TokenOfOwnerByIndex(ctx context.Context, owner common.Address, index *big.Int) (*big.Int, error) {
	return b.token.TokenOfOwnerByIndex(&bind.CallOpts{Context: ctx}, owner, index)
}

func (b *BoundCollection) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	return b.token.TokenURI(&bind.CallOpts{Context: ctx}, tokenID)
}

func (b *BoundCollection) SafeTransferFrom(opts *bind.TransactOpts, from, to common.Address, tokenID *big.Int) (*types.Transaction, error) {
	return b.token.SafeTransferFrom(opts, from, to, tokenID)
}

func (b *BoundCollection) SafeMint(opts *bind.TransactOpts, to common.Address, uri string) (*types.Transaction, error) {
	return b.token.SafeMint(opts, to, uri)
}

// ReceiptWaiter waits for receipts through a deploy backend.
type ReceiptWaiter struct {
	Backend bind.DeployBackend
}

func (w ReceiptWaiter) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return bind.WaitMined(ctx, w.Backend, tx)
}
