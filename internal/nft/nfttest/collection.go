// Package nfttest provides in-memory collection fakes for tests.
package nfttest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/quantumauth-io/quantum-nft-client/internal/nft"
)

var ErrNotOwner = errors.New("ERC721: caller is not token owner or approved")

// Collection is an enumerable ERC-721 held in memory.
type Collection struct {
	mu     sync.Mutex
	owners map[string]common.Address
	uris   map[string]string
	nonce  uint64

	BalanceErr   error
	IndexErrs    map[int64]error
	TokenURIErrs map[string]error
	TransferErr  error

	BalanceCalls  atomic.Int32
	IndexCalls    atomic.Int32
	TokenURICalls atomic.Int32
	TransferCalls atomic.Int32
}

func NewCollection() *Collection {
	return &Collection{
		owners:       map[string]common.Address{},
		uris:         map[string]string{},
		IndexErrs:    map[int64]error{},
		TokenURIErrs: map[string]error{},
	}
}

// Mint assigns id to owner with the given token uri.
func (c *Collection) Mint(owner common.Address, id int64, uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := big.NewInt(id).String()
	c.owners[key] = owner
	c.uris[key] = uri
}

func (c *Collection) OwnerOf(id int64) common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owners[big.NewInt(id).String()]
}

func (c *Collection) owned(owner common.Address) []*big.Int {
	var ids []*big.Int
	for key, o := range c.owners {
		if o != owner {
			continue
		}
		id, _ := new(big.Int).SetString(key, 10)
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Cmp(ids[j]) < 0 })
	return ids
}

func (c *Collection) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	c.BalanceCalls.Add(1)
	if c.BalanceErr != nil {
		return nil, c.BalanceErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return big.NewInt(int64(len(c.owned(owner)))), nil
}

func (c *Collection) TokenOfOwnerByIndex(ctx context.Context, owner common.Address, index *big.Int) (*big.Int, error) {
	c.IndexCalls.Add(1)
	if err := c.IndexErrs[index.Int64()]; err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.owned(owner)
	if index.Int64() >= int64(len(ids)) {
		return nil, fmt.Errorf("ERC721Enumerable: owner index out of bounds")
	}
	return new(big.Int).Set(ids[index.Int64()]), nil
}

func (c *Collection) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	c.TokenURICalls.Add(1)
	if err := c.TokenURIErrs[tokenID.String()]; err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	uri, ok := c.uris[tokenID.String()]
	if !ok {
		return "", fmt.Errorf("ERC721: invalid token ID")
	}
	return uri, nil
}

func (c *Collection) SafeTransferFrom(opts *bind.TransactOpts, from, to common.Address, tokenID *big.Int) (*types.Transaction, error) {
	c.TransferCalls.Add(1)
	if c.TransferErr != nil {
		return nil, c.TransferErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := tokenID.String()
	if c.owners[key] != from {
		return nil, ErrNotOwner
	}
	c.owners[key] = to
	c.nonce++
	return types.NewTx(&types.LegacyTx{Nonce: c.nonce, To: &to, Gas: 21000, GasPrice: big.NewInt(1)}), nil
}

// SafeMint assigns the next free id to to.
func (c *Collection) SafeMint(opts *bind.TransactOpts, to common.Address, uri string) (*types.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := int64(len(c.owners))
	for {
		if _, taken := c.owners[big.NewInt(next).String()]; !taken {
			break
		}
		next++
	}
	key := big.NewInt(next).String()
	c.owners[key] = to
	c.uris[key] = uri
	c.nonce++
	return types.NewTx(&types.LegacyTx{Nonce: c.nonce, To: &to, Gas: 90000, GasPrice: big.NewInt(1)}), nil
}

// Confirmer returns a receipt with a fixed status for every transaction.
type Confirmer struct {
	Status uint64
	Err    error
	Calls  atomic.Int32
}

func (c *Confirmer) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	c.Calls.Add(1)
	if c.Err != nil {
		return nil, c.Err
	}
	return &types.Receipt{Status: c.Status, TxHash: tx.Hash(), BlockNumber: big.NewInt(1)}, nil
}

// Capability binds coll to account with a no-op signer.
func Capability(contract, account common.Address, coll nft.MutableCollection, confirmer nft.Confirmer) *nft.Capability {
	return &nft.Capability{
		Contract:   contract,
		Account:    account,
		Collection: coll,
		Transactor: func(ctx context.Context) (*bind.TransactOpts, error) {
			return &bind.TransactOpts{From: account, Context: ctx}, nil
		},
		Confirmer: confirmer,
	}
}
