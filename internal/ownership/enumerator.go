package ownership

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/quantumauth-io/quantum-nft-client/internal/nft"
)

// Enumerator lists the tokens an account holds in an enumerable collection.
type Enumerator struct {
	// MaxConcurrency caps in-flight index lookups. Zero means unbounded.
	MaxConcurrency int
}

func NewEnumerator(maxConcurrency int) *Enumerator {
	return &Enumerator{MaxConcurrency: maxConcurrency}
}

// EnumerateOwned returns the owner's tokens sorted by id. A failed balance
// query is returned as an error; a failed index lookup only drops that index.
func (e *Enumerator) EnumerateOwned(
	ctx context.Context,
	coll nft.Collection,
	contract common.Address,
	owner common.Address,
) ([]nft.TokenRef, error) {
	if coll == nil {
		return nil, fmt.Errorf("ownership: collection is nil")
	}

	balance, err := coll.BalanceOf(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("ownership: balanceOf %s: %w", owner.Hex(), err)
	}
	if balance == nil || balance.Sign() == 0 {
		return []nft.TokenRef{}, nil
	}
	if balance.Sign() < 0 || !balance.IsInt64() {
		return nil, fmt.Errorf("ownership: balance %s out of range", balance.String())
	}

	count := balance.Int64()

	p := pool.NewWithResults[*nft.TokenRef]()
	if e != nil && e.MaxConcurrency > 0 {
		p = p.WithMaxGoroutines(e.MaxConcurrency)
	}

	for i := int64(0); i < count; i++ {
		index := big.NewInt(i)
		p.Go(func() *nft.TokenRef {
			id, err := coll.TokenOfOwnerByIndex(ctx, owner, index)
			if err != nil {
				log.Warn("tokenOfOwnerByIndex failed",
					"contract", contract.Hex(),
					"owner", owner.Hex(),
					"index", index.String(),
					"error", err,
				)
				return nil
			}
			if id == nil {
				log.Warn("tokenOfOwnerByIndex returned no id",
					"contract", contract.Hex(),
					"owner", owner.Hex(),
					"index", index.String(),
				)
				return nil
			}
			return &nft.TokenRef{Contract: contract, ID: id}
		})
	}

	refs := make([]nft.TokenRef, 0, count)
	for _, ref := range p.Wait() {
		if ref != nil {
			refs = append(refs, *ref)
		}
	}
	nft.SortTokenRefs(refs)

	return refs, nil
}
