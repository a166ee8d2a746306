package chains

import (
	"context"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/quantumauth-io/quantum-go-utils/qa_evm"
	"github.com/quantumauth-io/quantum-go-utils/retry"
)

type cachedHeader struct {
	header *types.Header
	at     time.Time
}

// HeaderCachingClient answers latest-header lookups (the fee estimate every
// transactor makes before signing) from a copy refreshed in the background.
// A copy older than two refresh periods is not served; the lookup goes to the
// node and replaces it. Every other call goes straight to the node.
type HeaderCachingClient struct {
	qa_evm.BlockchainClient

	every  time.Duration
	latest atomic.Pointer[cachedHeader]
}

func NewHeaderCachingClient(ctx context.Context, url string, refreshEvery time.Duration) (*HeaderCachingClient, error) {
	eclient, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", url)
	}
	c, err := newHeaderCachingClient(ctx, eclient, refreshEvery)
	if err != nil {
		eclient.Close()
		return nil, err
	}
	return c, nil
}

func newHeaderCachingClient(ctx context.Context, inner qa_evm.BlockchainClient, refreshEvery time.Duration) (*HeaderCachingClient, error) {
	if refreshEvery <= 0 {
		return nil, errors.Newf("header refresh interval must be positive, got %s", refreshEvery)
	}
	c := &HeaderCachingClient{BlockchainClient: inner, every: refreshEvery}
	if _, err := c.fetchLatest(ctx); err != nil {
		return nil, err
	}
	go c.refreshLoop(ctx)
	return c, nil
}

func (c *HeaderCachingClient) refreshLoop(ctx context.Context) {
	cfg := retry.DefaultConfig()
	cfg.MaxDelayBeforeRetrying = c.every
	cfg.InitialDelayBeforeRetrying = c.every / 10

	ticker := time.NewTicker(c.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := retry.Retry(ctx, cfg,
				func(ctx context.Context) ([]interface{}, error) {
					_, err := c.fetchLatest(ctx)
					return nil, err
				},
				nil,
				"refresh latest header")
			if err != nil && ctx.Err() == nil {
				log.Warn("latest header refresh failed", "error", err)
			}
		}
	}
}

func (c *HeaderCachingClient) fetchLatest(ctx context.Context) (*types.Header, error) {
	header, err := c.BlockchainClient.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "latest header")
	}
	c.latest.Store(&cachedHeader{header: header, at: time.Now()})
	return header, nil
}

func (c *HeaderCachingClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if number != nil {
		return c.BlockchainClient.HeaderByNumber(ctx, number)
	}
	if h, age := c.LatestHeader(); h != nil && age <= 2*c.every {
		return h, nil
	}
	return c.fetchLatest(ctx)
}

// LatestHeader returns the cached header and how long ago it was fetched.
func (c *HeaderCachingClient) LatestHeader() (*types.Header, time.Duration) {
	cur := c.latest.Load()
	if cur == nil {
		return nil, 0
	}
	return cur.header, time.Since(cur.at)
}

func (c *HeaderCachingClient) Close() {
	if closer, ok := c.BlockchainClient.(interface{ Close() }); ok {
		closer.Close()
	}
}
