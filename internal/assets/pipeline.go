package assets

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/quantumauth-io/quantum-nft-client/internal/gateway"
	"github.com/quantumauth-io/quantum-nft-client/internal/metadata"
	"github.com/quantumauth-io/quantum-nft-client/internal/metrics"
	"github.com/quantumauth-io/quantum-nft-client/internal/nft"
)

type OwnershipEnumerator interface {
	EnumerateOwned(ctx context.Context, coll nft.Collection, contract, owner common.Address) ([]nft.TokenRef, error)
}

type MetadataFetcher interface {
	Fetch(ctx context.Context, uri string) metadata.Result
}

// EnumerationError means the owned token set itself could not be determined.
type EnumerationError struct {
	Contract common.Address
	Account  common.Address
	Err      error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("failed to load owned tokens: %v", e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// Pipeline resolves the assets an account owns into a published view.
type Pipeline struct {
	enumerator     OwnershipEnumerator
	fetcher        MetadataFetcher
	gateway        *gateway.Resolver
	views          *ViewStore
	maxConcurrency int
}

type PipelineConfig struct {
	Enumerator OwnershipEnumerator
	Fetcher    MetadataFetcher
	Gateway    *gateway.Resolver
	Views      *ViewStore
	// MaxConcurrency caps per-token resolutions in flight. Zero means unbounded.
	MaxConcurrency int
}

func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Enumerator == nil {
		return nil, fmt.Errorf("assets: enumerator is nil")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("assets: metadata fetcher is nil")
	}
	if cfg.Gateway == nil {
		cfg.Gateway = gateway.NewResolver("")
	}
	if cfg.Views == nil {
		cfg.Views = NewViewStore()
	}
	return &Pipeline{
		enumerator:     cfg.Enumerator,
		fetcher:        cfg.Fetcher,
		gateway:        cfg.Gateway,
		views:          cfg.Views,
		maxConcurrency: cfg.MaxConcurrency,
	}, nil
}

func (p *Pipeline) Views() *ViewStore { return p.views }

// Resolve runs one resolution cycle: it publishes loading, then either an
// error view or a ready view sorted by token id, and returns the final view.
func (p *Pipeline) Resolve(ctx context.Context, coll nft.Collection, contract, account common.Address) nft.AssetListView {
	cycleID := uuid.NewString()
	timer := prometheus.NewTimer(metrics.ResolutionDuration)
	defer timer.ObserveDuration()

	p.views.Publish(nft.LoadingView(cycleID, contract, account))

	refs, err := p.enumerator.EnumerateOwned(ctx, coll, contract, account)
	if err != nil {
		enumErr := &EnumerationError{Contract: contract, Account: account, Err: err}
		log.Error("asset resolution failed",
			"cycle", cycleID,
			"contract", contract.Hex(),
			"account", account.Hex(),
			"error", err,
		)
		view := nft.ErrorView(cycleID, contract, account, enumErr.Error())
		p.views.Publish(view)
		metrics.ResolutionCycles.WithLabelValues(string(view.Status)).Inc()
		return view
	}

	owned := p.resolveAll(ctx, coll, refs)
	nft.SortAssets(owned)

	metrics.DroppedTokens.Add(float64(len(refs) - len(owned)))
	for _, a := range owned {
		metrics.ResolvedAssets.WithLabelValues(string(a.Status)).Inc()
	}

	log.Info("asset resolution complete",
		"cycle", cycleID,
		"account", account.Hex(),
		"owned", len(refs),
		"resolved", len(owned),
	)

	view := nft.ReadyView(cycleID, contract, account, owned)
	p.views.Publish(view)
	metrics.ResolutionCycles.WithLabelValues(string(view.Status)).Inc()
	return view
}

// Refresh resolves for the capability's account. A nil capability resets the
// view to an empty ready list.
func (p *Pipeline) Refresh(ctx context.Context, c *nft.Capability) nft.AssetListView {
	if c == nil || c.Collection == nil {
		return p.Reset()
	}
	return p.Resolve(ctx, c.Collection, c.Contract, c.Account)
}

// Reset publishes an empty ready view with no account.
func (p *Pipeline) Reset() nft.AssetListView {
	view := nft.ReadyView(uuid.NewString(), common.Address{}, common.Address{}, nil)
	p.views.Publish(view)
	return view
}

func (p *Pipeline) resolveAll(ctx context.Context, coll nft.Collection, refs []nft.TokenRef) []nft.OwnedAsset {
	if len(refs) == 0 {
		return []nft.OwnedAsset{}
	}

	workers := pool.NewWithResults[*nft.OwnedAsset]()
	if p.maxConcurrency > 0 {
		workers = workers.WithMaxGoroutines(p.maxConcurrency)
	}

	for _, ref := range refs {
		workers.Go(func() *nft.OwnedAsset {
			asset, err := p.resolveOne(ctx, coll, ref)
			if err != nil {
				return nil
			}
			return &asset
		})
	}

	// nil marks a token whose uri lookup failed; resolveOne already logged it.
	owned := make([]nft.OwnedAsset, 0, len(refs))
	for _, a := range workers.Wait() {
		if a != nil {
			owned = append(owned, *a)
		}
	}
	return owned
}

func (p *Pipeline) resolveOne(ctx context.Context, coll nft.Collection, ref nft.TokenRef) (nft.OwnedAsset, error) {
	uri, err := coll.TokenURI(ctx, ref.ID)
	if err != nil {
		log.Warn("tokenURI failed, dropping token",
			"contract", ref.Contract.Hex(),
			"token", ref.IDString(),
			"error", err,
		)
		return nft.OwnedAsset{}, fmt.Errorf("tokenURI %s: %w", ref.IDString(), err)
	}

	res := p.fetcher.Fetch(ctx, uri)
	doc := res.Document
	doc.Image = p.gateway.Resolve(doc.Image)

	return nft.OwnedAsset{
		Token:    ref,
		TokenURI: uri,
		Metadata: doc,
		Status:   res.Status,
	}, nil
}
