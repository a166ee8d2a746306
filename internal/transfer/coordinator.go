package transfer

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/shopspring/decimal"

	"github.com/quantumauth-io/quantum-nft-client/internal/metrics"
	"github.com/quantumauth-io/quantum-nft-client/internal/nft"
)

const DefaultRefreshDelay = 2 * time.Second

var errReverted = errors.New("transaction reverted")

type Refresher interface {
	Refresh(ctx context.Context, c *nft.Capability) nft.AssetListView
}

// ValueSender signs and broadcasts a plain value transfer.
type ValueSender interface {
	SendValue(ctx context.Context, from, to common.Address, wei *big.Int) (*types.Transaction, error)
}

// SessionState reports the connected account and capability.
type SessionState interface {
	Current() (common.Address, *nft.Capability)
}

type Config struct {
	Refresher Refresher
	Sender    ValueSender
	// Session, when set, is consulted before a delayed refresh runs; the
	// refresh is skipped if the account it was scheduled for is no longer
	// the session account.
	Session SessionState
	// RefreshDelay is how long to wait after confirmation before re-resolving
	// assets. Negative disables the refresh.
	RefreshDelay time.Duration
}

// Coordinator validates, submits and confirms transfers, recording every
// attempt. Failed attempts are never retried.
type Coordinator struct {
	refresher    Refresher
	sender       ValueSender
	session      SessionState
	refreshDelay time.Duration

	mu       sync.RWMutex
	attempts map[string]*Result
	last     string

	ctx     context.Context
	cancel  context.CancelFunc
	timers  map[*time.Timer]struct{}
	pending sync.WaitGroup
}

func NewCoordinator(cfg Config) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		refresher:    cfg.Refresher,
		sender:       cfg.Sender,
		session:      cfg.Session,
		refreshDelay: cfg.RefreshDelay,
		attempts:     map[string]*Result{},
		timers:       map[*time.Timer]struct{}{},
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (c *Coordinator) Attempt(id string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.attempts[id]
	if !ok {
		return Result{}, false
	}
	return *r, true
}

func (c *Coordinator) Last() (Result, bool) {
	c.mu.RLock()
	id := c.last
	c.mu.RUnlock()
	if id == "" {
		return Result{}, false
	}
	return c.Attempt(id)
}

func (c *Coordinator) begin(kind Kind) string {
	now := time.Now().UTC()
	r := &Result{ID: uuid.NewString(), Kind: kind, State: StateIdle, CreatedAt: now, UpdatedAt: now}

	c.mu.Lock()
	c.attempts[r.ID] = r
	c.last = r.ID
	c.mu.Unlock()
	return r.ID
}

func (c *Coordinator) update(id string, fn func(r *Result)) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.attempts[id]
	fn(r)
	r.UpdatedAt = time.Now().UTC()
	return *r
}

func (c *Coordinator) advance(id string, state State) Result {
	return c.update(id, func(r *Result) { r.State = state })
}

func (c *Coordinator) fail(id string, err error) (Result, error) {
	res := c.update(id, func(r *Result) {
		r.State = StateFailed
		r.Error = err.Error()
	})
	metrics.TransferAttempts.WithLabelValues(string(res.Kind), string(res.State)).Inc()
	log.Warn("transfer attempt failed", "attempt", id, "kind", res.Kind, "error", err)
	return res, err
}

// Transfer moves req.TokenID from the session account to req.To with
// safeTransferFrom and waits for one confirmation. On success an asset
// refresh is scheduled after the configured delay.
func (c *Coordinator) Transfer(ctx context.Context, capability *nft.Capability, req Request) (Result, error) {
	id := c.begin(KindNFT)

	c.advance(id, StateValidating)
	from, to, tokenID, err := validateTransfer(capability, req)
	if err != nil {
		return c.fail(id, err)
	}
	c.update(id, func(r *Result) {
		r.From = from.Hex()
		r.To = to.Hex()
		r.TokenID = tokenID.String()
	})

	return c.execute(ctx, id, capability, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return capability.Collection.SafeTransferFrom(opts, from, to, tokenID)
	}, true)
}

// Mint mints a new token with uri to the given address (the session account
// when empty). The collection owner must be the session account.
func (c *Coordinator) Mint(ctx context.Context, capability *nft.Capability, toHex, uri string) (Result, error) {
	id := c.begin(KindMint)

	c.advance(id, StateValidating)
	if err := validateCapability(capability); err != nil {
		return c.fail(id, err)
	}
	to := capability.Account
	if strings.TrimSpace(toHex) != "" {
		parsed, err := parseAddress("to", toHex)
		if err != nil {
			return c.fail(id, err)
		}
		to = parsed
	}
	c.update(id, func(r *Result) {
		r.From = capability.Account.Hex()
		r.To = to.Hex()
		r.TokenURI = uri
	})

	return c.execute(ctx, id, capability, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return capability.Collection.SafeMint(opts, to, uri)
	}, true)
}

func (c *Coordinator) execute(
	ctx context.Context,
	id string,
	capability *nft.Capability,
	submit func(opts *bind.TransactOpts) (*types.Transaction, error),
	refresh bool,
) (Result, error) {
	c.advance(id, StateSubmitting)

	opts, err := capability.Transactor(ctx)
	if err != nil {
		return c.fail(id, &ContractCallError{Err: err})
	}

	tx, err := submit(opts)
	if err != nil {
		return c.fail(id, &ContractCallError{Err: err})
	}

	return c.confirm(ctx, id, capability, tx, refresh)
}

func (c *Coordinator) confirm(
	ctx context.Context,
	id string,
	capability *nft.Capability,
	tx *types.Transaction,
	refresh bool,
) (Result, error) {
	hash := tx.Hash().Hex()
	c.update(id, func(r *Result) {
		r.State = StatePendingConfirmation
		r.TxHash = hash
	})
	log.Info("transaction submitted", "attempt", id, "tx", hash)

	receipt, err := capability.Confirmer.WaitMined(ctx, tx)
	if err != nil {
		return c.fail(id, &ContractCallError{TxHash: hash, Err: err})
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return c.fail(id, &ContractCallError{TxHash: hash, Err: errReverted})
	}

	res := c.update(id, func(r *Result) {
		r.State = StateConfirmed
		if receipt.BlockNumber != nil {
			r.BlockNumber = receipt.BlockNumber.Uint64()
		}
	})
	metrics.TransferAttempts.WithLabelValues(string(res.Kind), string(res.State)).Inc()
	log.Info("transaction confirmed", "attempt", id, "tx", hash, "block", res.BlockNumber)

	if refresh {
		c.scheduleRefresh(capability)
	}
	return res, nil
}

func (c *Coordinator) scheduleRefresh(capability *nft.Capability) {
	if c.refresher == nil || c.refreshDelay < 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx.Err() != nil {
		return
	}

	c.pending.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(c.refreshDelay, func() {
		defer c.pending.Done()
		c.mu.Lock()
		delete(c.timers, timer)
		c.mu.Unlock()

		if !c.stillCurrent(capability) {
			log.Info("account changed before refresh, skipping", "account", capability.Account.Hex())
			return
		}
		log.Info("refreshing assets after confirmed transaction", "account", capability.Account.Hex())
		c.refresher.Refresh(c.ctx, capability)
	})
	c.timers[timer] = struct{}{}
}

func (c *Coordinator) stillCurrent(capability *nft.Capability) bool {
	if c.session == nil {
		return true
	}
	account, current := c.session.Current()
	return current != nil && account == capability.Account && current.Contract == capability.Contract
}

// SendNative sends amountEther (a decimal ether amount) from the session
// account to toHex and waits for one confirmation.
func (c *Coordinator) SendNative(ctx context.Context, capability *nft.Capability, toHex, amountEther string) (Result, error) {
	id := c.begin(KindNative)

	c.advance(id, StateValidating)
	if capability == nil || capability.Account == (common.Address{}) || capability.Confirmer == nil {
		return c.fail(id, &ValidationError{Field: "account", Reason: "no connected account"})
	}
	if c.sender == nil {
		return c.fail(id, &ValidationError{Field: "account", Reason: "wallet cannot send value"})
	}
	to, err := parseAddress("to", toHex)
	if err != nil {
		return c.fail(id, err)
	}
	wei, err := ParseEther(amountEther)
	if err != nil {
		return c.fail(id, err)
	}
	c.update(id, func(r *Result) {
		r.From = capability.Account.Hex()
		r.To = to.Hex()
		r.AmountWei = wei.String()
	})

	c.advance(id, StateSubmitting)
	tx, err := c.sender.SendValue(ctx, capability.Account, to, wei)
	if err != nil {
		return c.fail(id, &ContractCallError{Err: err})
	}

	return c.confirm(ctx, id, capability, tx, false)
}

// Close drops scheduled refreshes that have not started and waits for running ones.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.cancel()
	for t := range c.timers {
		if t.Stop() {
			c.pending.Done()
		}
		delete(c.timers, t)
	}
	c.mu.Unlock()

	c.pending.Wait()
}

// ParseEther converts a positive decimal ether amount to wei.
func ParseEther(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, &ValidationError{Field: "amount", Reason: "is required"}
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, &ValidationError{Field: "amount", Reason: "not a decimal number"}
	}
	if !d.IsPositive() {
		return nil, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	wei := d.Shift(18)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, &ValidationError{Field: "amount", Reason: "more than 18 decimal places"}
	}
	return wei.BigInt(), nil
}
