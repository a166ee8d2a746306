package assets

import (
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/quantumauth-io/quantum-nft-client/internal/nft"
)

// ViewStore holds the most recently published AssetListView and fans every
// publication out to subscribers. Whichever publish happens last wins.
//
// Publish never blocks on a subscriber: when a subscriber's buffer is full
// its oldest queued view is discarded, so a slow reader skips intermediate
// views but always ends up with the newest one.
type ViewStore struct {
	current atomic.Pointer[nft.AssetListView]

	mu   sync.Mutex
	subs map[*ViewSubscription]struct{}
}

func NewViewStore() *ViewStore {
	s := &ViewStore{subs: map[*ViewSubscription]struct{}{}}
	initial := nft.ReadyView("", common.Address{}, common.Address{}, nil)
	s.current.Store(&initial)
	return s
}

func (s *ViewStore) Current() nft.AssetListView {
	return *s.current.Load()
}

func (s *ViewStore) Publish(view nft.AssetListView) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Store(&view)
	for sub := range s.subs {
		sub.offer(view)
	}
}

// Subscribe registers a subscriber with room for buffer queued views
// (at least one).
func (s *ViewStore) Subscribe(buffer int) *ViewSubscription {
	if buffer < 1 {
		buffer = 1
	}
	sub := &ViewSubscription{
		store: s,
		views: make(chan nft.AssetListView, buffer),
		err:   make(chan error),
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()
	return sub
}

func (s *ViewStore) remove(sub *ViewSubscription) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

var _ event.Subscription = (*ViewSubscription)(nil)

type ViewSubscription struct {
	store   *ViewStore
	views   chan nft.AssetListView
	err     chan error
	once    sync.Once
	dropped atomic.Uint64
}

func (s *ViewSubscription) Views() <-chan nft.AssetListView { return s.views }

// Err is closed by Unsubscribe.
func (s *ViewSubscription) Err() <-chan error { return s.err }

// Dropped counts views discarded because the subscriber fell behind.
func (s *ViewSubscription) Dropped() uint64 { return s.dropped.Load() }

func (s *ViewSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.store.remove(s)
		close(s.err)
	})
}

// offer runs with the store lock held, so it is the only sender.
func (s *ViewSubscription) offer(v nft.AssetListView) {
	select {
	case s.views <- v:
		return
	default:
	}
	select {
	case <-s.views:
		s.dropped.Add(1)
	default:
	}
	select {
	case s.views <- v:
	default:
		s.dropped.Add(1)
	}
}
