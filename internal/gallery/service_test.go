package gallery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var testContract = common.HexToAddress("0x00000000000000000000000000000000000000c1")

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]Asset
	ttls  map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]Asset{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]Asset, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[key]
	return a, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, assets []Asset, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = assets
	m.ttls[key] = ttl
	return nil
}

func pagedIndexer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/nft/v3/test-key/getNFTsForContract") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("contractAddress"); got != testContract.Hex() {
			t.Errorf("contractAddress = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("pageKey") {
		case "":
			fmt.Fprintf(w, `{"nfts":[{"contract":{"address":"%s"},"tokenId":"1","name":"One","image":{"cachedUrl":"https://cdn/1.png","originalUrl":"ipfs://one"},"tokenUri":"ipfs://meta/1"}],"pageKey":"p2"}`, strings.ToLower(testContract.Hex()))
		case "p2":
			fmt.Fprint(w, `{"nfts":[{"contract":{"address":""},"tokenId":"2","name":"Two","image":{"originalUrl":"ipfs://two"}}],"pageKey":""}`)
		default:
			t.Errorf("unexpected pageKey %q", r.URL.Query().Get("pageKey"))
		}
	}))
}

func TestCollectionAssets_FollowsPages(t *testing.T) {
	var hits atomic.Int32
	srv := pagedIndexer(t, &hits)
	defer srv.Close()

	svc := NewService(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	assets, err := svc.CollectionAssets(context.Background(), testContract)
	if err != nil {
		t.Fatalf("CollectionAssets: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(assets))
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 page requests, got %d", hits.Load())
	}

	if assets[0].TokenID != "1" || assets[0].Image != "https://cdn/1.png" || assets[0].TokenURI != "ipfs://meta/1" {
		t.Fatalf("unexpected first asset: %+v", assets[0])
	}
	if assets[0].Contract != testContract.Hex() {
		t.Fatalf("contract not checksummed: %q", assets[0].Contract)
	}
	if assets[1].Image != "ipfs://two" {
		t.Fatalf("expected original url fallback, got %q", assets[1].Image)
	}
	if assets[1].Contract != testContract.Hex() {
		t.Fatalf("expected requested contract fallback, got %q", assets[1].Contract)
	}
}

func TestCollectionAssets_EmptyCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"nfts":[]}`)
	}))
	defer srv.Close()

	svc := NewService(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	assets, err := svc.CollectionAssets(context.Background(), testContract)
	if err != nil {
		t.Fatalf("CollectionAssets: %v", err)
	}
	if assets == nil || len(assets) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", assets)
	}
}

func TestCollectionAssets_MissingKey(t *testing.T) {
	svc := NewService(Config{BaseURL: "http://127.0.0.1:1"}, nil)
	_, err := svc.CollectionAssets(context.Background(), testContract)
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Fatalf("expected ErrAPIKeyMissing, got %v", err)
	}
}

func TestCollectionAssets_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewService(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := svc.CollectionAssets(context.Background(), testContract)

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d", upstream.Status)
	}
}

func TestCollectionAssets_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"nfts":`)
	}))
	defer srv.Close()

	svc := NewService(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := svc.CollectionAssets(context.Background(), testContract)

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}

func TestCollectionAssets_UsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := pagedIndexer(t, &hits)
	defer srv.Close()

	cache := newMemoryCache()
	svc := NewService(Config{APIKey: "test-key", BaseURL: srv.URL, CacheTTL: time.Minute}, cache)

	for i := 0; i < 3; i++ {
		assets, err := svc.CollectionAssets(context.Background(), testContract)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if len(assets) != 2 {
			t.Fatalf("call %d: expected 2 assets, got %d", i, len(assets))
		}
	}
	if hits.Load() != 2 {
		t.Fatalf("expected only the first call to reach the indexer, got %d requests", hits.Load())
	}

	key := svc.cacheKey(testContract)
	if cache.ttls[key] != time.Minute {
		t.Fatalf("ttl = %v", cache.ttls[key])
	}
}

func TestRedactKey(t *testing.T) {
	err := redactKey(errors.New(`Get "https://x/nft/v3/secret/getNFTsForContract": dial tcp`), "secret")
	if strings.Contains(err.Error(), "secret") {
		t.Fatalf("key leaked: %v", err)
	}
}
