package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/quantum-nft-client/internal/metrics"
)

const (
	DefaultNetwork  = "eth-sepolia"
	defaultBaseURL  = "https://%s.g.alchemy.com"
	maxPages        = 100
	maxPageBodySize = 8 << 20
)

var ErrAPIKeyMissing = errors.New("indexer API key is not configured")

// UpstreamError is a failure of the indexer API.
type UpstreamError struct {
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	return "failed to fetch collection assets: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Asset is one token of a collection as reported by the indexer.
type Asset struct {
	Contract    string `json:"contract"`
	TokenID     string `json:"tokenId"`
	TokenType   string `json:"tokenType,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	TokenURI    string `json:"tokenUri,omitempty"`
}

type Config struct {
	APIKey   string
	Network  string
	BaseURL  string
	CacheTTL time.Duration
	Timeout  time.Duration
}

// Service lists every token of a collection through the Alchemy NFT API.
type Service struct {
	cfg    Config
	client *http.Client
	cache  Cache
}

func NewService(cfg Config, cache Cache) *Service {
	if strings.TrimSpace(cfg.Network) == "" {
		cfg.Network = DefaultNetwork
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = fmt.Sprintf(defaultBaseURL, cfg.Network)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  cache,
	}
}

func (s *Service) cacheKey(contract common.Address) string {
	return s.cfg.Network + ":" + strings.ToLower(contract.Hex())
}

// CollectionAssets returns every token of contract, following all pages.
func (s *Service) CollectionAssets(ctx context.Context, contract common.Address) ([]Asset, error) {
	if strings.TrimSpace(s.cfg.APIKey) == "" {
		return nil, ErrAPIKeyMissing
	}

	key := s.cacheKey(contract)
	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, key); err != nil {
			log.Warn("gallery cache read failed", "key", key, "error", err)
		} else if ok {
			metrics.GalleryRequests.WithLabelValues(metrics.GalleryHit).Inc()
			return cached, nil
		}
	}

	assets := []Asset{}
	pageKey := ""
	for page := 0; ; page++ {
		if page >= maxPages {
			return nil, &UpstreamError{Err: fmt.Errorf("more than %d pages", maxPages)}
		}

		resp, err := s.fetchPage(ctx, contract, pageKey)
		if err != nil {
			metrics.GalleryRequests.WithLabelValues(metrics.GalleryError).Inc()
			return nil, err
		}
		for _, n := range resp.NFTs {
			assets = append(assets, n.toAsset(contract))
		}
		if resp.PageKey == "" {
			break
		}
		pageKey = resp.PageKey
	}

	metrics.GalleryRequests.WithLabelValues(metrics.GalleryMiss).Inc()
	if s.cache != nil && s.cfg.CacheTTL > 0 {
		if err := s.cache.Set(ctx, key, assets, s.cfg.CacheTTL); err != nil {
			log.Warn("gallery cache write failed", "key", key, "error", err)
		}
	}

	return assets, nil
}

type nftsPage struct {
	NFTs    []indexedNFT `json:"nfts"`
	PageKey string       `json:"pageKey"`
}

type indexedNFT struct {
	Contract struct {
		Address string `json:"address"`
	} `json:"contract"`
	TokenID     string `json:"tokenId"`
	TokenType   string `json:"tokenType"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TokenURI    string `json:"tokenUri"`
	Image       struct {
		CachedURL   string `json:"cachedUrl"`
		OriginalURL string `json:"originalUrl"`
	} `json:"image"`
}

func (n indexedNFT) toAsset(contract common.Address) Asset {
	addr := contract.Hex()
	if common.IsHexAddress(n.Contract.Address) {
		addr = common.HexToAddress(n.Contract.Address).Hex()
	}
	image := n.Image.CachedURL
	if image == "" {
		image = n.Image.OriginalURL
	}
	return Asset{
		Contract:    addr,
		TokenID:     n.TokenID,
		TokenType:   n.TokenType,
		Name:        n.Name,
		Description: n.Description,
		Image:       image,
		TokenURI:    n.TokenURI,
	}
}

func (s *Service) fetchPage(ctx context.Context, contract common.Address, pageKey string) (*nftsPage, error) {
	q := url.Values{}
	q.Set("contractAddress", contract.Hex())
	q.Set("withMetadata", "true")
	if pageKey != "" {
		q.Set("pageKey", pageKey)
	}
	endpoint := fmt.Sprintf("%s/nft/v3/%s/getNFTsForContract?%s", s.cfg.BaseURL, url.PathEscape(s.cfg.APIKey), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: redactKey(err, s.cfg.APIKey)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBodySize))
	if err != nil {
		return nil, &UpstreamError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Err: fmt.Errorf("indexer returned %s", resp.Status)}
	}

	var page nftsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &UpstreamError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &page, nil
}

// redactKey strips the API key out of transport errors, which embed the URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "***"))
}
