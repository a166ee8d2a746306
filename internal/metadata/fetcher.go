package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/quantum-nft-client/internal/gateway"
	"github.com/quantumauth-io/quantum-nft-client/internal/nft"
)

const DefaultMaxBodyBytes int64 = 1 << 20

const unavailable = "details unavailable"

// Result is a metadata document together with how it was obtained.
type Result struct {
	Document nft.Document
	Status   nft.ResolutionStatus
}

type Config struct {
	// Timeout bounds a single fetch. Zero means no timeout.
	Timeout      time.Duration
	MaxBodyBytes int64
}

// Fetcher loads token metadata documents. It never returns an error:
// every failure becomes a placeholder document.
type Fetcher struct {
	client   *http.Client
	gateway  *gateway.Resolver
	maxBytes int64
}

func NewFetcher(resolver *gateway.Resolver, cfg Config) *Fetcher {
	if resolver == nil {
		resolver = gateway.NewResolver("")
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return &Fetcher{
		client:   &http.Client{Timeout: cfg.Timeout},
		gateway:  resolver,
		maxBytes: maxBytes,
	}
}

// WithHTTPClient swaps the underlying client, mostly for tests.
func (f *Fetcher) WithHTTPClient(c *http.Client) *Fetcher {
	if c != nil {
		f.client = c
	}
	return f
}

func MetadataErrorPlaceholder() nft.Document {
	return nft.Document{Name: "metadata error", Description: unavailable}
}

func FetchErrorPlaceholder() nft.Document {
	return nft.Document{Name: "fetch error", Description: unavailable}
}

func (f *Fetcher) Fetch(ctx context.Context, uri string) Result {
	if uri == "" {
		return Result{Status: nft.ResolutionOK}
	}

	url := f.gateway.Resolve(uri)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error("metadata request build failed", "uri", uri, "error", err)
		return Result{Document: FetchErrorPlaceholder(), Status: nft.ResolutionFetchFailed}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		log.Error("metadata fetch failed", "url", url, "error", err)
		return Result{Document: FetchErrorPlaceholder(), Status: nft.ResolutionFetchFailed}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("metadata endpoint returned non-success status", "url", url, "status", resp.StatusCode)
		return Result{Document: MetadataErrorPlaceholder(), Status: nft.ResolutionMetadataFailed}
	}

	doc, err := f.decode(resp.Body)
	if err != nil {
		log.Error("metadata decode failed", "url", url, "error", err)
		return Result{Document: FetchErrorPlaceholder(), Status: nft.ResolutionFetchFailed}
	}

	return Result{Document: doc, Status: nft.ResolutionOK}
}

func (f *Fetcher) decode(body io.Reader) (nft.Document, error) {
	raw, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return nft.Document{}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > f.maxBytes {
		return nft.Document{}, fmt.Errorf("body exceeds %d bytes", f.maxBytes)
	}

	var doc nft.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nft.Document{}, fmt.Errorf("parse json: %w", err)
	}
	return doc, nil
}
