// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nft_client"

var (
	ResolutionCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolution_cycles_total",
			Help:      "Asset resolution cycles by final view status",
		},
		[]string{"status"},
	)

	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Duration of one asset resolution cycle",
			Buckets:   prometheus.DefBuckets,
		},
	)

	ResolvedAssets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolved_assets_total",
			Help:      "Owned assets published by metadata resolution status",
		},
		[]string{"status"},
	)

	DroppedTokens = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_tokens_total",
			Help:      "Owned tokens left out of a view because their token uri could not be read",
		},
	)

	TransferAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_attempts_total",
			Help:      "Finished transfer attempts by kind and terminal state",
		},
		[]string{"kind", "state"},
	)

	GalleryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gallery_requests_total",
			Help:      "Collection listing requests by result",
		},
		[]string{"result"},
	)
)

// Gallery request results.
const (
	GalleryHit   = "cache_hit"
	GalleryMiss  = "fetched"
	GalleryError = "error"
)

func Handler() http.Handler {
	return promhttp.Handler()
}
