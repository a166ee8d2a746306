package gateway

import "strings"

const (
	IPFSScheme     = "ipfs://"
	DefaultBaseURL = "https://ipfs.io/ipfs"
)

// Resolver rewrites content-addressed URIs into URLs served by an HTTP gateway.
type Resolver struct {
	base string
}

func NewResolver(baseURL string) *Resolver {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Resolver{base: baseURL}
}

func (r *Resolver) Base() string {
	return r.base
}

// Resolve returns uri with a leading ipfs:// replaced by the gateway base.
// Any other uri, including "", is returned unchanged.
func (r *Resolver) Resolve(uri string) string {
	if !strings.HasPrefix(uri, IPFSScheme) {
		return uri
	}
	return r.base + "/" + strings.TrimPrefix(uri, IPFSScheme)
}
