package chains

import "strings"

// NetworksConfig is the set of configured networks and the default selection.
type NetworksConfig struct {
	Networks      map[string]NetworkConfig `json:"networks" yaml:"networks" mapstructure:"networks"`
	ActiveNetwork string                   `json:"activeNetwork" yaml:"activeNetwork" mapstructure:"activeNetwork"`
	ActiveRPC     string                   `json:"activeRPC" yaml:"activeRPC" mapstructure:"activeRPC"`
}

type NetworkConfig struct {
	Name       string `json:"name" yaml:"name" mapstructure:"name"`
	ChainID    uint64 `json:"chainId" yaml:"chainId" mapstructure:"chainId"`
	ChainIDHex string `json:"chainIdHex" yaml:"chainIdHex" mapstructure:"chainIdHex"`
	Explorer   string `json:"explorer" yaml:"explorer" mapstructure:"explorer"`
	// IndexerNetwork names the network for the NFT indexer API, e.g. eth-sepolia.
	IndexerNetwork string `json:"indexerNetwork" yaml:"indexerNetwork" mapstructure:"indexerNetwork"`
	RPCs           []RPC  `json:"rpcs" yaml:"rpcs" mapstructure:"rpcs"`
}

type RPC struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	URL  string `json:"url" yaml:"url" mapstructure:"url"`
	WSS  string `json:"wss" yaml:"wss" mapstructure:"wss"`
}

// Normalize copies map keys into Name and lower-cases chain id hex values.
func (nc *NetworksConfig) Normalize() {
	if nc == nil {
		return
	}
	for name, n := range nc.Networks {
		n.Name = name
		n.ChainIDHex = strings.ToLower(strings.TrimSpace(n.ChainIDHex))
		nc.Networks[name] = n
	}
}
