package chains

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/quantum-go-utils/qa_evm"
)

type Config struct {
	Networks         *NetworksConfig
	DefaultNetwork   string
	PreferredRPCName string
	// HeaderRefreshInterval enables the latest-header cache when positive.
	HeaderRefreshInterval time.Duration
}

type Clients struct {
	WS   *ethclient.Client
	HTTP qa_evm.BlockchainClient
}

type ResolvedChain struct {
	NetworkName    string
	ChainID        uint64
	ChainIDHex     string
	Explorer       string
	IndexerNetwork string

	RPCName string
	URL     string
	WSS     string
}

type activeChain struct {
	chain   ResolvedChain
	clients *Clients
}

// Service dials and caches RPC clients per network and tracks the active one.
type Service struct {
	cfg              Config
	ctx              context.Context
	active           atomic.Pointer[activeChain]
	mu               sync.Mutex
	clientsByNetwork map[string]*Clients
}

// NewService dials the default network. ctx bounds background work such as
// the header cache and should live as long as the service.
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	if cfg.Networks == nil {
		return nil, errors.New("networks config is nil")
	}
	if strings.TrimSpace(cfg.DefaultNetwork) == "" {
		return nil, errors.New("active network is empty")
	}

	s := &Service{
		cfg:              cfg,
		ctx:              ctx,
		clientsByNetwork: make(map[string]*Clients),
	}

	if err := s.SwitchChain(ctx, cfg.DefaultNetwork); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) Active() (ResolvedChain, *Clients, error) {
	current := s.active.Load()
	if current == nil || current.clients == nil {
		return ResolvedChain{}, nil, errors.New("no active chain")
	}
	return current.chain, current.clients, nil
}

func (s *Service) ActiveHTTP() (qa_evm.BlockchainClient, error) {
	current := s.active.Load()
	if current == nil || current.clients == nil || current.clients.HTTP == nil {
		return nil, errors.New("no active http client")
	}
	return current.clients.HTTP, nil
}

func (s *Service) SwitchChain(ctx context.Context, networkName string) error {
	networkName = strings.TrimSpace(networkName)
	if networkName == "" {
		return errors.New("network name is empty")
	}

	if current := s.active.Load(); current != nil {
		if strings.EqualFold(current.chain.NetworkName, networkName) {
			return nil
		}
	}

	resolved, err := s.ResolveNetworkByName(networkName)
	if err != nil {
		return err
	}
	clients, err := s.ClientsForNetwork(ctx, networkName)
	if err != nil {
		return err
	}

	s.active.Store(&activeChain{chain: resolved, clients: clients})
	return nil
}

func (s *Service) SwitchChainByChainIDHex(ctx context.Context, chainIDHex string) (string, error) {
	resolved, err := s.ResolveNetworkByChainIDHex(chainIDHex)
	if err != nil {
		return "", err
	}
	if err := s.SwitchChain(ctx, resolved.NetworkName); err != nil {
		return "", err
	}
	return resolved.NetworkName, nil
}

// ClientsForNetwork returns (and caches) clients without changing the active chain.
func (s *Service) ClientsForNetwork(ctx context.Context, networkName string) (*Clients, error) {
	networkName = strings.TrimSpace(networkName)
	if networkName == "" {
		return nil, errors.New("network name is empty")
	}

	cacheKey := strings.ToLower(networkName)

	s.mu.Lock()
	if existing := s.clientsByNetwork[cacheKey]; existing != nil {
		s.mu.Unlock()
		return existing, nil
	}
	s.mu.Unlock()

	resolved, err := s.ResolveNetworkByName(networkName)
	if err != nil {
		return nil, err
	}

	// Dial outside the lock
	dialed, err := s.dial(ctx, resolved)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing := s.clientsByNetwork[cacheKey]; existing != nil {
		s.mu.Unlock()
		safeCloseClients(dialed)
		return existing, nil
	}
	s.clientsByNetwork[cacheKey] = dialed
	s.mu.Unlock()

	return dialed, nil
}

// Close closes all cached clients.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, clients := range s.clientsByNetwork {
		safeCloseClients(clients)
		delete(s.clientsByNetwork, key)
	}

	s.active.Store(nil)
	return nil
}

func (s *Service) dial(ctx context.Context, chain ResolvedChain) (*Clients, error) {
	if strings.TrimSpace(chain.URL) == "" {
		return nil, errors.New("invalid chain rpc config (missing url)")
	}

	clients := &Clients{}

	if s.cfg.HeaderRefreshInterval > 0 {
		cached, err := NewHeaderCachingClient(s.ctx, chain.URL, s.cfg.HeaderRefreshInterval)
		if err != nil {
			return nil, fmt.Errorf("dial http %q: %w", chain.NetworkName, err)
		}
		clients.HTTP = cached
	} else {
		httpClient, err := ethclient.DialContext(ctx, chain.URL)
		if err != nil {
			return nil, fmt.Errorf("dial http %q: %w", chain.NetworkName, err)
		}
		clients.HTTP = httpClient
	}

	if strings.TrimSpace(chain.WSS) != "" {
		wsClient, err := ethclient.DialContext(ctx, chain.WSS)
		if err != nil {
			safeCloseClients(clients)
			return nil, fmt.Errorf("dial wss %q: %w", chain.NetworkName, err)
		}
		clients.WS = wsClient
	}

	return clients, nil
}

func safeCloseClients(c *Clients) {
	if c == nil {
		return
	}
	if c.WS != nil {
		c.WS.Close()
	}
	if c.HTTP != nil {
		if closer, ok := c.HTTP.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

func (s *Service) ResolveNetworkByChainID(chainID uint64) (ResolvedChain, error) {
	if chainID == 0 {
		return ResolvedChain{}, errors.New("chainID is 0")
	}
	for name, network := range s.cfg.Networks.Networks {
		if network.ChainID != chainID {
			continue
		}
		return s.resolveFromNetworkConfig(name, network)
	}
	return ResolvedChain{}, fmt.Errorf("unknown chainID %d", chainID)
}

func (s *Service) ResolveNetworkByChainIDHex(chainIDHex string) (ResolvedChain, error) {
	chainIDHex = strings.TrimSpace(strings.ToLower(chainIDHex))
	if chainIDHex == "" {
		return ResolvedChain{}, errors.New("chainIdHex is empty")
	}
	for name, network := range s.cfg.Networks.Networks {
		if strings.ToLower(strings.TrimSpace(network.ChainIDHex)) != chainIDHex {
			continue
		}
		return s.resolveFromNetworkConfig(name, network)
	}
	return ResolvedChain{}, fmt.Errorf("unknown chainIdHex %q", chainIDHex)
}

func (s *Service) ResolveNetworkByName(networkName string) (ResolvedChain, error) {
	networkName = strings.TrimSpace(networkName)
	if networkName == "" {
		return ResolvedChain{}, errors.New("network name is empty")
	}
	network, ok := s.cfg.Networks.Networks[networkName]
	if !ok {
		for name, n := range s.cfg.Networks.Networks {
			if strings.EqualFold(name, networkName) {
				return s.resolveFromNetworkConfig(name, n)
			}
		}
		return ResolvedChain{}, fmt.Errorf("unknown network %q", networkName)
	}
	return s.resolveFromNetworkConfig(networkName, network)
}

func (s *Service) resolveFromNetworkConfig(networkName string, network NetworkConfig) (ResolvedChain, error) {
	// pick RPC by preferred name; otherwise first
	var selected *RPC

	if preferred := strings.TrimSpace(s.cfg.PreferredRPCName); preferred != "" {
		for i := range network.RPCs {
			if strings.EqualFold(strings.TrimSpace(network.RPCs[i].Name), preferred) {
				selected = &network.RPCs[i]
				break
			}
		}
	}
	if selected == nil {
		if len(network.RPCs) == 0 {
			return ResolvedChain{}, fmt.Errorf("network %q has no RPCs configured", networkName)
		}
		selected = &network.RPCs[0]
	}

	if strings.TrimSpace(selected.URL) == "" {
		return ResolvedChain{}, fmt.Errorf("network %q rpc %q url is empty", networkName, selected.Name)
	}

	return ResolvedChain{
		NetworkName:    networkName,
		ChainID:        network.ChainID,
		ChainIDHex:     network.ChainIDHex,
		Explorer:       network.Explorer,
		IndexerNetwork: network.IndexerNetwork,
		RPCName:        selected.Name,
		URL:            selected.URL,
		WSS:            selected.WSS,
	}, nil
}
