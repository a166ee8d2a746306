package nftclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/quantumauth-io/quantum-go-utils/qa_evm"

	"github.com/quantumauth-io/quantum-nft-client/cmd/quantum-nft-client/config"
	"github.com/quantumauth-io/quantum-nft-client/internal/assets"
	"github.com/quantumauth-io/quantum-nft-client/internal/chains"
	"github.com/quantumauth-io/quantum-nft-client/internal/gallery"
	"github.com/quantumauth-io/quantum-nft-client/internal/gateway"
	clienthttp "github.com/quantumauth-io/quantum-nft-client/internal/http"
	"github.com/quantumauth-io/quantum-nft-client/internal/metadata"
	"github.com/quantumauth-io/quantum-nft-client/internal/nft"
	"github.com/quantumauth-io/quantum-nft-client/internal/ownership"
	"github.com/quantumauth-io/quantum-nft-client/internal/registry"
	"github.com/quantumauth-io/quantum-nft-client/internal/session"
	"github.com/quantumauth-io/quantum-nft-client/internal/tokens"
	"github.com/quantumauth-io/quantum-nft-client/internal/transfer"
	"github.com/quantumauth-io/quantum-nft-client/internal/wallet"
)

const shutdownTimeout = 5 * time.Second

type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// chainBackend is the surface the wallet, bindings and receipt waits need
// from the active HTTP client.
type chainBackend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

func Run(ctx context.Context, build BuildInfo) error {
	log.Info("quantum-nft-client",
		"version", build.Version,
		"commit", build.Commit,
		"build_date", build.BuildDate,
	)

	// ---- Config
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// ---- Chain service
	chainService, err := chains.NewService(ctx, chains.Config{
		Networks:              cfg.Networks,
		DefaultNetwork:        cfg.Networks.ActiveNetwork,
		PreferredRPCName:      cfg.Networks.ActiveRPC,
		HeaderRefreshInterval: cfg.Chain.HeaderRefreshInterval,
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := chainService.Close(); closeErr != nil {
			log.Error("chain service close failed", "error", closeErr)
		}
	}()

	activeChain, clients, err := chainService.Active()
	if err != nil {
		return err
	}
	backend, err := asChainBackend(clients.HTTP)
	if err != nil {
		return err
	}
	log.Info("chain connected", "network", activeChain.NetworkName, "chain_id", activeChain.ChainID, "rpc", activeChain.RPCName)

	collection := common.HexToAddress(cfg.Collection.Address)
	if err := verifyDeployed(ctx, backend, collection); err != nil {
		return err
	}

	// ---- Wallet
	provider, err := newProvider(cfg, backend)
	if err != nil {
		return err
	}

	// ---- Asset pipeline
	gw := gateway.NewResolver(cfg.Gateway.BaseURL)
	pipeline, err := assets.NewPipeline(assets.PipelineConfig{
		Enumerator: ownership.NewEnumerator(cfg.Pipeline.MaxConcurrency),
		Fetcher: metadata.NewFetcher(gw, metadata.Config{
			Timeout:      cfg.Metadata.Timeout,
			MaxBodyBytes: cfg.Metadata.MaxBodyBytes,
		}),
		Gateway:        gw,
		MaxConcurrency: cfg.Pipeline.MaxConcurrency,
	})
	if err != nil {
		return err
	}

	// ---- Session + transfers
	sessions := session.NewManager(provider, capabilityBinder(collection, backend, provider), pipeline)
	defer sessions.Close()

	coordinator := transfer.NewCoordinator(transfer.Config{
		Refresher:    pipeline,
		Sender:       provider,
		Session:      sessions,
		RefreshDelay: cfg.Transfer.RefreshDelay,
	})
	defer coordinator.Close()

	deps := clienthttp.Deps{
		Sessions:  sessions,
		Accounts:  provider,
		Assets:    pipeline,
		Transfers: coordinator,
		Networks:  chainService,
	}

	// ---- Token balances
	tokenService, err := tokens.NewService(backend)
	if err != nil {
		return err
	}
	deps.Balances = tokenService

	// ---- Registry (optional)
	if cfg.Registry.Address != "" {
		registryService, err := registry.NewService(backend, common.HexToAddress(cfg.Registry.Address))
		if err != nil {
			return err
		}
		deps.Registry = registryService
	}

	// ---- Collection gallery
	var cache gallery.Cache
	if len(cfg.Redis.Addrs) > 0 {
		redisCache := gallery.NewRedisCache(gallery.RedisConfig{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = redisCache.Close() }()

		if pingErr := redisCache.Ping(ctx); pingErr != nil {
			log.Warn("redis unavailable, gallery cache disabled", "error", pingErr)
		} else {
			cache = redisCache
		}
	}
	deps.Gallery = gallery.NewService(gallery.Config{
		APIKey:   cfg.Gallery.APIKey,
		Network:  cfg.Gallery.Network,
		BaseURL:  cfg.Gallery.BaseURL,
		CacheTTL: cfg.Gallery.CacheTTL,
		Timeout:  cfg.Gallery.Timeout,
	}, cache)
	if cfg.Gallery.APIKey == "" {
		log.Warn("indexer API key not set, /assets will fail", "env", config.EnvAlchemyAPIKey)
	}

	// ---- HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := clienthttp.NewRouter(clienthttp.NewHandler(deps), clienthttp.RouterConfig{
		AllowedOrigins: cfg.ClientSettings.AllowedOrigins,
	})

	listenAddr := net.JoinHostPort(cfg.ClientSettings.LocalHost, cfg.ClientSettings.Port)
	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", listenAddr, "collection", collection.Hex())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// ---- graceful shutdown
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		log.Error("HTTP server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("NFT client shutdown failed", "error", err)
	} else {
		log.Info("NFT client gracefully stopped")
	}
	return nil
}

func newProvider(cfg *config.Config, backend wallet.Backend) (*wallet.LocalProvider, error) {
	passphrase := cfg.Wallet.Passphrase
	if cfg.Wallet.KeystoreDir != "" && passphrase == "" && cfg.ClientSettings.InteractiveApproval {
		p, err := wallet.PromptPassphrase("Keystore passphrase: ")
		if err != nil {
			return nil, err
		}
		passphrase = p
	}

	keys, err := wallet.LoadKeys(wallet.KeyConfig{
		KeystoreDir: cfg.Wallet.KeystoreDir,
		Passphrase:  passphrase,
		PrivateKeys: cfg.Wallet.PrivateKeys,
	})
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		log.Warn("no wallet keys configured, connect requests will be refused")
	}

	var approver wallet.Approver = wallet.AutoApprove{}
	if cfg.ClientSettings.InteractiveApproval {
		approver = wallet.NewTerminalApprover()
	}

	provider, err := wallet.NewLocalProvider(backend, approver, keys)
	if err != nil {
		return nil, err
	}
	for _, a := range provider.Known() {
		log.Info("wallet account available", "account", a.Hex())
	}
	return provider, nil
}

// capabilityBinder binds the collection to an account, signing through the
// provider and confirming through the chain backend.
func capabilityBinder(collection common.Address, backend chainBackend, provider wallet.Provider) session.Binder {
	return func(ctx context.Context, account common.Address) (*nft.Capability, error) {
		bound, err := nft.NewBoundCollection(collection, backend)
		if err != nil {
			return nil, fmt.Errorf("bind collection %s: %w", collection.Hex(), err)
		}
		return &nft.Capability{
			Contract:   collection,
			Account:    account,
			Collection: bound,
			Transactor: func(ctx context.Context) (*bind.TransactOpts, error) {
				return provider.Transactor(ctx, account)
			},
			Confirmer: nft.ReceiptWaiter{Backend: backend},
		}, nil
	}
}

func verifyDeployed(ctx context.Context, backend bind.DeployBackend, contract common.Address) error {
	code, err := backend.CodeAt(ctx, contract, nil)
	if err != nil {
		return err
	}
	if len(code) == 0 {
		return fmt.Errorf("collection not deployed on this chain: %s", contract.Hex())
	}
	return nil
}

func asChainBackend(client qa_evm.BlockchainClient) (chainBackend, error) {
	backend, ok := client.(chainBackend)
	if !ok {
		return nil, fmt.Errorf("http client does not support contract calls and receipts (got %T)", client)
	}
	return backend, nil
}
