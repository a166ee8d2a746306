package http

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gin-gonic/gin"

	"github.com/quantumauth-io/quantum-nft-client/internal/assets"
	"github.com/quantumauth-io/quantum-nft-client/internal/chains"
	"github.com/quantumauth-io/quantum-nft-client/internal/gallery"
	"github.com/quantumauth-io/quantum-nft-client/internal/nft"
	"github.com/quantumauth-io/quantum-nft-client/internal/registry"
	"github.com/quantumauth-io/quantum-nft-client/internal/tokens"
	"github.com/quantumauth-io/quantum-nft-client/internal/transfer"
)

type Sessions interface {
	Connect(ctx context.Context) (common.Address, error)
	Current() (common.Address, *nft.Capability)
	Capability() (*nft.Capability, error)
}

// Accounts is the account switching surface of a local wallet.
type Accounts interface {
	Known() []common.Address
	SelectAccount(account common.Address) error
	Disconnect()
}

type AssetViews interface {
	Views() *assets.ViewStore
	Refresh(ctx context.Context, c *nft.Capability) nft.AssetListView
}

type Transfers interface {
	Transfer(ctx context.Context, c *nft.Capability, req transfer.Request) (transfer.Result, error)
	Mint(ctx context.Context, c *nft.Capability, toHex, uri string) (transfer.Result, error)
	SendNative(ctx context.Context, c *nft.Capability, toHex, amountEther string) (transfer.Result, error)
	Attempt(id string) (transfer.Result, bool)
}

type Gallery interface {
	CollectionAssets(ctx context.Context, contract common.Address) ([]gallery.Asset, error)
}

type Balances interface {
	FetchToken(ctx context.Context, addr common.Address) (tokens.Token, error)
	Balance(ctx context.Context, token, owner common.Address) (tokens.Balance, error)
	Mint(ctx context.Context, opts *bind.TransactOpts, token, to common.Address, amount *big.Int) (*types.Receipt, error)
}

type Registry interface {
	Lookup(ctx context.Context, account common.Address) (registry.Person, error)
	Register(ctx context.Context, opts *bind.TransactOpts, name string, age *big.Int) (*types.Receipt, error)
}

type Networks interface {
	Active() (chains.ResolvedChain, *chains.Clients, error)
}

// Deps are the services behind the API. Optional ones may be left nil and
// their routes answer with an error.
type Deps struct {
	Sessions  Sessions
	Accounts  Accounts
	Assets    AssetViews
	Transfers Transfers
	Gallery   Gallery
	Balances  Balances
	Registry  Registry
	Networks  Networks
}

type Handler struct {
	sessions  Sessions
	accounts  Accounts
	assets    AssetViews
	transfers Transfers
	gallery   Gallery
	balances  Balances
	registry  Registry
	networks  Networks
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		sessions:  d.Sessions,
		accounts:  d.Accounts,
		assets:    d.Assets,
		transfers: d.Transfers,
		gallery:   d.Gallery,
		balances:  d.Balances,
		registry:  d.Registry,
		networks:  d.Networks,
	}
}

// -------- DTOs --------

type sessionRes struct {
	Connected bool     `json:"connected"`
	Account   string   `json:"account,omitempty"`
	Contract  string   `json:"contract,omitempty"`
	Accounts  []string `json:"accounts"`
}

type selectAccountReq struct {
	Account string `json:"account" binding:"required"`
}

type mintReq struct {
	To       string `json:"to"`
	TokenURI string `json:"tokenUri"`
}

type sendNativeReq struct {
	To     string `json:"to"     binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

type tokenMintReq struct {
	Token  string `json:"token"  binding:"required"`
	To     string `json:"to"`
	Amount string `json:"amount" binding:"required"`
}

type registerReq struct {
	Name string `json:"name" binding:"required"`
	Age  string `json:"age"  binding:"required"`
}

type networkRes struct {
	Name       string `json:"name"`
	ChainID    uint64 `json:"chainId"`
	ChainIDHex string `json:"chainIdHex"`
	Explorer   string `json:"explorer,omitempty"`
	RPCName    string `json:"rpcName,omitempty"`

	LatestBlock uint64 `json:"latestBlock,omitempty"`
	HeaderAgeMs int64  `json:"headerAgeMs,omitempty"`
}

// latestHeaderSource is implemented by chains.HeaderCachingClient.
type latestHeaderSource interface {
	LatestHeader() (*types.Header, time.Duration)
}

// GET /api/health
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /api/network
func (h *Handler) Network(c *gin.Context) {
	if h.networks == nil {
		writeErrorText(c, http.StatusServiceUnavailable, ErrTextNetworkNotConfigured)
		return
	}
	chain, clients, err := h.networks.Active()
	if err != nil {
		writeError(c, err)
		return
	}
	res := networkRes{
		Name:       chain.NetworkName,
		ChainID:    chain.ChainID,
		ChainIDHex: chain.ChainIDHex,
		Explorer:   chain.Explorer,
		RPCName:    chain.RPCName,
	}
	if clients != nil {
		if src, ok := clients.HTTP.(latestHeaderSource); ok {
			if header, age := src.LatestHeader(); header != nil && header.Number != nil {
				res.LatestBlock = header.Number.Uint64()
				res.HeaderAgeMs = age.Milliseconds()
			}
		}
	}
	c.JSON(http.StatusOK, res)
}
