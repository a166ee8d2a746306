package http

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/quantumauth-io/quantum-nft-client/internal/tokens"
)

// GET /api/balances?token=<addr>
func (h *Handler) Balance(c *gin.Context) {
	if h.balances == nil {
		writeErrorText(c, http.StatusServiceUnavailable, ErrTextTokensNotConfigured)
		return
	}
	capability, err := h.sessions.Capability()
	if err != nil {
		writeError(c, err)
		return
	}

	token := common.HexToAddress(tokens.NativeAddr)
	if raw := strings.TrimSpace(c.Query(QueryToken)); raw != "" {
		parsed, ok := parseAddress(raw)
		if !ok {
			writeErrorText(c, http.StatusBadRequest, ErrTextInvalidAddress)
			return
		}
		token = parsed
	}

	bal, err := h.balances.Balance(c.Request.Context(), token, capability.Account)
	if err != nil {
		writeErrorText(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, bal)
}

// POST /api/tokens/mint
func (h *Handler) MintTokens(c *gin.Context) {
	if h.balances == nil {
		writeErrorText(c, http.StatusServiceUnavailable, ErrTextTokensNotConfigured)
		return
	}
	capability, err := h.sessions.Capability()
	if err != nil {
		writeError(c, err)
		return
	}

	var req tokenMintReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorText(c, http.StatusBadRequest, err.Error())
		return
	}
	token, ok := parseAddress(req.Token)
	if !ok || tokens.IsNative(token) {
		writeErrorText(c, http.StatusBadRequest, ErrTextInvalidAddress)
		return
	}
	to := capability.Account
	if req.To != "" {
		if to, ok = parseAddress(req.To); !ok {
			writeErrorText(c, http.StatusBadRequest, ErrTextInvalidAddress)
			return
		}
	}

	ctx := c.Request.Context()
	meta, err := h.balances.FetchToken(ctx, token)
	if err != nil {
		writeErrorText(c, http.StatusBadGateway, err.Error())
		return
	}
	amount, err := tokens.ParseUnits(req.Amount, meta.Decimals)
	if err != nil || amount.Sign() <= 0 {
		writeErrorText(c, http.StatusBadRequest, "invalid amount")
		return
	}

	opts, err := capability.Transactor(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	receipt, err := h.balances.Mint(ctx, opts, token, to, amount)
	if err != nil {
		writeErrorText(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, receiptBody(receipt.TxHash, receipt.BlockNumber))
}

// GET /api/registry/me
func (h *Handler) RegistryMe(c *gin.Context) {
	if h.registry == nil {
		writeErrorText(c, http.StatusNotFound, ErrTextRegistryNotConfigured)
		return
	}
	capability, err := h.sessions.Capability()
	if err != nil {
		writeError(c, err)
		return
	}

	person, err := h.registry.Lookup(c.Request.Context(), capability.Account)
	if err != nil {
		writeErrorText(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, person)
}

// POST /api/registry/register
func (h *Handler) Register(c *gin.Context) {
	if h.registry == nil {
		writeErrorText(c, http.StatusNotFound, ErrTextRegistryNotConfigured)
		return
	}
	capability, err := h.sessions.Capability()
	if err != nil {
		writeError(c, err)
		return
	}

	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorText(c, http.StatusBadRequest, err.Error())
		return
	}
	age, ok := new(big.Int).SetString(strings.TrimSpace(req.Age), 10)
	if !ok || age.Sign() < 0 {
		writeErrorText(c, http.StatusBadRequest, "age must be a non-negative integer")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeErrorText(c, http.StatusBadRequest, "name is required")
		return
	}

	ctx := c.Request.Context()
	opts, err := capability.Transactor(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	receipt, err := h.registry.Register(ctx, opts, req.Name, age)
	if err != nil {
		writeErrorText(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, receiptBody(receipt.TxHash, receipt.BlockNumber))
}
