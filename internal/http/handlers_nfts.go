package http

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quantumauth-io/quantum-nft-client/internal/nft"
	"github.com/quantumauth-io/quantum-nft-client/internal/transfer"
)

// GET /api/nfts
func (h *Handler) NFTs(c *gin.Context) {
	c.JSON(http.StatusOK, h.assets.Views().Current())
}

// POST /api/nfts/refresh
func (h *Handler) RefreshNFTs(c *gin.Context) {
	capability, err := h.sessions.Capability()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.assets.Refresh(c.Request.Context(), capability))
}

// GET /api/nfts/events streams every published view as server-sent events,
// starting with the current one. A client that stops reading is cut off once
// a write exceeds streamWriteWait.
func (h *Handler) StreamNFTs(c *gin.Context) {
	sub := h.assets.Views().Subscribe(streamBufferSize)
	defer sub.Unsubscribe()

	rc := http.NewResponseController(c.Writer)
	send := func(v nft.AssetListView) bool {
		_ = rc.SetWriteDeadline(time.Now().Add(streamWriteWait))
		c.SSEvent(EventView, v)
		return rc.Flush() == nil
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	if !send(h.assets.Views().Current()) {
		return
	}

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case v := <-sub.Views():
			return send(v)
		case <-sub.Err():
			return false
		case <-ctx.Done():
			return false
		}
	})
}

// POST /api/nfts/transfer
func (h *Handler) Transfer(c *gin.Context) {
	capability, err := h.sessions.Capability()
	if err != nil {
		writeError(c, err)
		return
	}

	var req transfer.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorText(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.transfers.Transfer(c.Request.Context(), capability, req)
	writeResult(c, res, err)
}

// POST /api/nfts/mint
func (h *Handler) Mint(c *gin.Context) {
	capability, err := h.sessions.Capability()
	if err != nil {
		writeError(c, err)
		return
	}

	var req mintReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorText(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.To == "" {
		req.To = capability.Account.Hex()
	}

	res, err := h.transfers.Mint(c.Request.Context(), capability, req.To, req.TokenURI)
	writeResult(c, res, err)
}

// GET /api/transfers/:id
func (h *Handler) TransferStatus(c *gin.Context) {
	res, ok := h.transfers.Attempt(c.Param("id"))
	if !ok {
		writeErrorText(c, http.StatusNotFound, ErrTextTransferNotFound)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/native/send
func (h *Handler) SendNative(c *gin.Context) {
	capability, err := h.sessions.Capability()
	if err != nil {
		writeError(c, err)
		return
	}

	var req sendNativeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorText(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.transfers.SendNative(c.Request.Context(), capability, req.To, req.Amount)
	writeResult(c, res, err)
}
