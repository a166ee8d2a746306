package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// POST /api/session/connect
func (h *Handler) Connect(c *gin.Context) {
	account, err := h.sessions.Connect(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{JSONKeyAccount: account.Hex()})
}

// GET /api/session
func (h *Handler) Session(c *gin.Context) {
	account, capability := h.sessions.Current()

	res := sessionRes{Accounts: []string{}}
	if h.accounts != nil {
		for _, a := range h.accounts.Known() {
			res.Accounts = append(res.Accounts, a.Hex())
		}
	}
	if capability != nil {
		res.Connected = true
		res.Account = account.Hex()
		res.Contract = capability.Contract.Hex()
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/wallet/select
func (h *Handler) SelectAccount(c *gin.Context) {
	if h.accounts == nil {
		writeErrorText(c, http.StatusServiceUnavailable, ErrTextWalletNotConfigured)
		return
	}

	var req selectAccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorText(c, http.StatusBadRequest, err.Error())
		return
	}
	account, ok := parseAddress(req.Account)
	if !ok {
		writeErrorText(c, http.StatusBadRequest, ErrTextInvalidAddress)
		return
	}

	if err := h.accounts.SelectAccount(account); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{JSONKeyAccount: account.Hex()})
}

// POST /api/wallet/disconnect
func (h *Handler) Disconnect(c *gin.Context) {
	if h.accounts == nil {
		writeErrorText(c, http.StatusServiceUnavailable, ErrTextWalletNotConfigured)
		return
	}
	h.accounts.Disconnect()
	c.JSON(http.StatusOK, gin.H{JSONKeyOK: true})
}
