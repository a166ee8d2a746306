package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// GET /assets?contractAddress=<addr>
func (h *Handler) CollectionAssets(c *gin.Context) {
	raw := strings.TrimSpace(c.Query(QueryContractAddress))
	if raw == "" {
		writeErrorText(c, http.StatusBadRequest, ErrTextContractAddressRequired)
		return
	}
	contract, ok := parseAddress(raw)
	if !ok {
		writeErrorText(c, http.StatusBadRequest, ErrTextContractAddressInvalid)
		return
	}
	if h.gallery == nil {
		writeErrorText(c, http.StatusInternalServerError, ErrTextGalleryNotConfigured)
		return
	}

	list, err := h.gallery.CollectionAssets(c.Request.Context(), contract)
	if err != nil {
		log.Error("collection assets failed", "contract", contract.Hex(), "error", err)
		writeErrorText(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{JSONKeyAssets: list})
}
