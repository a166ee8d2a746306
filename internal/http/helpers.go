package http

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/quantumauth-io/quantum-nft-client/internal/gallery"
	"github.com/quantumauth-io/quantum-nft-client/internal/session"
	"github.com/quantumauth-io/quantum-nft-client/internal/transfer"
	"github.com/quantumauth-io/quantum-nft-client/internal/wallet"
)

func parseAddress(raw string) (common.Address, bool) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func normalizeOrigin(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	u, err := url.Parse(in)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s://%s", strings.ToLower(u.Scheme), strings.ToLower(u.Host))
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, o := range in {
		o = normalizeOrigin(o)
		if o == "" {
			continue
		}
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	return out
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		validation *transfer.ValidationError
		call       *transfer.ContractCallError
		rejected   *wallet.UserRejectedError
		provider   *wallet.ProviderError
		upstream   *gallery.UpstreamError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrNoProvider):
		return http.StatusServiceUnavailable
	case errors.As(err, &rejected):
		return http.StatusForbidden
	case errors.As(err, &provider):
		switch provider.Code {
		case wallet.CodeUserRejected, wallet.CodeUnauthorized:
			return http.StatusForbidden
		case wallet.CodeDisconnected:
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case errors.As(err, &call):
		return http.StatusBadGateway
	case errors.As(err, &upstream), errors.Is(err, gallery.ErrAPIKeyMissing):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{JSONKeyError: wallet.UserMessage(err)})
}

func writeErrorText(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{JSONKeyError: msg})
}

// writeResult answers with the recorded attempt, adding the error on failure.
func writeResult(c *gin.Context, res transfer.Result, err error) {
	if err != nil {
		c.JSON(statusFor(err), gin.H{JSONKeyError: err.Error(), JSONKeyResult: res})
		return
	}
	c.JSON(http.StatusOK, gin.H{JSONKeyResult: res})
}

func receiptBody(txHash common.Hash, block *big.Int) gin.H {
	body := gin.H{JSONKeyTxHash: txHash.Hex()}
	if block != nil {
		body[JSONKeyBlockNum] = block.Uint64()
	}
	return body
}
