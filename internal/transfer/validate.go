package transfer

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/quantumauth-io/quantum-nft-client/internal/nft"
)

func validateCapability(capability *nft.Capability) error {
	if err := capability.Validate(); err != nil {
		return &ValidationError{Field: "capability", Reason: "no connected account or contract"}
	}
	return nil
}

// validateTransfer checks to, token id, capability and from, in that order.
func validateTransfer(capability *nft.Capability, req Request) (common.Address, common.Address, *big.Int, error) {
	var zero common.Address

	to, err := parseAddress("to", req.To)
	if err != nil {
		return zero, zero, nil, err
	}

	tokenID, err := ParseTokenID(req.TokenID)
	if err != nil {
		return zero, zero, nil, err
	}

	if err := validateCapability(capability); err != nil {
		return zero, zero, nil, err
	}

	from := capability.Account
	if strings.TrimSpace(req.From) != "" {
		parsed, err := parseAddress("from", req.From)
		if err != nil {
			return zero, zero, nil, err
		}
		if parsed != capability.Account {
			return zero, zero, nil, &ValidationError{Field: "from", Reason: "must be the connected account"}
		}
		from = parsed
	}

	return from, to, tokenID, nil
}

func parseAddress(field, raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return common.Address{}, &ValidationError{Field: field, Reason: "is required"}
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, &ValidationError{Field: field, Reason: "not a valid address"}
	}
	addr := common.HexToAddress(raw)
	if addr == (common.Address{}) {
		return common.Address{}, &ValidationError{Field: field, Reason: "zero address"}
	}
	return addr, nil
}

// ParseTokenID accepts a non-negative integer in decimal or 0x-prefixed hex
// that fits in a uint256.
func ParseTokenID(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &ValidationError{Field: "tokenId", Reason: "is required"}
	}

	digits, base := raw, 10
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		digits, base = raw[2:], 16
	}
	if digits == "" || strings.HasPrefix(digits, "+") || strings.HasPrefix(digits, "-") {
		return nil, &ValidationError{Field: "tokenId", Reason: "must be a non-negative integer"}
	}

	id, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, &ValidationError{Field: "tokenId", Reason: "must be a non-negative integer"}
	}
	if id.BitLen() > 256 {
		return nil, &ValidationError{Field: "tokenId", Reason: "exceeds uint256"}
	}
	return id, nil
}
