package http

import "time"

// Common JSON keys
const (
	JSONKeyOK       = "ok"
	JSONKeyError    = "error"
	JSONKeyAssets   = "assets"
	JSONKeyAccount  = "account"
	JSONKeyResult   = "result"
	JSONKeyTxHash   = "txHash"
	JSONKeyBlockNum = "blockNumber"
)

// Query parameters
const (
	QueryContractAddress = "contractAddress"
	QueryToken           = "token"
)

// Error messages
const (
	ErrTextContractAddressRequired = "contractAddress is required"
	ErrTextContractAddressInvalid  = "contractAddress is not a valid address"
	ErrTextGalleryNotConfigured    = "indexer API key is not configured"
	ErrTextWalletNotConfigured     = "no wallet provider configured"
	ErrTextRegistryNotConfigured   = "registry contract not configured"
	ErrTextTokensNotConfigured     = "token service not configured"
	ErrTextNetworkNotConfigured    = "chain service not configured"
	ErrTextTransferNotFound        = "transfer not found"
	ErrTextInvalidAddress          = "invalid address"
)

// SSE event names
const (
	EventView = "view"
)

const (
	streamBufferSize = 16
	streamWriteWait  = 10 * time.Second
)
