package wallet

import (
	"errors"
	"fmt"
)

// Provider error codes, as defined by EIP-1193.
const (
	CodeUserRejected = 4001
	CodeUnauthorized = 4100
	CodeDisconnected = 4900
)

var ErrNoProvider = errors.New("wallet: no provider available")

// ProviderError is an error reported by a wallet provider with a numeric code.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("wallet provider error %d: %s", e.Code, e.Message)
}

// UserRejectedError means the account holder declined a provider prompt.
type UserRejectedError struct {
	Message string
}

func (e *UserRejectedError) Error() string {
	if e.Message == "" {
		return "user rejected the request"
	}
	return "user rejected the request: " + e.Message
}

// Classify maps coded provider errors onto the typed errors callers match on.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Code == CodeUserRejected {
		return &UserRejectedError{Message: pe.Message}
	}
	return err
}

// UserMessage renders err for display to the account holder.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		rejected *UserRejectedError
		pe       *ProviderError
	)
	switch {
	case errors.Is(err, ErrNoProvider):
		return "No wallet provider found. Configure a keystore or private key and try again."
	case errors.As(err, &rejected):
		return "Connection request was rejected."
	case errors.As(err, &pe):
		switch pe.Code {
		case CodeUserRejected:
			return "Connection request was rejected."
		case CodeUnauthorized:
			return "The requested account is not authorized. Connect the wallet first."
		case CodeDisconnected:
			return "The wallet is disconnected."
		}
	}
	return err.Error()
}
