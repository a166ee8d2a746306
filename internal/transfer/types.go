package transfer

import (
	"fmt"
	"time"
)

type State string

const (
	StateIdle                State = "idle"
	StateValidating          State = "validating"
	StateSubmitting          State = "submitting"
	StatePendingConfirmation State = "pending-confirmation"
	StateConfirmed           State = "confirmed"
	StateFailed              State = "failed"
)

// Terminal reports whether no further transitions happen from s.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

type Kind string

const (
	KindNFT    Kind = "nft"
	KindNative Kind = "native"
	KindMint   Kind = "mint"
)

// Request asks to move one token. An empty From means the session account.
type Request struct {
	TokenID string `json:"tokenId"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// Result is the recorded state of one attempt.
type Result struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	State       State     `json:"state"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	TokenID     string    `json:"tokenId,omitempty"`
	AmountWei   string    `json:"amountWei,omitempty"`
	TokenURI    string    `json:"tokenUri,omitempty"`
	TxHash      string    `json:"txHash,omitempty"`
	BlockNumber uint64    `json:"blockNumber,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ValidationError is a rejected request. No call was issued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ContractCallError carries a submission or confirmation failure. Its
// message is the underlying error's, unchanged.
type ContractCallError struct {
	TxHash string
	Err    error
}

func (e *ContractCallError) Error() string { return e.Err.Error() }

func (e *ContractCallError) Unwrap() error { return e.Err }
