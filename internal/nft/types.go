package nft

import (
	"encoding/json"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TokenRef identifies a single token of a collection.
type TokenRef struct {
	Contract common.Address
	ID       *big.Int
}

// IDString renders the token id in base 10.
func (t TokenRef) IDString() string {
	if t.ID == nil {
		return ""
	}
	return t.ID.String()
}

type tokenRefJSON struct {
	Contract string `json:"contract"`
	ID       string `json:"id"`
}

// MarshalJSON keeps the id as a decimal string so large ids survive JSON number handling.
func (t TokenRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(tokenRefJSON{Contract: t.Contract.Hex(), ID: t.IDString()})
}

// Attribute is an ERC-721 metadata trait.
type Attribute struct {
	TraitType string `json:"trait_type,omitempty"`
	Value     any    `json:"value,omitempty"`
}

// Document is an ERC-721 metadata document. Every field is optional.
type Document struct {
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	Image       string      `json:"image,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`
}

type ResolutionStatus string

const (
	ResolutionOK             ResolutionStatus = "ok"
	ResolutionMetadataFailed ResolutionStatus = "metadataFailed"
	ResolutionFetchFailed    ResolutionStatus = "fetchFailed"
)

// OwnedAsset is a fully resolved token owned by the current account.
type OwnedAsset struct {
	Token    TokenRef         `json:"token"`
	TokenURI string           `json:"tokenUri"`
	Metadata Document         `json:"metadata"`
	Status   ResolutionStatus `json:"status"`
}

type ViewStatus string

const (
	ViewLoading ViewStatus = "loading"
	ViewError   ViewStatus = "error"
	ViewReady   ViewStatus = "ready"
)

// AssetListView is one published state of the owned-asset list.
// A loading or error view never carries assets.
type AssetListView struct {
	Status    ViewStatus     `json:"status"`
	Error     string         `json:"error,omitempty"`
	Assets    []OwnedAsset   `json:"assets"`
	Account   common.Address `json:"account"`
	Contract  common.Address `json:"contract"`
	CycleID   string         `json:"cycleId,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func LoadingView(cycleID string, contract, account common.Address) AssetListView {
	return AssetListView{
		Status:    ViewLoading,
		Assets:    []OwnedAsset{},
		Account:   account,
		Contract:  contract,
		CycleID:   cycleID,
		UpdatedAt: time.Now().UTC(),
	}
}

func ErrorView(cycleID string, contract, account common.Address, msg string) AssetListView {
	return AssetListView{
		Status:    ViewError,
		Error:     msg,
		Assets:    []OwnedAsset{},
		Account:   account,
		Contract:  contract,
		CycleID:   cycleID,
		UpdatedAt: time.Now().UTC(),
	}
}

func ReadyView(cycleID string, contract, account common.Address, assets []OwnedAsset) AssetListView {
	if assets == nil {
		assets = []OwnedAsset{}
	}
	return AssetListView{
		Status:    ViewReady,
		Assets:    assets,
		Account:   account,
		Contract:  contract,
		CycleID:   cycleID,
		UpdatedAt: time.Now().UTC(),
	}
}

// SortTokenRefs orders refs by token id ascending.
func SortTokenRefs(refs []TokenRef) {
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].ID.Cmp(refs[j].ID) < 0
	})
}

// SortAssets orders assets by token id ascending.
func SortAssets(assets []OwnedAsset) {
	sort.Slice(assets, func(i, j int) bool {
		return assets[i].Token.ID.Cmp(assets[j].Token.ID) < 0
	})
}
