package tokens

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/quantumauth-io/quantum-nft-client/internal/contracts/bindings/go/erc20"
)

// NativeAddr is the sentinel token address for the chain's native currency.
const NativeAddr = "0x0000000000000000000000000000000000000000"

type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	Name     string `json:"name"`
}

type Balance struct {
	Token     Token  `json:"token"`
	Owner     string `json:"owner"`
	Raw       string `json:"raw"`
	Formatted string `json:"formatted"`
}

type Service struct {
	backend Backend
}

func NewService(backend Backend) (*Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("tokens: backend is nil")
	}
	return &Service{backend: backend}, nil
}

func IsNative(token common.Address) bool {
	return token == common.HexToAddress(NativeAddr)
}

// BalanceOf returns the raw balance of owner. The native sentinel reads the
// account balance in wei, any other address is treated as an ERC-20.
func (s *Service) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	if owner == (common.Address{}) {
		return big.NewInt(0), nil
	}

	if IsNative(token) {
		wei, err := s.backend.BalanceAt(ctx, owner, nil)
		if err != nil {
			return nil, fmt.Errorf("tokens: native balance: %w", err)
		}
		return wei, nil
	}

	erc, err := erc20.NewMyToken(token, s.backend)
	if err != nil {
		return nil, fmt.Errorf("tokens: bind erc20: %w", err)
	}
	bal, err := erc.BalanceOf(&bind.CallOpts{Context: ctx}, owner)
	if err != nil {
		return nil, fmt.Errorf("tokens: erc20 balanceOf: %w", err)
	}
	return bal, nil
}

func (s *Service) FetchToken(ctx context.Context, addr common.Address) (Token, error) {
	if IsNative(addr) {
		return Token{Address: addr.Hex(), Symbol: "ETH", Decimals: 18, Name: "Ether"}, nil
	}

	erc, err := erc20.NewMyToken(addr, s.backend)
	if err != nil {
		return Token{}, fmt.Errorf("tokens: bind erc20: %w", err)
	}
	call := &bind.CallOpts{Context: ctx}

	sym, err := erc.Symbol(call)
	if err != nil {
		return Token{}, fmt.Errorf("tokens: symbol: %w", err)
	}
	dec, err := erc.Decimals(call)
	if err != nil {
		return Token{}, fmt.Errorf("tokens: decimals: %w", err)
	}
	name := ""
	if n, err := erc.Name(call); err == nil {
		name = n
	}

	return Token{Address: addr.Hex(), Symbol: sym, Decimals: dec, Name: name}, nil
}

// Balance combines FetchToken and BalanceOf into a display-ready value.
func (s *Service) Balance(ctx context.Context, token, owner common.Address) (Balance, error) {
	meta, err := s.FetchToken(ctx, token)
	if err != nil {
		return Balance{}, err
	}
	raw, err := s.BalanceOf(ctx, token, owner)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		Token:     meta,
		Owner:     owner.Hex(),
		Raw:       raw.String(),
		Formatted: FormatUnits(raw, meta.Decimals),
	}, nil
}

// Mint calls the owner-only mint(to, amount) and waits for one confirmation.
func (s *Service) Mint(ctx context.Context, opts *bind.TransactOpts, token, to common.Address, amount *big.Int) (*types.Receipt, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("tokens: mint amount must be positive")
	}

	erc, err := erc20.NewMyToken(token, s.backend)
	if err != nil {
		return nil, fmt.Errorf("tokens: bind erc20: %w", err)
	}
	tx, err := erc.Mint(opts, to, amount)
	if err != nil {
		return nil, fmt.Errorf("tokens: mint: %w", err)
	}
	receipt, err := bind.WaitMined(ctx, s.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("tokens: wait mint: %w", err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, fmt.Errorf("tokens: mint reverted in tx %s", tx.Hash().Hex())
	}
	return receipt, nil
}

// FormatUnits renders raw token units as a decimal string.
func FormatUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

// ParseUnits converts a decimal amount into raw token units.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("tokens: invalid amount %q", amount)
	}
	raw := d.Shift(int32(decimals))
	if !raw.Equal(raw.Truncate(0)) {
		return nil, fmt.Errorf("tokens: amount %q has more than %d decimals", amount, decimals)
	}
	return raw.BigInt(), nil
}
