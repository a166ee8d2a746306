package registry

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/quantumauth-io/quantum-nft-client/internal/contracts/bindings/go/registry"
)

type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Person is a registry entry for one account.
type Person struct {
	Account    string `json:"account"`
	Registered bool   `json:"registered"`
	Name       string `json:"name,omitempty"`
	Age        string `json:"age,omitempty"`
}

type Service struct {
	backend  Backend
	contract common.Address
}

func NewService(backend Backend, contract common.Address) (*Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("registry: backend is nil")
	}
	if contract == (common.Address{}) {
		return nil, fmt.Errorf("registry: contract address not configured")
	}
	return &Service{backend: backend, contract: contract}, nil
}

func (s *Service) Contract() common.Address { return s.contract }

func (s *Service) bound() (*registry.MyContract, error) {
	c, err := registry.NewMyContract(s.contract, s.backend)
	if err != nil {
		return nil, fmt.Errorf("registry: bind: %w", err)
	}
	return c, nil
}

func (s *Service) Lookup(ctx context.Context, account common.Address) (Person, error) {
	c, err := s.bound()
	if err != nil {
		return Person{}, err
	}
	call := &bind.CallOpts{Context: ctx, From: account}

	registered, err := c.Registered(call, account)
	if err != nil {
		return Person{}, fmt.Errorf("registry: registered: %w", err)
	}
	p := Person{Account: account.Hex(), Registered: registered}
	if !registered {
		return p, nil
	}

	entry, err := c.People(call, account)
	if err != nil {
		return Person{}, fmt.Errorf("registry: people: %w", err)
	}
	p.Name = entry.Name
	if entry.Age != nil {
		p.Age = entry.Age.String()
	}
	return p, nil
}

// Register records name and age for the signing account and waits for one
// confirmation.
func (s *Service) Register(ctx context.Context, opts *bind.TransactOpts, name string, age *big.Int) (*types.Receipt, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("registry: name is required")
	}
	if age == nil || age.Sign() < 0 {
		return nil, fmt.Errorf("registry: age must be a non-negative integer")
	}

	c, err := s.bound()
	if err != nil {
		return nil, err
	}
	tx, err := c.Register(opts, name, age)
	if err != nil {
		return nil, err
	}
	receipt, err := bind.WaitMined(ctx, s.backend, tx)
	if err != nil {
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, fmt.Errorf("registry: register reverted in tx %s", tx.Hash().Hex())
	}
	return receipt, nil
}
