// Package contracttest fakes a chain backend for generated contract bindings.
package contracttest

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Handler answers one contract method. For view methods the returned values
// are ABI encoded as outputs; for transactions they are ignored.
type Handler func(from common.Address, args []interface{}) ([]interface{}, error)

// Backend dispatches calls and transactions to per-method handlers.
type Backend struct {
	bind.ContractBackend

	abi      abi.ABI
	mu       sync.Mutex
	handlers map[string]Handler
	balances map[common.Address]*big.Int
	receipts map[common.Hash]*types.Receipt
	Sent     []*types.Transaction
}

func NewBackend(abiJSON string) (*Backend, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, err
	}
	return &Backend{
		abi:      parsed,
		handlers: map[string]Handler{},
		balances: map[common.Address]*big.Int{},
		receipts: map[common.Hash]*types.Receipt{},
	}, nil
}

func (b *Backend) Handle(method string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[method] = h
}

func (b *Backend) SetBalance(account common.Address, wei *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] = wei
}

func (b *Backend) dispatch(from common.Address, data []byte) (*abi.Method, []interface{}, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("contracttest: short calldata")
	}
	method, err := b.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, err
	}

	b.mu.Lock()
	h := b.handlers[method.Name]
	b.mu.Unlock()
	if h == nil {
		return nil, nil, fmt.Errorf("contracttest: no handler for %s", method.Name)
	}

	out, err := h(from, args)
	return method, out, err
}

func (b *Backend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	method, out, err := b.dispatch(call.From, call.Data)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

// ChainID reports a fixed development chain id.
func (b *Backend) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(1337), nil
}

func (b *Backend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (b *Backend) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

func (b *Backend) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bal, ok := b.balances[account]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (b *Backend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return err
	}

	status := types.ReceiptStatusSuccessful
	if _, _, err := b.dispatch(from, tx.Data()); err != nil {
		status = types.ReceiptStatusFailed
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.Sent = append(b.Sent, tx)
	b.receipts[tx.Hash()] = &types.Receipt{Status: status, TxHash: tx.Hash(), BlockNumber: big.NewInt(int64(len(b.Sent)))}
	return nil
}

func (b *Backend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

// Preset fills nonce, gas limit and gas price so binding transactions skip
// estimation calls.
func Preset(opts *bind.TransactOpts) *bind.TransactOpts {
	opts.Nonce = big.NewInt(0)
	opts.GasLimit = 100000
	opts.GasPrice = big.NewInt(1)
	return opts
}
