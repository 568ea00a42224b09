// Package memory provides a BlockchainContext that keeps all state in
// process memory. It is the default backend for simnet sessions.
package memory

import (
	"fmt"
	"sync"

	"github.com/govm-net/simnet/context"
	"github.com/govm-net/simnet/core"
	"github.com/govm-net/simnet/types"
)

type varKey struct {
	contract core.ContractID
	name     string
}

// blockchainContext implements types.BlockchainContext.
type blockchainContext struct {
	mu sync.Mutex

	// Block information
	blockHeight uint64
	blockTime   int64
	blockHash   core.Hash

	balances     map[core.Address]uint64
	dataVars     map[varKey][]byte
	transactions map[core.Hash]*types.Transaction
	events       map[core.Hash][]types.EventRecord
}

func init() {
	if err := context.Register(context.MemoryContextType, NewBlockchainContext); err != nil {
		panic(err)
	}
}

// NewBlockchainContext creates an empty in-memory backend. It takes no
// parameters.
func NewBlockchainContext(params map[string]any) (types.BlockchainContext, error) {
	return &blockchainContext{
		balances:     make(map[core.Address]uint64),
		dataVars:     make(map[varKey][]byte),
		transactions: make(map[core.Hash]*types.Transaction),
		events:       make(map[core.Hash][]types.EventRecord),
	}, nil
}

func (ctx *blockchainContext) SetBlockInfo(height uint64, time int64, hash core.Hash) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if height < ctx.blockHeight {
		return fmt.Errorf("%w: block height %d below current %d", core.ErrInvalidArgument, height, ctx.blockHeight)
	}
	ctx.blockHeight = height
	ctx.blockTime = time
	ctx.blockHash = hash
	return nil
}

func (ctx *blockchainContext) BlockHeight() uint64 {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.blockHeight
}

func (ctx *blockchainContext) BlockTime() int64 {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.blockTime
}

func (ctx *blockchainContext) BlockHash() core.Hash {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.blockHash
}

func (ctx *blockchainContext) Balance(addr core.Address) uint64 {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.balances[addr]
}

func (ctx *blockchainContext) SetBalance(addr core.Address, amount uint64) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.balances[addr] = amount
	return nil
}

func (ctx *blockchainContext) Transfer(from, to core.Address, amount uint64) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if ctx.balances[from] < amount {
		return core.ErrInsufficientFunds
	}
	ctx.balances[from] -= amount
	ctx.balances[to] += amount
	return nil
}

func (ctx *blockchainContext) GetDataVar(contract core.ContractID, name string) ([]byte, error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	value, ok := ctx.dataVars[varKey{contract, name}]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", core.ErrVariableNotFound, name, contract)
	}
	return append([]byte(nil), value...), nil
}

func (ctx *blockchainContext) SetDataVar(contract core.ContractID, name string, value []byte) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.dataVars[varKey{contract, name}] = append([]byte(nil), value...)
	return nil
}

func (ctx *blockchainContext) RecordTransaction(tx *types.Transaction) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if _, exists := ctx.transactions[tx.Hash]; exists {
		return fmt.Errorf("%w: duplicate transaction %s", core.ErrInvalidArgument, tx.Hash)
	}
	cp := *tx
	ctx.transactions[tx.Hash] = &cp
	return nil
}

func (ctx *blockchainContext) GetTransaction(hash core.Hash) (*types.Transaction, error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	tx, ok := ctx.transactions[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrTxNotFound, hash)
	}
	cp := *tx
	return &cp, nil
}

func (ctx *blockchainContext) Log(txHash core.Hash, events []types.EventRecord) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.events[txHash] = append(ctx.events[txHash], events...)
	return nil
}

func (ctx *blockchainContext) Events(txHash core.Hash) ([]types.EventRecord, error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return append([]types.EventRecord(nil), ctx.events[txHash]...), nil
}

func (ctx *blockchainContext) Close() error {
	return nil
}
