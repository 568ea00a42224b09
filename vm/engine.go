// Package vm executes contract calls against a blockchain context, mining
// one block per transaction.
package vm

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/govm-net/simnet/abi"
	"github.com/govm-net/simnet/cl"
	"github.com/govm-net/simnet/context"
	_ "github.com/govm-net/simnet/context/db"
	_ "github.com/govm-net/simnet/context/memory"
	"github.com/govm-net/simnet/core"
	"github.com/govm-net/simnet/repository"
	"github.com/govm-net/simnet/security"
	"github.com/govm-net/simnet/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// BlockInterval is the time between two simulated blocks, in seconds.
const BlockInterval = 600

// Engine is responsible for contract deployment and execution
type Engine struct {
	mu          sync.Mutex
	config      *Config
	ctx         types.BlockchainContext // Blockchain context
	codeManager *repository.Manager
	contracts   map[core.ContractID]types.Contract
	log         *zap.Logger
	metrics     *metrics
	tmpDir      string
	genesisTime int64
	lastHash    core.Hash
	nonce       uint64
}

// Config represents engine configuration
type Config struct {
	ContextType    string         // Blockchain context type
	ContextParams  map[string]any // Blockchain context parameters
	CodeManagerDir string         // Contract records; a temporary directory when empty
	Limits         security.Limits
	GenesisTime    int64 // Unix time of block 0; now when zero
	Logger         *zap.Logger
	Registerer     prometheus.Registerer // Metrics are not exported when nil
}

// NewEngine creates a new contract engine
func NewEngine(config *Config) (*Engine, error) {
	if config == nil {
		return nil, fmt.Errorf("invalid config: config is nil")
	}
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m, err := newMetrics(config.Registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	var tmpDir string
	dir := config.CodeManagerDir
	if dir == "" {
		tmpDir, err = os.MkdirTemp("", "simnet-contracts-")
		if err != nil {
			return nil, fmt.Errorf("failed to create contracts directory: %w", err)
		}
		dir = tmpDir
	}
	codeManager, err := repository.NewManager(dir)
	if err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to create code manager: %w", err)
	}

	ctx, err := context.Get(context.ContextType(config.ContextType), config.ContextParams)
	if err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to get blockchain context: %w", err)
	}

	// records left over from a chain that no longer exists
	if ctx.BlockHeight() == 0 {
		if err := codeManager.Clear(); err != nil {
			ctx.Close()
			os.RemoveAll(tmpDir)
			return nil, fmt.Errorf("failed to clear contract records: %w", err)
		}
	}

	genesis := config.GenesisTime
	if genesis == 0 {
		genesis = time.Now().Unix()
	}
	return &Engine{
		config:      config,
		ctx:         ctx,
		codeManager: codeManager,
		contracts:   make(map[core.ContractID]types.Contract),
		log:         log,
		metrics:     m,
		tmpDir:      tmpDir,
		genesisTime: genesis,
		lastHash:    ctx.BlockHash(),
		nonce:       ctx.BlockHeight(),
	}, nil
}

// GetContext returns the storage backend of the engine.
func (e *Engine) GetContext() types.BlockchainContext {
	return e.ctx
}

// BlockHeight returns the height of the last mined block.
func (e *Engine) BlockHeight() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx.BlockHeight()
}

// Balance returns the STX balance of addr.
func (e *Engine) Balance(addr core.Address) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx.Balance(addr)
}

// Fund sets the balance of addr without mining a block.
func (e *Engine) Fund(addr core.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx.SetBalance(addr, amount)
}

// Deploy publishes contract under deployer.name, runs its Init and mines
// the deployment block.
func (e *Engine) Deploy(deployer core.Address, name string, contract types.Contract) (core.ContractID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := core.ContractID{Issuer: deployer, Name: name}
	if name == "" {
		return id, fmt.Errorf("%w: empty contract name", core.ErrInvalidArgument)
	}
	if _, ok := e.contracts[id]; ok {
		return id, fmt.Errorf("%w: %s", core.ErrContractExists, id)
	}
	if err := bindABI(contract); err != nil {
		return id, fmt.Errorf("contract %s: %w", id, err)
	}

	height := e.ctx.BlockHeight() + 1
	f := newFrame(e, id, contract.ABI(), deployer, height, false)
	if err := contract.Init(f); err != nil {
		return id, fmt.Errorf("failed to initialize %s: %w", id, err)
	}

	rec := &repository.ContractRecord{
		ID:           id,
		Kind:         contract.ABI().Name,
		ABI:          contract.ABI(),
		DeployHeight: height,
	}
	if wc, ok := contract.(types.WasmContract); ok {
		rec.Code = wc.Code()
	}
	if err := e.codeManager.Register(rec); err != nil {
		return id, fmt.Errorf("failed to save contract: %w", err)
	}
	if err := f.commit(); err != nil {
		return id, err
	}
	tx := &types.Transaction{
		Sender:   deployer,
		Contract: id.String(),
		Function: "deploy",
		Success:  true,
	}
	if err := e.mine(height, tx, nil); err != nil {
		return id, err
	}
	e.contracts[id] = contract
	e.log.Info("contract deployed",
		zap.String("contract", id.String()),
		zap.String("kind", rec.Kind),
		zap.Uint64("block", height))
	return id, nil
}

// Attach binds contract to a deployment already in the contract records,
// as when a persistent chain is reopened. Init is not run again.
func (e *Engine) Attach(id core.ContractID, contract types.Contract) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.contracts[id]; ok {
		return fmt.Errorf("%w: %s", core.ErrContractExists, id)
	}
	rec, err := e.codeManager.Get(id)
	if err != nil {
		return err
	}
	if rec.Kind != contract.ABI().Name {
		return fmt.Errorf("%w: %s was deployed as %s", core.ErrInvalidArgument, id, rec.Kind)
	}
	if err := bindABI(contract); err != nil {
		return fmt.Errorf("contract %s: %w", id, err)
	}
	e.contracts[id] = contract
	e.log.Info("contract attached", zap.String("contract", id.String()), zap.Uint64("deployed", rec.DeployHeight))
	return nil
}

// Contracts lists the deployed contracts.
func (e *Engine) Contracts() []core.ContractID {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]core.ContractID, 0, len(e.contracts))
	for id := range e.contracts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Describe returns the stored record of a deployed contract.
func (e *Engine) Describe(id core.ContractID) (*repository.ContractRecord, error) {
	return e.codeManager.Get(id)
}

func (e *Engine) lookup(id core.ContractID, function string) (types.Contract, *abi.Function, error) {
	contract, ok := e.contracts[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", core.ErrContractNotFound, id)
	}
	fn, err := contract.ABI().Function(function)
	if err != nil {
		return nil, nil, err
	}
	return contract, fn, nil
}

// CallPublic runs a public function in a new block. Writes and events are
// kept only when the function returns (ok ...). A runtime error aborts the
// call without mining a block.
func (e *Engine) CallPublic(id core.ContractID, function string, args []cl.Value, sender core.Address) (*types.CallResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	contract, fn, err := e.lookup(id, function)
	if err != nil {
		return nil, err
	}
	if fn.Access != abi.Public {
		return nil, fmt.Errorf("%w: %s is %s, not public", core.ErrFunctionNotFound, function, fn.Access)
	}
	if err := fn.Validate(args); err != nil {
		return nil, err
	}

	height := e.ctx.BlockHeight() + 1
	f := newFrame(e, id, contract.ABI(), sender, height, false)
	result, err := e.run(contract, fn, f, args)
	if err != nil {
		e.metrics.calls.WithLabelValues(function, outcomeRuntimeError).Inc()
		e.log.Warn("runtime error",
			zap.String("contract", id.String()),
			zap.String("function", function),
			zap.Error(err))
		return nil, fmt.Errorf("runtime error in %s::%s: %w", id.Name, function, err)
	}
	resp, ok := result.(cl.Response)
	if !ok {
		return nil, fmt.Errorf("%w: public function %s returned %s", cl.ErrType, function, result.Type())
	}

	encodedArgs, err := encodeValues(args)
	if err != nil {
		return nil, err
	}
	encodedResult, err := cl.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result of %s: %w", function, err)
	}

	var events []types.Event
	var records []types.EventRecord
	outcome := outcomeErr
	if resp.IsOk() {
		outcome = outcomeOk
		if err := f.commit(); err != nil {
			return nil, err
		}
		events, records = f.events, f.records
	}
	e.metrics.calls.WithLabelValues(function, outcome).Inc()

	tx := &types.Transaction{
		Sender:   sender,
		Contract: id.String(),
		Function: function,
		Args:     encodedArgs,
		Result:   encodedResult,
		Success:  resp.IsOk(),
	}
	if err := e.mine(height, tx, records); err != nil {
		return nil, err
	}
	e.log.Debug("contract call",
		zap.String("contract", id.String()),
		zap.String("function", function),
		zap.String("result", cl.PrettyPrint(result)),
		zap.Int("events", len(events)),
		zap.Uint64("block", height))

	return &types.CallResult{
		Result:      result,
		Events:      events,
		Costs:       f.tracker.Costs(),
		TxHash:      tx.Hash,
		BlockHeight: height,
	}, nil
}

// CallReadOnly evaluates a function at the current height. Any state
// change is rejected with core.ErrReadOnly and no block is mined.
func (e *Engine) CallReadOnly(id core.ContractID, function string, args []cl.Value, sender core.Address) (*types.CallResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	contract, fn, err := e.lookup(id, function)
	if err != nil {
		return nil, err
	}
	if fn.Access == abi.Private {
		return nil, fmt.Errorf("%w: %s is private", core.ErrFunctionNotFound, function)
	}
	if err := fn.Validate(args); err != nil {
		return nil, err
	}
	height := e.ctx.BlockHeight()
	f := newFrame(e, id, contract.ABI(), sender, height, true)
	result, err := e.run(contract, fn, f, args)
	if err != nil {
		return nil, fmt.Errorf("runtime error in %s::%s: %w", id.Name, function, err)
	}
	return &types.CallResult{
		Result:      result,
		Costs:       f.tracker.Costs(),
		BlockHeight: height,
	}, nil
}

func (e *Engine) run(contract types.Contract, fn *abi.Function, f *frame, args []cl.Value) (cl.Value, error) {
	if err := f.tracker.Runtime(callCost); err != nil {
		return nil, err
	}
	return invoke(contract, fn, f, args)
}

// GetDataVar reads a data variable of a deployed contract.
func (e *Engine) GetDataVar(id core.ContractID, name string) (cl.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	contract, ok := e.contracts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrContractNotFound, id)
	}
	if _, err := contract.ABI().Variable(name); err != nil {
		return nil, err
	}
	data, err := e.ctx.GetDataVar(id, name)
	if err != nil {
		return nil, err
	}
	return cl.Unmarshal(data)
}

// TransferSTX moves amount from sender to recipient in a new block.
func (e *Engine) TransferSTX(amount uint64, recipient, sender core.Address) (*types.CallResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount == 0 {
		return nil, fmt.Errorf("%w: transfer of zero", core.ErrInvalidArgument)
	}
	if recipient == sender {
		return nil, fmt.Errorf("%w: sender and recipient are the same", core.ErrInvalidArgument)
	}
	events := []types.Event{{
		Event: types.STXTransferEvent,
		Data:  types.EventData{Sender: sender, Recipient: recipient, Amount: amount},
	}}
	rec, err := events[0].Record(0)
	if err != nil {
		return nil, err
	}
	result := cl.Ok(cl.Bool(true))
	encodedResult, err := cl.Marshal(result)
	if err != nil {
		return nil, err
	}
	if err := e.ctx.Transfer(sender, recipient, amount); err != nil {
		return nil, fmt.Errorf("failed to transfer: %w", err)
	}

	height := e.ctx.BlockHeight() + 1
	tx := &types.Transaction{
		Sender:   sender,
		Contract: recipient.Principal(),
		Function: "stx-transfer",
		Result:   encodedResult,
		Success:  true,
	}
	if err := e.mine(height, tx, []types.EventRecord{rec}); err != nil {
		return nil, err
	}
	return &types.CallResult{
		Result:      result,
		Events:      events,
		TxHash:      tx.Hash,
		BlockHeight: height,
	}, nil
}

// MineBlock mines an empty block and returns its height.
func (e *Engine) MineBlock() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	height := e.ctx.BlockHeight() + 1
	if err := e.mine(height, nil, nil); err != nil {
		return 0, err
	}
	return height, nil
}

// Receipt returns a mined transaction and its events.
func (e *Engine) Receipt(hash core.Hash) (*types.Transaction, []types.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tx, err := e.ctx.GetTransaction(hash)
	if err != nil {
		return nil, nil, err
	}
	records, err := e.ctx.Events(hash)
	if err != nil {
		return nil, nil, err
	}
	events := make([]types.Event, 0, len(records))
	for _, r := range records {
		ev, err := r.Decode()
		if err != nil {
			return nil, nil, err
		}
		events = append(events, ev)
	}
	return tx, events, nil
}

// mine appends block height, holding tx and its event records when tx is
// not nil.
func (e *Engine) mine(height uint64, tx *types.Transaction, records []types.EventRecord) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	hash := core.GetHash(append(e.lastHash[:], buf[:]...))
	blockTime := e.genesisTime + int64(height)*BlockInterval
	if err := e.ctx.SetBlockInfo(height, blockTime, hash); err != nil {
		return fmt.Errorf("failed to mine block %d: %w", height, err)
	}
	e.lastHash = hash
	e.metrics.blocks.Inc()

	if tx == nil {
		return nil
	}
	e.nonce++
	tx.BlockHeight = height
	tx.Hash = txHash(tx, e.nonce)
	if err := e.ctx.RecordTransaction(tx); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	if len(records) == 0 {
		return nil
	}
	if err := e.ctx.Log(tx.Hash, records); err != nil {
		return fmt.Errorf("failed to log events: %w", err)
	}
	return nil
}

func txHash(tx *types.Transaction, nonce uint64) core.Hash {
	data, _ := json.Marshal(struct {
		Sender   string          `json:"sender"`
		Contract string          `json:"contract"`
		Function string          `json:"function"`
		Args     json.RawMessage `json:"args,omitempty"`
		Height   uint64          `json:"height"`
		Nonce    uint64          `json:"nonce"`
	}{tx.Sender.Principal(), tx.Contract, tx.Function, tx.Args, tx.BlockHeight, nonce})
	return core.GetHash(data)
}

func encodeValues(values []cl.Value) ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		b, err := cl.Marshal(v)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
	}
	return json.Marshal(raw)
}

// Close closes the engine
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.ctx.Close()
	if e.tmpDir != "" {
		err = errors.Join(err, os.RemoveAll(e.tmpDir))
	}
	if err != nil {
		return fmt.Errorf("failed to close engine: %w", err)
	}
	return nil
}
