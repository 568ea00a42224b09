// Package simnet is an in-process simulated network for testing contracts.
// A session funds the configured accounts, deploys the configured contracts
// from the deployer and then executes calls one block at a time.
package simnet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/govm-net/simnet/cl"
	"github.com/govm-net/simnet/config"
	"github.com/govm-net/simnet/contracts"
	_ "github.com/govm-net/simnet/contracts/counter"
	"github.com/govm-net/simnet/core"
	"github.com/govm-net/simnet/repository"
	"github.com/govm-net/simnet/types"
	"github.com/govm-net/simnet/vm"
	"github.com/govm-net/simnet/wasi"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Simnet is one session of the simulated network. It is safe for
// concurrent use; calls are executed one at a time.
type Simnet struct {
	id       string
	engine   *vm.Engine
	wasm     *wasi.WazeroVM
	accounts map[string]core.Address
	deployer core.Address
	log      *zap.Logger
}

type options struct {
	log        *zap.Logger
	registerer prometheus.Registerer
}

// Option configures a session.
type Option func(*options)

// WithLogger sets the session logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithRegisterer exports the engine metrics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// New starts a session. A nil cfg uses config.Default.
func New(cfg *config.Config, opts ...Option) (*Simnet, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	id := uuid.NewString()
	log := o.log.With(zap.String("session", id))

	contractsDir := cfg.Network.ContractsDir
	if contractsDir == "" && cfg.Network.Context == "db" && cfg.Network.DBPath != "" && !strings.HasPrefix(cfg.Network.DBPath, "file:") {
		// a persistent chain keeps its contract records next to the database
		contractsDir = cfg.Network.DBPath + ".contracts"
	}
	engine, err := vm.NewEngine(&vm.Config{
		ContextType:    cfg.Network.Context,
		ContextParams:  cfg.ContextParams(),
		CodeManagerDir: contractsDir,
		Limits:         cfg.Limits,
		GenesisTime:    cfg.Network.GenesisTime,
		Logger:         log,
		Registerer:     o.registerer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	s := &Simnet{
		id:       id,
		engine:   engine,
		wasm:     wasi.NewWazeroVM(log),
		accounts: make(map[string]core.Address, len(cfg.Accounts)),
		deployer: core.AccountAddress(config.DeployerName),
		log:      log,
	}
	if err := s.setup(cfg); err != nil {
		s.Close()
		return nil, err
	}
	log.Info("session started",
		zap.Int("accounts", len(s.accounts)),
		zap.Int("contracts", len(cfg.Contracts)),
		zap.Uint64("height", engine.BlockHeight()))
	return s, nil
}

func (s *Simnet) setup(cfg *config.Config) error {
	fresh := s.engine.BlockHeight() == 0
	for _, a := range cfg.Accounts {
		addr := core.AccountAddress(a.Name)
		s.accounts[a.Name] = addr
		if !fresh {
			continue
		}
		if err := s.engine.Fund(addr, a.Balance); err != nil {
			return fmt.Errorf("failed to fund %s: %w", a.Name, err)
		}
	}
	for _, c := range cfg.Contracts {
		if _, err := s.deploy(c.Name, c.Kind, c.Params); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simnet) deploy(name, kind string, params map[string]any) (core.ContractID, error) {
	contract, err := contracts.Build(kind, contracts.Env{VM: s.wasm, Log: s.log}, params)
	if err != nil {
		return core.ContractID{}, fmt.Errorf("failed to build contract %s: %w", name, err)
	}
	id := core.ContractID{Issuer: s.deployer, Name: name}
	if s.engine.BlockHeight() == 0 {
		return s.engine.Deploy(s.deployer, name, contract)
	}
	if _, err := s.engine.Describe(id); err == nil {
		return id, s.engine.Attach(id, contract)
	} else if !errors.Is(err, core.ErrContractNotFound) {
		return id, err
	}
	return s.engine.Deploy(s.deployer, name, contract)
}

// ID returns the session identifier.
func (s *Simnet) ID() string {
	return s.id
}

// Deploy publishes a contract of a catalog kind from the deployer.
func (s *Simnet) Deploy(name, kind string, params map[string]any) (core.ContractID, error) {
	return s.deploy(name, kind, params)
}

// GetAccounts returns the session accounts by name.
func (s *Simnet) GetAccounts() map[string]core.Address {
	accounts := make(map[string]core.Address, len(s.accounts))
	for name, addr := range s.accounts {
		accounts[name] = addr
	}
	return accounts
}

// Deployer returns the address that deploys the session contracts.
func (s *Simnet) Deployer() core.Address {
	return s.deployer
}

// ContractID resolves a contract name. A bare name refers to a contract of
// the deployer; a full identifier "<principal>.<name>" is used as is.
func (s *Simnet) ContractID(contract string) (core.ContractID, error) {
	if strings.Contains(contract, ".") {
		return core.ParseContractID(contract)
	}
	if contract == "" {
		return core.ContractID{}, fmt.Errorf("%w: empty contract name", core.ErrInvalidArgument)
	}
	return core.ContractID{Issuer: s.deployer, Name: contract}, nil
}

// Contracts lists the deployed contracts.
func (s *Simnet) Contracts() []core.ContractID {
	return s.engine.Contracts()
}

// Describe returns the deployment record of a contract.
func (s *Simnet) Describe(contract string) (*repository.ContractRecord, error) {
	id, err := s.ContractID(contract)
	if err != nil {
		return nil, err
	}
	return s.engine.Describe(id)
}

// CallPublicFn calls a public function as sender in a new block.
func (s *Simnet) CallPublicFn(contract, function string, args []cl.Value, sender core.Address) (*types.CallResult, error) {
	id, err := s.ContractID(contract)
	if err != nil {
		return nil, err
	}
	return s.engine.CallPublic(id, function, args, sender)
}

// CallReadOnlyFn evaluates a function without changing state.
func (s *Simnet) CallReadOnlyFn(contract, function string, args []cl.Value, sender core.Address) (*types.CallResult, error) {
	id, err := s.ContractID(contract)
	if err != nil {
		return nil, err
	}
	return s.engine.CallReadOnly(id, function, args, sender)
}

// GetDataVar reads a data variable of a contract.
func (s *Simnet) GetDataVar(contract, name string) (cl.Value, error) {
	id, err := s.ContractID(contract)
	if err != nil {
		return nil, err
	}
	return s.engine.GetDataVar(id, name)
}

// TransferSTX moves amount uSTX from sender to recipient in a new block.
func (s *Simnet) TransferSTX(amount uint64, recipient, sender core.Address) (*types.CallResult, error) {
	return s.engine.TransferSTX(amount, recipient, sender)
}

// GetBalance returns the uSTX balance of addr.
func (s *Simnet) GetBalance(addr core.Address) uint64 {
	return s.engine.Balance(addr)
}

// MineEmptyBlocks mines n empty blocks and returns the new height.
func (s *Simnet) MineEmptyBlocks(n int) (uint64, error) {
	height := s.engine.BlockHeight()
	for i := 0; i < n; i++ {
		var err error
		if height, err = s.engine.MineBlock(); err != nil {
			return height, err
		}
	}
	return height, nil
}

// BlockHeight returns the height of the last mined block.
func (s *Simnet) BlockHeight() uint64 {
	return s.engine.BlockHeight()
}

// Receipt returns a mined transaction and the events it emitted.
func (s *Simnet) Receipt(txHash core.Hash) (*types.Transaction, []types.Event, error) {
	return s.engine.Receipt(txHash)
}

// Close ends the session and releases its storage.
func (s *Simnet) Close() error {
	err := s.engine.Close()
	err = errors.Join(err, s.wasm.Close(context.Background()))
	s.log.Info("session closed")
	return err
}
