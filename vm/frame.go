package vm

import (
	"fmt"

	"github.com/govm-net/simnet/abi"
	"github.com/govm-net/simnet/cl"
	"github.com/govm-net/simnet/core"
	"github.com/govm-net/simnet/security"
	"github.com/govm-net/simnet/types"
	"go.uber.org/zap"
)

// Base runtime cost charged for entering a function and for each print.
const (
	callCost  = 1000
	printCost = 100
)

// frame is the types.Context of one call. Writes and events stay in the
// frame until commit.
type frame struct {
	backend  types.BlockchainContext
	log      *zap.Logger
	contract core.ContractID
	abi      *abi.ABI
	sender   core.Address
	caller   cl.Principal
	height   uint64
	readOnly bool
	tracker  *security.Tracker

	writes  map[string][]byte
	order   []string
	events  []types.Event
	records []types.EventRecord
}

func newFrame(e *Engine, contract core.ContractID, contractABI *abi.ABI, sender core.Address, height uint64, readOnly bool) *frame {
	return &frame{
		backend:  e.ctx,
		log:      e.log,
		contract: contract,
		abi:      contractABI,
		sender:   sender,
		caller:   cl.NewPrincipal(sender),
		height:   height,
		readOnly: readOnly,
		tracker:  security.NewTracker(e.config.Limits),
		writes:   make(map[string][]byte),
	}
}

func (f *frame) Sender() core.Address         { return f.sender }
func (f *frame) ContractCaller() cl.Principal { return f.caller }
func (f *frame) ContractID() core.ContractID  { return f.contract }
func (f *frame) BlockHeight() uint64          { return f.height }

func (f *frame) VarGet(name string) (cl.Value, error) {
	if _, err := f.abi.Variable(name); err != nil {
		return nil, err
	}
	data, ok := f.writes[name]
	if !ok {
		var err error
		data, err = f.backend.GetDataVar(f.contract, name)
		if err != nil {
			return nil, err
		}
	}
	if err := f.tracker.Read(len(data)); err != nil {
		return nil, err
	}
	return cl.Unmarshal(data)
}

func (f *frame) VarSet(name string, value cl.Value) error {
	if f.readOnly {
		return fmt.Errorf("%w: var-set %s", core.ErrReadOnly, name)
	}
	v, err := f.abi.Variable(name)
	if err != nil {
		return err
	}
	if err := v.Type.Admits(value); err != nil {
		return fmt.Errorf("var-set %s: %w", name, err)
	}
	data, err := cl.Marshal(value)
	if err != nil {
		return err
	}
	if err := f.tracker.Write(len(data)); err != nil {
		return err
	}
	if _, seen := f.writes[name]; !seen {
		f.order = append(f.order, name)
	}
	f.writes[name] = data
	return nil
}

func (f *frame) Print(value cl.Value) error {
	if f.readOnly {
		return fmt.Errorf("%w: print", core.ErrReadOnly)
	}
	if err := f.tracker.Runtime(printCost); err != nil {
		return err
	}
	ev := types.Event{
		Event: types.PrintEvent,
		Data: types.EventData{
			ContractIdentifier: f.contract.String(),
			Topic:              types.PrintTopic,
			Value:              value,
		},
	}
	// encode now so a bad value fails the call before anything is stored
	rec, err := ev.Record(len(f.events))
	if err != nil {
		return fmt.Errorf("print: %w", err)
	}
	f.events = append(f.events, ev)
	f.records = append(f.records, rec)
	f.log.Debug("print",
		zap.String("contract", f.contract.String()),
		zap.Uint64("block", f.height),
		zap.String("value", cl.PrettyPrint(value)))
	return nil
}

// commit writes the buffered variables to the backend.
func (f *frame) commit() error {
	for _, name := range f.order {
		if err := f.backend.SetDataVar(f.contract, name, f.writes[name]); err != nil {
			return fmt.Errorf("failed to commit %s: %w", name, err)
		}
	}
	return nil
}
