// Package types contains the definitions shared by the engine, the storage
// backends and the contracts running on the simulated network.
package types

import (
	"github.com/govm-net/simnet/abi"
	"github.com/govm-net/simnet/cl"
	"github.com/govm-net/simnet/core"
)

// Context is what a running contract sees of the chain.
type Context interface {
	// Transaction and call information
	Sender() core.Address         // Origin of the transaction (tx-sender)
	ContractCaller() cl.Principal // Immediate caller of the function
	ContractID() core.ContractID  // The contract being executed
	BlockHeight() uint64          // Height of the block the call runs in

	// Data variables
	VarGet(name string) (cl.Value, error)
	VarSet(name string, value cl.Value) error

	// Print emits a print event carrying value.
	Print(value cl.Value) error
}

// Contract is a deployable contract. Its public and read-only functions are
// methods named by abi.MethodName, taking the Context first and one cl value
// per declared argument, and returning (cl.Value, error). Public functions
// return a cl.Response.
type Contract interface {
	ABI() *abi.ABI
	// Init defines the data variables at deployment time.
	Init(ctx Context) error
}

// WasmContract is a contract whose functions run as WebAssembly. Its code
// is kept with the deployment record.
type WasmContract interface {
	Contract
	Code() []byte
}

// BlockchainContext is the storage backend of a simnet session.
type BlockchainContext interface {
	// Block information
	SetBlockInfo(height uint64, time int64, hash core.Hash) error
	BlockHeight() uint64
	BlockTime() int64
	BlockHash() core.Hash

	// Accounts
	Balance(addr core.Address) uint64
	SetBalance(addr core.Address, amount uint64) error
	Transfer(from, to core.Address, amount uint64) error

	// Data variables, stored in their cl.Marshal form
	GetDataVar(contract core.ContractID, name string) ([]byte, error)
	SetDataVar(contract core.ContractID, name string, value []byte) error

	// Transactions and their events
	RecordTransaction(tx *Transaction) error
	GetTransaction(hash core.Hash) (*Transaction, error)
	Log(txHash core.Hash, events []EventRecord) error
	Events(txHash core.Hash) ([]EventRecord, error)

	Close() error
}

// Transaction is the record of one mined call or transfer.
type Transaction struct {
	Hash        core.Hash
	BlockHeight uint64
	Sender      core.Address
	Contract    string
	Function    string
	Args        []byte // cl.Marshal of each argument, JSON array
	Result      []byte // cl.Marshal of the result
	Success     bool
}

// EventRecord is the stored form of an event.
type EventRecord struct {
	Index    int
	Event    string
	Contract string
	Topic    string
	Payload  []byte // JSON of the event data
}
