package core

import "errors"

// Common errors returned by the engine and storage backends.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidPrincipal  = errors.New("invalid principal")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrContractNotFound  = errors.New("contract not found")
	ErrContractExists    = errors.New("contract already exists")
	ErrFunctionNotFound  = errors.New("function not found")
	ErrVariableNotFound  = errors.New("variable not found")
	ErrTxNotFound        = errors.New("transaction not found")
	ErrReadOnly          = errors.New("state change in read-only call")
)
