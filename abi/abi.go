// Package abi describes the public surface of a deployed contract:
// its functions, their argument types and its data variables.
package abi

import (
	"fmt"
	"strings"

	"github.com/govm-net/simnet/cl"
	"github.com/govm-net/simnet/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Access is the visibility of a contract function.
type Access string

const (
	Public   Access = "public"
	ReadOnly Access = "read-only"
	Private  Access = "private"
)

// ABI is the interface of one contract.
type ABI struct {
	Name      string     `json:"name"`
	Functions []Function `json:"functions"`
	Variables []Variable `json:"variables"`
}

// Function describes one contract function.
type Function struct {
	Name   string  `json:"name"`
	Access Access  `json:"access"`
	Args   []Arg   `json:"args"`
	Output cl.Type `json:"output"`
}

// Arg is a named, typed function parameter.
type Arg struct {
	Name string  `json:"name"`
	Type cl.Type `json:"type"`
}

// Variable is a data variable owned by the contract.
type Variable struct {
	Name string  `json:"name"`
	Type cl.Type `json:"type"`
}

// Function returns the function called name.
func (a *ABI) Function(name string) (*Function, error) {
	for i := range a.Functions {
		if a.Functions[i].Name == name {
			return &a.Functions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s in contract %s", core.ErrFunctionNotFound, name, a.Name)
}

// Variable returns the data variable called name.
func (a *ABI) Variable(name string) (*Variable, error) {
	for i := range a.Variables {
		if a.Variables[i].Name == name {
			return &a.Variables[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s in contract %s", core.ErrVariableNotFound, name, a.Name)
}

// Validate checks the arguments of a call against the declared parameters.
func (f *Function) Validate(args []cl.Value) error {
	if len(args) != len(f.Args) {
		return fmt.Errorf("%w: %s expects %d arguments, got %d", core.ErrInvalidArgument, f.Name, len(f.Args), len(args))
	}
	for i, arg := range f.Args {
		if err := arg.Type.Admits(args[i]); err != nil {
			return fmt.Errorf("%w: argument %s of %s: %v", core.ErrInvalidArgument, arg.Name, f.Name, err)
		}
	}
	return nil
}

// Signature renders the function the way it is declared in contract source,
// e.g. (define-public (increment (step uint)) (response uint uint)).
func (f *Function) Signature() string {
	var sb strings.Builder
	sb.WriteString("(define-")
	sb.WriteString(string(f.Access))
	sb.WriteString(" (")
	sb.WriteString(f.Name)
	for _, arg := range f.Args {
		sb.WriteString(fmt.Sprintf(" (%s %s)", arg.Name, arg.Type))
	}
	sb.WriteString(") ")
	sb.WriteString(f.Output.String())
	sb.WriteString(")")
	return sb.String()
}

func (a *ABI) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(";; contract %s\n", a.Name))
	for _, v := range a.Variables {
		sb.WriteString(fmt.Sprintf("(define-data-var %s %s)\n", v.Name, v.Type))
	}
	for i := range a.Functions {
		sb.WriteString(a.Functions[i].Signature())
		sb.WriteString("\n")
	}
	return sb.String()
}

// MethodName maps a contract function name to the Go method implementing
// it: "increment" -> "Increment", "get-count" -> "GetCount".
func MethodName(function string) string {
	caser := cases.Title(language.English)
	parts := strings.FieldsFunc(function, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, p := range parts {
		parts[i] = caser.String(p)
	}
	return strings.Join(parts, "")
}
