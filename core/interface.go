// Package core defines the identifiers shared by the simulated network,
// its storage backends and the contracts it runs.
package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Address is the 20-byte hash identifying an account or a contract issuer.
type Address [20]byte

// Hash identifies blocks and transactions.
type Hash [32]byte

var ZeroAddress = Address{}
var ZeroHash = Hash{}

// principalPrefix marks every standard principal on the simulated network.
const principalPrefix = "S"

func (addr Address) String() string {
	return hex.EncodeToString(addr[:])
}

// Principal renders the address as a standard principal:
// the prefix followed by base58(address || checksum).
func (addr Address) Principal() string {
	sum := checksum(addr[:])
	buf := make([]byte, 0, len(addr)+len(sum))
	buf = append(buf, addr[:]...)
	buf = append(buf, sum...)
	return principalPrefix + base58.Encode(buf)
}

// AddressFromString decodes a hex address, with or without a 0x prefix.
func AddressFromString(str string) Address {
	str = strings.TrimPrefix(str, "0x")
	b, err := hex.DecodeString(str)
	if err != nil {
		return ZeroAddress
	}
	var addr Address
	copy(addr[:], b)
	return addr
}

// ParsePrincipal decodes a standard principal produced by Address.Principal.
func ParsePrincipal(str string) (Address, error) {
	if !strings.HasPrefix(str, principalPrefix) {
		return ZeroAddress, fmt.Errorf("%w: %q", ErrInvalidPrincipal, str)
	}
	raw, err := base58.Decode(str[len(principalPrefix):])
	if err != nil {
		return ZeroAddress, fmt.Errorf("%w: %v", ErrInvalidPrincipal, err)
	}
	if len(raw) != len(Address{})+4 {
		return ZeroAddress, fmt.Errorf("%w: bad length %d", ErrInvalidPrincipal, len(raw))
	}
	var addr Address
	copy(addr[:], raw)
	if !bytes.Equal(checksum(addr[:]), raw[len(addr):]) {
		return ZeroAddress, fmt.Errorf("%w: checksum mismatch", ErrInvalidPrincipal)
	}
	return addr, nil
}

// AccountAddress derives the address of a named simnet account.
func AccountAddress(name string) Address {
	sum := sha256.Sum256([]byte("simnet-account:" + name))
	var addr Address
	copy(addr[:], sum[:])
	return addr
}

func checksum(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:4]
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func HashFromString(str string) Hash {
	str = strings.TrimPrefix(str, "0x")
	b, err := hex.DecodeString(str)
	if err != nil {
		return ZeroHash
	}
	var h Hash
	copy(h[:], b)
	return h
}

// GetHash returns the SHA-256 hash of data.
func GetHash(data []byte) Hash {
	return sha256.Sum256(data)
}

// ContractID names a deployed contract: its deployer and a contract name.
type ContractID struct {
	Issuer Address
	Name   string
}

func (id ContractID) String() string {
	return id.Issuer.Principal() + "." + id.Name
}

// ParseContractID parses "<principal>.<name>".
func ParseContractID(str string) (ContractID, error) {
	principal, name, ok := strings.Cut(str, ".")
	if !ok || name == "" {
		return ContractID{}, fmt.Errorf("%w: contract identifier %q", ErrInvalidArgument, str)
	}
	issuer, err := ParsePrincipal(principal)
	if err != nil {
		return ContractID{}, err
	}
	return ContractID{Issuer: issuer, Name: name}, nil
}
