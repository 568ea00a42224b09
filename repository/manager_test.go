package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/govm-net/simnet/abi"
	"github.com/govm-net/simnet/cl"
	"github.com/govm-net/simnet/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *ContractRecord {
	return &ContractRecord{
		ID:   core.ContractID{Issuer: core.AccountAddress("deployer"), Name: "counter"},
		Kind: "counter",
		ABI: &abi.ABI{
			Name: "counter",
			Functions: []abi.Function{{
				Name:   "increment",
				Access: abi.Public,
				Args:   []abi.Arg{{Name: "step", Type: cl.UIntType}},
				Output: cl.ResponseType(cl.UIntType, cl.UIntType),
			}},
			Variables: []abi.Variable{{Name: "count", Type: cl.UIntType}},
		},
		Code:         []byte{0x00, 0x61, 0x73, 0x6d},
		DeployHeight: 1,
	}
}

func TestManager(t *testing.T) {
	tmpDir := t.TempDir()
	manager, err := NewManager(tmpDir)
	require.NoError(t, err)

	rec := testRecord()
	require.NoError(t, manager.Register(rec))

	contractDir := filepath.Join(tmpDir, rec.ID.String())
	assert.DirExists(t, contractDir)
	assert.FileExists(t, filepath.Join(contractDir, "abi.json"))
	assert.FileExists(t, filepath.Join(contractDir, "code.wasm"))
	assert.FileExists(t, filepath.Join(contractDir, "metadata.json"))

	// Registering twice fails
	assert.ErrorIs(t, manager.Register(testRecord()), core.ErrContractExists)
}

func TestManagerLoadFromDisk(t *testing.T) {
	tmpDir := t.TempDir()
	first, err := NewManager(tmpDir)
	require.NoError(t, err)
	rec := testRecord()
	require.NoError(t, first.Register(rec))

	// A fresh manager has an empty cache and reads the files back
	second, err := NewManager(tmpDir)
	require.NoError(t, err)
	got, err := second.Get(rec.ID)
	require.NoError(t, err)

	assert.Equal(t, rec.Kind, got.Kind)
	assert.Equal(t, rec.Code, got.Code)
	assert.Equal(t, rec.Hash, got.Hash)
	assert.Equal(t, rec.DeployHeight, got.DeployHeight)
	fn, err := got.ABI.Function("increment")
	require.NoError(t, err)
	assert.Equal(t, "(define-public (increment (step uint)) (response uint uint))", fn.Signature())
}

func TestManagerWithoutCode(t *testing.T) {
	tmpDir := t.TempDir()
	manager, err := NewManager(tmpDir)
	require.NoError(t, err)

	rec := testRecord()
	rec.Code = nil
	require.NoError(t, manager.Register(rec))
	_, err = os.Stat(filepath.Join(tmpDir, rec.ID.String(), "code.wasm"))
	assert.True(t, os.IsNotExist(err))

	manager.cache.Purge()
	got, err := manager.Get(rec.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Code)
}

func TestManagerMissingAndRemove(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	rec := testRecord()
	_, err = manager.Get(rec.ID)
	assert.ErrorIs(t, err, core.ErrContractNotFound)

	require.NoError(t, manager.Register(rec))
	require.NoError(t, manager.Remove(rec.ID))
	_, err = manager.Get(rec.ID)
	assert.ErrorIs(t, err, core.ErrContractNotFound)
}

func TestManagerClear(t *testing.T) {
	tmpDir := t.TempDir()
	manager, err := NewManager(tmpDir)
	require.NoError(t, err)

	rec := testRecord()
	require.NoError(t, manager.Register(rec))
	other := filepath.Join(tmpDir, "notes")
	require.NoError(t, os.Mkdir(other, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "README"), []byte("keep"), 0644))

	require.NoError(t, manager.Clear())
	_, err = manager.Get(rec.ID)
	assert.ErrorIs(t, err, core.ErrContractNotFound)
	assert.DirExists(t, other)
	assert.FileExists(t, filepath.Join(tmpDir, "README"))

	// the id can be registered again
	require.NoError(t, manager.Register(testRecord()))
}
