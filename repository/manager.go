package repository

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/govm-net/simnet/abi"
	"github.com/govm-net/simnet/core"
)

const defaultCacheSize = 128

// Manager keeps the records of deployed contracts on disk.
type Manager struct {
	rootDir string
	cache   *lru.Cache
}

// ContractRecord describes one deployed contract.
type ContractRecord struct {
	ID           core.ContractID
	Kind         string
	ABI          *abi.ABI
	Code         []byte // WebAssembly code, if the contract has any
	DeployHeight uint64
	UpdateTime   time.Time
	Hash         [32]byte // hash of the ABI and code
}

// ContractMetadata is stored next to the ABI.
type ContractMetadata struct {
	Contract     string    `json:"contract"`
	Kind         string    `json:"kind"`
	Hash         string    `json:"hash"`
	DeployHeight uint64    `json:"deploy_height"`
	UpdateTime   time.Time `json:"update_time"`
	HasCode      bool      `json:"has_code"`
}

// NewManager creates a manager rooted at rootDir.
func NewManager(rootDir string) (*Manager, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	cache, err := lru.New(defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &Manager{
		rootDir: rootDir,
		cache:   cache,
	}, nil
}

// Register stores a new contract record.
func (m *Manager) Register(rec *ContractRecord) error {
	contractDir := m.getContractDir(rec.ID)
	if _, err := os.Stat(contractDir); err == nil {
		return fmt.Errorf("%w: %s", core.ErrContractExists, rec.ID)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check contract directory: %w", err)
	}

	abiJSON, err := json.MarshalIndent(rec.ABI, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ABI: %w", err)
	}
	h := sha256.New()
	h.Write(abiJSON)
	h.Write(rec.Code)
	copy(rec.Hash[:], h.Sum(nil))
	if rec.UpdateTime.IsZero() {
		rec.UpdateTime = time.Now()
	}

	if err := os.MkdirAll(contractDir, 0755); err != nil {
		return fmt.Errorf("failed to create contract directory: %w", err)
	}
	if err := m.saveContractFiles(rec, abiJSON); err != nil {
		os.RemoveAll(contractDir)
		return fmt.Errorf("failed to save contract files: %w", err)
	}
	m.cache.Add(rec.ID, rec)
	return nil
}

// Get loads the record of a contract.
func (m *Manager) Get(id core.ContractID) (*ContractRecord, error) {
	if v, ok := m.cache.Get(id); ok {
		return v.(*ContractRecord), nil
	}
	rec, err := m.loadContractRecord(id)
	if err != nil {
		return nil, err
	}
	m.cache.Add(id, rec)
	return rec, nil
}

// Remove deletes a contract record.
func (m *Manager) Remove(id core.ContractID) error {
	m.cache.Remove(id)
	if err := os.RemoveAll(m.getContractDir(id)); err != nil {
		return fmt.Errorf("failed to remove contract directory: %w", err)
	}
	return nil
}

// Clear removes every contract record. Entries of the root directory that
// are not contract records are left alone.
func (m *Manager) Clear() error {
	entries, err := os.ReadDir(m.rootDir)
	if err != nil {
		return fmt.Errorf("failed to read root directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(m.rootDir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "metadata.json")); err != nil {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove contract directory: %w", err)
		}
	}
	m.cache.Purge()
	return nil
}

func (m *Manager) getContractDir(id core.ContractID) string {
	return filepath.Join(m.rootDir, id.String())
}

func (m *Manager) saveContractFiles(rec *ContractRecord, abiJSON []byte) error {
	dir := m.getContractDir(rec.ID)

	if err := os.WriteFile(filepath.Join(dir, "abi.json"), abiJSON, 0644); err != nil {
		return fmt.Errorf("failed to save ABI: %w", err)
	}
	if len(rec.Code) > 0 {
		if err := os.WriteFile(filepath.Join(dir, "code.wasm"), rec.Code, 0644); err != nil {
			return fmt.Errorf("failed to save code: %w", err)
		}
	}

	metadata := ContractMetadata{
		Contract:     rec.ID.String(),
		Kind:         rec.Kind,
		Hash:         hex.EncodeToString(rec.Hash[:]),
		DeployHeight: rec.DeployHeight,
		UpdateTime:   rec.UpdateTime,
		HasCode:      len(rec.Code) > 0,
	}
	metadataBytes, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), metadataBytes, 0644); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

func (m *Manager) loadContractRecord(id core.ContractID) (*ContractRecord, error) {
	dir := m.getContractDir(id)

	metadataBytes, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", core.ErrContractNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	var metadata ContractMetadata
	if err := json.Unmarshal(metadataBytes, &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	abiBytes, err := os.ReadFile(filepath.Join(dir, "abi.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read ABI: %w", err)
	}
	var contractABI abi.ABI
	if err := json.Unmarshal(abiBytes, &contractABI); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ABI: %w", err)
	}

	var code []byte
	if metadata.HasCode {
		code, err = os.ReadFile(filepath.Join(dir, "code.wasm"))
		if err != nil {
			return nil, fmt.Errorf("failed to read code: %w", err)
		}
	}

	hashBytes, err := hex.DecodeString(metadata.Hash)
	if err != nil {
		return nil, fmt.Errorf("invalid hash in metadata: %w", err)
	}
	var hash [32]byte
	copy(hash[:], hashBytes)

	return &ContractRecord{
		ID:           id,
		Kind:         metadata.Kind,
		ABI:          &contractABI,
		Code:         code,
		DeployHeight: metadata.DeployHeight,
		UpdateTime:   metadata.UpdateTime,
		Hash:         hash,
	}, nil
}
