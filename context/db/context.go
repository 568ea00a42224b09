// Package db provides a BlockchainContext persisted in sqlite through gorm.
package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/govm-net/simnet/context"
	"github.com/govm-net/simnet/core"
	"github.com/govm-net/simnet/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type DBBlock struct {
	gorm.Model
	Height uint64 `gorm:"column:height;not null;unique;index"`
	Time   int64  `gorm:"column:block_time;not null"`
	Hash   string `gorm:"column:block_hash;not null;size:64"`
}

func (DBBlock) TableName() string {
	return "blocks"
}

type DBTransaction struct {
	gorm.Model
	Hash        string `gorm:"column:tx_hash;not null;unique;index;size:64"`
	BlockHeight uint64 `gorm:"column:block_height;not null;index"`
	Sender      string `gorm:"column:sender;not null;index;size:40"`
	Contract    string `gorm:"column:contract_id;not null;index;size:255"`
	Function    string `gorm:"column:function_name;size:128"`
	Args        []byte `gorm:"column:args;type:blob"`
	Result      []byte `gorm:"column:result;type:blob"`
	Success     bool   `gorm:"column:success;not null"`
}

func (DBTransaction) TableName() string {
	return "transactions"
}

// DBDataVar is one contract data variable.
type DBDataVar struct {
	ID       uint   `gorm:"primaryKey"`
	Contract string `gorm:"column:contract_id;not null;size:255;uniqueIndex:idx_data_var"`
	Name     string `gorm:"column:var_name;not null;size:128;uniqueIndex:idx_data_var"`
	Value    []byte `gorm:"column:var_value;type:blob;not null"`
}

func (DBDataVar) TableName() string {
	return "data_vars"
}

// DBBalance is the STX balance of an account.
type DBBalance struct {
	Address string `gorm:"column:address;primaryKey;size:40"`
	Amount  uint64 `gorm:"column:balance;not null;default:0"`
}

func (DBBalance) TableName() string {
	return "balances"
}

// DBEvent is one event emitted by a committed transaction.
type DBEvent struct {
	gorm.Model
	TxHash   string `gorm:"column:tx_hash;not null;index;size:64"`
	Index    int    `gorm:"column:event_index;not null"`
	Event    string `gorm:"column:event_name;not null;size:64"`
	Contract string `gorm:"column:contract_id;size:255;index"`
	Topic    string `gorm:"column:topic;size:64"`
	Payload  []byte `gorm:"column:payload;type:blob;not null"`
}

func (DBEvent) TableName() string {
	return "events"
}

// Context implements types.BlockchainContext on sqlite.
type Context struct {
	db           *gorm.DB
	currentBlock *DBBlock
}

func init() {
	if err := context.Register(context.DBContextType, NewContext); err != nil {
		panic(err)
	}
}

// NewContext opens the database named by params["db_path"]. A plain path
// is a file created on demand; a "file:" DSN is passed to sqlite as is.
// Without a path the session gets its own in-memory database.
func NewContext(params map[string]any) (types.BlockchainContext, error) {
	dsn, _ := params["db_path"].(string)
	switch {
	case dsn == "":
		dsn = fmt.Sprintf("file:simnet-%s?mode=memory&cache=shared", uuid.NewString())
	case !strings.HasPrefix(dsn, "file:"):
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// A single connection keeps an in-memory database alive and serialises
	// writers.
	sqlDB.SetMaxOpenConns(1)

	ctx := &Context{db: db}
	if err := ctx.initDB(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return ctx, nil
}

func (c *Context) initDB() error {
	err := c.db.AutoMigrate(
		&DBBlock{},
		&DBTransaction{},
		&DBDataVar{},
		&DBBalance{},
		&DBEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	var block DBBlock
	result := c.db.Order("height desc").Limit(1).Find(&block)
	if result.Error != nil {
		return fmt.Errorf("failed to load chain tip: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		c.currentBlock = &block
	}
	return nil
}

// SetBlockInfo implements types.BlockchainContext
func (c *Context) SetBlockInfo(height uint64, time int64, hash core.Hash) error {
	if c.currentBlock != nil && height < c.currentBlock.Height {
		return fmt.Errorf("%w: block height %d below current %d", core.ErrInvalidArgument, height, c.currentBlock.Height)
	}
	block := &DBBlock{Height: height, Time: time, Hash: hash.String()}
	result := c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "height"}},
		DoUpdates: clause.AssignmentColumns([]string{"block_time", "block_hash"}),
	}).Create(block)
	if result.Error != nil {
		return fmt.Errorf("failed to store block: %w", result.Error)
	}
	c.currentBlock = block
	return nil
}

// BlockHeight implements types.BlockchainContext
func (c *Context) BlockHeight() uint64 {
	if c.currentBlock != nil {
		return c.currentBlock.Height
	}
	return 0
}

// BlockTime implements types.BlockchainContext
func (c *Context) BlockTime() int64 {
	if c.currentBlock != nil {
		return c.currentBlock.Time
	}
	return 0
}

// BlockHash implements types.BlockchainContext
func (c *Context) BlockHash() core.Hash {
	if c.currentBlock != nil {
		return core.HashFromString(c.currentBlock.Hash)
	}
	return core.ZeroHash
}

// Balance implements types.BlockchainContext
func (c *Context) Balance(addr core.Address) uint64 {
	var balance DBBalance
	result := c.db.Where("address = ?", addr.String()).Limit(1).Find(&balance)
	if result.Error != nil || result.RowsAffected == 0 {
		return 0
	}
	return balance.Amount
}

// SetBalance implements types.BlockchainContext
func (c *Context) SetBalance(addr core.Address, amount uint64) error {
	err := c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance"}),
	}).Create(&DBBalance{Address: addr.String(), Amount: amount}).Error
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	return nil
}

// Transfer implements types.BlockchainContext
func (c *Context) Transfer(from, to core.Address, amount uint64) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		var fromBalance DBBalance
		result := tx.Where("address = ?", from.String()).Limit(1).Find(&fromBalance)
		if result.Error != nil {
			return fmt.Errorf("failed to get sender balance: %w", result.Error)
		}
		if result.RowsAffected == 0 || fromBalance.Amount < amount {
			return core.ErrInsufficientFunds
		}

		if err := tx.Model(&DBBalance{}).Where("address = ?", from.String()).
			Update("balance", fromBalance.Amount-amount).Error; err != nil {
			return fmt.Errorf("failed to update sender balance: %w", err)
		}

		var toBalance DBBalance
		result = tx.Where("address = ?", to.String()).Limit(1).Find(&toBalance)
		if result.Error != nil {
			return fmt.Errorf("failed to get recipient balance: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			toBalance = DBBalance{Address: to.String(), Amount: amount}
			if err := tx.Create(&toBalance).Error; err != nil {
				return fmt.Errorf("failed to create recipient balance: %w", err)
			}
			return nil
		}
		if err := tx.Model(&DBBalance{}).Where("address = ?", to.String()).
			Update("balance", toBalance.Amount+amount).Error; err != nil {
			return fmt.Errorf("failed to update recipient balance: %w", err)
		}
		return nil
	})
}

// GetDataVar implements types.BlockchainContext
func (c *Context) GetDataVar(contract core.ContractID, name string) ([]byte, error) {
	var v DBDataVar
	result := c.db.Where("contract_id = ? AND var_name = ?", contract.String(), name).Limit(1).Find(&v)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get data var: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s in %s", core.ErrVariableNotFound, name, contract)
	}
	return v.Value, nil
}

// SetDataVar implements types.BlockchainContext
func (c *Context) SetDataVar(contract core.ContractID, name string, value []byte) error {
	err := c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contract_id"}, {Name: "var_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"var_value"}),
	}).Create(&DBDataVar{Contract: contract.String(), Name: name, Value: value}).Error
	if err != nil {
		return fmt.Errorf("failed to set data var: %w", err)
	}
	return nil
}

// RecordTransaction implements types.BlockchainContext
func (c *Context) RecordTransaction(tx *types.Transaction) error {
	row := &DBTransaction{
		Hash:        tx.Hash.String(),
		BlockHeight: tx.BlockHeight,
		Sender:      tx.Sender.String(),
		Contract:    tx.Contract,
		Function:    tx.Function,
		Args:        tx.Args,
		Result:      tx.Result,
		Success:     tx.Success,
	}
	if err := c.db.Create(row).Error; err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

// GetTransaction implements types.BlockchainContext
func (c *Context) GetTransaction(hash core.Hash) (*types.Transaction, error) {
	var row DBTransaction
	result := c.db.Where("tx_hash = ?", hash.String()).Limit(1).Find(&row)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrTxNotFound, hash)
	}
	return &types.Transaction{
		Hash:        core.HashFromString(row.Hash),
		BlockHeight: row.BlockHeight,
		Sender:      core.AddressFromString(row.Sender),
		Contract:    row.Contract,
		Function:    row.Function,
		Args:        row.Args,
		Result:      row.Result,
		Success:     row.Success,
	}, nil
}

// Log implements types.BlockchainContext
func (c *Context) Log(txHash core.Hash, events []types.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]DBEvent, 0, len(events))
	for _, ev := range events {
		rows = append(rows, DBEvent{
			TxHash:   txHash.String(),
			Index:    ev.Index,
			Event:    ev.Event,
			Contract: ev.Contract,
			Topic:    ev.Topic,
			Payload:  ev.Payload,
		})
	}
	if err := c.db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to save events: %w", err)
	}
	return nil
}

// Events implements types.BlockchainContext
func (c *Context) Events(txHash core.Hash) ([]types.EventRecord, error) {
	var rows []DBEvent
	if err := c.db.Where("tx_hash = ?", txHash.String()).Order("event_index").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	events := make([]types.EventRecord, 0, len(rows))
	for _, r := range rows {
		events = append(events, types.EventRecord{
			Index:    r.Index,
			Event:    r.Event,
			Contract: r.Contract,
			Topic:    r.Topic,
			Payload:  r.Payload,
		})
	}
	return events, nil
}

// Close releases the database.
func (c *Context) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
