// Package security tracks the execution cost of contract calls and
// enforces per-call limits.
package security

import (
	"errors"
	"fmt"
)

var ErrCostLimitExceeded = errors.New("cost limit exceeded")

// Limits bounds the cost of a single call.
type Limits struct {
	Runtime     uint64 `yaml:"runtime"`
	ReadCount   uint64 `yaml:"read_count"`
	ReadLength  uint64 `yaml:"read_length"`
	WriteCount  uint64 `yaml:"write_count"`
	WriteLength uint64 `yaml:"write_length"`
}

// DefaultLimits returns the per-transaction limits of a standard block.
func DefaultLimits() Limits {
	return Limits{
		Runtime:     5_000_000_000,
		ReadCount:   15_000,
		ReadLength:  100_000_000,
		WriteCount:  15_000,
		WriteLength: 15_000_000,
	}
}

// Costs is the cost accumulated by a call.
type Costs struct {
	Runtime     uint64
	ReadCount   uint64
	ReadLength  uint64
	WriteCount  uint64
	WriteLength uint64
}

// Tracker accumulates the costs of one call.
type Tracker struct {
	limits Limits
	costs  Costs
}

// NewTracker creates a tracker. Zero fields in limits are unlimited.
func NewTracker(limits Limits) *Tracker {
	return &Tracker{limits: limits}
}

// Costs returns the costs so far.
func (t *Tracker) Costs() Costs {
	return t.costs
}

// Runtime charges n runtime units.
func (t *Tracker) Runtime(n uint64) error {
	t.costs.Runtime += n
	return check("runtime", t.costs.Runtime, t.limits.Runtime)
}

// Read charges one storage read of length bytes.
func (t *Tracker) Read(length int) error {
	t.costs.ReadCount++
	t.costs.ReadLength += uint64(length)
	if err := check("read_count", t.costs.ReadCount, t.limits.ReadCount); err != nil {
		return err
	}
	return check("read_length", t.costs.ReadLength, t.limits.ReadLength)
}

// Write charges one storage write of length bytes.
func (t *Tracker) Write(length int) error {
	t.costs.WriteCount++
	t.costs.WriteLength += uint64(length)
	if err := check("write_count", t.costs.WriteCount, t.limits.WriteCount); err != nil {
		return err
	}
	return check("write_length", t.costs.WriteLength, t.limits.WriteLength)
}

func check(dimension string, used, limit uint64) error {
	if limit != 0 && used > limit {
		return fmt.Errorf("%w: %s %d > %d", ErrCostLimitExceeded, dimension, used, limit)
	}
	return nil
}
