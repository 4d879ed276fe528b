package domain

import (
	"context"
	"fmt"
)

// CounterKey identifies one independent sequence.
type CounterKey struct {
	Category Category
	Year     int
}

// NewCounterKey validates category and year.
func NewCounterKey(category Category, year int) (CounterKey, error) {
	if !category.Valid() {
		return CounterKey{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if err := ValidateYear(year); err != nil {
		return CounterKey{}, err
	}
	return CounterKey{Category: category, Year: year}, nil
}

func (k CounterKey) String() string {
	return fmt.Sprintf("%s/%d", k.Category, k.Year)
}

// Counter is the stored serial for one key. Serial is the last serial handed
// out net of releases and is never negative.
type Counter struct {
	Key    CounterKey
	Serial int64
}

// CounterTx is the store as seen from inside one transaction.
type CounterTx interface {
	// LoadSerial returns the stored serial; found is false when the key has
	// never been written.
	LoadSerial(ctx context.Context, key CounterKey) (serial int64, found bool, err error)
	// StoreSerial creates or overwrites the serial for key.
	StoreSerial(ctx context.Context, key CounterKey, serial int64) error
}

// HeldSerials is implemented by transactions that can see the records owning
// issued identifiers. Next skips serials a live record still holds.
type HeldSerials interface {
	SerialHeld(ctx context.Context, key CounterKey, serial int64) (bool, error)
}

// CounterReader reads a committed serial without opening a write
// transaction.
type CounterReader interface {
	ReadSerial(ctx context.Context, key CounterKey) (serial int64, found bool, err error)
}

// Transactor runs fn atomically: writes made through tx become visible only
// if fn returns nil and the commit succeeds. Implementations retry write
// conflicts themselves and report an exhausted retry budget as a
// *TransactionConflictError. fn may run more than once.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx CounterTx) error) error
}

// Next advances the counter for key and returns the new serial. An absent
// counter is treated as 0, so the first serial is 1. When tx implements
// HeldSerials, serials still owned by a live record are skipped and left as
// gaps.
func Next(ctx context.Context, tx CounterTx, key CounterKey) (int64, error) {
	current, _, err := tx.LoadSerial(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("load counter %s: %w", key, err)
	}
	held, _ := tx.(HeldSerials)
	next := current
	for {
		next++
		if next > key.Category.MaxSerial() {
			return 0, fmt.Errorf("%w: %s at %d", ErrSequenceExhausted, key, current)
		}
		if held == nil {
			break
		}
		taken, err := held.SerialHeld(ctx, key, next)
		if err != nil {
			return 0, fmt.Errorf("check serial %s/%d: %w", key, next, err)
		}
		if !taken {
			break
		}
	}
	if err := tx.StoreSerial(ctx, key, next); err != nil {
		return 0, fmt.Errorf("store counter %s: %w", key, err)
	}
	return next, nil
}

// Rewind moves the counter for key back by one, never below zero, and returns
// the stored serial. An absent counter is created at zero.
func Rewind(ctx context.Context, tx CounterTx, key CounterKey) (int64, error) {
	current, _, err := tx.LoadSerial(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("load counter %s: %w", key, err)
	}
	next := current - 1
	if next < 0 {
		next = 0
	}
	if err := tx.StoreSerial(ctx, key, next); err != nil {
		return 0, fmt.Errorf("store counter %s: %w", key, err)
	}
	return next, nil
}
