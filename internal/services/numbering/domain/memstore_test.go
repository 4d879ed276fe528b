package domain

import (
	"context"
	"sync"
)

// memStore is a serializable in-memory Transactor. Writes are staged per
// transaction and applied only when fn succeeds and no commit failure is
// injected. held stands in for serials owned by live documents.
type memStore struct {
	mu         sync.Mutex
	serials    map[CounterKey]int64
	held       map[Identifier]bool
	commitErr  error
	txCount    int
	loadErr    error
	storeCalls int
}

func newMemStore() *memStore {
	return &memStore{serials: make(map[CounterKey]int64), held: make(map[Identifier]bool)}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(context.Context, CounterTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++

	tx := &memTx{store: m, writes: make(map[CounterKey]int64)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if m.commitErr != nil {
		return m.commitErr
	}
	for key, serial := range tx.writes {
		m.serials[key] = serial
	}
	return nil
}

func (m *memStore) snapshot() map[CounterKey]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[CounterKey]int64, len(m.serials))
	for key, serial := range m.serials {
		out[key] = serial
	}
	return out
}

type memTx struct {
	store  *memStore
	writes map[CounterKey]int64
}

func (tx *memTx) LoadSerial(_ context.Context, key CounterKey) (int64, bool, error) {
	if tx.store.loadErr != nil {
		return 0, false, tx.store.loadErr
	}
	if serial, ok := tx.writes[key]; ok {
		return serial, true, nil
	}
	serial, ok := tx.store.serials[key]
	return serial, ok, nil
}

func (tx *memTx) StoreSerial(_ context.Context, key CounterKey, serial int64) error {
	tx.store.storeCalls++
	tx.writes[key] = serial
	return nil
}

func (tx *memTx) SerialHeld(_ context.Context, key CounterKey, serial int64) (bool, error) {
	return tx.store.held[Identifier{Category: key.Category, Year: key.Year, Serial: serial}], nil
}
