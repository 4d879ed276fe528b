package domain

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

type recordedOp struct {
	operation string
	category  string
	outcome   string
}

type fakeRecorder struct {
	mu  sync.Mutex
	ops []recordedOp
}

func (r *fakeRecorder) Record(operation string, category string, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, recordedOp{operation: operation, category: category, outcome: outcome})
}

func TestAllocatorScenario(t *testing.T) {
	ctx := context.Background()
	allocator := NewAllocator(newMemStore())

	first, err := allocator.Allocate(ctx, CategoryJob, 2025)
	if err != nil {
		t.Fatalf("allocate first: %v", err)
	}
	if first.Serial != 1 || first.FormattedID != "MTL-2025-0001" {
		t.Fatalf("first = %+v, want serial 1 MTL-2025-0001", first)
	}

	second, err := allocator.Allocate(ctx, CategoryJob, 2025)
	if err != nil {
		t.Fatalf("allocate second: %v", err)
	}
	if second.Serial != 2 || second.FormattedID != "MTL-2025-0002" {
		t.Fatalf("second = %+v, want serial 2 MTL-2025-0002", second)
	}

	if err := allocator.Release(ctx, CategoryJob, 2025, "MTL-2025-0002"); err != nil {
		t.Fatalf("release: %v", err)
	}
	counter, err := allocator.Peek(ctx, CategoryJob, 2025)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if counter.Serial != 1 {
		t.Fatalf("counter after release = %d, want 1", counter.Serial)
	}

	third, err := allocator.Allocate(ctx, CategoryJob, 2025)
	if err != nil {
		t.Fatalf("allocate third: %v", err)
	}
	if third.Serial != 2 || third.FormattedID != "MTL-2025-0002" {
		t.Fatalf("third = %+v, want serial 2 MTL-2025-0002", third)
	}
}

type readerStore struct {
	*memStore
	reads int
}

func (r *readerStore) ReadSerial(_ context.Context, key CounterKey) (int64, bool, error) {
	r.reads++
	serial, ok := r.snapshot()[key]
	return serial, ok, nil
}

func TestAllocatorPeekPrefersCounterReader(t *testing.T) {
	store := &readerStore{memStore: newMemStore()}
	key := CounterKey{Category: CategoryRequest, Year: 2025}
	store.serials[key] = 6

	counter, err := NewAllocator(store).Peek(context.Background(), CategoryRequest, 2025)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if counter.Serial != 6 {
		t.Fatalf("serial = %d, want 6", counter.Serial)
	}
	if store.reads != 1 || store.txCount != 0 {
		t.Fatalf("reads = %d txCount = %d, want 1 and 0", store.reads, store.txCount)
	}
}

func TestAllocatorMonotonicSequentialCalls(t *testing.T) {
	allocator := NewAllocator(newMemStore())
	var previous int64
	for i := 0; i < 25; i++ {
		got, err := allocator.Allocate(context.Background(), CategoryRequest, 2025)
		if err != nil {
			t.Fatalf("allocate %d: %v", i, err)
		}
		if got.Serial != previous+1 {
			t.Fatalf("serial = %d, want %d", got.Serial, previous+1)
		}
		previous = got.Serial
	}
}

func TestAllocatorConcurrentCallsAreUnique(t *testing.T) {
	store := newMemStore()
	key := CounterKey{Category: CategoryCertificate, Year: 2025}
	store.serials[key] = 10
	allocator := NewAllocator(store)

	const callers = 64
	serials := make([]int64, callers)
	var group errgroup.Group
	for i := 0; i < callers; i++ {
		group.Go(func() error {
			got, err := allocator.Allocate(context.Background(), CategoryCertificate, 2025)
			if err != nil {
				return err
			}
			serials[i] = got.Serial
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("concurrent allocate: %v", err)
	}

	sort.Slice(serials, func(i, j int) bool { return serials[i] < serials[j] })
	for i, serial := range serials {
		if want := int64(11 + i); serial != want {
			t.Fatalf("serials[%d] = %d, want %d (all: %v)", i, serial, want, serials)
		}
	}
}

func TestAllocatorYearIsolation(t *testing.T) {
	allocator := NewAllocator(newMemStore())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := allocator.Allocate(ctx, CategoryJob, 2025); err != nil {
			t.Fatalf("allocate 2025: %v", err)
		}
	}
	got, err := allocator.Allocate(ctx, CategoryJob, 2026)
	if err != nil {
		t.Fatalf("allocate 2026: %v", err)
	}
	if got.Serial != 1 || got.FormattedID != "MTL-2026-0001" {
		t.Fatalf("2026 allocation = %+v, want first serial", got)
	}
	other, err := allocator.Allocate(ctx, CategoryRequest, 2025)
	if err != nil {
		t.Fatalf("allocate request: %v", err)
	}
	if other.Serial != 1 {
		t.Fatalf("request serial = %d, want independent sequence", other.Serial)
	}
}

func TestAllocatorReleaseFloorsAtZero(t *testing.T) {
	store := newMemStore()
	allocator := NewAllocator(store)

	if err := allocator.Release(context.Background(), CategoryJob, 2025, "MTL-2025-0001"); err != nil {
		t.Fatalf("release on absent counter: %v", err)
	}
	if err := allocator.Release(context.Background(), CategoryJob, 2025, "MTL-2025-0001"); err != nil {
		t.Fatalf("release on zero counter: %v", err)
	}
	key := CounterKey{Category: CategoryJob, Year: 2025}
	serial, ok := store.snapshot()[key]
	if !ok || serial != 0 {
		t.Fatalf("serial = %d (found %v), want 0 row", serial, ok)
	}
}

func TestAllocatorNoDuplicatesAmongLiveIdentifiers(t *testing.T) {
	ctx := context.Background()
	allocator := NewAllocator(newMemStore())
	live := map[string]bool{}

	allocate := func() string {
		t.Helper()
		got, err := allocator.Allocate(ctx, CategoryJob, 2025)
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		if live[got.FormattedID] {
			t.Fatalf("duplicate live identifier %s", got.FormattedID)
		}
		live[got.FormattedID] = true
		return got.FormattedID
	}
	release := func(id string) {
		t.Helper()
		if err := allocator.Release(ctx, CategoryJob, 2025, id); err != nil {
			t.Fatalf("release %s: %v", id, err)
		}
		delete(live, id)
	}

	allocate()
	last := allocate()
	release(last)
	allocate()
	allocate()
	if len(live) != 3 {
		t.Fatalf("live identifiers = %v", live)
	}
}

func TestAllocatorReleaseOlderIdentifierSkipsLiveSerial(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	allocator := NewAllocator(store)

	var ids []Identifier
	for i := 0; i < 2; i++ {
		got, err := allocator.Allocate(ctx, CategoryJob, 2025)
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		id := Identifier{Category: CategoryJob, Year: 2025, Serial: got.Serial}
		store.held[id] = true
		ids = append(ids, id)
	}

	if err := allocator.Release(ctx, CategoryJob, 2025, ids[0].String()); err != nil {
		t.Fatalf("release: %v", err)
	}
	delete(store.held, ids[0])

	for _, want := range []string{"MTL-2025-0003", "MTL-2025-0004"} {
		got, err := allocator.Allocate(ctx, CategoryJob, 2025)
		if err != nil {
			t.Fatalf("allocate after release: %v", err)
		}
		if got.FormattedID != want {
			t.Fatalf("allocate = %s, want %s", got.FormattedID, want)
		}
		id := Identifier{Category: CategoryJob, Year: 2025, Serial: got.Serial}
		if store.held[id] {
			t.Fatalf("allocated live identifier %s", got.FormattedID)
		}
		store.held[id] = true
	}
}

func TestAllocatorFailedCommitLeavesCounterUnchanged(t *testing.T) {
	store := newMemStore()
	key := CounterKey{Category: CategoryJob, Year: 2025}
	store.serials[key] = 7
	before := store.snapshot()
	store.commitErr = &TransactionConflictError{Attempts: 5, Cause: errors.New("database is locked")}
	allocator := NewAllocator(store)

	got, err := allocator.Allocate(context.Background(), CategoryJob, 2025)
	if !errors.Is(err, ErrTransactionConflict) {
		t.Fatalf("allocate error = %v, want conflict", err)
	}
	if got != (Allocation{}) {
		t.Fatalf("allocation = %+v, want zero value", got)
	}
	if err := allocator.Release(context.Background(), CategoryJob, 2025, "MTL-2025-0007"); !errors.Is(err, ErrTransactionConflict) {
		t.Fatalf("release error = %v, want conflict", err)
	}
	if after := store.snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("counters changed: before %v after %v", before, after)
	}
}

func TestAllocatorReleaseRejectsMalformedBeforeStore(t *testing.T) {
	store := newMemStore()
	allocator := NewAllocator(store)

	for _, id := range []string{"MTL-2025-1", "REQ-2025-0001", "MTL-2024-0001", "garbage"} {
		err := allocator.Release(context.Background(), CategoryJob, 2025, id)
		if !errors.Is(err, ErrMalformedIdentifier) {
			t.Fatalf("release %q error = %v, want malformed", id, err)
		}
	}
	if store.txCount != 0 {
		t.Fatalf("transactions = %d, want 0", store.txCount)
	}
}

func TestAllocatorRejectsInvalidKeyBeforeStore(t *testing.T) {
	store := newMemStore()
	allocator := NewAllocator(store)

	if _, err := allocator.Allocate(context.Background(), "invoice", 2025); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("unknown category error = %v", err)
	}
	if _, err := allocator.Allocate(context.Background(), CategoryJob, 99); !errors.Is(err, ErrInvalidYear) {
		t.Fatalf("invalid year error = %v", err)
	}
	if _, err := allocator.Peek(context.Background(), "invoice", 2025); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("peek unknown category error = %v", err)
	}
	if store.txCount != 0 {
		t.Fatalf("transactions = %d, want 0", store.txCount)
	}
}

func TestAllocatorWithoutStore(t *testing.T) {
	var nilAllocator *Allocator
	if _, err := nilAllocator.Allocate(context.Background(), CategoryJob, 2025); !errors.Is(err, ErrTransactorNotConfigured) {
		t.Fatalf("nil allocator error = %v", err)
	}
	if err := NewAllocator(nil).Release(context.Background(), CategoryJob, 2025, "MTL-2025-0001"); !errors.Is(err, ErrTransactorNotConfigured) {
		t.Fatalf("nil store error = %v", err)
	}
}

func TestAllocatorRecordsOutcomes(t *testing.T) {
	recorder := &fakeRecorder{}
	store := newMemStore()
	allocator := NewAllocator(store, WithRecorder(recorder))
	ctx := context.Background()

	_, _ = allocator.Allocate(ctx, CategoryJob, 2025)
	_ = allocator.Release(ctx, CategoryJob, 2025, "bad")
	store.commitErr = &TransactionConflictError{Attempts: 2}
	_, _ = allocator.Allocate(ctx, CategoryJob, 2025)

	want := []recordedOp{
		{operation: OperationAllocate, category: "job", outcome: OutcomeOK},
		{operation: OperationRelease, category: "job", outcome: OutcomeMalformed},
		{operation: OperationAllocate, category: "job", outcome: OutcomeConflict},
	}
	if !reflect.DeepEqual(recorder.ops, want) {
		t.Fatalf("recorded = %+v, want %+v", recorder.ops, want)
	}
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{&MalformedIdentifierError{Value: "x", Reason: "y"}, OutcomeMalformed},
		{&TransactionConflictError{Attempts: 1}, OutcomeConflict},
		{ErrSequenceExhausted, OutcomeExhausted},
		{ErrInvalidYear, OutcomeInvalid},
		{errors.New("boom"), OutcomeError},
	}
	for _, tc := range tests {
		if got := OutcomeOf(tc.err); got != tc.want {
			t.Fatalf("OutcomeOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
