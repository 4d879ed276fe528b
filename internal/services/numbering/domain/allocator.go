package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/mtlab/lims/internal/services/numbering/domain"

// Operation labels passed to a Recorder.
const (
	OperationAllocate = "allocate"
	OperationRelease  = "release"
)

// Outcome labels passed to a Recorder.
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid"
	OutcomeMalformed = "malformed"
	OutcomeConflict  = "conflict"
	OutcomeExhausted = "exhausted"
	OutcomeError     = "error"
)

// Allocation is the result of one successful Allocate.
type Allocation struct {
	Key         CounterKey
	Serial      int64
	FormattedID string
}

// Recorder observes finished allocator operations.
type Recorder interface {
	Record(operation string, category string, outcome string, elapsed time.Duration)
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithRecorder reports every operation outcome to r.
func WithRecorder(r Recorder) Option {
	return func(a *Allocator) {
		a.recorder = r
	}
}

// WithTracer replaces the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(a *Allocator) {
		if t != nil {
			a.tracer = t
		}
	}
}

// Allocator hands out and releases serials. It holds no counter state of its
// own; every read and write goes through the Transactor.
type Allocator struct {
	store    Transactor
	recorder Recorder
	tracer   trace.Tracer
	now      func() time.Time
}

// NewAllocator creates an allocator over store.
func NewAllocator(store Transactor, opts ...Option) *Allocator {
	a := &Allocator{
		store:  store,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Allocate reserves the next serial for (category, year). The serial is
// durable once Allocate returns; on error nothing was reserved.
func (a *Allocator) Allocate(ctx context.Context, category Category, year int) (Allocation, error) {
	if a == nil {
		return Allocation{}, ErrTransactorNotConfigured
	}
	started := a.now()
	ctx, span := a.startSpan(ctx, "numbering.Allocate", category, year)
	defer span.End()

	allocation, err := a.allocate(ctx, category, year)
	a.finish(span, OperationAllocate, category, started, err)
	if err != nil {
		return Allocation{}, err
	}
	span.SetAttributes(attribute.Int64("numbering.serial", allocation.Serial))
	return allocation, nil
}

func (a *Allocator) allocate(ctx context.Context, category Category, year int) (Allocation, error) {
	if a.store == nil {
		return Allocation{}, ErrTransactorNotConfigured
	}
	key, err := NewCounterKey(category, year)
	if err != nil {
		return Allocation{}, err
	}

	var serial int64
	err = a.store.WithinTx(ctx, func(ctx context.Context, tx CounterTx) error {
		next, err := Next(ctx, tx, key)
		if err != nil {
			return err
		}
		serial = next
		return nil
	})
	if err != nil {
		return Allocation{}, err
	}

	id := Identifier{Category: category, Year: year, Serial: serial}
	return Allocation{Key: key, Serial: serial, FormattedID: id.String()}, nil
}

// Release validates formattedID against (category, year) and then decrements
// the counter, clamping at zero. A malformed identifier aborts before the
// store is touched.
func (a *Allocator) Release(ctx context.Context, category Category, year int, formattedID string) error {
	if a == nil {
		return ErrTransactorNotConfigured
	}
	started := a.now()
	ctx, span := a.startSpan(ctx, "numbering.Release", category, year)
	defer span.End()

	err := a.release(ctx, category, year, formattedID)
	a.finish(span, OperationRelease, category, started, err)
	return err
}

func (a *Allocator) release(ctx context.Context, category Category, year int, formattedID string) error {
	if a.store == nil {
		return ErrTransactorNotConfigured
	}
	key, err := NewCounterKey(category, year)
	if err != nil {
		return err
	}
	if _, err := ParseIdentifierFor(category, year, formattedID); err != nil {
		return err
	}
	return a.store.WithinTx(ctx, func(ctx context.Context, tx CounterTx) error {
		_, err := Rewind(ctx, tx, key)
		return err
	})
}

// Peek reads the counter for (category, year) without changing it. An absent
// counter reads as serial 0. Stores implementing CounterReader are read
// without a write transaction.
func (a *Allocator) Peek(ctx context.Context, category Category, year int) (Counter, error) {
	if a == nil || a.store == nil {
		return Counter{}, ErrTransactorNotConfigured
	}
	key, err := NewCounterKey(category, year)
	if err != nil {
		return Counter{}, err
	}
	counter := Counter{Key: key}
	if reader, ok := a.store.(CounterReader); ok {
		serial, _, err := reader.ReadSerial(ctx, key)
		if err != nil {
			return Counter{}, fmt.Errorf("read counter %s: %w", key, err)
		}
		counter.Serial = serial
		return counter, nil
	}
	err = a.store.WithinTx(ctx, func(ctx context.Context, tx CounterTx) error {
		serial, _, err := tx.LoadSerial(ctx, key)
		if err != nil {
			return err
		}
		counter.Serial = serial
		return nil
	})
	if err != nil {
		return Counter{}, err
	}
	return counter, nil
}

func (a *Allocator) startSpan(ctx context.Context, name string, category Category, year int) (context.Context, trace.Span) {
	tracer := a.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("numbering.category", string(category)),
		attribute.Int("numbering.year", year),
	))
}

func (a *Allocator) finish(span trace.Span, operation string, category Category, started time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if a.recorder == nil {
		return
	}
	a.recorder.Record(operation, string(category), OutcomeOf(err), a.now().Sub(started))
}

// OutcomeOf classifies err into one of the Outcome labels.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrMalformedIdentifier):
		return OutcomeMalformed
	case errors.Is(err, ErrTransactionConflict):
		return OutcomeConflict
	case errors.Is(err, ErrSequenceExhausted):
		return OutcomeExhausted
	case errors.Is(err, ErrUnknownCategory), errors.Is(err, ErrInvalidYear):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
