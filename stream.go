package tokenmeter

import (
	"context"
	"sync"
)

// Stream is a finite, single-pass sequence of provider-shaped chunks.
// Recv returns the next chunk or a terminal error (io.EOF on natural end,
// the upstream error otherwise). Close releases the stream; callers that
// stop consuming early must still call Close.
type Stream[T any] interface {
	Recv() (T, error)
	Close() error
}

// meteredStream passes chunks through unchanged while a shadow accumulator
// inspects each one for usage signals. The caller-visible sequence is the
// primary invariant: chunks are never mutated, dropped, or reordered, and
// metering adds no latency beyond the inspection of the chunk in hand.
//
// Exactly one usage emission happens per stream, on the terminal Recv error
// or on Close, whichever comes first. An early Close after partial
// consumption emits whatever was accumulated, possibly zero.
type meteredStream[T any] struct {
	inner    Stream[T]
	meter    *Meter
	ctx      context.Context
	customer string
	observe  func(T, *UsageAccumulator)

	mu      sync.Mutex
	acc     UsageAccumulator
	emitted bool
}

// NewMeteredStream wraps an already-open provider stream. The accumulator is
// seeded with the provider tag and the model from the request; observe runs
// on every chunk and may overwrite both from chunk data.
func NewMeteredStream[T any](ctx context.Context, m *Meter, customer string, provider Provider, model string, inner Stream[T], observe func(T, *UsageAccumulator)) Stream[T] {
	return &meteredStream[T]{
		inner:    inner,
		meter:    m,
		ctx:      ctx,
		customer: customer,
		observe:  observe,
		acc:      UsageAccumulator{Provider: provider, Model: model},
	}
}

// MeterStream wraps a streaming provider call: the customer is resolved
// eagerly, call opens the upstream stream, and the returned stream meters
// usage as it is consumed. Errors opening the stream propagate unchanged
// with no emission.
func MeterStream[T any](ctx context.Context, m *Meter, provider Provider, model string, call func(context.Context) (Stream[T], error), observe func(T, *UsageAccumulator)) (Stream[T], error) {
	customer, err := m.resolveCustomer(ctx)
	if err != nil {
		return nil, err
	}
	inner, err := call(ctx)
	if err != nil {
		return nil, err
	}
	return NewMeteredStream(ctx, m, customer, provider, model, inner, observe), nil
}

func (s *meteredStream[T]) Recv() (T, error) {
	chunk, err := s.inner.Recv()
	if err != nil {
		// Terminal: natural end or upstream error. Emit with whatever
		// partial usage was accumulated, then forward unchanged.
		s.emit()
		return chunk, err
	}
	s.mu.Lock()
	s.observe(chunk, &s.acc)
	s.mu.Unlock()
	return chunk, nil
}

func (s *meteredStream[T]) Close() error {
	err := s.inner.Close()
	s.emit()
	return err
}

func (s *meteredStream[T]) emit() {
	s.mu.Lock()
	if s.emitted {
		s.mu.Unlock()
		return
	}
	s.emitted = true
	info := s.acc.Usage()
	s.mu.Unlock()
	s.meter.RecordUsageAsync(s.ctx, info, s.customer)
}
