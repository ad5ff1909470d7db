package events

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	ferrors "git.home.luguber.info/inful/tccollector/internal/foundation/errors"
)

// Bus fans job lifecycle events out to typed in-process subscribers.
//
// Subscribing to an interface type (JobEvent) receives every event whose
// concrete type implements it. Publish blocks until every matching
// subscriber accepted the event or ctx is canceled, so slow listeners
// apply backpressure to the queue. Nothing is persisted.
type Bus struct {
	mu     sync.RWMutex
	topics map[reflect.Type]map[uint64]receiver
	seq    atomic.Uint64
	closed atomic.Bool
	once   sync.Once
}

type receiver interface {
	deliver(ctx context.Context, evt any) error
	shutdown()
}

type subscription[T any] struct {
	typ  reflect.Type
	ch   chan T
	done chan struct{}
	// mu orders sends against the channel close.
	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

func newSubscription[T any](buffer int) *subscription[T] {
	return &subscription[T]{typ: reflect.TypeFor[T](), ch: make(chan T, buffer), done: make(chan struct{})}
}

func (s *subscription[T]) deliver(ctx context.Context, evt any) error {
	v, ok := evt.(T)
	if !ok {
		return ferrors.InternalError("event type mismatch").
			WithContext("expected", s.typ.String()).
			WithContext("actual", reflect.TypeOf(evt).String()).
			Build()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- v:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ferrors.WrapError(ctx.Err(), ferrors.CategoryRuntime, "event publish canceled").
			WithContext("event_type", s.typ.String()).
			Build()
	}
}

// shutdown closes the channel. Buffered events stay readable.
func (s *subscription[T]) shutdown() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

func NewBus() *Bus {
	return &Bus{topics: make(map[reflect.Type]map[uint64]receiver)}
}

// Subscribe registers a channel for events of type T. The returned func
// unsubscribes and closes the channel; it is safe to call more than once.
func Subscribe[T any](b *Bus, buffer int) (<-chan T, func()) {
	sub := newSubscription[T](buffer)

	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		sub.shutdown()
		return sub.ch, func() {}
	}
	id := b.seq.Add(1)
	if b.topics[sub.typ] == nil {
		b.topics[sub.typ] = make(map[uint64]receiver)
	}
	b.topics[sub.typ][id] = sub
	b.mu.Unlock()

	return sub.ch, func() { b.remove(sub.typ, id, sub) }
}

func (b *Bus) remove(typ reflect.Type, id uint64, r receiver) {
	b.mu.Lock()
	if subs, ok := b.topics[typ]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(b.topics, typ)
		}
	}
	b.mu.Unlock()
	r.shutdown()
}

// SubscriberCount returns the number of live subscriptions for exactly T.
func SubscriberCount[T any](b *Bus) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[reflect.TypeFor[T]()])
}

func matches(subType, evtType reflect.Type) bool {
	if subType == evtType {
		return true
	}
	return subType.Kind() == reflect.Interface && evtType.Implements(subType)
}

// Publish delivers evt to every matching subscriber in turn.
func (b *Bus) Publish(ctx context.Context, evt any) error {
	switch {
	case evt == nil:
		return ferrors.ValidationError("event cannot be nil").Build()
	case ctx == nil:
		return ferrors.ValidationError("context cannot be nil").Build()
	case b.closed.Load():
		return ferrors.RuntimeError("event bus is closed").Build()
	}

	evtType := reflect.TypeOf(evt)
	b.mu.RLock()
	var targets []receiver
	for typ, subs := range b.topics {
		if !matches(typ, evtType) {
			continue
		}
		for _, r := range subs {
			targets = append(targets, r)
		}
	}
	b.mu.RUnlock()

	for _, r := range targets {
		if err := r.deliver(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// Closed reports whether Close has been called.
func (b *Bus) Closed() bool { return b.closed.Load() }

// Close rejects further publishes and closes every subscription channel.
// Publishers must be stopped first.
func (b *Bus) Close() {
	b.once.Do(func() {
		b.mu.Lock()
		b.closed.Store(true)
		topics := b.topics
		b.topics = make(map[reflect.Type]map[uint64]receiver)
		b.mu.Unlock()

		for _, subs := range topics {
			for _, r := range subs {
				r.shutdown()
			}
		}
	})
}

// Listen subscribes to T and calls fn for each event on a dedicated
// goroutine until ctx is done or the bus closes. Events already buffered
// when ctx is done are still handed to fn. The returned channel is closed
// once the goroutine has exited.
func Listen[T any](ctx context.Context, b *Bus, buffer int, fn func(T)) <-chan struct{} {
	ch, unsubscribe := Subscribe[T](b, buffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				unsubscribe()
				for evt := range ch {
					fn(evt)
				}
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				fn(evt)
			}
		}
	}()
	return done
}
