package event

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
)

// Bus provides pub/sub event distribution with fan-out support.
type Bus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, evt Event) error

	// Subscribe creates a subscription for specific event types.
	Subscribe(types []string, handler Handler) Subscription

	// SubscribeAll subscribes to all events.
	SubscribeAll(handler Handler) Subscription

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe removes the subscription.
	Unsubscribe()
}

// BusConfig configures bus behavior.
type BusConfig struct {
	// BufferSize is the channel buffer size per subscription.
	// Default: 256
	BufferSize int

	// NonBlocking makes Publish drop events when a subscriber's buffer is full.
	// Default: false (blocking)
	NonBlocking bool

	// OnDrop is called when an event is dropped (non-blocking mode).
	OnDrop func(evt Event, subscriberID string)

	// OnError is called when a handler returns an error.
	OnError func(evt Event, subscriberID string, err error)
}

// DefaultBusConfig provides reasonable defaults.
var DefaultBusConfig = BusConfig{
	BufferSize: 256,
}

// LocalBus is an in-memory event bus implementation.
type LocalBus struct {
	config BusConfig

	mu            sync.RWMutex
	subscriptions map[string]*subscription

	nextID  atomic.Int64
	closed  atomic.Bool
	closeCh chan struct{}
}

var _ Bus = (*LocalBus)(nil)

// NewBus creates a new local event bus.
func NewBus(config BusConfig) *LocalBus {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBusConfig.BufferSize
	}

	return &LocalBus{
		config:        config,
		subscriptions: make(map[string]*subscription),
		closeCh:       make(chan struct{}),
	}
}

type subscription struct {
	id      string
	types   []string // empty = all types
	handler Handler
	events  chan Event
	done    chan struct{}
	once    sync.Once
	bus     *LocalBus
}

func (s *subscription) matches(eventType string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, eventType)
}

// Publish sends an event to all matching subscribers.
func (b *LocalBus) Publish(ctx context.Context, evt Event) error {
	if b.closed.Load() {
		return &PublishError{EventID: evt.ID(), EventType: evt.Type(), Err: ErrBusClosed}
	}

	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		if sub.matches(evt.Type()) {
			subs = append(subs, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		if b.config.NonBlocking {
			select {
			case sub.events <- evt:
			default:
				if b.config.OnDrop != nil {
					b.config.OnDrop(evt, sub.id)
				}
			}
			continue
		}

		select {
		case sub.events <- evt:
		case <-sub.done:
		case <-ctx.Done():
			return &PublishError{EventID: evt.ID(), EventType: evt.Type(), Err: ctx.Err()}
		case <-b.closeCh:
			return &PublishError{EventID: evt.ID(), EventType: evt.Type(), Err: ErrBusClosed}
		}
	}

	return nil
}

// Subscribe creates a subscription for specific event types.
// Returns nil if the bus is closed.
func (b *LocalBus) Subscribe(types []string, handler Handler) Subscription {
	return b.subscribe(append([]string(nil), types...), handler)
}

// SubscribeAll subscribes to all events.
// Returns nil if the bus is closed.
func (b *LocalBus) SubscribeAll(handler Handler) Subscription {
	return b.subscribe(nil, handler)
}

func (b *LocalBus) subscribe(types []string, handler Handler) Subscription {
	if b.closed.Load() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{
		id:      strconv.FormatInt(b.nextID.Add(1), 10),
		types:   types,
		handler: handler,
		events:  make(chan Event, b.config.BufferSize),
		done:    make(chan struct{}),
		bus:     b,
	}
	b.subscriptions[sub.id] = sub

	go sub.process()

	return sub
}

// Close shuts down the bus. Events still buffered are discarded.
func (b *LocalBus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(b.closeCh)

	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscriptions {
		sub.stop()
		delete(b.subscriptions, id)
	}

	return nil
}

func (s *subscription) process() {
	for {
		select {
		case evt := <-s.events:
			if err := s.handler.Handle(context.Background(), evt); err != nil && s.bus.config.OnError != nil {
				s.bus.config.OnError(evt, s.id, err)
			}
		case <-s.done:
			return
		}
	}
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// Unsubscribe removes the subscription.
func (s *subscription) Unsubscribe() {
	s.bus.mu.Lock()
	delete(s.bus.subscriptions, s.id)
	s.bus.mu.Unlock()

	s.stop()
}
