//////////////////////////////////////////////////////////////////////////////
//
// Broadcast values from one writer to multiple subscribers.
//
// Each subscriber has its own channel (i.e. queue). When a writer
// broadcasts a value, the value is added to each subscriber's channel.
// Each subscriber may specify the maximum number of values it wishes to
// buffer; once that capacity is reached, the oldest buffered value is
// dropped for each new value published.
//
// This backs the PeerStateChange event stream the stream multiplexer
// drains, generalized with a type parameter so the same one-to-many
// delivery mechanism carries raw media payloads or structured events.
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package relay

import (
	"sync"
)

// EventBus implements a one-to-many publish/subscribe channel for values
// of type T.
type EventBus[T any] struct {
	mutex       sync.RWMutex
	subscribers []chan T
	closed      bool
}

// NewEventBus instantiates a new event bus.
func NewEventBus[T any]() *EventBus[T] {
	return &EventBus[T]{}
}

// Close the bus. Every subscriber channel is closed (values already
// buffered in it can still be received), and further Publish calls are
// silently dropped.
func (b *EventBus[T]) Close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, subscriber := range b.subscribers {
		close(subscriber)
	}
	b.subscribers = nil
}

// Subscribe to published values, buffering up to n of them for this
// subscriber.
func (b *EventBus[T]) Subscribe(n int) <-chan T {
	if n < 1 {
		panic("relay: malformed buffer size")
	}

	channel := make(chan T, n)
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		close(channel)
		return channel
	}
	b.subscribers = append(b.subscribers, channel)
	return channel
}

// Publish a value to every current subscriber. A backlogged subscriber
// has its oldest buffered value dropped to make room for the new one,
// rather than blocking the publisher.
func (b *EventBus[T]) Publish(v T) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	for _, subscriber := range b.subscribers {
		select {
		case subscriber <- v:
		default:
			select {
			case <-subscriber:
			default:
			}
			select {
			case subscriber <- v:
			default:
			}
		}
	}
}
