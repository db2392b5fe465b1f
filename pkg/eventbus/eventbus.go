// Package eventbus implements the kernel's per-task, in-process live
// event fan-out: subscribers register for a taskId and receive
// every LiveEvent published for it in publish order, without ever
// blocking the publisher.
package eventbus

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/agentkernel/kernel/pkg/models"
)

// subscriberQueueSize bounds how many unread events a single subscriber
// may lag by before it is considered overflowing.
const subscriberQueueSize = 256

// LiveEvent is the in-process delivery shape of a TaskEvent, carrying the
// durable id already assigned by the Store: never publish without the id.
type LiveEvent struct {
	ID        int64
	TaskID    string
	EventName models.EventName
	Type      string
	Payload   map[string]any
}

// Subscription is returned by Subscribe. Events arrive on C; Overflow
// closes when the subscriber has lagged past subscriberQueueSize and been
// dropped. Unsubscribe must be called exactly once.
type Subscription struct {
	C           <-chan LiveEvent
	Overflow    <-chan struct{}
	Unsubscribe func()
}

type subscriber struct {
	id       uint64
	ch       chan LiveEvent
	overflow chan struct{}
	dropped  atomic.Bool
}

// Bus is the per-task fan-out registry. Zero value is not usable; use New.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]map[uint64]*subscriber
	nextID      uint64
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string]map[uint64]*subscriber)}
}

// Subscribe registers a listener for taskId's live events.
func (b *Bus) Subscribe(taskID string) Subscription {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	sub := &subscriber{
		id:       id,
		ch:       make(chan LiveEvent, subscriberQueueSize),
		overflow: make(chan struct{}),
	}
	if b.subscribers[taskID] == nil {
		b.subscribers[taskID] = make(map[uint64]*subscriber)
	}
	b.subscribers[taskID][id] = sub
	b.mu.Unlock()

	return Subscription{
		C:        sub.ch,
		Overflow: sub.overflow,
		Unsubscribe: func() {
			b.mu.Lock()
			delete(b.subscribers[taskID], id)
			if len(b.subscribers[taskID]) == 0 {
				delete(b.subscribers, taskID)
			}
			b.mu.Unlock()
		},
	}
}

// Publish delivers ev to every current subscriber of ev.TaskID. It never
// blocks: a subscriber whose queue is full is dropped (its Overflow
// channel is closed) rather than stalling delivery to everyone else.
//
// Callers must have already durably appended the event (and set ev.ID
// from the Store) before calling Publish — the bus itself does not
// persist anything.
func (b *Bus) Publish(ev LiveEvent) {
	b.mu.RLock()
	taskSubs := b.subscribers[ev.TaskID]
	subs := make([]*subscriber, 0, len(taskSubs))
	for _, s := range taskSubs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		if s.dropped.Load() {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			if s.dropped.CompareAndSwap(false, true) {
				close(s.overflow)
				slog.Warn("eventbus: subscriber overflow, dropping", "task_id", ev.TaskID, "subscriber_id", s.id)
			}
		}
	}
}
