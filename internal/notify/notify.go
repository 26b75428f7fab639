// Package notify delivers store change descriptions to subscribers.
package notify

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/socialfeed/internal/entities"
	"github.com/Decentr-net/socialfeed/internal/metrics"
)

var log = logrus.WithField("package", "notify")

// Recorder receives changes as they are applied.
type Recorder interface {
	Record(c entities.Change)
}

// Journal accumulates changes of one operation until they are flushed.
// It is not safe for concurrent use.
type Journal struct {
	changes []entities.Change
}

// NewJournal ...
func NewJournal() *Journal {
	return &Journal{}
}

// Record ...
func (j *Journal) Record(c entities.Change) {
	j.changes = append(j.changes, c)
}

// Flush returns recorded changes in order and resets the journal.
func (j *Journal) Flush() []entities.Change {
	out := j.changes
	j.changes = nil

	return out
}

// Broker fans changes out to subscribers.
// Publish never blocks: a change that does not fit into a subscriber's buffer is dropped.
type Broker struct {
	mu     sync.Mutex
	next   uint64
	subs   map[uint64]chan entities.Change
	closed bool
}

// NewBroker ...
func NewBroker() *Broker {
	return &Broker{
		subs: map[uint64]chan entities.Change{},
	}
}

// Subscribe returns a channel of changes and a function which cancels the subscription.
func (b *Broker) Subscribe(buffer int) (<-chan entities.Change, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan entities.Change, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Publish sends changes to every subscriber in order.
func (b *Broker) Publish(changes ...entities.Change) {
	if len(changes) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range changes {
		for id, ch := range b.subs {
			select {
			case ch <- c:
			default:
				metrics.ChangesDropped.Inc()
				log.WithField("subscriber", id).WithField("kind", c.Kind).WithField("id", c.ID).
					Warn("subscriber buffer is full, change dropped")
			}
		}
	}
}

// Close closes every subscription. Following Subscribe calls return closed channels.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.closed = true
}
