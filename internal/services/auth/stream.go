package auth

import (
	"context"
	"sync"

	"github.com/citypulse/server/internal/models"
)

// StateChange reports that the signed-in user of a device changed. A nil User
// means the device signed out.
type StateChange struct {
	DeviceID string
	User     *models.User
}

// Delivery wraps a change handed to one subscriber. The subscriber must call
// Ack once it has applied the change.
type Delivery struct {
	Change StateChange
	done   chan struct{}
	once   sync.Once
}

func (d *Delivery) Ack() {
	d.once.Do(func() { close(d.done) })
}

type subscriber struct {
	ch     chan *Delivery
	closed chan struct{}
}

// Notifier fans identity changes out to subscribers. Publish returns once
// every live subscriber has acknowledged the change, so a response sent after
// Publish observes the applied state.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]*subscriber)}
}

// Subscribe registers a new listener. The returned cancel func unregisters it
// and releases any publisher waiting on it.
func (n *Notifier) Subscribe() (<-chan *Delivery, func()) {
	sub := &subscriber{
		ch:     make(chan *Delivery),
		closed: make(chan struct{}),
	}

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = sub
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			close(sub.closed)
		})
	}
	return sub.ch, cancel
}

// Publish delivers change to every subscriber in turn and waits for each
// acknowledgement. It returns early with the context error if ctx ends first.
func (n *Notifier) Publish(ctx context.Context, change StateChange) error {
	n.mu.Lock()
	subs := make([]*subscriber, 0, len(n.subs))
	for _, s := range n.subs {
		subs = append(subs, s)
	}
	n.mu.Unlock()

	for _, s := range subs {
		d := &Delivery{Change: change, done: make(chan struct{})}
		select {
		case s.ch <- d:
		case <-s.closed:
			continue
		case <-ctx.Done():
			return ctx.Err()
		}

		select {
		case <-d.done:
		case <-s.closed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
