package events

import (
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventNodeRegistered   EventType = "node.registered"
	EventNodeOnline       EventType = "node.online"
	EventNodeOffline      EventType = "node.offline"
	EventNodeError        EventType = "node.error"
	EventNodeDeregistered EventType = "node.deregistered"
	EventModelChanged     EventType = "model.changed"
	EventPackageChanged   EventType = "package.changed"
	EventPackageError     EventType = "package.error"
)

// Event is a cluster state-change notification
type Event struct {
	Type      EventType
	Timestamp time.Time
	Resource  string
	State     string
	Metadata  map[string]string
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker manages event subscriptions and distribution
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 256),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop shuts the broker down and closes all subscriber channels
func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// Subscribe registers a new subscriber channel
func (b *Broker) Subscribe() Subscriber {
	sub := make(Subscriber, 64)
	b.mu.Lock()
	b.subscribers[sub] = true
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and closes its channel
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
	b.mu.Unlock()
}

// Publish enqueues an event for distribution. Publish never blocks the
// caller; if the broker queue is full the event is dropped.
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	default:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.mu.RLock()
			for sub := range b.subscribers {
				select {
				case sub <- event:
				default:
					// Slow subscriber; drop rather than stall the loop.
				}
			}
			b.mu.RUnlock()
		case <-b.stopCh:
			b.mu.Lock()
			for sub := range b.subscribers {
				delete(b.subscribers, sub)
				close(sub)
			}
			b.mu.Unlock()
			return
		}
	}
}
