package events

import (
	"sync"
	"time"
)

// EventType represents the type of event flowing through the cluster bus.
type EventType string

const (
	EventNodeJoined              EventType = "node.joined"
	EventNodeLeft                EventType = "node.left"
	EventNodeDown                EventType = "node.down"
	EventLeaderElected           EventType = "leader.elected"
	EventTermChanged             EventType = "term.changed"
	EventFailoverStarted         EventType = "failover.started"
	EventFailoverCompleted       EventType = "failover.completed"
	EventFailoverFailed          EventType = "failover.failed"
	EventPromotionStarted        EventType = "promotion.started"
	EventPromotionCompleted      EventType = "promotion.completed"
	EventReplicationReconfigured EventType = "replication.reconfigured"
	EventSnapshotCreated         EventType = "snapshot.created"
	EventCommandFailed           EventType = "command.failed"
)

// Event represents a single occurrence on the cluster event bus.
type Event struct {
	ID        string
	Type      EventType
	NodeID    uint32
	ClusterID string
	Timestamp time.Time
	Message   string
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
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100), // Buffer up to 100 events
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // Buffer per subscriber
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers
func (b *Broker) Publish(event *Event) {
	// Set timestamp if not set
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
