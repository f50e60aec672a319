package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of guardian event
type EventType string

const (
	EventNodeFailed        EventType = "node.failed"
	EventNodeCrashed       EventType = "node.crashed"
	EventNodeRecovered     EventType = "node.recovered"
	EventCrashRefused      EventType = "guardian.crash_refused"
	EventRestartIssued     EventType = "guardian.restart_issued"
	EventRestartCompleted  EventType = "guardian.restart_completed"
	EventRestartFailed     EventType = "guardian.restart_failed"
	EventBudgetExhausted   EventType = "guardian.budget_exhausted"
	EventBudgetReplenished EventType = "guardian.budget_replenished"
	EventGuardianPaused    EventType = "guardian.paused"
	EventGuardianResumed   EventType = "guardian.resumed"
)

// Event represents one guardian occurrence
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	NodeID    string            `json:"node_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Message   string            `json:"message,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
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

// Publish publishes an event to all subscribers. The id and timestamp
// are filled in if the caller left them empty.
func (b *Broker) Publish(event *Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
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
