package messaging

import (
	"fmt"
	"sync"
)

// Publisher sends an event to a topic
type Publisher interface {
	Publish(topic string, message []byte) error
}

// Subscriber registers handlers for a topic
type Subscriber interface {
	Subscribe(topic string, handler func(message []byte) error)
}

// Local is an in-process Publisher and Subscriber
type Local struct {
	handlers map[string][]func([]byte) error
	mu       sync.RWMutex
}

// NewLocal creates an empty in-process queue
func NewLocal() *Local {
	return &Local{
		handlers: make(map[string][]func([]byte) error),
	}
}

// Publish calls every handler subscribed to topic, stopping at the first error
func (l *Local) Publish(topic string, message []byte) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	handlers, exists := l.handlers[topic]
	if !exists {
		return fmt.Errorf("no subscribers for topic: %s", topic)
	}

	for _, handler := range handlers {
		if err := handler(message); err != nil {
			return fmt.Errorf("handler error: %w", err)
		}
	}

	return nil
}

// Subscribe registers handler for topic
func (l *Local) Subscribe(topic string, handler func(message []byte) error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.handlers[topic] = append(l.handlers[topic], handler)
}
