// Package memory records published events in-process for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Published captures one publish call.
type Published struct {
	Topic   string
	Payload any
}

// Publisher stores published payloads for later inspection.
type Publisher struct {
	mu       sync.RWMutex
	messages []Published
}

// New returns an empty memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the message and returns a synthetic ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Published{Topic: topic, Payload: payload})
	return fmt.Sprintf("memory-%d", len(p.messages)), nil
}

// Messages returns a copy of the recorded publishes.
func (p *Publisher) Messages() []Published {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Published, len(p.messages))
	copy(out, p.messages)
	return out
}

// ByTopic returns the recorded publishes for one topic.
func (p *Publisher) ByTopic(topic string) []Published {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Published
	for _, m := range p.messages {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}
