package local

import (
	"context"
	"sync"
)

// PubSubMessage is an in-process pub/sub message.
type PubSubMessage struct {
	Channel string
	Payload string
}

// PubSub is a minimal in-process fan-out pub/sub.
type PubSub struct {
	mu   sync.RWMutex
	subs map[string]map[int]chan *PubSubMessage
	next int
	buf  int
}

// NewPubSub creates a local PubSub with the given per-subscriber buffer.
func NewPubSub(buf int) *PubSub {
	return &PubSub{
		subs: make(map[string]map[int]chan *PubSubMessage),
		buf:  buf,
	}
}

// Publish delivers message to every subscriber of channel.
// Slow subscribers drop messages instead of blocking the publisher.
func (p *PubSub) Publish(_ context.Context, channel, message string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.subs[channel] {
		select {
		case ch <- &PubSubMessage{Channel: channel, Payload: message}:
		default:
		}
	}
	return nil
}

// Subscribe returns a receive channel for the given channels and a cancel
// function that unsubscribes and closes it.
func (p *PubSub) Subscribe(_ context.Context, channels ...string) (<-chan *PubSubMessage, func(), error) {
	out := make(chan *PubSubMessage, p.buf)

	p.mu.Lock()
	id := p.next
	p.next++
	for _, c := range channels {
		if p.subs[c] == nil {
			p.subs[c] = make(map[int]chan *PubSubMessage)
		}
		p.subs[c][id] = out
	}
	p.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			for _, c := range channels {
				delete(p.subs[c], id)
			}
			p.mu.Unlock()
			close(out)
		})
	}
	return out, cancel, nil
}
