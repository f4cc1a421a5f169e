package mqtt

import "sync"

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// registry remembers subscriptions so they survive a clean-session
// reconnect. The zero value is empty and ready to use.
type registry struct {
	mu   sync.RWMutex
	subs map[string]subscription
}

func (r *registry) put(s subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs == nil {
		r.subs = make(map[string]subscription)
	}
	r.subs[s.topic] = s
}

func (r *registry) remove(topic string) {
	r.mu.Lock()
	delete(r.subs, topic)
	r.mu.Unlock()
}

func (r *registry) has(topic string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subs[topic]
	return ok
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func (r *registry) each(fn func(subscription)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.subs {
		fn(s)
	}
}
