package identity

import "sync"

// notifier fans auth-state events out to subscribers. Each subscriber has its
// own dispatch goroutine fed from a buffered channel, so events are observed
// in the order they were emitted. Delivery is still asynchronous: callers of
// SignIn/SignOut must not assume the event has been observed by the time the
// call returns.
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]*subscriber
}

type subscriber struct {
	events chan Event
	done   chan struct{}
}

func (n *notifier) subscribe(fn func(Event)) (cancel func()) {
	n.mu.Lock()
	if n.subs == nil {
		n.subs = make(map[int]*subscriber)
	}
	id := n.next
	n.next++
	sub := &subscriber{
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
	n.subs[id] = sub
	n.mu.Unlock()

	go func() {
		for {
			select {
			case ev := <-sub.events:
				fn(ev)
			case <-sub.done:
				return
			}
		}
	}()

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub.done)
		}
	}
}

func (n *notifier) notify(ev Event) {
	n.mu.Lock()
	subs := make([]*subscriber, 0, len(n.subs))
	for _, sub := range n.subs {
		subs = append(subs, sub)
	}
	n.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.events <- ev:
		case <-sub.done:
		}
	}
}
