package chromectl

import (
	"context"
	"strings"
	"sync"

	"github.com/chromectl/chromectl/lib/cdp"
)

// EventFilter selects the events a subscriber wants.
type EventFilter struct {
	// SessionID limits the events to one attached session, empty matches
	// every session including browser level events. One connection
	// multiplexes many sessions, so filtering here is what keeps one tab's
	// events from leaking into another tab's subscribers.
	SessionID string

	// Method is the event name, such as "Target.targetDestroyed". Empty
	// matches every event, a trailing "*" matches by prefix, such as
	// "Runtime.*".
	Method string
}

func (f EventFilter) match(e *cdp.Event) bool {
	if f.SessionID != "" && f.SessionID != e.SessionID {
		return false
	}
	switch {
	case f.Method == "":
		return true
	case strings.HasSuffix(f.Method, "*"):
		return strings.HasPrefix(e.Method, strings.TrimSuffix(f.Method, "*"))
	default:
		return f.Method == e.Method
	}
}

// Subscriber receives the matching events on C in arrival order.
type Subscriber struct {
	// C is closed on unsubscribe
	C <-chan *cdp.Event

	id     int64
	filter EventFilter

	mu     sync.Mutex
	queue  []*cdp.Event
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

// Observable fans the single inbound event stream out to any number of
// subscribers. Publish never blocks on a slow subscriber, each subscriber
// owns a queue drained by its own goroutine, so the shared dispatch loop
// keeps going and per subscriber order is preserved.
type Observable struct {
	mu      sync.Mutex
	subs    map[int64]*Subscriber
	idCount int64
}

// NewObservable creates a new observable
func NewObservable() *Observable {
	return &Observable{
		subs: map[int64]*Subscriber{},
	}
}

// Publish the event to every subscriber whose filter matches
func (o *Observable) Publish(e *cdp.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, s := range o.subs {
		if s.filter.match(e) {
			s.push(e)
		}
	}
}

// Subscribe to the events selected by filter
func (o *Observable) Subscribe(filter EventFilter) *Subscriber {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.idCount++
	out := make(chan *cdp.Event)
	s := &Subscriber{
		C:      out,
		id:     o.idCount,
		filter: filter,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	o.subs[s.id] = s

	go s.drain(out)

	return s
}

// Unsubscribe stops the delivery and closes Subscriber.C, idempotent.
// Events still queued and not consumed are dropped.
func (o *Observable) Unsubscribe(s *Subscriber) {
	o.mu.Lock()
	delete(o.subs, s.id)
	o.mu.Unlock()

	s.close()
}

// UnsubscribeAll current subscribers
func (o *Observable) UnsubscribeAll() {
	o.mu.Lock()
	subs := make([]*Subscriber, 0, len(o.subs))
	for _, s := range o.subs {
		subs = append(subs, s)
	}
	o.subs = map[int64]*Subscriber{}
	o.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
}

// Count returns the number of subscribers
func (o *Observable) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

// Until returns the first matching event for which check returns true
func (o *Observable) Until(ctx context.Context, filter EventFilter, check func(*cdp.Event) bool) (*cdp.Event, error) {
	s := o.Subscribe(filter)
	defer o.Unsubscribe(s)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case e, ok := <-s.C:
			if !ok {
				return nil, context.Canceled
			}
			if check(e) {
				return e, nil
			}
		}
	}
}

func (s *Subscriber) push(e *cdp.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, e)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// drain feeds the queued events to out preserving arrival order
func (s *Subscriber) drain(out chan<- *cdp.Event) {
	defer close(out)

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			<-s.wake
			continue
		}
		e := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case out <- e:
		case <-s.done:
			return
		}
	}
}
