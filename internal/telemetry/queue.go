package telemetry

import "sync"

// Queue is a bounded FIFO of events. When full, pushing drops the oldest
// event so recent telemetry survives bursts.
type Queue struct {
	mu    sync.Mutex
	buf   []Event
	head  int
	count int
}

// NewQueue creates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{buf: make([]Event, capacity)}
}

// Push appends an event, evicting the oldest when full. It reports whether
// an event was evicted.
func (q *Queue) Push(ev Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	evicted := false
	if q.count == len(q.buf) {
		q.head = (q.head + 1) % len(q.buf)
		q.count--
		evicted = true
	}

	q.buf[(q.head+q.count)%len(q.buf)] = ev
	q.count++
	return evicted
}

// Drain returns all queued events in arrival order and clears the queue.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}

	out := make([]Event, q.count)
	for i := 0; i < q.count; i++ {
		out[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.head = 0
	q.count = 0
	return out
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return len(q.buf)
}
