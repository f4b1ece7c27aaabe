package engine

import "sync"

// UpdateKind distinguishes between update kinds.
type UpdateKind int

const (
	// UpdateSetProp assigns a new value to a prop.
	UpdateSetProp UpdateKind = iota + 1
	// UpdateEmit dispatches an event to a rendered element.
	UpdateEmit
	// UpdateTick advances virtual time, firing due timers.
	UpdateTick
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateSetProp:
		return "set"
	case UpdateEmit:
		return "emit"
	case UpdateTick:
		return "tick"
	}
	return "unknown"
}

// Update is one external change to a mounted component.
type Update struct {
	Kind UpdateKind

	// Prop and Value describe a prop assignment.
	Prop  string
	Value any

	// Target selects the element an event is dispatched to: a tag name,
	// #id or .class. Event is the event type, such as "click".
	Target string
	Event  string

	// Millis is the virtual time a tick advances.
	Millis int
}

// updateQueue is a thread-safe FIFO queue of updates.
//
// Updates may be enqueued from any goroutine while the engine drains the
// queue on one goroutine. The queue is unbounded.
type updateQueue struct {
	mu      sync.Mutex
	updates []Update
	closed  bool
}

func newUpdateQueue() *updateQueue {
	return &updateQueue{updates: make([]Update, 0, 16)}
}

// Enqueue adds an update to the back of the queue. It returns false if the
// queue is closed.
func (q *updateQueue) Enqueue(u Update) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.updates = append(q.updates, u)
	return true
}

// TryDequeue removes and returns the front update without blocking.
func (q *updateQueue) TryDequeue() (Update, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.updates) == 0 {
		return Update{}, false
	}
	u := q.updates[0]
	// Clear the slot so the backing array does not retain the value.
	q.updates[0] = Update{}
	if len(q.updates) == 1 {
		q.updates = q.updates[:0]
	} else {
		q.updates = q.updates[1:]
	}
	return u, true
}

// Len returns the current queue length.
func (q *updateQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.updates)
}

// Close rejects further updates.
func (q *updateQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
