package release

import (
	"context"
	"log/slog"
)

// Order controls the sequence in which Flush runs queued actions
type Order int

const (
	// OrderFIFO runs actions in the order they were pushed
	OrderFIFO Order = iota
	// OrderLIFO runs the most recently pushed action first, so an object registered after
	// the objects it depends on is released before them
	OrderLIFO
)

func (o Order) String() string {
	switch o {
	case OrderFIFO:
		return "OrderFIFO"
	case OrderLIFO:
		return "OrderLIFO"
	}

	return "OrderUnknown"
}

// Destroyer is any device object that can release itself. The vulkan adapters' fences,
// semaphores, command scopes, and descriptor pools all satisfy it.
type Destroyer interface {
	Destroy()
}

// Queue is an ordered list of cleanup actions that run together at a point where the device
// can no longer be referencing the objects they release: after a frame slot's render fence has
// signaled, or at engine shutdown.
//
// Queue is not safe for concurrent use. All pushes and flushes for a given queue must happen on
// the goroutine that owns the frame loop.
type Queue struct {
	logger  *slog.Logger
	name    string
	order   Order
	actions []func()

	flushing bool
}

// Init prepares a zero-value Queue. logger may be nil, in which case flushes are not logged.
func (q *Queue) Init(logger *slog.Logger, name string, order Order) {
	q.logger = logger
	q.name = name
	q.order = order
	q.actions = nil
}

// New creates a Queue that flushes in the provided order
func New(logger *slog.Logger, name string, order Order) *Queue {
	q := &Queue{}
	q.Init(logger, name, order)
	return q
}

func (q *Queue) Name() string { return q.name }
func (q *Queue) Order() Order { return q.order }
func (q *Queue) Len() int     { return len(q.actions) }

// Push appends a nullary action to the queue. Actions should capture the values they release
// rather than pointers to fields that may be overwritten before the queue is flushed.
func (q *Queue) Push(action func()) {
	if action == nil {
		panic("attempted to push a nil action to a release queue")
	}
	if q.flushing {
		panic("attempted to push to a release queue while it was flushing")
	}

	q.actions = append(q.actions, action)
}

// PushDestroyer queues obj.Destroy. obj is captured by value at the time of the call.
func (q *Queue) PushDestroyer(obj Destroyer) {
	if obj == nil {
		panic("attempted to push a nil object to a release queue")
	}

	q.Push(obj.Destroy)
}

// Flush runs every queued action once and empties the queue. Flushing an empty queue is a no-op.
func (q *Queue) Flush() {
	q.FlushInOrder(q.order)
}

// FlushInOrder is Flush with the queue's order overridden for this flush only
func (q *Queue) FlushInOrder(order Order) {
	if q.flushing {
		panic("release queue flushed reentrantly")
	}

	count := len(q.actions)
	if count == 0 {
		return
	}

	// Detach first so a panicking action cannot cause the rest to run twice
	actions := q.actions
	q.actions = nil
	q.flushing = true
	defer func() { q.flushing = false }()

	if q.logger != nil {
		q.logger.LogAttrs(context.Background(), slog.LevelDebug, "Queue::Flush",
			slog.String("queue", q.name),
			slog.Int("actions", count),
			slog.String("order", order.String()),
		)
	}

	if order == OrderLIFO {
		for i := count - 1; i >= 0; i-- {
			actions[i]()
		}
		return
	}

	for _, action := range actions {
		action()
	}
}
