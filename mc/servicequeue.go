package mc

import "gddrmc/types"

// ServiceItem is a completed request waiting to be delivered back to
// its client over the client bus (spec.md §4.5 "service queue").
type ServiceItem struct {
	Ref      types.RequestRef
	Client   types.ClientSrc
	IsWrite  bool
	ReadData []byte // nil for writes
}

// ServiceQueue is the bounded FIFO of completed requests awaiting
// client-bus delivery (spec.md §3 "Service Queue").
type ServiceQueue struct {
	items    []ServiceItem
	capacity uint32
}

func NewServiceQueue(capacity uint32) *ServiceQueue {
	return &ServiceQueue{capacity: capacity}
}

// Enqueue admits item, or reports false if full (spec.md §7 "service
// queue full").
func (q *ServiceQueue) Enqueue(item ServiceItem) bool {
	if uint32(len(q.items)) >= q.capacity {
		return false
	}
	q.items = append(q.items, item)
	return true
}

// Dequeue pops the oldest item, if any.
func (q *ServiceQueue) Dequeue() (ServiceItem, bool) {
	if len(q.items) == 0 {
		return ServiceItem{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Peek returns the oldest item without removing it, if any.
func (q *ServiceQueue) Peek() (ServiceItem, bool) {
	if len(q.items) == 0 {
		return ServiceItem{}, false
	}
	return q.items[0], true
}

func (q *ServiceQueue) Len() int    { return len(q.items) }
func (q *ServiceQueue) Full() bool  { return uint32(len(q.items)) >= q.capacity }
func (q *ServiceQueue) Empty() bool { return len(q.items) == 0 }
