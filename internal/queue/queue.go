// Package queue holds outbound printer commands until the sender loop
// delivers them, in submission order.
package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/five82/roost/internal/moonraker"
)

// Capacity is the number of commands that may wait at once.
const Capacity = 20

// Command is one pending request path.
type Command struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Queue is a fixed-capacity FIFO ring buffer. The zero value is ready to use.
type Queue struct {
	mu    sync.Mutex
	items [Capacity]Command
	read  int
	write int
	count int
}

// Enqueue appends path. It returns false, leaving the queue untouched, when
// the queue is full; callers surface that as "busy".
func (q *Queue) Enqueue(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count >= Capacity {
		return false
	}
	q.items[q.write] = Command{ID: uuid.NewString(), Path: path, EnqueuedAt: time.Now()}
	q.write = (q.write + 1) % Capacity
	q.count++
	return true
}

// EnqueueAll appends every path or none of them.
func (q *Queue) EnqueueAll(paths ...string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if Capacity-q.count < len(paths) {
		return false
	}
	now := time.Now()
	for _, path := range paths {
		q.items[q.write] = Command{ID: uuid.NewString(), Path: path, EnqueuedAt: now}
		q.write = (q.write + 1) % Capacity
		q.count++
	}
	return true
}

// EnqueueGcode queues a G-code script for execution.
func (q *Queue) EnqueueGcode(code string) bool {
	return q.Enqueue(moonraker.GcodePath(code))
}

// Dequeue removes and returns the oldest command.
func (q *Queue) Dequeue() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return Command{}, false
	}
	cmd := q.items[q.read]
	q.items[q.read] = Command{}
	q.read = (q.read + 1) % Capacity
	q.count--
	return cmd, true
}

// Len returns the number of pending commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return Capacity
}

// Pending returns a copy of the waiting commands, oldest first.
func (q *Queue) Pending() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Command, 0, q.count)
	for i := 0; i < q.count; i++ {
		out = append(out, q.items[(q.read+i)%Capacity])
	}
	return out
}
