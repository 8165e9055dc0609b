// Package asyncmutex provides a mutual-exclusion lock with priority
// ordering and per-acquisition timeouts. Higher-priority waiters are
// serviced first; waiters of equal priority are served FIFO. A timed-out
// acquisition fails instead of blocking indefinitely.
package asyncmutex

import (
	"container/heap"
	"sync"
	"time"

	"github.com/ericogr/dungeon-depths/internal/game"
)

// DefaultTimeout is used when the caller passes a non-positive timeout.
const DefaultTimeout = 5 * time.Second

type waiter struct {
	priority int
	seq      uint64
	ready    chan struct{}
	granted  bool
	index    int
}

type waiterQueue []*waiter

func (q waiterQueue) Len() int { return len(q) }
func (q waiterQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}
func (q waiterQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *waiterQueue) Push(x any) {
	w := x.(*waiter)
	w.index = len(*q)
	*q = append(*q, w)
}
func (q *waiterQueue) Pop() any {
	old := *q
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*q = old[:n-1]
	return w
}

// Mutex is the lock. The zero value is unlocked and ready to use.
type Mutex struct {
	mu      sync.Mutex
	locked  bool
	nextSeq uint64
	waiters waiterQueue
}

// Lock acquires the mutex, waiting at most timeout. It returns
// game.ErrMutexTimeout when the wait expires; the caller may retry.
func (m *Mutex) Lock(priority int, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	m.mu.Lock()
	if !m.locked && m.waiters.Len() == 0 {
		m.locked = true
		m.mu.Unlock()
		return nil
	}
	w := &waiter{priority: priority, seq: m.nextSeq, ready: make(chan struct{})}
	m.nextSeq++
	heap.Push(&m.waiters, w)
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.ready:
		return nil
	case <-timer.C:
		m.mu.Lock()
		if w.granted {
			// The grant raced the timeout; the lock is ours.
			m.mu.Unlock()
			return nil
		}
		heap.Remove(&m.waiters, w.index)
		m.mu.Unlock()
		return game.ErrMutexTimeout
	}
}

// TryLock acquires the mutex only when it is immediately available.
func (m *Mutex) TryLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked || m.waiters.Len() > 0 {
		return false
	}
	m.locked = true
	return true
}

// Unlock releases the mutex, handing it directly to the highest-priority
// waiter when one exists. Unlocking an unlocked mutex panics: it is a
// programming error, same as sync.Mutex.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.locked {
		panic("asyncmutex: unlock of unlocked mutex")
	}
	if m.waiters.Len() == 0 {
		m.locked = false
		return
	}
	w := heap.Pop(&m.waiters).(*waiter)
	w.granted = true
	close(w.ready)
	// locked stays true: ownership transfers to the woken waiter.
}
