package brain

import (
	"sync"

	"github.com/salesflow-ai/pulse/internal/model"
)

// ObservationQueue drains strictly in priority order; within one priority
// bucket, FIFO. Put is O(1), Get is O(buckets).
type ObservationQueue struct {
	mu      sync.Mutex
	buckets [5][]model.Observation
}

// NewObservationQueue creates an empty queue.
func NewObservationQueue() *ObservationQueue {
	return &ObservationQueue{}
}

// Put enqueues the observation into its priority bucket.
func (q *ObservationQueue) Put(o model.Observation) {
	rank := o.Priority.Rank()
	q.mu.Lock()
	q.buckets[rank] = append(q.buckets[rank], o)
	q.mu.Unlock()
}

// Get dequeues the next observation, highest priority first. The second
// return is false when the queue is empty.
func (q *ObservationQueue) Get() (model.Observation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for rank := range q.buckets {
		if len(q.buckets[rank]) == 0 {
			continue
		}
		o := q.buckets[rank][0]
		q.buckets[rank] = q.buckets[rank][1:]
		return o, true
	}
	return model.Observation{}, false
}

// Len returns the total number of queued observations.
func (q *ObservationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for _, b := range q.buckets {
		total += len(b)
	}
	return total
}
