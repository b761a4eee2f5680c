package resilience

import (
	"context"
	"errors"
	"sync"

	"github.com/spaolacci/murmur3"
)

var ErrLanePoolClosed = errors.New("lane pool is closed")

// LanePool executes jobs on a fixed set of serial lanes. Jobs submitted
// under the same key hash to the same lane and run in submission order;
// distinct keys spread across lanes for parallelism. Ordering per key is
// the whole point: use one key per resource whose operations must not
// interleave.
type LanePool struct {
	lanes  []chan func()
	closed bool
	mu     sync.RWMutex
	once   sync.Once
	wg     sync.WaitGroup
}

// NewLanePool starts the lane goroutines. Each lane buffers up to
// queueSize pending jobs.
func NewLanePool(lanes, queueSize int) *LanePool {
	if lanes <= 0 {
		lanes = 1
	}
	if queueSize <= 0 {
		queueSize = 16
	}

	p := &LanePool{
		lanes: make([]chan func(), lanes),
	}

	for i := range p.lanes {
		lane := make(chan func(), queueSize)
		p.lanes[i] = lane

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range lane {
				if job != nil {
					job()
				}
			}
		}()
	}

	return p
}

// Submit enqueues the job on the key's lane, blocking while the lane's
// queue is full unless the context ends first. The read lock is held
// across the send so Close cannot close a lane under an in-flight submit.
func (p *LanePool) Submit(ctx context.Context, key string, job func()) error {
	if job == nil {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrLanePoolClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.laneFor(key) <- job:
		return nil
	}
}

// laneFor maps a key to its lane.
func (p *LanePool) laneFor(key string) chan func() {
	return p.lanes[murmur3.Sum32([]byte(key))%uint32(len(p.lanes))]
}

// Close stops intake. Jobs already queued still run.
func (p *LanePool) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		for _, lane := range p.lanes {
			close(lane)
		}
		p.mu.Unlock()
	})
}

// Wait blocks until every lane drains after Close.
func (p *LanePool) Wait() {
	p.wg.Wait()
}
