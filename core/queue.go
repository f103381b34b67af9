package core

import (
	"context"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
)

// SyncRunner executes the full per-wizard workflow for one id.
type SyncRunner func(ctx context.Context, wizardID string) error

// SyncQueue is an in-process, single-worker FIFO keyed by wizard id.
// At most one synchronization is active per process; ids drain in
// arrival order. Enqueueing an id that is already pending coalesces
// into a no-op; enqueueing the id currently running defers one rerun
// until the active run completes, so duplicate intent never executes
// two overlapping or back-to-back identical runs.
type SyncQueue struct {
	mu         sync.Mutex
	cond       *sync.Cond
	pending    []string
	inflight   map[string]struct{}
	deferred   map[string]struct{}
	running    string
	processing bool
	runner     SyncRunner
	logger     Logger
}

func NewSyncQueue(runner SyncRunner, logger Logger) *SyncQueue {
	queue := &SyncQueue{
		inflight: make(map[string]struct{}),
		deferred: make(map[string]struct{}),
		runner:   runner,
		logger:   glog.Ensure(logger),
	}
	queue.cond = sync.NewCond(&queue.mu)
	return queue
}

// Enqueue schedules a wizard for synchronization and starts the drain
// loop if idle. It reports whether a new run was actually queued;
// false means the id coalesced into one already queued or running.
func (q *SyncQueue) Enqueue(wizardID string) bool {
	if q == nil || q.runner == nil {
		return false
	}
	wizardID = strings.TrimSpace(wizardID)
	if wizardID == "" {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, active := q.inflight[wizardID]; active {
		if q.running == wizardID {
			q.deferred[wizardID] = struct{}{}
		}
		return false
	}

	q.inflight[wizardID] = struct{}{}
	q.pending = append(q.pending, wizardID)
	if !q.processing {
		q.processing = true
		go q.drain()
	}
	return true
}

// Len reports the number of ids waiting (not counting the running one).
func (q *SyncQueue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Wait blocks until the queue is fully drained. Test and shutdown
// helper; new enqueues after Wait returns start a fresh drain.
func (q *SyncQueue) Wait() {
	if q == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.processing {
		q.cond.Wait()
	}
}

// drain pops ids one at a time. A failed run is logged and never stops
// the loop; the terminal status was already recorded by the workflow.
func (q *SyncQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.processing = false
			q.cond.Broadcast()
			q.mu.Unlock()
			return
		}
		wizardID := q.pending[0]
		q.pending = q.pending[1:]
		q.running = wizardID
		q.mu.Unlock()

		if err := q.runner(context.Background(), wizardID); err != nil {
			q.logger.Error("wizard sync failed", "wizard_id", wizardID, "error", err)
		}

		q.mu.Lock()
		q.running = ""
		delete(q.inflight, wizardID)
		if _, rerun := q.deferred[wizardID]; rerun {
			delete(q.deferred, wizardID)
			q.inflight[wizardID] = struct{}{}
			q.pending = append(q.pending, wizardID)
		}
		q.mu.Unlock()
	}
}
