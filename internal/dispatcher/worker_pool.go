package dispatcher

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/telephony/integration-connector/internal/platform/logger"

	"github.com/sirupsen/logrus"
)

// WorkerPool runs submitted tasks detached from the submitter.  At most
// maxConcurrency tasks run at once; the rest wait for a slot in their own
// goroutine so Submit never blocks.  A panicking task is logged and
// otherwise ignored.
type WorkerPool struct {
	name  string
	slots chan struct{}

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewWorkerPool(name string, maxConcurrency int) *WorkerPool {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	return &WorkerPool{
		name:  name,
		slots: make(chan struct{}, maxConcurrency),
	}
}

// Submit schedules task and returns immediately.  It returns false if the
// pool has been closed.
func (p *WorkerPool) Submit(log *logrus.Entry, task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		metrics.deliveryTasksRejected.WithLabelValues(p.name).Inc()
		log.Warn("Worker pool is closed, dropping task")
		return false
	}

	p.wg.Add(1)
	metrics.deliveryTasksInFlightGauge.WithLabelValues(p.name).Inc()

	go func() {
		defer p.wg.Done()
		defer metrics.deliveryTasksInFlightGauge.WithLabelValues(p.name).Dec()

		p.slots <- struct{}{}
		defer func() { <-p.slots }()

		p.run(log, task)
	}()

	return true
}

func (p *WorkerPool) run(log *logrus.Entry, task func()) {
	defer func() {
		if r := recover(); r != nil {
			metrics.deliveryTaskPanicCounter.WithLabelValues(p.name).Inc()
			log.WithFields(logrus.Fields{
				"error": fmt.Sprintf("%v", r),
				"stack": string(debug.Stack()),
			}).Error("Recovered from a panic in a worker pool task")
		}
	}()

	task()
}

// Wait blocks until every task submitted so far has finished.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Close stops accepting tasks and waits for the outstanding ones.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	alreadyClosed := p.closed
	p.closed = true
	p.mu.Unlock()

	if !alreadyClosed {
		logger.Log.WithFields(logrus.Fields{"pool": p.name}).Debug("Draining worker pool")
	}

	p.wg.Wait()
}
