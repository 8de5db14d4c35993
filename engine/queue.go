package engine

import (
	"sync"
	"time"
	"unsafe"

	"code.cloudfoundry.org/go-diodes"
	"github.com/rs/zerolog"
)

// writebackJob is one Phase B unit of work: a fully-built pipeline plus the
// bookkeeping the worker needs to log a failure (§7: "Store error during
// Phase B — log at warn with context (now_ms, seed_Δ, leech_Δ, error)").
type writebackJob struct {
	submit func() error
	nowMs  int64
	seedD  int
	leechD int
}

// writebackQueue is the concrete answer to §5's "an implementer concerned
// about unbounded growth may bound them with a semaphore": instead of one
// goroutine per announce, Phase A pushes a completed job onto a
// many-to-one diode (non-blocking; under overload the diode drops the
// oldest unread job rather than blocking the request path) and a small
// fixed pool of drain workers submits jobs to the store.
type writebackQueue struct {
	d        *diodes.ManyToOne
	workers  int
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// newWritebackQueue starts workers goroutines draining a many-to-one diode
// of size bufSize. Dropped jobs (diode overflow) are logged at warn.
func newWritebackQueue(bufSize, workers int) *writebackQueue {
	if workers < 1 {
		workers = 1
	}
	q := &writebackQueue{workers: workers, stopCh: make(chan struct{})}
	q.d = diodes.NewManyToOne(bufSize, diodes.AlertFunc(func(missed int) {
		logger.Warn().Int("missed", missed).Msg("phase B queue overflow, dropping oldest jobs")
	}))

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.drain()
	}
	return q
}

// push enqueues job without blocking the request-handling goroutine.
func (q *writebackQueue) push(job *writebackJob) {
	q.d.Set(diodes.GenericDataType(unsafe.Pointer(job)))
}

func (q *writebackQueue) drain() {
	defer q.wg.Done()
	for {
		select {
		case <-q.stopCh:
			return
		default:
		}
		data, ok := q.d.TryNext()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		job := (*writebackJob)(unsafe.Pointer(data))
		if err := job.submit(); err != nil {
			logger.Warn().
				Int64("nowMs", job.nowMs).
				Int("seedDelta", job.seedD).
				Int("leechDelta", job.leechD).
				Err(err).
				Msg("phase B write-back failed")
		}
	}
}

// stop signals drain workers to exit after their current job. It does not
// wait for the diode to empty: any job still queued is dropped, matching
// §4.4's "if Phase B fails, it is logged and dropped; there is no retry".
func (q *writebackQueue) stop() {
	q.stopOnce.Do(func() { close(q.stopCh) })
	q.wg.Wait()
}

var logger = zerolog.Nop().With().Str("component", "engine").Logger()

// SetLogger overrides the package-scoped logger (wired once at startup,
// matching storage.SetLogger).
func SetLogger(l zerolog.Logger) { logger = l.With().Str("component", "engine").Logger() }
