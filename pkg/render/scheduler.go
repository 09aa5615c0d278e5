package render

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultInterval caps how often a streaming message is re-rendered.
const DefaultInterval = 50 * time.Millisecond

// Scheduler renders message content on a bounded pool of goroutines and keeps
// the latest result for each message.
//
// Content of a temporary (still streaming) message is buffered: only the most
// recent content survives, and a flush task running every interval dispatches
// at most one render per message per tick. Settled content is dispatched
// immediately.
//
// Every dispatched render takes a sequence number. A result is stored only if
// no render issued after it has already been stored, so a slow render never
// replaces the output of a newer one. A failed render leaves the previous
// output in place.
type Scheduler struct {
	renderer   Renderer
	logger     *zap.Logger
	interval   time.Duration
	sem        *semaphore.Weighted
	onRendered func(id, output string)

	mu      sync.Mutex
	seq     uint64
	pending map[string]string
	outputs map[string]string
	stored  map[string]uint64
	live    map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the flush interval for temporary messages.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithWorkers bounds the number of renders running at once.
func WithWorkers(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithOnRendered registers a callback invoked after new output is stored. It
// runs on a worker goroutine.
func WithOnRendered(fn func(id, output string)) SchedulerOption {
	return func(s *Scheduler) {
		s.onRendered = fn
	}
}

// NewScheduler creates a Scheduler and starts its flush task. Close stops it.
func NewScheduler(r Renderer, logger *zap.Logger, opts ...SchedulerOption) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		renderer: r,
		logger:   logger,
		interval: DefaultInterval,
		sem:      semaphore.NewWeighted(int64(runtime.NumCPU())),
		pending:  make(map[string]string),
		outputs:  make(map[string]string),
		stored:   make(map[string]uint64),
		live:     make(map[string]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.flushLoop()
	return s
}

// Schedule requests a render of content for message id. Temporary content is
// coalesced until the next flush; anything else is rendered right away and
// supersedes buffered temporary content.
func (s *Scheduler) Schedule(id, content string, temporary bool) {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.live[id] = struct{}{}
	if temporary {
		s.pending[id] = content
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	s.seq++
	seq := s.seq
	s.wg.Add(1)
	s.mu.Unlock()

	go s.render(id, content, seq)
}

// Output returns the last stored output for message id.
func (s *Scheduler) Output(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.outputs[id]
	return out, ok
}

// Forget drops everything known about message id. Renders still in flight for
// it are discarded when they complete.
func (s *Scheduler) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	delete(s.outputs, id)
	delete(s.stored, id)
	delete(s.live, id)
}

// Close stops the flush task and waits for in-flight renders.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.cancel()
	s.pending = make(map[string]string)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) flushLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.flush()
		}
	}
}

func (s *Scheduler) flush() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.pending
	s.pending = make(map[string]string)
	seqs := make(map[string]uint64, len(batch))
	for id := range batch {
		s.seq++
		seqs[id] = s.seq
	}
	s.wg.Add(len(batch))
	s.mu.Unlock()

	for id, content := range batch {
		go s.render(id, content, seqs[id])
	}
}

// render runs one render on the worker pool. The caller has already counted
// it in s.wg.
func (s *Scheduler) render(id, content string, seq uint64) {
	defer s.wg.Done()
	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		return
	}
	defer s.sem.Release(1)

	out, err := s.renderer.Render(s.ctx, content)
	if err != nil {
		s.logger.Warn("render failed, keeping previous output",
			zap.String("message_id", id),
			zap.Error(err),
		)
		return
	}
	s.store(id, out, seq)
}

func (s *Scheduler) store(id, out string, seq uint64) {
	s.mu.Lock()
	if _, ok := s.live[id]; !ok {
		s.mu.Unlock()
		s.logger.Debug("discarding render for forgotten message", zap.String("message_id", id))
		return
	}
	if seq < s.stored[id] {
		s.mu.Unlock()
		s.logger.Debug("discarding stale render", zap.String("message_id", id))
		return
	}
	s.outputs[id] = out
	s.stored[id] = seq
	s.mu.Unlock()

	if s.onRendered != nil {
		s.onRendered(id, out)
	}
}
