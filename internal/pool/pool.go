package pool

import (
	"context"
	"sync"
	"time"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/packing"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"gonum.org/v1/gonum/stat"
)

// Config configures a WorkerPool. Defaults are tuned for a
// 16-physical-core host: min=4, max=12, idle=60s, queue=256, concurrency=1.
type Config struct {
	MinWorkers               int
	MaxWorkers               int
	IdleTimeout               time.Duration
	MaxQueue                 int
	ConcurrentTasksPerWorker int
}

type taskEntry struct {
	task      Task
	run       TaskFunc
	token     *packing.CancellationToken
	future    *Future
	status    Status
	startedAt time.Time
	mu        sync.Mutex
}

func (e *taskEntry) setStatus(s Status) {
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
}

func (e *taskEntry) getStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// WorkerPool is the bounded pool. Workers are goroutines reading
// from a single shared, buffered channel (FIFO); the number of workers is
// sized from the host's physical core count, clamped downward to MaxWorkers
// and never spawned below MinWorkers.
type WorkerPool struct {
	cfg Config
	log zerolog.Logger

	queue chan *taskEntry

	mu       sync.Mutex
	stopped  bool
	tasks    map[string]*taskEntry
	progress map[string]Progress

	progressMu   sync.Mutex
	subscribers  []func(Progress)

	statsMu    sync.Mutex
	completed  int
	runTimes   []float64
	waitTimes  []float64

	activeMu sync.Mutex
	active   int

	numWorkers int
	wg         sync.WaitGroup
	grace      time.Duration
}

// New creates a WorkerPool sized for the host it runs on and starts its
// worker goroutines. Call Shutdown to stop it.
func New(cfg Config, log zerolog.Logger) *WorkerPool {
	if cfg.MinWorkers <= 0 {
		cfg.MinWorkers = 4
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 12
	}
	if cfg.MaxQueue <= 0 {
		cfg.MaxQueue = 256
	}
	if cfg.ConcurrentTasksPerWorker <= 0 {
		cfg.ConcurrentTasksPerWorker = 1
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	numWorkers := cfg.MaxWorkers
	if cores, err := cpu.Counts(false); err == nil && cores > 0 && cores < numWorkers {
		numWorkers = cores
	}
	if numWorkers < cfg.MinWorkers {
		numWorkers = cfg.MinWorkers
	}

	p := &WorkerPool{
		cfg:        cfg,
		log:        log.With().Str("module", "pool").Logger(),
		queue:      make(chan *taskEntry, cfg.MaxQueue),
		tasks:      make(map[string]*taskEntry),
		progress:   make(map[string]Progress),
		numWorkers: numWorkers,
		grace:      10 * time.Second,
	}

	p.log.Info().Int("workers", numWorkers).Int("max_queue", cfg.MaxQueue).Msg("starting worker pool")

	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.runWorker()
	}

	return p
}

// Submit enqueues a task for execution. run is the strategy-dispatch
// closure the caller (the optimization engine) supplies; the pool itself
// stays agnostic of packing semantics and only manages lifecycle.
func (p *WorkerPool) Submit(task Task, run TaskFunc) (*Future, *errs.Error) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil, errs.New(errs.PoolShutdown, "worker pool is shut down")
	}

	entry := &taskEntry{
		task:   task,
		run:    run,
		token:  packing.NewCancellationToken(),
		future: newFuture(),
		status: StatusQueued,
	}
	p.tasks[task.ID] = entry
	p.mu.Unlock()

	select {
	case p.queue <- entry:
		return entry.future, nil
	default:
		p.mu.Lock()
		delete(p.tasks, task.ID)
		p.mu.Unlock()
		return nil, errs.New(errs.QueueFull, "worker pool queue is full")
	}
}

// Cancel requests cancellation of a queued or running task. Returns false
// if the task is unknown or already terminal.
func (p *WorkerPool) Cancel(taskID string) bool {
	p.mu.Lock()
	entry, ok := p.tasks[taskID]
	p.mu.Unlock()
	if !ok {
		return false
	}

	status := entry.getStatus()
	if status != StatusQueued && status != StatusRunning {
		return false
	}
	entry.token.Cancel()
	return true
}

// Progress returns the last known progress for a task, if any.
func (p *WorkerPool) Progress(taskID string) (Progress, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	progress, ok := p.progress[taskID]
	return progress, ok
}

// OnProgress registers a callback invoked for every progress update across
// all tasks, for broadcasting to clients (e.g. via internal/presence).
func (p *WorkerPool) OnProgress(cb func(Progress)) {
	p.progressMu.Lock()
	p.subscribers = append(p.subscribers, cb)
	p.progressMu.Unlock()
}

func (p *WorkerPool) broadcastProgress(pr Progress) {
	p.mu.Lock()
	p.progress[pr.TaskID] = pr
	p.mu.Unlock()

	p.progressMu.Lock()
	subs := make([]func(Progress), len(p.subscribers))
	copy(subs, p.subscribers)
	p.progressMu.Unlock()

	for _, sub := range subs {
		sub(pr)
	}
}

// Stats reports pool throughput and load.
func (p *WorkerPool) Stats() Stats {
	p.statsMu.Lock()
	completed := p.completed
	var runMean, waitMean float64
	if len(p.runTimes) > 0 {
		runMean = stat.Mean(p.runTimes, nil)
	}
	if len(p.waitTimes) > 0 {
		waitMean = stat.Mean(p.waitTimes, nil)
	}
	p.statsMu.Unlock()

	p.activeMu.Lock()
	active := p.active
	p.activeMu.Unlock()

	utilization := 0.0
	if p.numWorkers > 0 {
		utilization = float64(active) / float64(p.numWorkers)
	}

	return Stats{
		Completed:      completed,
		RunTimeMeanMs:  runMean,
		WaitTimeMeanMs: waitMean,
		Utilization:    utilization,
		QueueSize:      len(p.queue),
	}
}

// HealthCheck submits a trivial no-op task with a tight timeout and waits
// for it to complete.
func (p *WorkerPool) HealthCheck(ctx context.Context) *errs.Error {
	future, err := p.Submit(Task{
		ID:        "healthcheck-" + time.Now().Format(time.RFC3339Nano),
		Kind:      Kind1D,
		TimeoutMs: 2000,
		CreatedAt: time.Now(),
	}, func(token *packing.CancellationToken, progress packing.ProgressSink) (packing.Result, error) {
		return packing.Result{}, nil
	})
	if err != nil {
		return err
	}
	_, waitErr := future.Wait(ctx)
	return waitErr
}

// Shutdown stops accepting new submissions, waits for in-flight tasks to
// drain, and cancels anything still running after the grace period.
func (p *WorkerPool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	tasksSnapshot := make([]*taskEntry, 0, len(p.tasks))
	for _, entry := range p.tasks {
		tasksSnapshot = append(tasksSnapshot, entry)
	}
	close(p.queue)
	p.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(p.grace):
		p.log.Warn().Msg("shutdown grace period elapsed, cancelling in-flight tasks")
		for _, entry := range tasksSnapshot {
			if entry.getStatus() == StatusRunning || entry.getStatus() == StatusQueued {
				entry.token.Cancel()
			}
		}
		<-drained
	case <-ctx.Done():
	}
}

func (p *WorkerPool) runWorker() {
	defer p.wg.Done()
	for entry := range p.queue {
		p.execute(entry)
	}
}

func (p *WorkerPool) execute(entry *taskEntry) {
	waitMs := float64(time.Since(entry.task.CreatedAt).Milliseconds())

	if entry.token.IsCancelled() {
		entry.setStatus(StatusCancelled)
		entry.future.resolve(packing.Result{}, errs.New(errs.Cancelled, "task cancelled before execution"))
		return
	}

	entry.setStatus(StatusRunning)
	entry.startedAt = time.Now()
	startedAt := entry.startedAt

	p.activeMu.Lock()
	p.active++
	p.activeMu.Unlock()
	defer func() {
		p.activeMu.Lock()
		p.active--
		p.activeMu.Unlock()
	}()

	p.broadcastProgress(Progress{TaskID: entry.task.ID, Phase: "running", Progress: 0, StartedAt: &startedAt})

	timeout := time.Duration(entry.task.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sink := &forwardingProgressSink{pool: p, taskID: entry.task.ID}

	resultCh := make(chan struct {
		result packing.Result
		err    error
	}, 1)
	go func() {
		result, err := entry.run(entry.token, sink)
		resultCh <- struct {
			result packing.Result
			err    error
		}{result, err}
	}()

	var result packing.Result
	var runErr error
	select {
	case out := <-resultCh:
		result, runErr = out.result, out.err
	case <-ctx.Done():
		entry.token.Cancel()
		out := <-resultCh // worker strategies check the token between pieces and return promptly
		result, runErr = out.result, out.err
		runErr = errs.New(errs.Timeout, "task exceeded its deadline")
	}

	completedAt := time.Now()
	runMs := float64(completedAt.Sub(startedAt).Milliseconds())
	p.statsMu.Lock()
	p.runTimes = append(p.runTimes, runMs)
	p.waitTimes = append(p.waitTimes, waitMs)
	if len(p.runTimes) > 500 {
		p.runTimes = p.runTimes[len(p.runTimes)-500:]
	}
	if len(p.waitTimes) > 500 {
		p.waitTimes = p.waitTimes[len(p.waitTimes)-500:]
	}
	p.completed++
	p.statsMu.Unlock()

	switch {
	case runErr != nil:
		if cancelErr, ok := runErr.(*errs.Error); ok && cancelErr.Code == errs.Timeout {
			entry.setStatus(StatusTimedOut)
			entry.future.resolve(packing.Result{}, cancelErr)
		} else if entry.token.IsCancelled() {
			entry.setStatus(StatusCancelled)
			entry.future.resolve(packing.Result{}, errs.New(errs.Cancelled, "task cancelled"))
		} else {
			entry.setStatus(StatusFailed)
			entry.future.resolve(packing.Result{}, errs.WrapInternal(runErr))
		}
	case entry.token.IsCancelled():
		entry.setStatus(StatusCancelled)
		entry.future.resolve(packing.Result{}, errs.New(errs.Cancelled, "task cancelled"))
	default:
		entry.setStatus(StatusCompleted)
		entry.future.resolve(result, nil)
	}

	p.broadcastProgress(Progress{TaskID: entry.task.ID, Phase: string(entry.getStatus()), Progress: 1, StartedAt: &startedAt, CompletedAt: &completedAt})

	p.mu.Lock()
	delete(p.tasks, entry.task.ID)
	p.mu.Unlock()
}

// forwardingProgressSink adapts a strategy's ProgressSink calls into pool
// broadcasts.
type forwardingProgressSink struct {
	pool   *WorkerPool
	taskID string
}

func (s *forwardingProgressSink) Report(current, total int, message string) {
	ratio := 0.0
	if total > 0 {
		ratio = float64(current) / float64(total)
	}
	s.pool.broadcastProgress(Progress{TaskID: s.taskID, Phase: "packing", Progress: ratio, Message: message})
}
