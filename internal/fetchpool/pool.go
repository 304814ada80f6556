package fetchpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"goingviral/pkg/logger"
	"goingviral/pkg/scraper"
)

// FetchJob represents a single account to fetch
type FetchJob struct {
	Username string
	Variant  string
}

// FetchResult represents the result of a fetch job
type FetchResult struct {
	Job      FetchJob
	Result   *scraper.Result
	Error    error
	Duration time.Duration
}

// Success reports whether the job produced a result
func (r FetchResult) Success() bool {
	return r.Error == nil && r.Result != nil
}

// Fetcher runs one fetch; *scraper.Scraper satisfies it
type Fetcher interface {
	Fetch(ctx context.Context, variant, username string) (*scraper.Result, error)
}

// WorkerPool runs fetch jobs on a fixed number of workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan FetchJob
	resultQueue chan FetchResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     Fetcher
	logger      logger.Logger
}

// NewWorkerPool creates a pool whose jobs are cancelled with parent
func NewWorkerPool(parent context.Context, numWorkers int, fetcher Fetcher, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(parent)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan FetchJob, numWorkers*2),
		resultQueue: make(chan FetchResult, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		fetcher:     fetcher,
		logger:      log,
	}
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	logger.LogComponentStart(wp.logger, "fetch pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for in-flight jobs and closes Results
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	logger.LogComponentStop(wp.logger, "fetch pool", "queue drained")
}

// Abort cancels in-flight fetches; Stop must still be called
func (wp *WorkerPool) Abort() {
	wp.cancel()
}

// Submit adds a job to the queue
func (wp *WorkerPool) Submit(job FetchJob) error {
	select {
	case wp.jobQueue <- job:
		wp.logger.DebugWithFields("Job submitted to queue", map[string]interface{}{
			"username": job.Username,
			"variant":  job.Variant,
		})
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the result channel
func (wp *WorkerPool) Results() <-chan FetchResult {
	return wp.resultQueue
}

// QueueSize returns the number of queued jobs
func (wp *WorkerPool) QueueSize() int {
	return len(wp.jobQueue)
}

// Workers returns the number of workers
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		var result FetchResult
		if err := wp.ctx.Err(); err != nil {
			result = FetchResult{Job: job, Error: err}
		} else {
			result = wp.processJob(job, id)
		}

		// Results are always delivered so the consumer sees every job.
		wp.resultQueue <- result
	}
}

func (wp *WorkerPool) processJob(job FetchJob, workerID int) FetchResult {
	start := time.Now()
	res, err := wp.fetcher.Fetch(wp.ctx, job.Variant, job.Username)
	result := FetchResult{Job: job, Result: res, Error: err, Duration: time.Since(start)}

	if err != nil {
		wp.logger.ErrorWithFields("Worker failed to fetch account", map[string]interface{}{
			"worker_id": workerID,
			"username":  job.Username,
			"variant":   job.Variant,
			"error":     err.Error(),
			"duration":  result.Duration,
		})
		return result
	}

	wp.logger.DebugWithFields("Worker completed job", map[string]interface{}{
		"worker_id": workerID,
		"username":  job.Username,
		"posts":     len(res.Posts),
		"duration":  result.Duration,
	})
	return result
}

// FetchAll runs jobs on numWorkers workers and returns results in job
// order. onResult, when set, is called as each job finishes.
func FetchAll(ctx context.Context, fetcher Fetcher, numWorkers int, jobs []FetchJob, log logger.Logger, onResult func(FetchResult)) []FetchResult {
	pool := NewWorkerPool(ctx, numWorkers, fetcher, log)
	pool.Start()

	go func() {
		for _, job := range jobs {
			if err := pool.Submit(job); err != nil {
				break
			}
		}
		pool.Stop()
	}()

	index := make(map[FetchJob][]int, len(jobs))
	for i, job := range jobs {
		index[job] = append(index[job], i)
	}

	results := make([]FetchResult, len(jobs))
	filled := make([]bool, len(jobs))
	for r := range pool.Results() {
		if onResult != nil {
			onResult(r)
		}
		slots := index[r.Job]
		if len(slots) == 0 {
			continue
		}
		results[slots[0]] = r
		filled[slots[0]] = true
		index[r.Job] = slots[1:]
	}

	for i, ok := range filled {
		if !ok {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("job not run")
			}
			results[i] = FetchResult{Job: jobs[i], Error: err}
		}
	}
	return results
}
