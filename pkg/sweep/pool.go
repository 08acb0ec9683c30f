package sweep

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// DefaultWorkers is the pool size when Workers is zero.
const DefaultWorkers = 4

// Job is one sweep point handed to a worker.
type Job struct {
	ID     string
	Params map[string]float64
}

// JobFunc runs one sweep point and returns the store key of its result.
type JobFunc func(ctx context.Context, job Job) (string, error)

// Result reports the outcome of one job. Key is empty when Err is set.
type Result struct {
	JobID  string
	Params map[string]float64
	Key    string
	Err    error
}

// Pool runs sweep points concurrently. The zero value is usable.
type Pool struct {
	Workers int                  // concurrent jobs (default: 4)
	Logger  func(string, ...any) // progress callback (optional)
}

func (p Pool) withDefaults() Pool {
	if p.Workers <= 0 {
		p.Workers = DefaultWorkers
	}
	if p.Logger == nil {
		p.Logger = func(string, ...any) {}
	}
	return p
}

// Run fans the points out to the pool and returns a channel carrying
// exactly one Result per point, closed when all jobs have finished. Each
// job gets a fresh id and runs independently; a failing job reports its
// error without cancelling siblings. Once ctx is done, jobs not yet
// started report ctx's error instead of running.
func (p Pool) Run(ctx context.Context, points []map[string]float64, fn JobFunc) <-chan Result {
	p = p.withDefaults()
	jobs := make(chan Job)
	results := make(chan Result, len(points))

	var wg sync.WaitGroup
	for range p.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- Result{JobID: j.ID, Params: j.Params, Err: err}
					continue
				}
				p.Logger("sweep job %s: %v", j.ID, j.Params)
				key, err := fn(ctx, j)
				results <- Result{JobID: j.ID, Params: j.Params, Key: key, Err: err}
			}
		}()
	}

	go func() {
		for _, pt := range points {
			jobs <- Job{ID: uuid.New().String(), Params: pt}
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	return results
}
