// Package worker provides row-parallel execution for raster kernels and a
// worker pool for batches of independent terrain jobs.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Generator produces the outputs of one seed job and returns a key naming
// where they went. pipeline.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, task Task) (key string, err error)
}

// Task is one terrain job. Force regenerates outputs that already exist.
type Task struct {
	Name  string
	Seed  int64
	Force bool
}

func (t Task) String() string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("seed %d", t.Seed)
}

// Result is the outcome of one Task.
type Result struct {
	Task    Task
	Key     string
	Err     error
	Elapsed time.Duration
}

// ProgressFunc receives running totals after each job finishes.
type ProgressFunc func(completed, total, failed int)

// Config configures a Pool. Workers below one means one.
type Config struct {
	Workers    int
	Generator  Generator
	OnProgress ProgressFunc
}

// Pool runs seed jobs on a fixed number of goroutines.
type Pool struct {
	workers    int
	generator  Generator
	onProgress ProgressFunc
}

// New creates a pool from cfg.
func New(cfg Config) *Pool {
	return &Pool{
		workers:    max(cfg.Workers, 1),
		generator:  cfg.Generator,
		onProgress: cfg.OnProgress,
	}
}

// Run generates every task and returns one Result per task, in task order.
// Once ctx is done, jobs that have not started report ctx.Err() without
// reaching the generator. OnProgress is called from the calling goroutine.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	results := make([]Result, len(tasks))
	next := make(chan int)
	finished := make(chan int)

	var wg sync.WaitGroup
	for range min(p.workers, len(tasks)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				results[i] = p.run(ctx, tasks[i])
				finished <- i
			}
		}()
	}

	go func() {
		for i := range tasks {
			next <- i
		}
		close(next)
		wg.Wait()
		close(finished)
	}()

	completed, failed := 0, 0
	for i := range finished {
		completed++
		if results[i].Err != nil {
			failed++
		}
		if p.onProgress != nil {
			p.onProgress(completed, len(tasks), failed)
		}
	}
	return results
}

// run executes one job. A panicking generator fails only its own job.
func (p *Pool) run(ctx context.Context, task Task) (res Result) {
	res.Task = task
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Key = ""
			res.Err = fmt.Errorf("%s: generator panicked: %v", task, r)
		}
		res.Elapsed = time.Since(start)
	}()

	res.Key, res.Err = p.generator.Generate(ctx, task)
	return res
}

// Failed returns the results that carry an error, in task order.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
