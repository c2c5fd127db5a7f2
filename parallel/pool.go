package parallel

import (
	"context"
	"runtime"
	"sync"
)

// Pool runs submitted jobs on a fixed number of goroutines. With a single
// worker, jobs run inline in the submitting goroutine.
type Pool struct {
	ctx   context.Context
	wg    sync.WaitGroup
	work  chan func(context.Context)
	close func()
	size  int
}

func Start(ctx context.Context, numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	pool := &Pool{
		ctx:   ctx,
		close: func() {},
		size:  numWorkers,
	}

	if numWorkers > 1 {
		pool.work = make(chan func(context.Context), numWorkers)
		for range numWorkers {
			pool.wg.Go(func() {
				for f := range pool.work {
					f(ctx)
				}
			})
		}
		pool.close = sync.OnceFunc(func() { close(pool.work) })
	}

	return pool
}

func (p *Pool) Size() int {
	return p.size
}

// Do submits f. Jobs submitted after the pool context is done are dropped.
func (p *Pool) Do(f func(context.Context)) {
	if p.ctx.Err() != nil {
		return
	}
	if p.work == nil {
		f(p.ctx)
		return
	}
	p.work <- f
}

// Wait closes the pool to new jobs and blocks until running ones return.
func (p *Pool) Wait() {
	p.close()
	p.wg.Wait()
}
