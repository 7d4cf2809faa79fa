package utils

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Bounds the number of goroutines a data-parallel kernel uses.
type WorkerPool struct {
	size int
}

func NewWorkerPool() *WorkerPool {
	return NewWorkerPoolSize(runtime.GOMAXPROCS(0))
}

func NewWorkerPoolSize(size int) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{size: size}
}

func (wp *WorkerPool) Size() int {
	return wp.size
}

// Calls fn for consecutive [start, end) ranges of at most chunk indices
// covering [0, n), on up to Size goroutines. Ranges not yet started when
// the context is cancelled are skipped and the context error returned.
func (wp *WorkerPool) Range(ctx context.Context, n, chunk int, fn func(start, end int)) error {
	if chunk <= 0 {
		chunk = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(wp.size)

	for start := 0; start < n; start += chunk {
		if ctx.Err() != nil {
			break
		}

		end := min(start+chunk, n)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(start, end)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
