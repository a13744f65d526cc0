package orbit

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/san-kum/dynmap/internal/dynamo"
)

// Ensemble generates one orbit per initial condition on several goroutines.
// Each worker runs on its own spawned copy of the map, so sys itself is
// never called concurrently.
type Ensemble struct {
	sys     dynamo.System
	order   int
	dir     Direction
	length  int
	workers int
}

func NewEnsemble(sys dynamo.System, order int, dir Direction, length int) *Ensemble {
	return &Ensemble{
		sys:     sys,
		order:   order,
		dir:     dir,
		length:  length,
		workers: runtime.GOMAXPROCS(0),
	}
}

// SetWorkers caps the number of goroutines. Values below 1 mean one.
func (e *Ensemble) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	e.workers = n
}

// Run returns the orbits in the order of x0s. The first failure, or
// cancellation of ctx, stops every worker; the error of the lowest failing
// index is returned.
func (e *Ensemble) Run(ctx context.Context, x0s []dynamo.State) ([]*Orbit, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	n := len(x0s)
	orbits := make([]*Orbit, n)
	errs := make([]error, n)
	if n == 0 {
		return orbits, nil
	}

	workers := e.workers
	if workers > n {
		workers = n
	}
	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			m := e.sys.Spawn()
			for i := start; i < end; i++ {
				if ctx.Err() != nil {
					errs[i] = context.Cause(ctx)
					return
				}
				orbits[i], errs[i] = generate(ctx, m, e.order, e.dir, e.length, x0s[i].Vec())
				if errs[i] != nil {
					slog.Debug("ensemble member failed", "index", i, "err", errs[i])
					cancel(errs[i])
					return
				}
			}
		}(start, end)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return orbits, nil
}
