package worker

import (
	"context"
	"runtime"
	"sync"
)

// BatchResult aggregates the outcome of a batch run. Results keep the
// order of the input payloads.
type BatchResult struct {
	Results []*JobResult
	Failed  int
}

// ConstructBatch builds all payloads in parallel and returns results
// in input order. workers <= 0 selects runtime.NumCPU(); a canceled
// context marks the remaining jobs with ctx.Err().
func ConstructBatch(ctx context.Context, payloads [][]byte, workers int, fn ConstructFunc) *BatchResult {
	out := &BatchResult{Results: make([]*JobResult, len(payloads))}
	if len(payloads) == 0 {
		return out
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(payloads) {
		workers = len(payloads)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				if err := ctx.Err(); err != nil {
					out.Results[i] = &JobResult{Err: err}
					continue
				}
				value, err := fn(ctx, payloads[i])
				out.Results[i] = &JobResult{Value: value, Err: err}
			}
		}()
	}
	for i := range payloads {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	for _, r := range out.Results {
		if r.Err != nil {
			out.Failed++
		}
	}
	return out
}
