package saltmap

import (
	"fmt"
	"runtime"
	"sync"
)

// minChunksForParallel is the threshold below which chunk work runs
// sequentially in the calling goroutine rather than paying worker-pool
// setup cost.
const minChunksForParallel = 4

// runParallel runs work(i) for every i in [0, n), using up to maxWorkers
// goroutines draining a shared job channel. The channel carries chunk
// indices rather than ciphertext jobs, since the caller's work closure
// captures its own pre-sized output slot directly. A panic in a pool worker
// is recovered and surfaced as an error; below minChunksForParallel the work
// runs in the calling goroutine and a panic there is not recovered.
func runParallel(n, maxWorkers int, work func(i int) error) error {
	if n == 0 {
		return nil
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	if maxWorkers > n {
		maxWorkers = n
	}

	if n < minChunksForParallel {
		for i := 0; i < n; i++ {
			if err := work(i); err != nil {
				return err
			}
		}
		return nil
	}

	jobs := make(chan int, n)
	errs := make(chan error, maxWorkers)
	var wg sync.WaitGroup

	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					select {
					case errs <- fmt.Errorf("panic in chunk worker: %v", r):
					default:
					}
				}
			}()
			for idx := range jobs {
				if err := work(idx); err != nil {
					select {
					case errs <- err:
					default:
					}
					return
				}
			}
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(errs)

	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}
