package services

import "sync"

// runBounded executes fn(0..n-1) across goroutines, never more than
// maxConcurrent at once, and waits for all of them. Checks are
// independent by contract, so no error short-circuits the batch.
func runBounded(maxConcurrent, n int, fn func(i int)) {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)
	}

	wg.Wait()
}
