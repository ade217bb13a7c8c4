package images

import (
	"runtime"
	"sync"
)

// Parallel partitions [0,dataSize) across one goroutine per CPU and calls fn
// with each partition's bounds. Small inputs run serially because the fan-out
// overhead is not worth it.
func Parallel(dataSize int, fn func(partStart, partEnd int)) {
	numGoroutines := runtime.NumCPU()

	if dataSize < numGoroutines*2 {
		fn(0, dataSize)
		return
	}

	partSize := dataSize / numGoroutines

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		partStart := i * partSize
		partEnd := partStart + partSize
		if i == numGoroutines-1 {
			partEnd = dataSize
		}
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(partStart, partEnd)
	}
	wg.Wait()
}
