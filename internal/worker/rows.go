package worker

import (
	"runtime"
	"sync"
)

// ParallelThreshold is the minimum number of cells before row work is spread
// across goroutines. Smaller grids run on the calling goroutine.
const ParallelThreshold = 16 * 1024

// Band is a half-open range of rows [Start, End).
type Band struct {
	Start int
	End   int
}

// RowFunc processes the rows of a band. Implementations must only write to
// output rows inside the band.
type RowFunc func(b Band)

// Rows runs fn over all rows of a height x width raster.
// Bands are fed to a fixed set of workers; the call blocks until every band is done.
func Rows(width, height int, fn RowFunc) {
	RowsN(width, height, runtime.GOMAXPROCS(0), fn)
}

// RowsN is Rows with an explicit worker count.
func RowsN(width, height, workers int, fn RowFunc) {
	if height <= 0 {
		return
	}
	if workers <= 1 || width*height < ParallelThreshold || height == 1 {
		fn(Band{Start: 0, End: height})
		return
	}

	bands := SplitRows(height, workers*4)
	if workers > len(bands) {
		workers = len(bands)
	}

	bandCh := make(chan Band, len(bands))
	for _, b := range bands {
		bandCh <- b
	}
	close(bandCh)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range bandCh {
				fn(b)
			}
		}()
	}
	wg.Wait()
}

// SplitRows partitions height rows into at most n contiguous bands of near-equal size.
func SplitRows(height, n int) []Band {
	if height <= 0 {
		return nil
	}
	if n <= 0 {
		n = 1
	}
	if n > height {
		n = height
	}

	bands := make([]Band, 0, n)
	size := height / n
	rem := height % n
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < rem {
			end++
		}
		bands = append(bands, Band{Start: start, End: end})
		start = end
	}
	return bands
}
