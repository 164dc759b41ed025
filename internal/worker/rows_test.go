package worker

import (
	"sync/atomic"
	"testing"
)

func TestSplitRowsCoversAllRows(t *testing.T) {
	tests := []struct {
		height int
		n      int
		want   int
	}{
		{10, 3, 3},
		{2, 8, 2},
		{100, 1, 1},
		{7, 0, 1},
	}

	for _, tt := range tests {
		bands := SplitRows(tt.height, tt.n)
		if len(bands) != tt.want {
			t.Fatalf("SplitRows(%d, %d): expected %d bands, got %d", tt.height, tt.n, tt.want, len(bands))
		}
		next := 0
		for _, b := range bands {
			if b.Start != next {
				t.Fatalf("SplitRows(%d, %d): gap before band %+v", tt.height, tt.n, b)
			}
			if b.End <= b.Start {
				t.Fatalf("SplitRows(%d, %d): empty band %+v", tt.height, tt.n, b)
			}
			next = b.End
		}
		if next != tt.height {
			t.Fatalf("SplitRows(%d, %d): bands end at %d", tt.height, tt.n, next)
		}
	}
}

func TestRowsVisitsEachRowOnce(t *testing.T) {
	const width, height = 512, 300 // above ParallelThreshold
	visits := make([]int32, height)

	RowsN(width, height, 4, func(b Band) {
		for r := b.Start; r < b.End; r++ {
			atomic.AddInt32(&visits[r], 1)
		}
	})

	for r, v := range visits {
		if v != 1 {
			t.Fatalf("row %d visited %d times", r, v)
		}
	}
}

func TestRowsSmallGridRunsInline(t *testing.T) {
	calls := 0
	Rows(4, 4, func(b Band) {
		calls++
		if b.Start != 0 || b.End != 4 {
			t.Errorf("expected single full band, got %+v", b)
		}
	})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
