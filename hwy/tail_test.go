package hwy

import (
	"testing"
)

func TestProcessWithTail(t *testing.T) {
	tests := []struct {
		size, lanes   int
		full          []int
		tailOff, tail int
	}{
		{size: 8, lanes: 4, full: []int{0, 4}},
		{size: 10, lanes: 4, full: []int{0, 4}, tailOff: 8, tail: 2},
		{size: 3, lanes: 4, tail: 3},
		{size: 0, lanes: 4},
	}
	for _, tt := range tests {
		var full []int
		tailOff, tail := 0, 0
		ProcessWithTail(tt.size, tt.lanes,
			func(offset int) { full = append(full, offset) },
			func(offset, count int) { tailOff, tail = offset, count },
		)
		if len(full) != len(tt.full) {
			t.Errorf("size %d: full calls %v, want %v", tt.size, full, tt.full)
			continue
		}
		for i := range full {
			if full[i] != tt.full[i] {
				t.Errorf("size %d: full calls %v, want %v", tt.size, full, tt.full)
			}
		}
		if tailOff != tt.tailOff || tail != tt.tail {
			t.Errorf("size %d: tail (%d,%d), want (%d,%d)", tt.size, tailOff, tail, tt.tailOff, tt.tail)
		}
	}
}

func TestAlign(t *testing.T) {
	tests := []struct{ n, align, hi, lo int }{
		{0, 8, 0, 0},
		{1, 8, 8, 0},
		{8, 8, 8, 8},
		{9, 8, 16, 8},
		{13, 4, 16, 12},
	}
	for _, tt := range tests {
		if got := AlignHi(tt.n, tt.align); got != tt.hi {
			t.Errorf("AlignHi(%d, %d) = %d, want %d", tt.n, tt.align, got, tt.hi)
		}
		if got := AlignLo(tt.n, tt.align); got != tt.lo {
			t.Errorf("AlignLo(%d, %d) = %d, want %d", tt.n, tt.align, got, tt.lo)
		}
	}
}
