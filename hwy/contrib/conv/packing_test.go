package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// poisoned returns a slice filled with NaN so unwritten elements show up.
func poisoned(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(math.NaN())
	}
	return s
}

func TestPackWeightsBlocked(t *testing.T) {
	const m, k = 5, 3
	w := make([]float32, m*k)
	for i := range m {
		for kk := range k {
			w[i*k+kk] = float32(10*i + kk)
		}
	}
	dst := poisoned(m * k)
	packWeightsBlocked(w, dst, m, k)

	want := []float32{
		// rows 0..3, [k][row]
		0, 10, 20, 30,
		1, 11, 21, 31,
		2, 12, 22, 32,
		// remainder row 4, unpadded
		40, 41, 42,
	}
	assert.Equal(t, want, dst)
}

func TestPackPatchesBlocked(t *testing.T) {
	const n, k = 10, 2
	src := make([]float32, k*n)
	for kk := range k {
		for j := range n {
			src[kk*n+j] = float32(100*kk + j)
		}
	}
	dst := poisoned(16 * k)
	packPatchesBlocked(src, dst, n, k)

	want := []float32{
		0, 1, 2, 3, 4, 5, 6, 7,
		100, 101, 102, 103, 104, 105, 106, 107,
		8, 9, 0, 0, 0, 0, 0, 0,
		108, 109, 0, 0, 0, 0, 0, 0,
	}
	assert.Equal(t, want, dst)
}

func TestPackDirectLayout(t *testing.T) {
	// 3x2 input with one channel, 2x2 kernel, pad 1: 4x3 outputs.
	r, err := Resolve(Shape{3, 2, 1}, Square(2, 1, 1, 1), 1)
	require.NoError(t, err)
	src := []float32{
		1, 2, 3,
		4, 5, 6,
	}
	dst := poisoned(r.N * r.K)
	packDirect(r, src, dst)

	want := []float32{
		0, 0, 0, 1, // (0,0)
		0, 0, 1, 2,
		0, 0, 2, 3,
		0, 0, 3, 0,
		0, 1, 0, 4, // (1,0)
		1, 2, 4, 5,
		2, 3, 5, 6,
		3, 0, 6, 0,
		0, 4, 0, 0, // (2,0)
		4, 5, 0, 0,
		5, 6, 0, 0,
		6, 0, 0, 0,
	}
	assert.Equal(t, want, dst)
}

// packingCases covers runs fully inside, clipped on either side and fully
// outside the input.
var packingCases = []convCase{
	{name: "3x3 pad 1", src: Shape{7, 5, 3}, g: Square(3, 1, 1, 1), dstDepth: 1},
	{name: "2x2 valid", src: Shape{6, 6, 2}, g: Square(2, 0, 1, 1), dstDepth: 1},
	{name: "pad wider than kernel", src: Shape{3, 4, 2}, g: Square(2, 3, 1, 1), dstDepth: 1},
	{name: "5x5 pad 2", src: Shape{9, 4, 1}, g: Square(5, 2, 1, 1), dstDepth: 1},
	{name: "1x1", src: Shape{5, 3, 4}, g: Square(1, 0, 1, 1), dstDepth: 1},
	{name: "1x1 pad 1", src: Shape{5, 3, 2}, g: Square(1, 1, 1, 1), dstDepth: 1},
	{
		name: "rectangular", src: Shape{8, 6, 2}, dstDepth: 1,
		g: Geometry{KernelX: 4, KernelY: 2, PadX: 2, PadY: 1, StrideX: 1, StrideY: 1, DilationX: 1, DilationY: 1},
	},
}

func TestPackDirectMatchesGeneral(t *testing.T) {
	for _, c := range packingCases {
		t.Run(c.name, func(t *testing.T) {
			op := makeOperands[float32](t, c, 3)
			r, err := Resolve(c.src, c.g, c.dstDepth)
			require.NoError(t, err)

			want := poisoned(r.N * r.K)
			packDirectGeneral(r, op.src.Data, want)
			got := poisoned(r.N * r.K)
			packDirect(r, op.src.Data, got)
			assert.Equal(t, want, got)
		})
	}
}

func TestExtractPatchesMatchesGeneral(t *testing.T) {
	for _, c := range packingCases {
		t.Run(c.name, func(t *testing.T) {
			op := makeOperands[float32](t, c, 5)
			r, err := Resolve(c.src, c.g, c.dstDepth)
			require.NoError(t, err)

			want := poisoned(r.N * r.K)
			extractPatchesGeneral(r, op.src.Data, want)
			got := poisoned(r.N * r.K)
			extractPatches(r, op.src.Data, got)
			assert.Equal(t, want, got)

			// The K x N extraction is the transpose of the Direct layout.
			direct := poisoned(r.N * r.K)
			packDirectGeneral(r, op.src.Data, direct)
			for j := range r.N {
				for kk := range r.K {
					require.Equal(t, direct[j*r.K+kk], got[kk*r.N+j], "position %d element %d", j, kk)
				}
			}
		})
	}
}

func TestPointwiseSourceIsPatchMatrix(t *testing.T) {
	c := convCase{name: "1x1", src: Shape{5, 3, 4}, g: Square(1, 0, 1, 1), dstDepth: 1}
	op := makeOperands[float32](t, c, 9)
	r, err := Resolve(c.src, c.g, c.dstDepth)
	require.NoError(t, err)

	patches := poisoned(r.N * r.K)
	extractPatchesGeneral(r, op.src.Data, patches)
	assert.Equal(t, op.src.Data, patches)
}

func TestStagePadded(t *testing.T) {
	r, err := Resolve(Shape{3, 2, 2}, Square(3, 1, 1, 1), 1)
	require.NoError(t, err)
	p := newPlan(r, SlidingWindow, 4, 4)
	require.Equal(t, 8, p.PaddedWidth)
	require.Equal(t, 4, p.PaddedHeight)

	src := []float32{
		1, 2, 3,
		4, 5, 6,

		7, 8, 9,
		10, 11, 12,
	}
	dst := poisoned(p.SizeB)
	stagePadded(p, src, dst)

	want := []float32{
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 1, 2, 3, 0, 0, 0, 0,
		0, 4, 5, 6, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,

		0, 0, 0, 0, 0, 0, 0, 0,
		0, 7, 8, 9, 0, 0, 0, 0,
		0, 10, 11, 12, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	assert.Equal(t, want, dst)
}

func TestValidRun(t *testing.T) {
	tests := []struct{ start, count, size, lo, hi int }{
		{0, 3, 5, 0, 3},
		{-1, 3, 5, 1, 3},
		{3, 3, 5, 0, 2},
		{-4, 3, 5, 3, 3},
		{7, 3, 5, 0, 0},
		{-1, 7, 5, 1, 6},
	}
	for _, tt := range tests {
		lo, hi := validRun(tt.start, tt.count, tt.size)
		assert.Equal(t, [2]int{tt.lo, tt.hi}, [2]int{lo, hi}, "validRun(%d, %d, %d)", tt.start, tt.count, tt.size)
	}
}
