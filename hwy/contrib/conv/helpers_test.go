package conv

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ajroetker/hwyconv/hwy"
)

// referenceConv is the scalar definition of the convolution, accumulated in
// float64 and added to dst.
func referenceConv[T hwy.Floats](src []T, srcShape Shape, weights []T, g Geometry, dst []T, dstShape Shape) {
	sw, sh, sd := srcShape.Width, srcShape.Height, srcShape.Depth
	for o := range dstShape.Depth {
		for dy := range dstShape.Height {
			for dx := range dstShape.Width {
				var sum float64
				for c := range sd {
					for ky := range g.KernelY {
						sy := dy*g.StrideY + ky*g.DilationY - g.PadY
						if sy < 0 || sy >= sh {
							continue
						}
						for kx := range g.KernelX {
							sx := dx*g.StrideX + kx*g.DilationX - g.PadX
							if sx < 0 || sx >= sw {
								continue
							}
							w := weights[((o*sd+c)*g.KernelY+ky)*g.KernelX+kx]
							sum += float64(w) * float64(src[(c*sh+sy)*sw+sx])
						}
					}
				}
				dst[(o*dstShape.Height+dy)*dstShape.Width+dx] += T(sum)
			}
		}
	}
}

func randomSlice[T hwy.Floats](rng *rand.Rand, n int) []T {
	s := make([]T, n)
	for i := range s {
		s[i] = T(rng.Float64()*2 - 1)
	}
	return s
}

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed*31+7))
}

// tolerance returns the relative and absolute error allowed for T.
func tolerance[T hwy.Floats]() (fraction, margin float64) {
	var zero T
	if _, ok := any(zero).(float32); ok {
		return 1e-5, 1e-4
	}
	return 1e-12, 1e-10
}

func requireClose[T hwy.Floats](t *testing.T, want, got []T) {
	t.Helper()
	fraction, margin := tolerance[T]()
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(fraction, margin)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

// convCase is a convolution problem with random operands.
type convCase struct {
	name     string
	src      Shape
	g        Geometry
	dstDepth int
}

func (c convCase) dstShape(t *testing.T) Shape {
	t.Helper()
	r, err := Resolve(c.src, c.g, c.dstDepth)
	if err != nil {
		t.Fatalf("%s: Resolve: %v", c.name, err)
	}
	return r.Dst
}

type operands[T hwy.Floats] struct {
	src     Tensor[T]
	weights []T
	dst     Shape
}

func makeOperands[T hwy.Floats](t *testing.T, c convCase, seed uint64) operands[T] {
	t.Helper()
	rng := newRNG(seed)
	return operands[T]{
		src:     Tensor[T]{Data: randomSlice[T](rng, c.src.Size()), Shape: c.src},
		weights: randomSlice[T](rng, c.dstDepth*c.g.Taps()*c.src.Depth),
		dst:     c.dstShape(t),
	}
}

func (op operands[T]) reference(g Geometry) []T {
	out := make([]T, op.dst.Size())
	referenceConv(op.src.Data, op.src.Shape, op.weights, g, out, op.dst)
	return out
}

func (op operands[T]) newDst() Tensor[T] {
	return Tensor[T]{Data: make([]T, op.dst.Size()), Shape: op.dst}
}
