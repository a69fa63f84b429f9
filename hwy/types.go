// Package hwy provides the portable vector primitives the convolution
// engine is written against, with one VectorOps variant per dispatch target.
//
// Each target fixes a register width and whether multiply-add is fused.
// Kernels take a VectorOps[T] and never name a concrete target, so the same
// kernel source runs at 128, 256 or 512 bits:
//
//	ops := hwy.CurrentTarget[float32]()
//	acc := ops.Zero()
//	for i := 0; i+ops.Lanes() <= len(a); i += ops.Lanes() {
//	    acc = ops.MulAdd(ops.Load(a[i:]), ops.Load(b[i:]), acc)
//	}
//	sum := ops.ReduceSum(acc)
package hwy

// Floats is a constraint for floating-point types.
type Floats interface {
	~float32 | ~float64
}

// MaxVectorBytes is the widest register width of any target (AVX-512).
const MaxVectorBytes = 64

// maxLanes is the largest lane count of any target and element type:
// 512 bits of float32.
const maxLanes = MaxVectorBytes / 4

// Vec is a value-type vector register. Only the first Lanes() lanes of the
// target that produced it are meaningful; the rest stay zero.
//
// Vec instances should not be created directly; use Load, Set, or Zero on a
// VectorOps instead. The zero value is a vector of zeros.
type Vec[T Floats] struct {
	data [maxLanes]T
}

// Lane returns lane i. Primarily for testing.
func (v Vec[T]) Lane(i int) T {
	return v.data[i]
}

// Mask selects a prefix or subset of lanes for MaskLoad and MaskStore.
//
// Mask instances should not be created directly; use TailMask instead.
type Mask[T Floats] struct {
	// bit i is set if lane i is active.
	bits uint32
}

// GetBit returns whether lane i is active.
func (m Mask[T]) GetBit(i int) bool {
	if i < 0 || i >= maxLanes {
		return false
	}
	return m.bits&(1<<uint(i)) != 0
}

// CountTrue returns the number of active lanes in the mask.
func (m Mask[T]) CountTrue() int {
	count := 0
	for b := m.bits; b != 0; b &= b - 1 {
		count++
	}
	return count
}
