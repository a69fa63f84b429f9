// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hwy

import (
	"fmt"
	"math"
)

// VectorOps is the fixed-width vector primitive set kernels are written
// against. Implementations differ in lane count and in whether MulAdd is
// fused; results of a given implementation are deterministic.
//
// Loads read min(len(src), Lanes()) elements and leave the remaining lanes
// zero. Stores write min(len(dst), Lanes()) elements.
type VectorOps[T Floats] interface {
	// Level returns the dispatch level this implementation models.
	Level() DispatchLevel

	// Name returns a human-readable target name, e.g. "avx2".
	Name() string

	// Lanes returns the number of T elements per vector.
	Lanes() int

	// Fused reports whether MulAdd rounds once.
	Fused() bool

	Zero() Vec[T]
	Set(value T) Vec[T]
	Load(src []T) Vec[T]
	Store(v Vec[T], dst []T)
	Add(a, b Vec[T]) Vec[T]
	Mul(a, b Vec[T]) Vec[T]

	// MulAdd returns a*b + c.
	MulAdd(a, b, c Vec[T]) Vec[T]

	// TailMask returns a mask with the first count lanes active.
	TailMask(count int) Mask[T]

	// MaskLoad loads only active lanes; inactive lanes are zero and their
	// source elements are never read.
	MaskLoad(m Mask[T], src []T) Vec[T]

	// MaskStore writes only active lanes; other elements of dst are untouched.
	MaskStore(m Mask[T], v Vec[T], dst []T)

	// ReduceSum adds the lanes in increasing lane order.
	ReduceSum(v Vec[T]) T
}

// Target is the portable VectorOps implementation for one dispatch level.
// Lanes are processed by plain Go loops over a fixed-size register.
type Target[T Floats] struct {
	level  DispatchLevel
	lanes  int
	fused  bool
	single bool
}

var _ VectorOps[float32] = (*Target[float32])(nil)

// NewTarget returns the VectorOps for a dispatch level.
// It panics on a level not listed by Levels.
func NewTarget[T Floats](level DispatchLevel) *Target[T] {
	var fused bool
	switch level {
	case DispatchScalar, DispatchSSE2:
		// SSE2 has no FMA; the scalar target mirrors it.
	case DispatchAVX2, DispatchAVX512, DispatchNEON:
		fused = true
	default:
		panic(fmt.Sprintf("hwy: NewTarget: unknown dispatch level %d", int(level)))
	}
	return &Target[T]{
		level:  level,
		lanes:  levelWidth(level) / sizeOf[T](),
		fused:  fused,
		single: sizeOf[T]() == 4,
	}
}

// CurrentTarget returns the VectorOps for the detected dispatch level.
func CurrentTarget[T Floats]() *Target[T] {
	return NewTarget[T](currentLevel)
}

// Targets returns one VectorOps per dispatch level. All of them run on any
// CPU, which lets tests compare every width against each other.
func Targets[T Floats]() []*Target[T] {
	levels := Levels()
	targets := make([]*Target[T], len(levels))
	for i, level := range levels {
		targets[i] = NewTarget[T](level)
	}
	return targets
}

func (t *Target[T]) Level() DispatchLevel { return t.level }
func (t *Target[T]) Name() string         { return t.level.String() }
func (t *Target[T]) Lanes() int           { return t.lanes }
func (t *Target[T]) Fused() bool          { return t.fused }

func (t *Target[T]) String() string {
	return fmt.Sprintf("%s/%d", t.level, t.lanes)
}

func (t *Target[T]) Zero() Vec[T] {
	return Vec[T]{}
}

func (t *Target[T]) Set(value T) Vec[T] {
	var v Vec[T]
	for i := range t.lanes {
		v.data[i] = value
	}
	return v
}

func (t *Target[T]) Load(src []T) Vec[T] {
	var v Vec[T]
	copy(v.data[:t.lanes], src)
	return v
}

func (t *Target[T]) Store(v Vec[T], dst []T) {
	copy(dst, v.data[:t.lanes])
}

func (t *Target[T]) Add(a, b Vec[T]) Vec[T] {
	var v Vec[T]
	for i := range t.lanes {
		v.data[i] = a.data[i] + b.data[i]
	}
	return v
}

func (t *Target[T]) Mul(a, b Vec[T]) Vec[T] {
	var v Vec[T]
	for i := range t.lanes {
		v.data[i] = a.data[i] * b.data[i]
	}
	return v
}

func (t *Target[T]) MulAdd(a, b, c Vec[T]) Vec[T] {
	var v Vec[T]
	if t.fused && t.single {
		for i := range t.lanes {
			v.data[i] = T(fmaFloat32(float32(a.data[i]), float32(b.data[i]), float32(c.data[i])))
		}
		return v
	}
	if t.fused {
		for i := range t.lanes {
			v.data[i] = T(math.FMA(float64(a.data[i]), float64(b.data[i]), float64(c.data[i])))
		}
		return v
	}
	for i := range t.lanes {
		// The conversion forces the product to be rounded so the
		// compiler cannot fuse it on arm64.
		v.data[i] = T(a.data[i]*b.data[i]) + c.data[i]
	}
	return v
}

func (t *Target[T]) TailMask(count int) Mask[T] {
	count = max(0, min(count, t.lanes))
	return Mask[T]{bits: uint32(1)<<uint(count) - 1}
}

func (t *Target[T]) MaskLoad(m Mask[T], src []T) Vec[T] {
	var v Vec[T]
	n := min(len(src), t.lanes)
	for i := range n {
		if m.bits&(1<<uint(i)) != 0 {
			v.data[i] = src[i]
		}
	}
	return v
}

func (t *Target[T]) MaskStore(m Mask[T], v Vec[T], dst []T) {
	n := min(len(dst), t.lanes)
	for i := range n {
		if m.bits&(1<<uint(i)) != 0 {
			dst[i] = v.data[i]
		}
	}
}

func (t *Target[T]) ReduceSum(v Vec[T]) T {
	var sum T
	for i := range t.lanes {
		sum += v.data[i]
	}
	return sum
}

// fmaFloat32 returns a*b+c rounded once to float32.
//
// The product of two float32 values is exact in float64. The sum is
// rounded to odd in float64, which has more than twice the float32
// precision, so the final conversion cannot double-round.
func fmaFloat32(a, b, c float32) float32 {
	p := float64(a) * float64(b)
	s := p + float64(c)
	if math.IsInf(s, 0) || math.IsNaN(s) {
		return float32(s)
	}
	// TwoSum: p + c == s + e exactly.
	bv := s - p
	e := (p - (s - bv)) + (float64(c) - bv)
	if e != 0 && math.Float64bits(s)&1 == 0 {
		s = math.Nextafter(s, math.Copysign(math.Inf(1), e))
	}
	return float32(s)
}
