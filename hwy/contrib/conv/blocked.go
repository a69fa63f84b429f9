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

package conv

import "github.com/ajroetker/hwyconv/hwy"

// maxStripes is the most vectors a CellB-wide row can take: 128-bit
// float64 vectors hold 2 lanes.
const maxStripes = CellB / 2

// cellLayout describes how one CellB-wide row of packed B maps onto vectors
// of the running target. With lanes > CellB the single stripe is partial.
type cellLayout[T hwy.Floats] struct {
	lanes   int
	stripes int
	// last is the mask of the final stripe, full unless CellB%lanes != 0.
	last hwy.Mask[T]
	// partial reports whether last covers fewer than lanes elements.
	partial bool
}

func newCellLayout[T hwy.Floats](ops hwy.VectorOps[T]) cellLayout[T] {
	lanes := ops.Lanes()
	stripes := (CellB + lanes - 1) / lanes
	lastWidth := CellB - (stripes-1)*lanes
	return cellLayout[T]{
		lanes:   lanes,
		stripes: stripes,
		last:    ops.TailMask(lastWidth),
		partial: lastWidth < lanes,
	}
}

// load reads stripe s of a packed B row.
func (l cellLayout[T]) load(ops hwy.VectorOps[T], row []T, s int) hwy.Vec[T] {
	if l.partial && s == l.stripes-1 {
		return ops.MaskLoad(l.last, row[s*l.lanes:])
	}
	return ops.Load(row[s*l.lanes:])
}

// addRow adds the accumulators of one output row into c, committing only
// the first cols columns.
func (l cellLayout[T]) addRow(ops hwy.VectorOps[T], acc []hwy.Vec[T], c []T, cols int) {
	for s := range l.stripes {
		off := s * l.lanes
		width := cols - off
		if width <= 0 {
			return
		}
		dst := c[off:]
		if width >= l.lanes {
			ops.Store(ops.Add(ops.Load(dst), acc[s]), dst)
			continue
		}
		m := ops.TailMask(width)
		ops.MaskStore(m, ops.Add(ops.MaskLoad(m, dst), acc[s]), dst)
	}
}

// blockedMatMul computes C += A * B with A packed by packWeightsBlocked and
// B packed by packPatchesBlocked. Each CellA x CellB block of C keeps its
// accumulators in registers for the whole K loop, summing in increasing k,
// and is added to C once.
//
// Parameters:
//   - a: packed weights, size >= m * k
//   - b: packed patches, size >= AlignHi(n, CellB) * k
//   - c: M x N output in row-major order, accumulated into
//   - m, n, k: matrix dimensions
func blockedMatMul[T hwy.Floats](ops hwy.VectorOps[T], a, b, c []T, m, n, k int) {
	if len(a) < m*k {
		panic("blockedMatMul: a slice too short")
	}
	if len(b) < hwy.AlignHi(n, CellB)*k {
		panic("blockedMatMul: b slice too short")
	}
	if len(c) < m*n {
		panic("blockedMatMul: c slice too short")
	}

	layout := newCellLayout(ops)
	for i := 0; i < m; i += CellA {
		rows := min(CellA, m-i)
		ai := a[i*k : (i+rows)*k]
		for j := 0; j < n; j += CellB {
			cols := min(CellB, n-j)
			bj := b[j*k : (j+CellB)*k]
			cij := c[i*n+j:]
			if rows == CellA {
				kernel4xB(ops, layout, ai, bj, cij, n, k, cols)
			} else {
				kernelMxB(ops, layout, ai, bj, cij, n, k, rows, cols)
			}
		}
	}
}

// kernel4xB computes one full CellA x CellB block.
func kernel4xB[T hwy.Floats](ops hwy.VectorOps[T], l cellLayout[T], a, b, c []T, ldc, k, cols int) {
	var acc0, acc1, acc2, acc3 [maxStripes]hwy.Vec[T]
	for kk := range k {
		ak := a[kk*CellA : (kk+1)*CellA]
		bk := b[kk*CellB : (kk+1)*CellB]
		a0, a1, a2, a3 := ops.Set(ak[0]), ops.Set(ak[1]), ops.Set(ak[2]), ops.Set(ak[3])
		for s := range l.stripes {
			bv := l.load(ops, bk, s)
			acc0[s] = ops.MulAdd(a0, bv, acc0[s])
			acc1[s] = ops.MulAdd(a1, bv, acc1[s])
			acc2[s] = ops.MulAdd(a2, bv, acc2[s])
			acc3[s] = ops.MulAdd(a3, bv, acc3[s])
		}
	}
	l.addRow(ops, acc0[:], c, cols)
	l.addRow(ops, acc1[:], c[ldc:], cols)
	l.addRow(ops, acc2[:], c[2*ldc:], cols)
	l.addRow(ops, acc3[:], c[3*ldc:], cols)
}

// kernelMxB computes the block of the last rows < CellA output channels.
// Packed A has stride rows per k in that block.
func kernelMxB[T hwy.Floats](ops hwy.VectorOps[T], l cellLayout[T], a, b, c []T, ldc, k, rows, cols int) {
	var acc [CellA - 1][maxStripes]hwy.Vec[T]
	for kk := range k {
		ak := a[kk*rows : (kk+1)*rows]
		bk := b[kk*CellB : (kk+1)*CellB]
		for s := range l.stripes {
			bv := l.load(ops, bk, s)
			for r := range rows {
				acc[r][s] = ops.MulAdd(ops.Set(ak[r]), bv, acc[r][s])
			}
		}
	}
	for r := range rows {
		l.addRow(ops, acc[r][:], c[r*ldc:], cols)
	}
}

// runBlocked packs weights into a, patches into b (through t unless the
// kernel is pointwise) and runs the blocked product.
func runBlocked[T hwy.Floats](ops hwy.VectorOps[T], p Plan, src, weights []T, ws workspace[T], dst []T) {
	packWeightsBlocked(weights, ws.a, p.M, p.K)
	patches := src
	if !p.Geometry.pointwise() {
		extractPatches(p.Resolved, src, ws.t)
		patches = ws.t
	}
	packPatchesBlocked(patches, ws.b, p.N, p.K)
	blockedMatMul(ops, ws.a, ws.b, dst, p.M, p.N, p.K)
}
