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

// directMatMul computes C += A * B^T where every row of A (weights) and of
// B (patches) holds k contiguous values. Four patch rows share each load of
// a weight vector; the K remainder is read through a tail mask.
//
// Parameters:
//   - a: M x K weights in row-major order
//   - b: N x K patches in row-major order
//   - c: M x N output in row-major order, accumulated into
//   - m, n, k: matrix dimensions
func directMatMul[T hwy.Floats](ops hwy.VectorOps[T], a, b, c []T, m, n, k int) {
	if len(a) < m*k {
		panic("directMatMul: a slice too short")
	}
	if len(b) < n*k {
		panic("directMatMul: b slice too short")
	}
	if len(c) < m*n {
		panic("directMatMul: c slice too short")
	}

	lanes := ops.Lanes()
	full := hwy.AlignLo(k, lanes)
	tail := ops.TailMask(k - full)

	for i := range m {
		ai := a[i*k : (i+1)*k]
		ci := c[i*n : (i+1)*n]
		j := 0
		for ; j+4 <= n; j += 4 {
			b0 := b[j*k : (j+1)*k]
			b1 := b[(j+1)*k : (j+2)*k]
			b2 := b[(j+2)*k : (j+3)*k]
			b3 := b[(j+3)*k : (j+4)*k]
			s0, s1, s2, s3 := ops.Zero(), ops.Zero(), ops.Zero(), ops.Zero()
			for kk := 0; kk < full; kk += lanes {
				av := ops.Load(ai[kk:])
				s0 = ops.MulAdd(av, ops.Load(b0[kk:]), s0)
				s1 = ops.MulAdd(av, ops.Load(b1[kk:]), s1)
				s2 = ops.MulAdd(av, ops.Load(b2[kk:]), s2)
				s3 = ops.MulAdd(av, ops.Load(b3[kk:]), s3)
			}
			if full < k {
				av := ops.MaskLoad(tail, ai[full:])
				s0 = ops.MulAdd(av, ops.MaskLoad(tail, b0[full:]), s0)
				s1 = ops.MulAdd(av, ops.MaskLoad(tail, b1[full:]), s1)
				s2 = ops.MulAdd(av, ops.MaskLoad(tail, b2[full:]), s2)
				s3 = ops.MulAdd(av, ops.MaskLoad(tail, b3[full:]), s3)
			}
			ci[j] += ops.ReduceSum(s0)
			ci[j+1] += ops.ReduceSum(s1)
			ci[j+2] += ops.ReduceSum(s2)
			ci[j+3] += ops.ReduceSum(s3)
		}
		for ; j < n; j++ {
			bj := b[j*k : (j+1)*k]
			s := ops.Zero()
			for kk := 0; kk < full; kk += lanes {
				s = ops.MulAdd(ops.Load(ai[kk:]), ops.Load(bj[kk:]), s)
			}
			if full < k {
				s = ops.MulAdd(ops.MaskLoad(tail, ai[full:]), ops.MaskLoad(tail, bj[full:]), s)
			}
			ci[j] += ops.ReduceSum(s)
		}
	}
}

// runDirect packs the patches into b and multiplies them with the
// unpacked weights.
func runDirect[T hwy.Floats](ops hwy.VectorOps[T], p Plan, src, weights []T, ws workspace[T], dst []T) {
	packDirect(p.Resolved, src, ws.b)
	directMatMul(ops, weights, ws.b, dst, p.M, p.N, p.K)
}
