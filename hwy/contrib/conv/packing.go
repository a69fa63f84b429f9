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

// Patch packing. Every function here writes every element of its output
// range, zeros included, so workspace memory never needs clearing.

// packDirect writes the patch matrix for Direct: N rows of K values, row
// j holding the receptive field of output position j in
// (channel, kernelRow, kernelCol) order. Taps outside the input are 0.
//
// The result is identical to packDirectGeneral; the faster variants only
// replace per-element bounds checks with run copies.
func packDirect[T hwy.Floats](r Resolved, src, dst []T) {
	switch g := r.Geometry; {
	case g.pointwise():
		packDirectPointwise(r, src, dst)
	case g.unit():
		packDirectUnit(r, src, dst)
	default:
		packDirectGeneral(r, src, dst)
	}
}

func packDirectGeneral[T hwy.Floats](r Resolved, src, dst []T) {
	g := r.Geometry
	sw, sh := r.Src.Width, r.Src.Height
	i := 0
	for dy := range r.Dst.Height {
		for dx := range r.Dst.Width {
			for c := range r.Src.Depth {
				plane := src[c*sw*sh : (c+1)*sw*sh]
				for ky := range g.KernelY {
					sy := dy*g.StrideY + ky*g.DilationY - g.PadY
					for kx := range g.KernelX {
						sx := dx*g.StrideX + kx*g.DilationX - g.PadX
						if sy >= 0 && sy < sh && sx >= 0 && sx < sw {
							dst[i] = plane[sy*sw+sx]
						} else {
							dst[i] = 0
						}
						i++
					}
				}
			}
		}
	}
}

// packDirectUnit handles stride 1 and dilation 1: each kernel row of a
// patch is a contiguous run of the source row with zero margins.
func packDirectUnit[T hwy.Floats](r Resolved, src, dst []T) {
	g := r.Geometry
	sw, sh := r.Src.Width, r.Src.Height
	kx := g.KernelX
	i := 0
	for dy := range r.Dst.Height {
		for dx := range r.Dst.Width {
			x0 := dx - g.PadX
			lo, hi := validRun(x0, kx, sw)
			for c := range r.Src.Depth {
				plane := src[c*sw*sh : (c+1)*sw*sh]
				for ky := range g.KernelY {
					row := dst[i : i+kx]
					i += kx
					sy := dy + ky - g.PadY
					if sy < 0 || sy >= sh {
						clear(row)
						continue
					}
					clear(row[:lo])
					if hi > lo {
						copy(row[lo:hi], plane[sy*sw+x0+lo:sy*sw+x0+hi])
					}
					clear(row[hi:])
				}
			}
		}
	}
}

// packDirectPointwise handles 1x1 kernels without pad or stride: the patch
// matrix is the transpose of the source.
func packDirectPointwise[T hwy.Floats](r Resolved, src, dst []T) {
	n, k := r.N, r.K
	for c := range k {
		plane := src[c*n : (c+1)*n]
		for j, v := range plane {
			dst[j*k+c] = v
		}
	}
}

// validRun returns the range [lo, hi) of a run of length count starting at
// source coordinate start that falls inside [0, size). lo <= hi always.
func validRun(start, count, size int) (lo, hi int) {
	lo = min(max(0, -start), count)
	hi = max(lo, min(count, size-start))
	return lo, hi
}

// extractPatches writes the unblocked K x N patch matrix for PackedBlocked:
// row k holds receptive-field element k of every output position.
func extractPatches[T hwy.Floats](r Resolved, src, dst []T) {
	if r.Geometry.unit() {
		extractPatchesUnit(r, src, dst)
		return
	}
	extractPatchesGeneral(r, src, dst)
}

func extractPatchesGeneral[T hwy.Floats](r Resolved, src, dst []T) {
	g := r.Geometry
	sw, sh := r.Src.Width, r.Src.Height
	i := 0
	for c := range r.Src.Depth {
		plane := src[c*sw*sh : (c+1)*sw*sh]
		for ky := range g.KernelY {
			for kx := range g.KernelX {
				for dy := range r.Dst.Height {
					sy := dy*g.StrideY + ky*g.DilationY - g.PadY
					for dx := range r.Dst.Width {
						sx := dx*g.StrideX + kx*g.DilationX - g.PadX
						if sy >= 0 && sy < sh && sx >= 0 && sx < sw {
							dst[i] = plane[sy*sw+sx]
						} else {
							dst[i] = 0
						}
						i++
					}
				}
			}
		}
	}
}

// extractPatchesUnit handles stride 1 and dilation 1: for a fixed tap,
// each output row reads a contiguous run of one source row.
func extractPatchesUnit[T hwy.Floats](r Resolved, src, dst []T) {
	g := r.Geometry
	sw, sh := r.Src.Width, r.Src.Height
	dw := r.Dst.Width
	i := 0
	for c := range r.Src.Depth {
		plane := src[c*sw*sh : (c+1)*sw*sh]
		for ky := range g.KernelY {
			for kx := range g.KernelX {
				x0 := kx - g.PadX
				lo, hi := validRun(x0, dw, sw)
				for dy := range r.Dst.Height {
					row := dst[i : i+dw]
					i += dw
					sy := dy + ky - g.PadY
					if sy < 0 || sy >= sh {
						clear(row)
						continue
					}
					clear(row[:lo])
					if hi > lo {
						copy(row[lo:hi], plane[sy*sw+x0+lo:sy*sw+x0+hi])
					}
					clear(row[hi:])
				}
			}
		}
	}
}

// packPatchesBlocked regroups a K x N patch matrix into blocks of CellB
// columns. Block j occupies dst[j*CellB*k:] laid out [k][CellB]; the last
// block is zero-padded to CellB columns.
//
// Parameters:
//   - src: K x N patch matrix in row-major order
//   - dst: output buffer, must have size >= AlignHi(n, CellB) * k
//   - n, k: dimensions of the patch matrix
func packPatchesBlocked[T hwy.Floats](src, dst []T, n, k int) {
	for j := 0; j < n; j += CellB {
		cols := min(CellB, n-j)
		block := dst[j*k : (j+CellB)*k]
		for kk := range k {
			row := block[kk*CellB : (kk+1)*CellB]
			copy(row[:cols], src[kk*n+j:kk*n+j+cols])
			clear(row[cols:])
		}
	}
}

// packWeightsBlocked packs the M x K weight matrix into row blocks of CellA,
// transposed within each block to [k][row] so one patch value meets CellA
// weights in a single load. The last block holds the m%CellA remaining rows
// with stride m%CellA and no padding.
//
// Parameters:
//   - w: weight matrix, M x K in row-major order
//   - dst: output buffer, must have size >= m * k
//   - m, k: dimensions of the weight matrix
func packWeightsBlocked[T hwy.Floats](w, dst []T, m, k int) {
	for i := 0; i < m; i += CellA {
		rows := min(CellA, m-i)
		block := dst[i*k : (i+rows)*k]
		for kk := range k {
			for r := range rows {
				block[kk*rows+r] = w[(i+r)*k+kk]
			}
		}
	}
}

// stagePadded copies each source channel into a PaddedWidth x PaddedHeight
// plane with a zero border of PadX columns and PadY rows; columns beyond
// srcWidth+2*PadX are zero as well.
func stagePadded[T hwy.Floats](p Plan, src, dst []T) {
	g := p.Geometry
	sw, sh := p.Src.Width, p.Src.Height
	pw, ph := p.PaddedWidth, p.PaddedHeight
	for c := range p.Src.Depth {
		plane := src[c*sw*sh : (c+1)*sw*sh]
		out := dst[c*pw*ph : (c+1)*pw*ph]
		clear(out[:g.PadY*pw])
		for y := range sh {
			row := out[(g.PadY+y)*pw : (g.PadY+y+1)*pw]
			clear(row[:g.PadX])
			copy(row[g.PadX:g.PadX+sw], plane[y*sw:(y+1)*sw])
			clear(row[g.PadX+sw:])
		}
		clear(out[(g.PadY+sh)*pw:])
	}
}
