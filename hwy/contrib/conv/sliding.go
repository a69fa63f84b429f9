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

// slidingRow adds the convolution of one output row into dst. src starts
// at the top-left input sample of the row's window, rows are stride
// elements apart and w holds the kernel*kernel broadcast weights.
// Sizes 2 to 5 have the horizontal taps unrolled; others use the generic loop.
//
// The sizes are dispatched with static calls so w can stay on the caller's
// stack.
func slidingRow[T hwy.Floats](ops hwy.VectorOps[T], kernel int, src []T, stride int, w []hwy.Vec[T], dst []T) {
	switch kernel {
	case 2:
		slidingRow2(ops, src, stride, w, dst)
	case 3:
		slidingRow3(ops, src, stride, w, dst)
	case 4:
		slidingRow4(ops, src, stride, w, dst)
	case 5:
		slidingRow5(ops, src, stride, w, dst)
	default:
		slidingRowN(ops, src, stride, w, dst, kernel)
	}
}

func slidingRow2[T hwy.Floats](ops hwy.VectorOps[T], src []T, stride int, w []hwy.Vec[T], dst []T) {
	lanes, width := ops.Lanes(), len(dst)
	x := 0
	for ; x+lanes <= width; x += lanes {
		acc := ops.Load(dst[x:])
		for r := range 2 {
			s, wr := src[r*stride+x:], w[r*2:]
			acc = ops.MulAdd(ops.Load(s), wr[0], acc)
			acc = ops.MulAdd(ops.Load(s[1:]), wr[1], acc)
		}
		ops.Store(acc, dst[x:])
	}
	if x < width {
		slidingTail(ops, src, stride, w, dst, x, 2)
	}
}

func slidingRow3[T hwy.Floats](ops hwy.VectorOps[T], src []T, stride int, w []hwy.Vec[T], dst []T) {
	lanes, width := ops.Lanes(), len(dst)
	x := 0
	for ; x+lanes <= width; x += lanes {
		acc := ops.Load(dst[x:])
		for r := range 3 {
			s, wr := src[r*stride+x:], w[r*3:]
			acc = ops.MulAdd(ops.Load(s), wr[0], acc)
			acc = ops.MulAdd(ops.Load(s[1:]), wr[1], acc)
			acc = ops.MulAdd(ops.Load(s[2:]), wr[2], acc)
		}
		ops.Store(acc, dst[x:])
	}
	if x < width {
		slidingTail(ops, src, stride, w, dst, x, 3)
	}
}

func slidingRow4[T hwy.Floats](ops hwy.VectorOps[T], src []T, stride int, w []hwy.Vec[T], dst []T) {
	lanes, width := ops.Lanes(), len(dst)
	x := 0
	for ; x+lanes <= width; x += lanes {
		acc := ops.Load(dst[x:])
		for r := range 4 {
			s, wr := src[r*stride+x:], w[r*4:]
			acc = ops.MulAdd(ops.Load(s), wr[0], acc)
			acc = ops.MulAdd(ops.Load(s[1:]), wr[1], acc)
			acc = ops.MulAdd(ops.Load(s[2:]), wr[2], acc)
			acc = ops.MulAdd(ops.Load(s[3:]), wr[3], acc)
		}
		ops.Store(acc, dst[x:])
	}
	if x < width {
		slidingTail(ops, src, stride, w, dst, x, 4)
	}
}

func slidingRow5[T hwy.Floats](ops hwy.VectorOps[T], src []T, stride int, w []hwy.Vec[T], dst []T) {
	lanes, width := ops.Lanes(), len(dst)
	x := 0
	for ; x+lanes <= width; x += lanes {
		acc := ops.Load(dst[x:])
		for r := range 5 {
			s, wr := src[r*stride+x:], w[r*5:]
			acc = ops.MulAdd(ops.Load(s), wr[0], acc)
			acc = ops.MulAdd(ops.Load(s[1:]), wr[1], acc)
			acc = ops.MulAdd(ops.Load(s[2:]), wr[2], acc)
			acc = ops.MulAdd(ops.Load(s[3:]), wr[3], acc)
			acc = ops.MulAdd(ops.Load(s[4:]), wr[4], acc)
		}
		ops.Store(acc, dst[x:])
	}
	if x < width {
		slidingTail(ops, src, stride, w, dst, x, 5)
	}
}

func slidingRowN[T hwy.Floats](ops hwy.VectorOps[T], src []T, stride int, w []hwy.Vec[T], dst []T, kernel int) {
	hwy.ProcessWithTail(len(dst), ops.Lanes(),
		func(x int) {
			acc := ops.Load(dst[x:])
			for r := range kernel {
				s, wr := src[r*stride+x:], w[r*kernel:]
				for c := range kernel {
					acc = ops.MulAdd(ops.Load(s[c:]), wr[c], acc)
				}
			}
			ops.Store(acc, dst[x:])
		},
		func(x, _ int) {
			slidingTail(ops, src, stride, w, dst, x, kernel)
		},
	)
}

// slidingTail handles the last len(dst)-x < lanes columns of a row with a
// tail mask, so neither src nor dst is touched past the row.
func slidingTail[T hwy.Floats](ops hwy.VectorOps[T], src []T, stride int, w []hwy.Vec[T], dst []T, x, kernel int) {
	m := ops.TailMask(len(dst) - x)
	acc := ops.MaskLoad(m, dst[x:])
	for r := range kernel {
		s, wr := src[r*stride+x:], w[r*kernel:]
		for c := range kernel {
			acc = ops.MulAdd(ops.MaskLoad(m, s[c:]), wr[c], acc)
		}
	}
	ops.MaskStore(m, acc, dst[x:])
}

// addPlane adds the convolution of one input plane with one broadcast
// kernel into one output plane of width x height.
func addPlane[T hwy.Floats](ops hwy.VectorOps[T], kernel int, src []T, srcStride int, w []hwy.Vec[T], dst []T, dstStride, width, height int) {
	for y := range height {
		slidingRow(ops, kernel, src[y*srcStride:], srcStride, w, dst[y*dstStride:y*dstStride+width])
	}
}

// maxSlidingTaps is the number of broadcast weights kept on the stack.
const maxSlidingTaps = 5 * 5

// AddConvolution adds the valid (unpadded, unit stride) convolution of a
// single plane with a square kernel into dst:
//
//	dst[y*dstStride+x] += sum(weights[r*kernel+c] * src[(y+r)*srcStride+x+c])
//
// for 0 <= x < width, 0 <= y < height. src must hold height+kernel-1 rows of
// at least width+kernel-1 samples.
func AddConvolution[T hwy.Floats](ops hwy.VectorOps[T], src []T, srcStride, width, height int, weights []T, kernel int, dst []T, dstStride int) error {
	switch {
	case kernel < 1:
		return preconditionf("kernel %d must be positive", kernel)
	case width < 1 || height < 1:
		return preconditionf("output %dx%d must be positive", width, height)
	case srcStride < width+kernel-1 || dstStride < width:
		return preconditionf("strides src %d dst %d too small for width %d", srcStride, dstStride, width)
	case len(weights) < kernel*kernel:
		return preconditionf("weights hold %d of %d values", len(weights), kernel*kernel)
	case len(src) < (height+kernel-2)*srcStride+width+kernel-1:
		return preconditionf("source holds %d values", len(src))
	case len(dst) < (height-1)*dstStride+width:
		return preconditionf("destination holds %d values", len(dst))
	}

	var stack [maxSlidingTaps]hwy.Vec[T]
	w := stack[:0]
	if kernel*kernel > maxSlidingTaps {
		w = make([]hwy.Vec[T], 0, kernel*kernel)
	}
	for _, v := range weights[:kernel*kernel] {
		w = append(w, ops.Set(v))
	}
	addPlane(ops, kernel, src, srcStride, w, dst, dstStride, width, height)
	return nil
}

// runSliding convolves every (source channel, destination channel) pair
// directly, reading a padded copy in b when the geometry has padding.
func runSliding[T hwy.Floats](ops hwy.VectorOps[T], p Plan, src, weights []T, ws workspace[T], dst []T) {
	planes, stride := src, p.Src.Width
	if p.padded() {
		stagePadded(p, src, ws.b)
		planes, stride = ws.b, p.PaddedWidth
	}
	planeSize := p.PaddedWidth * p.PaddedHeight
	dstPlane := p.Dst.Plane()
	kernel := p.Geometry.KernelX
	taps := kernel * kernel

	var stack [maxSlidingTaps]hwy.Vec[T]
	w := stack[:]
	if taps > maxSlidingTaps {
		w = make([]hwy.Vec[T], taps)
	}
	w = w[:taps]

	for sc := range p.Src.Depth {
		plane := planes[sc*planeSize : (sc+1)*planeSize]
		for dc := range p.Dst.Depth {
			wk := weights[(dc*p.Src.Depth+sc)*taps : (dc*p.Src.Depth+sc+1)*taps]
			for i, v := range wk {
				w[i] = ops.Set(v)
			}
			addPlane(ops, kernel, plane, stride, w, dst[dc*dstPlane:(dc+1)*dstPlane], p.Dst.Width, p.Dst.Width, p.Dst.Height)
		}
	}
}
