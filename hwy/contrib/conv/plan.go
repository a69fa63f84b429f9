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

import (
	"fmt"

	"github.com/ajroetker/hwyconv/hwy"
)

// Register blocking of the PackedBlocked microkernel: CellA output channels
// by CellB output positions.
const (
	CellA = 4
	CellB = 8
)

// Plan is everything Forward decides before touching memory: the resolved
// shapes, the strategy and the element counts of the three workspace
// sub-buffers.
//
//   - SizeA: packed weights (PackedBlocked).
//   - SizeB: packed patches (Direct, PackedBlocked) or the padded input copy
//     (SlidingWindow).
//   - SizeT: unblocked patch scratch (PackedBlocked with more than one tap).
type Plan struct {
	Resolved
	Strategy Strategy

	// Lanes is the vector width, in elements, sub-buffers are rounded to.
	Lanes    int
	ElemSize int

	SizeA, SizeB, SizeT int

	// PaddedWidth and PaddedHeight are the row stride and row count of the
	// SlidingWindow input planes. Without padding they equal the source
	// width and height and the source is read in place.
	PaddedWidth, PaddedHeight int
}

func newPlan(r Resolved, s Strategy, lanes, elemSize int) Plan {
	p := Plan{Resolved: r, Strategy: s, Lanes: lanes, ElemSize: elemSize}
	g := r.Geometry
	switch s {
	case Direct:
		p.SizeB = r.N * r.K
	case PackedBlocked:
		p.SizeA = r.M * r.K
		p.SizeB = hwy.AlignHi(r.N, CellB) * r.K
		if !g.pointwise() {
			p.SizeT = r.N * r.K
		}
	case SlidingWindow:
		p.PaddedWidth, p.PaddedHeight = r.Src.Width, r.Src.Height
		if p.padded() {
			p.PaddedWidth = hwy.AlignHi(r.Src.Width+2*g.PadX, lanes)
			p.PaddedHeight = r.Src.Height + 2*g.PadY
			p.SizeB = p.PaddedWidth * p.PaddedHeight * r.Src.Depth
		}
	}
	return p
}

func (p Plan) padded() bool {
	return p.Geometry.PadX > 0 || p.Geometry.PadY > 0
}

// alignedSizes returns the sub-buffer sizes rounded up to whole vectors.
func (p Plan) alignedSizes() (a, b, t int) {
	return hwy.AlignHi(p.SizeA, p.Lanes), hwy.AlignHi(p.SizeB, p.Lanes), hwy.AlignHi(p.SizeT, p.Lanes)
}

// WorkspaceSize returns the number of bytes a caller-supplied Buffer must
// hold for this plan, including slack for aligning an arbitrary buffer.
// It is zero when the strategy needs no workspace.
func (p Plan) WorkspaceSize() int {
	a, b, t := p.alignedSizes()
	total := a + b + t
	if total == 0 {
		return 0
	}
	return total*p.ElemSize + hwy.Alignment
}

// MACs returns the number of multiply-accumulates of the convolution.
func (p Plan) MACs() int {
	return p.M * p.N * p.K
}

func (p Plan) String() string {
	return fmt.Sprintf("%v -> %v (%v) %v M=%d N=%d K=%d workspace=%dB",
		p.Src, p.Dst, p.Geometry, p.Strategy, p.M, p.N, p.K, p.WorkspaceSize())
}
