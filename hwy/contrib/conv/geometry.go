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

import "fmt"

// Shape is the extent of a CHW tensor.
type Shape struct {
	Width, Height, Depth int
}

// Size returns the number of elements.
func (s Shape) Size() int {
	return s.Width * s.Height * s.Depth
}

// Plane returns the number of elements of one channel.
func (s Shape) Plane() int {
	return s.Width * s.Height
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Width, s.Height, s.Depth)
}

// Geometry describes the kernel window of a convolution.
type Geometry struct {
	KernelX, KernelY     int
	PadX, PadY           int
	StrideX, StrideY     int
	DilationX, DilationY int
}

// Square returns a geometry with the same kernel size, padding, stride and
// dilation on both axes.
func Square(kernel, pad, stride, dilation int) Geometry {
	return Geometry{
		KernelX: kernel, KernelY: kernel,
		PadX: pad, PadY: pad,
		StrideX: stride, StrideY: stride,
		DilationX: dilation, DilationY: dilation,
	}
}

// Validate checks the geometry fields on their own, without an input shape.
func (g Geometry) Validate() error {
	switch {
	case g.KernelX < 1 || g.KernelY < 1:
		return preconditionf("kernel %dx%d must be positive", g.KernelX, g.KernelY)
	case g.StrideX < 1 || g.StrideY < 1:
		return preconditionf("stride %dx%d must be positive", g.StrideX, g.StrideY)
	case g.DilationX < 1 || g.DilationY < 1:
		return preconditionf("dilation %dx%d must be positive", g.DilationX, g.DilationY)
	case g.PadX < 0 || g.PadY < 0:
		return preconditionf("pad %dx%d must not be negative", g.PadX, g.PadY)
	}
	return nil
}

// Taps returns the number of kernel positions per channel.
func (g Geometry) Taps() int {
	return g.KernelX * g.KernelY
}

// unit reports whether every stride and dilation is 1.
func (g Geometry) unit() bool {
	return g.StrideX == 1 && g.StrideY == 1 && g.DilationX == 1 && g.DilationY == 1
}

// pointwise reports whether the patch matrix of this geometry is the source
// tensor itself: a 1x1 kernel that visits every pixel once.
func (g Geometry) pointwise() bool {
	return g.KernelX == 1 && g.KernelY == 1 && g.StrideX == 1 && g.StrideY == 1 && g.PadX == 0 && g.PadY == 0
}

func (g Geometry) String() string {
	return fmt.Sprintf("kernel %dx%d pad %dx%d stride %dx%d dilation %dx%d",
		g.KernelX, g.KernelY, g.PadX, g.PadY, g.StrideX, g.StrideY, g.DilationX, g.DilationY)
}

// OutputSize returns the spatial size of the convolution of a src-sized
// input:
//
//	dstWidth = (srcWidth + 2*PadX - (DilationX*(KernelX-1) + 1)) / StrideX + 1
//
// and symmetrically for the height.
func (g Geometry) OutputSize(src Shape) (width, height int, err error) {
	if err := g.Validate(); err != nil {
		return 0, 0, err
	}
	if src.Width < 1 || src.Height < 1 || src.Depth < 1 {
		return 0, 0, preconditionf("source shape %v must be positive", src)
	}
	extentX := g.DilationX*(g.KernelX-1) + 1
	extentY := g.DilationY*(g.KernelY-1) + 1
	if extentX > src.Width+2*g.PadX || extentY > src.Height+2*g.PadY {
		return 0, 0, preconditionf("kernel extent %dx%d exceeds padded input %dx%d",
			extentX, extentY, src.Width+2*g.PadX, src.Height+2*g.PadY)
	}
	width = (src.Width+2*g.PadX-extentX)/g.StrideX + 1
	height = (src.Height+2*g.PadY-extentY)/g.StrideY + 1
	return width, height, nil
}

// Resolved is a validated geometry together with the shapes it maps between
// and the matrix-multiply view of the convolution: M output channels,
// N output positions and K receptive-field values per position.
type Resolved struct {
	Src, Dst Shape
	Geometry Geometry
	M, N, K  int
}

// Resolve validates a convolution of src with geometry g into dstDepth
// output channels and returns the derived shapes.
func Resolve(src Shape, g Geometry, dstDepth int) (Resolved, error) {
	w, h, err := g.OutputSize(src)
	if err != nil {
		return Resolved{}, err
	}
	if dstDepth < 1 {
		return Resolved{}, preconditionf("destination depth %d must be positive", dstDepth)
	}
	return Resolved{
		Src:      src,
		Dst:      Shape{Width: w, Height: h, Depth: dstDepth},
		Geometry: g,
		M:        dstDepth,
		N:        w * h,
		K:        g.Taps() * src.Depth,
	}, nil
}
