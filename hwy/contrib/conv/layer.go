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

// Layer is a convolution layer with fixed weights that owns its workspace
// buffer. After the first call for a given input shape, Forward reuses the
// buffer instead of allocating a workspace per call.
//
// A Layer is not safe for concurrent use; give each goroutine its own.
type Layer[T hwy.Floats] struct {
	engine   *Engine[T]
	weights  []T
	geometry Geometry
	outDepth int
	buf      Buffer
}

// NewLayer returns a layer producing outDepth channels. weights is
// [outDepth][inDepth][g.KernelY][g.KernelX] and is retained, not copied.
func NewLayer[T hwy.Floats](weights []T, g Geometry, outDepth int, opts ...Option) *Layer[T] {
	return &Layer[T]{
		engine:   New[T](opts...),
		weights:  weights,
		geometry: g,
		outDepth: outDepth,
	}
}

// OutputShape returns the shape Forward produces for an input shape.
func (l *Layer[T]) OutputShape(in Shape) (Shape, error) {
	r, err := Resolve(in, l.geometry, l.outDepth)
	if err != nil {
		return Shape{}, err
	}
	return r.Dst, nil
}

// Forward convolves src into dst, growing the layer's workspace buffer
// to the size the call reports.
func (l *Layer[T]) Forward(src, dst Tensor[T], add bool) error {
	if dst.Depth != l.outDepth {
		return preconditionf("destination depth %d, layer produces %d", dst.Depth, l.outDepth)
	}
	if err := l.engine.Forward(src, l.weights, l.geometry, &l.buf, dst, add); err != nil {
		return err
	}
	l.buf.Reserve()
	return nil
}

// WorkspaceSize returns the bytes currently reserved for the workspace.
func (l *Layer[T]) WorkspaceSize() int {
	return len(l.buf.Data)
}
