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
	"unsafe"

	"github.com/ajroetker/hwyconv/hwy"
)

// Tensor is a borrowed CHW tensor: Data holds at least Shape.Size()
// elements.
type Tensor[T hwy.Floats] struct {
	Data []T
	Shape
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	params   Params
	strategy Strategy
	level    hwy.DispatchLevel
}

// WithParams replaces the strategy-selection thresholds.
func WithParams(p Params) Option {
	return func(o *options) { o.params = p }
}

// WithStrategy forces a strategy instead of letting SelectStrategy choose.
// Forcing SlidingWindow on a geometry it cannot run is reported by Plan and
// Forward as a precondition violation.
func WithStrategy(s Strategy) Option {
	return func(o *options) { o.strategy = s }
}

// WithTarget runs the kernels with the VectorOps of the given dispatch
// level instead of the detected one.
func WithTarget(level hwy.DispatchLevel) Option {
	return func(o *options) { o.level = level }
}

// Engine runs convolutions with a fixed VectorOps target, selection
// thresholds and, optionally, a forced strategy. An Engine holds no
// per-call state and is safe for concurrent use as long as each concurrent
// call has its own Buffer and destination.
type Engine[T hwy.Floats] struct {
	ops      hwy.VectorOps[T]
	params   Params
	strategy Strategy
}

func buildOptions(opts []Option) options {
	o := options{
		params:   DefaultParams(),
		strategy: Auto,
		level:    hwy.CurrentLevel(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns an Engine for element type T.
func New[T hwy.Floats](opts ...Option) *Engine[T] {
	o := buildOptions(opts)
	return &Engine[T]{
		ops:      hwy.NewTarget[T](o.level),
		params:   o.params,
		strategy: o.strategy,
	}
}

// NewWithOps returns an Engine whose kernels run on a caller-provided
// VectorOps backend. ops.Lanes() must be at least 2 and fit a hwy.Vec
// (hwy.MaxVectorBytes bytes); NewWithOps panics otherwise. WithTarget has
// no effect here.
func NewWithOps[T hwy.Floats](ops hwy.VectorOps[T], opts ...Option) *Engine[T] {
	if ops == nil {
		panic("conv: NewWithOps: nil VectorOps")
	}
	var zero T
	if lanes := ops.Lanes(); lanes < 2 || lanes > hwy.MaxVectorBytes/int(unsafe.Sizeof(zero)) {
		panic(fmt.Sprintf("conv: NewWithOps: %d lanes not supported", lanes))
	}
	o := buildOptions(opts)
	return &Engine[T]{
		ops:      ops,
		params:   o.params,
		strategy: o.strategy,
	}
}

// Ops returns the vector primitives the engine runs on.
func (e *Engine[T]) Ops() hwy.VectorOps[T] {
	return e.ops
}

// Plan resolves the geometry, checks the declared destination shape
// against it and picks the strategy, without touching any data.
func (e *Engine[T]) Plan(src Shape, g Geometry, dst Shape) (Plan, error) {
	r, err := Resolve(src, g, dst.Depth)
	if err != nil {
		return Plan{}, err
	}
	if dst.Width != r.Dst.Width || dst.Height != r.Dst.Height {
		return Plan{}, preconditionf("destination %v does not match %v computed from source %v and %v",
			dst, r.Dst, src, g)
	}

	s := e.strategy
	switch s {
	case Auto:
		s = SelectStrategy(r, e.ops.Lanes(), e.params)
	case Direct, PackedBlocked:
	case SlidingWindow:
		if !SlidingWindowEligible(r, e.params) {
			return Plan{}, preconditionf("%v cannot run %v", g, s)
		}
	default:
		return Plan{}, preconditionf("unknown strategy %v", s)
	}
	var zero T
	return newPlan(r, s, e.ops.Lanes(), int(unsafe.Sizeof(zero))), nil
}

// Forward convolves src with weights into dst.
//
// weights is [dst.Depth][src.Depth][g.KernelY][g.KernelX]. When add is false
// dst is overwritten, otherwise the convolution is added to its contents.
//
// buf is optional workspace memory; see Buffer for the size protocol. When
// buf is nil or too small the workspace is allocated for the duration of
// the call.
//
// All inputs are validated before dst or buf.Data is written; on error
// (always wrapping ErrPreconditionViolation) dst is unchanged.
func (e *Engine[T]) Forward(src Tensor[T], weights []T, g Geometry, buf *Buffer, dst Tensor[T], add bool) error {
	p, err := e.Plan(src.Shape, g, dst.Shape)
	if err != nil {
		return err
	}
	switch {
	case len(src.Data) < src.Size():
		return preconditionf("source holds %d of %d values", len(src.Data), src.Size())
	case len(weights) < p.M*p.K:
		return preconditionf("weights hold %d of %d values", len(weights), p.M*p.K)
	case len(dst.Data) < dst.Size():
		return preconditionf("destination holds %d of %d values", len(dst.Data), dst.Size())
	}
	if err := checkBuffer(buf); err != nil {
		return err
	}

	ws := acquireWorkspace[T](p, buf)
	defer ws.release()

	in := src.Data[:src.Size()]
	w := weights[:p.M*p.K]
	out := dst.Data[:dst.Size()]
	if !add {
		clear(out)
	}

	switch p.Strategy {
	case Direct:
		runDirect(e.ops, p, in, w, ws, out)
	case PackedBlocked:
		runBlocked(e.ops, p, in, w, ws, out)
	case SlidingWindow:
		runSliding(e.ops, p, in, w, ws, out)
	}
	return nil
}

// Forward runs a convolution with a default Engine for the detected target.
// It builds the Engine on every call; loops should create one with New and
// call Engine.Forward. See Engine.Forward.
func Forward[T hwy.Floats](src Tensor[T], weights []T, g Geometry, buf *Buffer, dst Tensor[T], add bool) error {
	return New[T]().Forward(src, weights, g, buf, dst, add)
}
