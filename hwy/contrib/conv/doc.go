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

// Package conv implements the forward pass of a 2D convolution layer for
// inference, choosing per call between three execution strategies:
//
//   - Direct: one row of receptive-field values per output position, then
//     a dot product of every weight row with every patch row.
//   - PackedBlocked: weights packed in blocks of CellA output channels and
//     patches in blocks of CellB output positions, multiplied by a register
//     blocked microkernel.
//   - SlidingWindow: small square unit-stride kernels applied directly to a
//     zero-bordered copy of the input, without forming patches.
//
// Tensors are channel-major (CHW): element (c, y, x) of a Width x Height x
// Depth tensor lives at (c*Height+y)*Width+x. Weights are
// [dstDepth][srcDepth][KernelY][KernelX].
//
// Example usage:
//
//	g := conv.Square(3, 1, 1, 1) // 3x3, pad 1, stride 1, dilation 1
//	src := conv.Tensor[float32]{Data: in, Shape: conv.Shape{Width: 32, Height: 32, Depth: 16}}
//	dst := conv.Tensor[float32]{Data: out, Shape: conv.Shape{Width: 32, Height: 32, Depth: 32}}
//
//	engine := conv.New[float32]()
//	var buf conv.Buffer
//	for range steps {
//	    if err := engine.Forward(src, weights, g, &buf, dst, false); err != nil {
//	        return err
//	    }
//	    buf.Reserve() // later calls reuse the reported workspace
//	}
//
// Forward never logs and reports every invalid input as
// ErrPreconditionViolation before touching dst. Once buf holds the reported
// size, Engine.Forward and Layer.Forward run without allocating. The
// package-level Forward builds an Engine on each call.
package conv
