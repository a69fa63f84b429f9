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
	"strings"
)

// Strategy is one of the three ways Forward can execute a convolution.
type Strategy int

const (
	// Auto lets SelectStrategy choose.
	Auto Strategy = iota

	// Direct packs one row of K receptive-field values per output position
	// and takes dot products against the unpacked weight rows.
	Direct

	// PackedBlocked packs weights by CellA rows and patches by CellB
	// columns and runs the blocked microkernel.
	PackedBlocked

	// SlidingWindow convolves a zero-bordered copy of the input directly.
	// Only square kernels with unit stride and dilation qualify.
	SlidingWindow
)

func (s Strategy) String() string {
	switch s {
	case Auto:
		return "auto"
	case Direct:
		return "direct"
	case PackedBlocked:
		return "packed-blocked"
	case SlidingWindow:
		return "sliding-window"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps a name as returned by Strategy.String back to its value.
// The short forms "blocked" and "sliding" are accepted too.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return Auto, nil
	case "direct":
		return Direct, nil
	case "packed-blocked", "blocked":
		return PackedBlocked, nil
	case "sliding-window", "sliding":
		return SlidingWindow, nil
	}
	return Auto, fmt.Errorf("conv: unknown strategy %q", name)
}

// Params holds the strategy-selection thresholds.
//
// The defaults were tuned empirically on x86 with 128-bit vectors and are
// kept as-is; they are exposed so callers can re-tune them for their own
// hardware.
type Params struct {
	// SlidingMinKernel and SlidingMaxKernel bound the square kernel sizes
	// SlidingWindow accepts.
	SlidingMinKernel, SlidingMaxKernel int

	// SlidingWorkThreshold is the minimum dstWidth*dstHeight*KernelX*KernelY
	// for which SlidingWindow is chosen automatically.
	SlidingWorkThreshold int

	// DirectRatioThreshold is the largest (dstWidth*dstHeight)/KernelX for
	// which Direct is chosen over PackedBlocked.
	DirectRatioThreshold int
}

// DefaultParams returns the default selection thresholds.
func DefaultParams() Params {
	return Params{
		SlidingMinKernel:     2,
		SlidingMaxKernel:     5,
		SlidingWorkThreshold: 8 * 8 * 5 * 5,
		DirectRatioThreshold: 2000,
	}
}

// SlidingWindowEligible reports whether the geometry can run as
// SlidingWindow: a square kernel within the configured size range, with
// unit stride and dilation.
func SlidingWindowEligible(r Resolved, p Params) bool {
	g := r.Geometry
	return g.KernelX == g.KernelY &&
		g.KernelX >= p.SlidingMinKernel && g.KernelX <= p.SlidingMaxKernel &&
		g.unit()
}

// SelectStrategy picks the execution strategy for a resolved geometry.
// lanes is the vector width, in elements, of the VectorOps that will run it.
// The first matching rule wins:
//
//  1. SlidingWindow if eligible, dstWidth >= lanes and
//     dstWidth*dstHeight*KernelX*KernelY >= SlidingWorkThreshold.
//  2. Direct if (dstWidth*dstHeight)/KernelX <= DirectRatioThreshold.
//  3. PackedBlocked otherwise.
func SelectStrategy(r Resolved, lanes int, p Params) Strategy {
	g := r.Geometry
	if SlidingWindowEligible(r, p) && r.Dst.Width >= lanes &&
		r.N*g.KernelX*g.KernelY >= p.SlidingWorkThreshold {
		return SlidingWindow
	}
	if r.N/g.KernelX <= p.DirectRatioThreshold {
		return Direct
	}
	return PackedBlocked
}
