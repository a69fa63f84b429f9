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

package hwy

// ProcessWithTail is a helper for processing arrays with SIMD that handles
// both full vectors and the tail (remainder) automatically.
//
// It calls:
//   - fullFn(offset) for each full vector (offset is the starting index)
//   - tailFn(offset, count) once for the tail if size is not a multiple of lanes
//
// Example:
//
//	hwy.ProcessWithTail(len(data), ops.Lanes(),
//	    func(offset int) {
//	        v := ops.Load(data[offset:])
//	        ops.Store(ops.Add(v, v), output[offset:])
//	    },
//	    func(offset, count int) {
//	        mask := ops.TailMask(count)
//	        v := ops.MaskLoad(mask, data[offset:])
//	        ops.MaskStore(mask, ops.Add(v, v), output[offset:])
//	    },
//	)
func ProcessWithTail(size, lanes int, fullFn func(offset int), tailFn func(offset, count int)) {
	// Process full vectors
	fullVectors := size / lanes
	for i := range fullVectors {
		fullFn(i * lanes)
	}

	// Process tail if any
	if remainder := size - fullVectors*lanes; remainder > 0 {
		tailFn(fullVectors*lanes, remainder)
	}
}

// AlignHi rounds n up to a multiple of align. align must be positive.
func AlignHi(n, align int) int {
	return (n + align - 1) / align * align
}

// AlignLo rounds n down to a multiple of align. align must be positive.
func AlignLo(n, align int) int {
	return n / align * align
}
