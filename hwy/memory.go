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

import (
	"math/bits"
	"sync"
	"unsafe"
)

// Alignment is the byte alignment of buffers handed out by AllocAligned,
// enough for the widest vector of any target.
const Alignment = MaxVectorBytes

// maxPooledClass bounds the power-of-two size classes kept for reuse (1 GiB).
const maxPooledClass = 30

// pools[c] holds released backing arrays of exactly 1<<c bytes.
var pools [maxPooledClass + 1]sync.Pool

// AlignedBuffer is memory obtained from AllocAligned. Bytes starts on an
// Alignment boundary and is not zeroed: callers must write before reading.
type AlignedBuffer struct {
	raw   *[]byte
	class int
	Bytes []byte
}

// AllocAligned returns a buffer of size bytes aligned to Alignment.
// Backing arrays are recycled through FreeAligned, so repeated calls with
// similar sizes do not allocate in steady state.
func AllocAligned(size int) *AlignedBuffer {
	if size <= 0 {
		return &AlignedBuffer{class: -1}
	}
	need := size + Alignment
	class := bits.Len(uint(need - 1))

	var raw *[]byte
	if class <= maxPooledClass {
		if v, ok := pools[class].Get().(*[]byte); ok {
			raw = v
		} else {
			b := make([]byte, 1<<class)
			raw = &b
		}
	} else {
		b := make([]byte, need)
		raw = &b
		class = -1
	}

	off := AlignOffset(*raw, Alignment)
	return &AlignedBuffer{
		raw:   raw,
		class: class,
		Bytes: (*raw)[off : off+size : off+size],
	}
}

// FreeAligned gives a buffer back for reuse. The buffer must not be used
// afterwards. Freeing nil or an already freed buffer is a no-op.
func FreeAligned(b *AlignedBuffer) {
	if b == nil || b.raw == nil {
		return
	}
	if b.class >= 0 {
		pools[b.class].Put(b.raw)
	}
	b.raw = nil
	b.Bytes = nil
}

// AlignOffset returns the number of leading bytes to skip so that
// buf[offset:] starts on an align boundary. align must be a power of two.
// An empty buf needs no offset.
func AlignOffset(buf []byte, align int) int {
	if len(buf) == 0 {
		return 0
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	return int((uintptr(align) - addr&uintptr(align-1)) & uintptr(align-1))
}

// IsAligned reports whether the first element of s sits on an align boundary.
func IsAligned[T Floats](s []T, align int) bool {
	if len(s) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(s)))&uintptr(align-1) == 0
}

// BytesAs reinterprets the first n elements' worth of buf as a []T.
// buf must start on a boundary suitable for T and hold at least n*sizeof(T)
// bytes; it panics otherwise.
func BytesAs[T Floats](buf []byte, n int) []T {
	if n == 0 {
		return nil
	}
	size := sizeOf[T]()
	if len(buf) < n*size {
		panic("hwy: BytesAs: buffer too short")
	}
	if uintptr(unsafe.Pointer(unsafe.SliceData(buf)))%uintptr(size) != 0 {
		panic("hwy: BytesAs: buffer misaligned")
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(buf))), n)
}
