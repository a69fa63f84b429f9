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
	"github.com/ajroetker/hwyconv/hwy"
)

// Buffer is caller-owned workspace memory that Forward may borrow.
//
// Size is in/out: on input it is the number of bytes of Data the caller
// offers; when Data is nil or Size is smaller than the call needs, Forward
// works from an internal allocation and writes the required size back to
// Size. Calling Reserve then grows Data so later calls with the same
// geometry run without allocating.
//
// A Buffer must not be used by concurrent calls.
type Buffer struct {
	Data []byte
	Size int
}

// Reserve grows Data to Size bytes if it is shorter.
func (b *Buffer) Reserve() {
	if b.Size > len(b.Data) {
		b.Data = make([]byte, b.Size)
	}
}

// checkBuffer rejects buffers that claim more bytes than they hold.
func checkBuffer(buf *Buffer) error {
	if buf == nil || buf.Data == nil {
		return nil
	}
	if buf.Size < 0 || buf.Size > len(buf.Data) {
		return preconditionf("workspace buffer claims %d bytes but holds %d", buf.Size, len(buf.Data))
	}
	return nil
}

// workspace is the arena of one Forward call, carved into the packed
// weights a, the packed patches or padded input b and the patch scratch t.
type workspace[T hwy.Floats] struct {
	a, b, t []T

	// internal is set when the arena was allocated by the call and must be
	// released on exit.
	internal *hwy.AlignedBuffer
}

// acquireWorkspace carves the arena for plan out of buf, or out of an
// internal allocation when buf is absent or too small; in the latter case
// the required size is written back to buf.Size. buf must have passed
// checkBuffer.
func acquireWorkspace[T hwy.Floats](p Plan, buf *Buffer) workspace[T] {
	var ws workspace[T]
	required := p.WorkspaceSize()
	if required == 0 {
		return ws
	}

	var region []byte
	if buf != nil && buf.Data != nil && buf.Size >= required {
		region = buf.Data[:buf.Size]
	} else {
		ws.internal = hwy.AllocAligned(required)
		region = ws.internal.Bytes
		if buf != nil {
			buf.Size = required
		}
	}

	sizeA, sizeB, sizeT := p.alignedSizes()
	off := hwy.AlignOffset(region, hwy.Alignment)
	arena := hwy.BytesAs[T](region[off:], sizeA+sizeB+sizeT)
	ws.a = arena[:p.SizeA:p.SizeA]
	ws.b = arena[sizeA : sizeA+p.SizeB : sizeA+p.SizeB]
	ws.t = arena[sizeA+sizeB : sizeA+sizeB+p.SizeT : sizeA+sizeB+p.SizeT]
	return ws
}

// release returns internally allocated memory. Borrowed memory is left alone.
func (ws workspace[T]) release() {
	hwy.FreeAligned(ws.internal)
}
