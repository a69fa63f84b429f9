package conv

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/hwyconv/hwy"
)

func TestPlanSizes(t *testing.T) {
	r, err := Resolve(Shape{10, 6, 3}, Square(3, 1, 1, 1), 5) // dst 10x6, N=60, K=27
	require.NoError(t, err)

	direct := newPlan(r, Direct, 4, 4)
	assert.Equal(t, [3]int{0, 60 * 27, 0}, [3]int{direct.SizeA, direct.SizeB, direct.SizeT})

	blocked := newPlan(r, PackedBlocked, 4, 4)
	assert.Equal(t, [3]int{5 * 27, 64 * 27, 60 * 27}, [3]int{blocked.SizeA, blocked.SizeB, blocked.SizeT})

	sliding := newPlan(r, SlidingWindow, 8, 4)
	assert.Equal(t, 16, sliding.PaddedWidth)
	assert.Equal(t, 8, sliding.PaddedHeight)
	assert.Equal(t, [3]int{0, 16 * 8 * 3, 0}, [3]int{sliding.SizeA, sliding.SizeB, sliding.SizeT})

	want := (hwy.AlignHi(5*27, 4)+hwy.AlignHi(64*27, 4)+hwy.AlignHi(60*27, 4))*4 + hwy.Alignment
	assert.Equal(t, want, blocked.WorkspaceSize())
	assert.Equal(t, r.M*r.N*r.K, blocked.MACs())
}

func TestPlanSizesWithoutScratch(t *testing.T) {
	pointwise, err := Resolve(Shape{8, 8, 3}, Square(1, 0, 1, 1), 2)
	require.NoError(t, err)
	p := newPlan(pointwise, PackedBlocked, 4, 4)
	assert.Zero(t, p.SizeT)

	valid, err := Resolve(Shape{8, 8, 3}, Square(3, 0, 1, 1), 2)
	require.NoError(t, err)
	p = newPlan(valid, SlidingWindow, 4, 4)
	assert.Zero(t, p.WorkspaceSize())
	assert.Equal(t, 8, p.PaddedWidth)
	assert.Equal(t, 8, p.PaddedHeight)
}

func blockedPlan(t *testing.T) Plan {
	t.Helper()
	r, err := Resolve(Shape{9, 7, 2}, Square(3, 1, 1, 1), 5)
	require.NoError(t, err)
	return newPlan(r, PackedBlocked, 4, 4)
}

func requireAligned(t *testing.T, s []float32, align int) {
	t.Helper()
	if len(s) == 0 {
		return
	}
	addr := uintptr(unsafe.Pointer(&s[0]))
	require.Zero(t, addr%uintptr(align), "sub-buffer at %#x not aligned to %d", addr, align)
}

func TestAcquireWorkspaceInternal(t *testing.T) {
	p := blockedPlan(t)

	for _, buf := range []*Buffer{nil, {}, {Data: make([]byte, 10), Size: 10}} {
		ws := acquireWorkspace[float32](p, buf)
		require.NotNil(t, ws.internal)
		assert.Len(t, ws.a, p.SizeA)
		assert.Len(t, ws.b, p.SizeB)
		assert.Len(t, ws.t, p.SizeT)
		requireAligned(t, ws.a, hwy.Alignment)
		requireAligned(t, ws.b, p.Lanes*4)
		requireAligned(t, ws.t, p.Lanes*4)
		if buf != nil {
			assert.Equal(t, p.WorkspaceSize(), buf.Size, "required size written back")
		}
		ws.release()
		assert.Nil(t, ws.internal.Bytes, "internal memory returned to the pool")
	}
}

func TestAcquireWorkspaceExternal(t *testing.T) {
	p := blockedPlan(t)
	size := p.WorkspaceSize()

	// Misalign the caller's memory on purpose.
	raw := make([]byte, size+3)
	buf := &Buffer{Data: raw[3:], Size: size}
	ws := acquireWorkspace[float32](p, buf)
	require.Nil(t, ws.internal)
	assert.Equal(t, size, buf.Size)
	requireAligned(t, ws.a, hwy.Alignment)

	// The sub-buffers live inside the caller's memory and do not overlap.
	lo := uintptr(unsafe.Pointer(&buf.Data[0]))
	hi := lo + uintptr(len(buf.Data))
	for _, s := range [][]float32{ws.a, ws.b, ws.t} {
		start := uintptr(unsafe.Pointer(&s[0]))
		end := start + uintptr(len(s))*4
		assert.True(t, start >= lo && end <= hi, "sub-buffer outside caller memory")
	}
	aEnd := uintptr(unsafe.Pointer(&ws.a[0])) + uintptr(len(ws.a))*4
	bStart := uintptr(unsafe.Pointer(&ws.b[0]))
	bEnd := bStart + uintptr(len(ws.b))*4
	tStart := uintptr(unsafe.Pointer(&ws.t[0]))
	assert.LessOrEqual(t, aEnd, bStart)
	assert.LessOrEqual(t, bEnd, tStart)
	ws.release()
}

func TestAcquireWorkspaceEmpty(t *testing.T) {
	r, err := Resolve(Shape{8, 8, 1}, Square(3, 0, 1, 1), 1)
	require.NoError(t, err)
	p := newPlan(r, SlidingWindow, 4, 4)

	buf := &Buffer{Size: 0}
	ws := acquireWorkspace[float32](p, buf)
	assert.Nil(t, ws.internal)
	assert.Zero(t, buf.Size)
	ws.release()
}

func TestCheckBuffer(t *testing.T) {
	assert.NoError(t, checkBuffer(nil))
	assert.NoError(t, checkBuffer(&Buffer{}))
	assert.NoError(t, checkBuffer(&Buffer{Size: 100}), "nil Data is treated as absent")
	assert.NoError(t, checkBuffer(&Buffer{Data: make([]byte, 8), Size: 8}))
	assert.NoError(t, checkBuffer(&Buffer{Data: make([]byte, 8), Size: 4}))

	err := checkBuffer(&Buffer{Data: make([]byte, 8), Size: 9})
	assert.True(t, errors.Is(err, ErrPreconditionViolation))
	err = checkBuffer(&Buffer{Data: make([]byte, 8), Size: -1})
	assert.True(t, errors.Is(err, ErrPreconditionViolation))
}

func TestBufferReserve(t *testing.T) {
	var b Buffer
	b.Reserve()
	assert.Nil(t, b.Data)

	b.Size = 128
	b.Reserve()
	assert.Len(t, b.Data, 128)

	data := b.Data
	b.Size = 64
	b.Reserve()
	assert.Same(t, &data[0], &b.Data[0], "Reserve must not shrink")
}
