package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		name  string
		src   Shape
		g     Geometry
		lanes int
		want  Strategy
	}{
		{"large 3x3 slides", Shape{32, 32, 4}, Square(3, 1, 1, 1), 8, SlidingWindow},
		{"small 3x3 is direct", Shape{8, 8, 4}, Square(3, 1, 1, 1), 8, Direct},
		{"work exactly at threshold slides", Shape{8, 8, 1}, Square(5, 2, 1, 1), 8, SlidingWindow},
		{"work just below threshold", Shape{8, 7, 1}, Square(5, 2, 1, 1), 8, Direct},
		{"narrow output cannot slide", Shape{4, 400, 1}, Square(3, 1, 1, 1), 8, Direct},
		{"narrow output slides with short vectors", Shape{4, 400, 1}, Square(3, 1, 1, 1), 4, SlidingWindow},
		{"7x7 large is blocked", Shape{200, 200, 1}, Square(7, 3, 1, 1), 8, PackedBlocked},
		{"stride 2 large is blocked", Shape{200, 200, 1}, Square(3, 1, 2, 1), 8, PackedBlocked},
		{"stride 2 small is direct", Shape{40, 40, 1}, Square(3, 1, 2, 1), 8, Direct},
		{"dilated never slides", Shape{128, 128, 1}, Square(3, 2, 1, 2), 8, PackedBlocked},
		{"1x1 large is blocked", Shape{64, 64, 8}, Square(1, 0, 1, 1), 8, PackedBlocked},
		{"non-square never slides", Shape{64, 64, 1}, Geometry{KernelX: 3, KernelY: 2, PadX: 1, PadY: 1, StrideX: 1, StrideY: 1, DilationX: 1, DilationY: 1}, 8, Direct},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Resolve(tt.src, tt.g, 4)
			require.NoError(t, err)
			assert.Equal(t, tt.want, SelectStrategy(r, tt.lanes, DefaultParams()))
		})
	}
}

func TestSelectStrategyParams(t *testing.T) {
	r, err := Resolve(Shape{8, 8, 1}, Square(3, 1, 1, 1), 1)
	require.NoError(t, err)

	p := DefaultParams()
	assert.Equal(t, Direct, SelectStrategy(r, 4, p))

	p.DirectRatioThreshold = 0
	assert.Equal(t, PackedBlocked, SelectStrategy(r, 4, p))

	p.SlidingWorkThreshold = 1
	assert.Equal(t, SlidingWindow, SelectStrategy(r, 4, p))

	p.SlidingMaxKernel = 2
	assert.Equal(t, PackedBlocked, SelectStrategy(r, 4, p))
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []Strategy{Auto, Direct, PackedBlocked, SlidingWindow} {
		got, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	got, err := ParseStrategy("Blocked")
	require.NoError(t, err)
	assert.Equal(t, PackedBlocked, got)
	got, err = ParseStrategy("sliding")
	require.NoError(t, err)
	assert.Equal(t, SlidingWindow, got)
	_, err = ParseStrategy("winograd")
	assert.Error(t, err)
	assert.Equal(t, "Strategy(9)", Strategy(9).String())
}
