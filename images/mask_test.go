package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maskFrom builds a mask from rows of '.' and '#'.
func maskFrom(rows ...string) Mask {
	m := NewMask(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, c := range row {
			if c == '#' {
				m.Set(x, y, true)
			}
		}
	}
	return m
}

func TestLabelCountsComponents(t *testing.T) {
	m := maskFrom(
		"##..#",
		"##...",
		".....",
		"#..##",
	)
	_, count := m.Label()
	assert.Equal(t, 3, count)
}

func TestLabelDiagonalIsConnected(t *testing.T) {
	m := maskFrom(
		"#..",
		".#.",
		"..#",
	)
	_, count := m.Label()
	assert.Equal(t, 1, count, "8-connectivity joins diagonal pixels")
}

func TestRemoveSmall(t *testing.T) {
	m := maskFrom(
		"###..",
		"###..",
		".....",
		"...#.",
	)
	out := m.RemoveSmall(2)
	assert.Equal(t, 6, out.Count(), "the single pixel goes, the block stays")
	assert.False(t, out.At(3, 3))
}

func TestRemoveSmallKeepsEqualArea(t *testing.T) {
	m := maskFrom(
		"##",
		"..",
	)
	assert.Equal(t, 2, m.RemoveSmall(2).Count())
}

func TestLargestKeepsBiggestComponent(t *testing.T) {
	m := maskFrom(
		"##..#",
		"##..#",
		".....",
	)
	out, ok := m.Largest()
	require.True(t, ok)
	assert.Equal(t, 4, out.Count())
	assert.True(t, out.At(0, 0))
	assert.False(t, out.At(4, 0))
}

func TestLargestFailsOnEmptyMask(t *testing.T) {
	_, ok := NewMask(8, 8).Largest()
	assert.False(t, ok)
}

func TestLargestFailsOnFullFrame(t *testing.T) {
	m := NewMask(4, 4)
	for i := range m.Pix {
		m.Pix[i] = true
	}
	_, ok := m.Largest()
	assert.False(t, ok, "an all-foreground mask is a degenerate silhouette")
}

func TestKeepIntersecting(t *testing.T) {
	m := maskFrom(
		"##..##",
		"##..##",
	)
	incl := maskFrom(
		"#.....",
		"......",
	)
	out, any := m.KeepIntersecting(incl)
	require.True(t, any)
	assert.Equal(t, 4, out.Count())
	assert.True(t, out.At(0, 0))
	assert.False(t, out.At(4, 0))
}

func TestKeepIntersectingNothingSurvives(t *testing.T) {
	m := maskFrom(
		"..##",
		"..##",
	)
	incl := maskFrom(
		"#...",
		"....",
	)
	_, any := m.KeepIntersecting(incl)
	assert.False(t, any, "caller reverts when removal empties the mask")
}

func TestComplement(t *testing.T) {
	m := maskFrom(
		"#.",
		".#",
	)
	c := m.Complement()
	assert.Equal(t, 2, c.Count())
	assert.False(t, c.At(0, 0))
	assert.True(t, c.At(1, 0))
}
