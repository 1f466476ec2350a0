package vegtile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestStitchRoundTrip(t *testing.T) {
	r := newSeqRaster(8, 12, 1)
	ts, err := CutIntoTiles(r, 4)
	require.NoError(t, err)
	out, err := StitchShape(ts, 8, 12, 1)
	require.NoError(t, err)
	assert.True(t, mat.Equal(out, r.Band(0)), "stitched raster differs:\n%v", mat.Formatted(out))
}

func TestStitchUncoveredIsZero(t *testing.T) {
	r := newSeqRaster(10, 10, 3)
	ts, err := CutIntoTiles(r, 4)
	require.NoError(t, err)
	out, err := StitchTiles(ts, 10, 10)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			want := 0.0
			if i < 8 && j < 8 {
				want = float64(r.At(i, j, 0))
			}
			require.Equal(t, want, out.At(i, j), "(%d,%d)", i, j)
		}
	}
}

func TestStitchSparse(t *testing.T) {
	ts := NewTileSet(2, 1)
	tile := NewTile(TileKey{2, 4}, 2, 1)
	for i := range tile.Data {
		tile.Data[i] = 1
	}
	require.NoError(t, ts.Put(tile))
	out, err := StitchTiles(ts, 6, 6)
	require.NoError(t, err)
	assert.Equal(t, 4.0, mat.Sum(out))
	assert.Equal(t, 1.0, out.At(3, 5))
	assert.Zero(t, out.At(1, 5))
}

func TestStitchErrors(t *testing.T) {
	_, err := StitchTiles(NewTileSet(4, 1), 8, 8)
	assert.ErrorIs(t, err, ErrEmptyTileSet)

	ts := NewTileSet(4, 1)
	require.NoError(t, ts.Put(NewTile(TileKey{4, 4}, 4, 1)))
	_, err = StitchTiles(ts, 6, 8)
	assert.ErrorIs(t, err, ErrTileOutOfBounds)
	_, err = StitchTiles(ts, 0, 8)
	assert.ErrorIs(t, err, ErrInvalidOutputSize)
	_, err = StitchShape(ts, 8)
	assert.ErrorIs(t, err, ErrInvalidOutputSize)
}
