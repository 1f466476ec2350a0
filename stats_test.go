package vegtile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestBandStats(t *testing.T) {
	ts := NewTileSet(2, 2)
	a, b := NewTile(TileKey{0, 0}, 2, 2), NewTile(TileKey{0, 2}, 2, 2)
	for p := 0; p < 4; p++ {
		a.Set(p/2, p%2, 0, 1)
		b.Set(p/2, p%2, 0, 3)
		a.Set(p/2, p%2, 1, 5)
		b.Set(p/2, p%2, 1, 5)
	}
	require.NoError(t, ts.Put(a))
	require.NoError(t, ts.Put(b))

	stats, err := BandStats(ts)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.InDelta(t, 2, stats[0].Mean, 1e-9)
	// 样本标准差（n-1）
	assert.InDelta(t, math.Sqrt(8.0/7), stats[0].Std, 1e-9)
	assert.InDelta(t, 5, stats[1].Mean, 1e-9)
	assert.Zero(t, stats[1].Std)

	norm, err := NormalizeTiles(ts, stats)
	require.NoError(t, err)
	na, _ := norm.Get(TileKey{0, 0})
	assert.InDelta(t, -1/math.Sqrt(8.0/7), na.At(0, 0, 0), 1e-6)
	assert.Zero(t, na.At(1, 1, 1))
	// 原集合不变
	assert.Equal(t, float32(1), a.At(0, 0, 0))

	_, err = NormalizeTiles(ts, stats[:1])
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = BandStats(NewTileSet(2, 2))
	assert.ErrorIs(t, err, ErrEmptyTileSet)
}

func TestCoverageAndAccuracy(t *testing.T) {
	pred := mat.NewDense(2, 2, []float64{0.9, 0.1, 0.6, 0.4})
	truth := mat.NewDense(2, 2, []float64{1, 0, 0, 0})
	assert.InDelta(t, 0.5, Coverage(pred, 0.5), 1e-12)
	acc, err := PixelAccuracy(pred, truth, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, acc, 1e-12)

	_, err = PixelAccuracy(pred, mat.NewDense(1, 2, nil), 0.5)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
