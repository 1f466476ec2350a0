package vegtile

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 10x10网格瓦片；卫星4波段，植被1波段，值编码行列
func pairedTiles(t *testing.T, n, size int) (sat, veg *TileSet) {
	t.Helper()
	var err error
	sat, err = CutIntoTiles(newSeqRaster(n*size, n*size, 4), size)
	require.NoError(t, err)
	veg, err = CutIntoTiles(newSeqRaster(n*size, n*size, 1), size)
	require.NoError(t, err)
	return
}

func TestSplitSizes(t *testing.T) {
	cases := []struct {
		n        int
		f        float64
		tr, test int
	}{
		{100, 0.2, 80, 20},
		{4, 0.2, 3, 1},
		{7, 0.2, 5, 2},
		{10, 0.25, 7, 3},
		{0, 0.2, 0, 0},
	}
	for _, c := range cases {
		tr, te, err := splitSizes(c.n, c.f)
		require.NoError(t, err)
		assert.Equal(t, c.tr, tr, "train n=%d f=%v", c.n, c.f)
		assert.Equal(t, c.test, te, "test n=%d f=%v", c.n, c.f)
	}
	_, _, err := splitSizes(1, 0.2)
	assert.ErrorIs(t, err, ErrEmptySplit)
	for _, f := range []float64{0, 1, -0.1, 1.5} {
		_, _, err = splitSizes(10, f)
		assert.ErrorIs(t, err, ErrInvalidFraction)
	}
}

func TestSplitTiles(t *testing.T) {
	sat, veg := pairedTiles(t, 10, 4)
	ds, err := SplitTiles(sat, veg, WithSeed(7))
	require.NoError(t, err)
	assert.Len(t, ds.Train, 80)
	assert.Len(t, ds.Test, 20)
	assert.Equal(t, [4]int{80, 4, 4, 4}, ds.SatTrain.Shape())
	assert.Equal(t, [4]int{80, 4, 4, 1}, ds.VegTrain.Shape())
	assert.Equal(t, [4]int{20, 4, 4, 4}, ds.SatTest.Shape())
	assert.Equal(t, [4]int{20, 4, 4, 1}, ds.VegTest.Shape())

	// 训练与测试不相交且覆盖全部key
	seen := map[TileKey]bool{}
	for _, k := range append(append([]TileKey{}, ds.Train...), ds.Test...) {
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
	assert.Len(t, seen, sat.Len())

	// 同一位置的卫星与植被瓦片配对
	for i, k := range ds.Test {
		s := ds.SatTest.Tile(i, k)
		v := ds.VegTest.Tile(i, k)
		want, _ := sat.Get(k)
		assert.Equal(t, want.Data, s.Data)
		assert.Equal(t, s.At(1, 2, 0), v.At(1, 2, 0))
	}
}

func TestSplitTilesSeeded(t *testing.T) {
	sat, veg := pairedTiles(t, 6, 2)
	a, err := SplitTiles(sat, veg, WithSeed(42), WithTestFraction(0.3))
	require.NoError(t, err)
	b, err := SplitTiles(sat, veg, WithSeed(42), WithTestFraction(0.3))
	require.NoError(t, err)
	assert.Equal(t, a.Split, b.Split)
	assert.Len(t, a.Test, 11)
}

func TestSplitTilesMissingKey(t *testing.T) {
	sat, _ := pairedTiles(t, 3, 2)
	veg := NewTileSet(2, 1)
	for _, k := range sat.Keys()[1:] {
		require.NoError(t, veg.Put(NewTile(k, 2, 1)))
	}
	_, err := SplitTiles(sat, veg, WithSeed(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTileNotFound))
	var mte *MissingTileError
	require.ErrorAs(t, err, &mte)
	assert.Equal(t, TileKey{0, 0}, mte.Key)
	assert.Equal(t, "vegetation", mte.Set)
}

func TestSplitTilesWithKeys(t *testing.T) {
	sat, veg := pairedTiles(t, 2, 2)
	train := []TileKey{{0, 0}, {2, 2}}
	test := []TileKey{{0, 2}}
	ds, err := SplitTiles(sat, veg, WithKeys(train, test))
	require.NoError(t, err)
	assert.Equal(t, train, ds.Train)
	assert.Equal(t, test, ds.Test)
	assert.Equal(t, 2, ds.SatTrain.N)

	_, err = SplitTiles(sat, veg, WithKeys(train, []TileKey{{0, 0}}))
	assert.ErrorIs(t, err, ErrSplitKeys)
	_, err = SplitTiles(sat, veg, WithKeys(train, []TileKey{{4, 4}}))
	assert.ErrorIs(t, err, ErrTileNotFound)
}

func TestPartitionKeys(t *testing.T) {
	keys := make([]TileKey, 5)
	for i := range keys {
		keys[i] = TileKey{Row: i}
	}
	sp, err := PartitionKeys(keys, 0.2, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.Len(t, sp.Train, 4)
	assert.Len(t, sp.Test, 1)
	assert.ElementsMatch(t, keys, append(sp.Train, sp.Test...))
}

func TestSplitTilesExtraLabelKey(t *testing.T) {
	sat, veg := pairedTiles(t, 3, 2)
	require.NoError(t, veg.Put(NewTile(TileKey{6, 0}, 2, 1)))
	for _, opts := range [][]SplitOption{
		{WithSeed(1)},
		{WithKeys([]TileKey{{0, 0}}, []TileKey{{2, 2}})},
	} {
		_, err := SplitTiles(sat, veg, opts...)
		var mte *MissingTileError
		require.ErrorAs(t, err, &mte)
		assert.Equal(t, TileKey{6, 0}, mte.Key)
		assert.Equal(t, "satellite", mte.Set)
		assert.ErrorIs(t, err, ErrTileNotFound)
	}
}
