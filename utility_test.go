package vegtile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testGT = [6]float64{500000, 10, 0, 4000000, 0, -10}

func TestPixelGeo(t *testing.T) {
	x, y := PixelToGeo(testGT, 224, 448)
	assert.Equal(t, 504480.0, x)
	assert.Equal(t, 3997760.0, y)
	row, col, ok := GeoToPixel(testGT, x, y)
	assert.True(t, ok)
	assert.Equal(t, 224.0, row)
	assert.Equal(t, 448.0, col)

	rot := [6]float64{100, 2, 0.5, 200, 0.3, -2}
	x, y = PixelToGeo(rot, 7, 11)
	row, col, ok = GeoToPixel(rot, x, y)
	assert.True(t, ok)
	assert.InDelta(t, 7, row, 1e-9)
	assert.InDelta(t, 11, col, 1e-9)

	_, _, ok = GeoToPixel([6]float64{}, 1, 1)
	assert.False(t, ok, "singular transform accepted")
}

func TestTileSpan(t *testing.T) {
	assert.Equal(t, [4]float64{500000, 502240, 3995520, 3997760}, TileSpan(testGT, TileKey{224, 0}, 224))
	assert.Equal(t,
		"POLYGON((0.000000 2.000000, 0.000000 3.000000, 1.000000 3.000000, 1.000000 2.000000, 0.000000 2.000000))",
		SpanToWkt([4]float64{0, 1, 2, 3}))

	gt := ShiftGeoTransform(testGT, 224, 448)
	assert.Equal(t, [6]float64{504480, 10, 0, 3997760, 0, -10}, gt)
}

func TestTileFootprintWkt(t *testing.T) {
	assert.Equal(t,
		"POLYGON((3.000000 -2.000000, 5.000000 -2.000000, 5.000000 -4.000000, 3.000000 -4.000000, 3.000000 -2.000000))",
		TileFootprintWkt([6]float64{0, 1, 0, 0, 0, -1}, TileKey{2, 3}, 2))
}
