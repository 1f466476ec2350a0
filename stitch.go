package vegtile

import (
	"fmt"

	"github.com/wgdzlh/vegtile/log"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// 将单波段预测瓦片拼回完整影像，未覆盖处为0
// 仅使用每个瓦片的第一个波段
func StitchTiles(tiles *TileSet, height, width int) (out *mat.Dense, err error) {
	if tiles.Len() == 0 {
		err = ErrEmptyTileSet
		return
	}
	if height <= 0 || width <= 0 {
		err = fmt.Errorf("%w: %dx%d", ErrInvalidOutputSize, height, width)
		return
	}
	keys := tiles.Keys()
	size := tiles.tiles[keys[0]].Size
	for _, k := range keys {
		if k.Row < 0 || k.Col < 0 || k.Row+size > height || k.Col+size > width {
			err = fmt.Errorf("%w: key %s, tile %d, output %dx%d", ErrTileOutOfBounds, k, size, height, width)
			return
		}
	}
	out = mat.NewDense(height, width, nil)
	for _, k := range keys {
		t := tiles.tiles[k]
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				out.Set(k.Row+y, k.Col+x, float64(t.At(y, x, 0)))
			}
		}
	}
	log.Debug(logTag+"tiles stitched", zap.Int("tiles", len(keys)), zap.Int("height", height), zap.Int("width", width))
	return
}

// shape为(高, 宽[, 波段])，波段维忽略
func StitchShape(tiles *TileSet, shape ...int) (*mat.Dense, error) {
	if len(shape) < 2 {
		return nil, fmt.Errorf("%w: shape %v", ErrInvalidOutputSize, shape)
	}
	return StitchTiles(tiles, shape[0], shape[1])
}
