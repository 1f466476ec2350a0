package vegtile

import (
	"github.com/wgdzlh/vegtile/log"

	"go.uber.org/zap"
)

const logTag = "vegtile:"

// 按tileSize切分栅格为不重叠瓦片，key为瓦片左上角(行,列)
// 右侧和下侧不足一个瓦片的边缘直接丢弃，不补零，也不报错
func CutIntoTiles(r *Raster, tileSize int) (ts *TileSet, err error) {
	if tileSize <= 0 {
		err = ErrInvalidTileSize
		return
	}
	if err = r.Validate(); err != nil {
		return
	}
	ts = NewTileSet(tileSize, r.Bands)
	rowStride := r.Width * r.Bands
	span := tileSize * r.Bands
	for i := 0; i < r.Height; i += tileSize {
		for j := 0; j < r.Width; j += tileSize {
			if i+tileSize > r.Height || j+tileSize > r.Width {
				continue
			}
			t := NewTile(TileKey{Row: i, Col: j}, tileSize, r.Bands)
			for y := 0; y < tileSize; y++ {
				src := (i+y)*rowStride + j*r.Bands
				copy(t.Data[y*span:(y+1)*span], r.Data[src:src+span])
			}
			ts.tiles[t.Key] = t
		}
	}
	th, tw := TiledExtent(r.Height, r.Width, tileSize)
	if th != r.Height || tw != r.Width {
		log.Info(logTag+"edge strips dropped", zap.Int("height", r.Height), zap.Int("width", r.Width),
			zap.Int("droppedRows", r.Height-th), zap.Int("droppedCols", r.Width-tw))
	}
	log.Debug(logTag+"raster cut into tiles", zap.Int("tiles", ts.Len()), zap.Int("tileSize", tileSize))
	return
}

// 被瓦片覆盖的区域高宽
func TiledExtent(height, width, tileSize int) (h, w int) {
	if tileSize <= 0 {
		return
	}
	h = height / tileSize * tileSize
	w = width / tileSize * tileSize
	return
}
