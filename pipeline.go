package vegtile

import (
	"fmt"

	"github.com/wgdzlh/vegtile/log"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// 对单个瓦片做推理，返回同key的单波段概率瓦片
type TilePredictor interface {
	PredictTile(t *Tile) (*Tile, error)
}

// 预测单个瓦片集合，结果与输入key一一对应
func PredictTiles(p TilePredictor, ts *TileSet) (out *TileSet, err error) {
	out = NewTileSet(ts.Size, 1)
	for _, k := range ts.Keys() {
		var pt *Tile
		if pt, err = p.PredictTile(ts.tiles[k]); err != nil {
			err = fmt.Errorf("predict tile %s: %w", k, err)
			return
		}
		pt.Key = k
		if err = out.Put(pt); err != nil {
			return
		}
	}
	return
}

// 数据准备结果：划分后的数据集及其来源
type PreparedData struct {
	*Dataset
	Sat      *Raster
	SatTiles *TileSet
	VegTiles *TileSet
}

// 读取卫星影像与植被标签影像，切分并划分训练/测试集
func (g *Toolbox) PrepareDataset(satTif, vegTif string, tileSize int, opts ...SplitOption) (pd *PreparedData, err error) {
	sat, err := g.ReadRaster(satTif)
	if err != nil {
		return
	}
	veg, err := g.ReadBand(vegTif, 1)
	if err != nil {
		return
	}
	if veg.Height != sat.Height || veg.Width != sat.Width {
		log.Warn(g.logTag+"label raster size differs from satellite raster",
			zap.Int("satHeight", sat.Height), zap.Int("satWidth", sat.Width),
			zap.Int("vegHeight", veg.Height), zap.Int("vegWidth", veg.Width))
	}
	pd = &PreparedData{Sat: sat}
	if pd.SatTiles, err = CutIntoTiles(sat, tileSize); err != nil {
		return nil, err
	}
	if pd.VegTiles, err = CutIntoTiles(veg, tileSize); err != nil {
		return nil, err
	}
	if pd.Dataset, err = SplitTiles(pd.SatTiles, pd.VegTiles, opts...); err != nil {
		return nil, err
	}
	return
}

// 影像 -> 瓦片 -> 推理 -> 拼接 -> 按原地理参考写出
func (g *Toolbox) PredictRaster(inTif, outTif string, tileSize int, p TilePredictor) (pred *mat.Dense, err error) {
	r, err := g.ReadRaster(inTif)
	if err != nil {
		return
	}
	ts, err := CutIntoTiles(r, tileSize)
	if err != nil {
		return
	}
	if ts.Len() == 0 {
		err = fmt.Errorf("%w: raster %dx%d smaller than tile %d", ErrEmptyTileSet, r.Height, r.Width, tileSize)
		return
	}
	log.Info(g.logTag+"start predict raster", zap.String("in", inTif), zap.Int("tiles", ts.Len()))
	preds, err := PredictTiles(p, ts)
	if err != nil {
		return
	}
	if pred, err = StitchTiles(preds, r.Height, r.Width); err != nil {
		return
	}
	if err = g.WriteRaster(outTif, pred, r.GeoTransform, r.Projection); err != nil {
		return
	}
	log.Info(g.logTag+"raster predicted", zap.String("out", outTif), zap.Float64("coverage@0.5", Coverage(pred, 0.5)))
	return
}
