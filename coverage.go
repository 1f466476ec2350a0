package vegtile

import (
	"github.com/wgdzlh/vegtile/log"
	"github.com/wgdzlh/vegtile/utils"

	"go.uber.org/zap"
)

type AnyJson = []byte

// 瓦片集合在整幅影像中的覆盖率，以及未被切分（丢弃）区域的GeoJSON
func (g *Toolbox) TiledCoverage(r *Raster, ts *TileSet) (ratio float32, dropped AnyJson, err error) {
	log.Info(g.logTag+"start get tiled coverage", zap.Int("tiles", ts.Len()))
	ref, err := g.getRefOrEmpty(r.Projection)
	if err != nil {
		return
	}
	extent, err := g.parseWKT(footprintWkt(r.GeoTransform, 0, 0, r.Height, r.Width), ref)
	if err != nil {
		return
	}
	defer extent.Destroy()
	extentArea := extent.Area()
	if extentArea == 0 {
		err = ErrInvalidRaster
		return
	}
	union, err := g.unionFootprints(ts, r.GeoTransform, ref)
	if err != nil {
		return
	}
	defer union.Destroy()
	inter := extent.Intersection(union)
	defer inter.Destroy()
	ratio = float32(inter.Area() / extentArea)
	diff := extent.Difference(union)
	defer diff.Destroy()
	if !diff.IsEmpty() {
		dropped = utils.S2B(diff.ToJSON())
	}
	log.Info(g.logTag+"got tiled coverage", zap.Float32("ratio", ratio), zap.Bool("lossy", len(dropped) > 0))
	return
}
