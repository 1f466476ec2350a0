package vegtile

import (
	"sync"

	"github.com/wgdzlh/vegtile/log"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

type Toolbox struct {
	refMap map[string]gdal.SpatialReference
	rLock  sync.Mutex
	tmpDir string
	logTag string
}

// 由GDAL库C语言创建的内存对象，需要手动调用Destroy回收
type destroyable interface {
	Destroy()
}

// 初始化工具箱，tmpDir为可选的临时目录路径（未提供的话为输出文件所在目录）
func NewToolbox(tmpDir ...string) *Toolbox {
	g := &Toolbox{
		refMap: map[string]gdal.SpatialReference{},
		logTag: "Toolbox:",
	}
	if len(tmpDir) > 0 && tmpDir[0] != "" {
		g.tmpDir = tmpDir[0]
	}
	return g
}

// 回收缓存的坐标系
func (g *Toolbox) Close() {
	g.rLock.Lock()
	defer g.rLock.Unlock()
	for k, ref := range g.refMap {
		ref.Destroy()
		delete(g.refMap, k)
	}
}

// 获取投影WKT对应的坐标系（可复用，故无需回收）
func (g *Toolbox) getProjRef(proj string) (ref gdal.SpatialReference, err error) {
	if proj == "" {
		err = ErrVoidProjection
		return
	}
	g.rLock.Lock()
	defer g.rLock.Unlock()
	ref, ok := g.refMap[proj]
	if ok {
		return
	}
	ref = gdal.CreateSpatialReference("")
	if err = ref.FromWKT(proj); err != nil {
		log.Error(g.logTag+"set ref from projection failed", zap.String("proj", proj), zap.Error(err))
		ref.Destroy()
		return
	}
	// 数据轴固定为(x,y)即(经度,纬度)/(东,北)次序，与地理变换一致
	ref.SetAxisMappingStrategy(gdal.OAMS_TraditionalGisOrder)
	g.refMap[proj] = ref
	return
}

// 无投影时使用空坐标系，几何运算仍可进行
func (g *Toolbox) getRefOrEmpty(proj string) (ref gdal.SpatialReference, err error) {
	if proj == "" {
		return
	}
	return g.getProjRef(proj)
}

func (g *Toolbox) parseWKT(wkt string, ref gdal.SpatialReference) (ret gdal.Geometry, err error) {
	ret, err = gdal.CreateFromWKT(wkt, ref)
	if err != nil {
		log.Error(g.logTag+"parse wkt failed", zap.Error(err))
	}
	return
}

// 合并所有瓦片的覆盖范围，输出WKT
func (g *Toolbox) TileUnionWkt(ts *TileSet, gt [6]float64, proj string) (ret string, err error) {
	ref, err := g.getRefOrEmpty(proj)
	if err != nil {
		return
	}
	union, err := g.unionFootprints(ts, gt, ref)
	if err != nil {
		return
	}
	defer union.Destroy()
	ret, err = union.ToWKT()
	return
}

func (g *Toolbox) unionFootprints(ts *TileSet, gt [6]float64, ref gdal.SpatialReference) (union gdal.Geometry, err error) {
	var (
		geo gdal.Geometry
		gc  []destroyable
	)
	union = gdal.Create(gdal.GT_Polygon)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	for _, k := range ts.Keys() {
		if geo, err = g.parseWKT(TileFootprintWkt(gt, k, ts.Size), ref); err != nil {
			gc = append(gc, union)
			return
		}
		gc = append(gc, geo, union)
		union = union.Union(geo)
	}
	return
}
