package vegtile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wgdzlh/vegtile/log"

	"github.com/google/uuid"
	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// 读取多波段Tif，所有波段按float32读入
func (g *Toolbox) ReadRaster(tif string) (r *Raster, err error) {
	sds, err := gdal.Open(tif, gdal.ReadOnly)
	if err != nil {
		log.Error(g.logTag+"open tif failed", zap.String("tif", tif), zap.Error(err))
		err = &RasterError{Op: "open", Path: tif, Err: fmt.Errorf("%w: %v", ErrInvalidTif, err)}
		return
	}
	defer sds.Close()
	bc := sds.RasterCount()
	if bc == 0 {
		log.Error(g.logTag+"tif has no band", zap.String("tif", tif))
		err = &RasterError{Op: "open", Path: tif, Err: ErrEmptyTif}
		return
	}
	x, y := sds.RasterXSize(), sds.RasterYSize()
	log.Info(g.logTag+"start read tif", zap.String("tif", tif), zap.Int("bands", bc), zap.Int("width", x), zap.Int("height", y))
	r = NewRaster(y, x, bc)
	r.Projection = sds.Projection()
	r.GeoTransform = sds.GeoTransform()
	buf := make([]float32, x*y)
	for b := 0; b < bc; b++ {
		if err = sds.RasterBand(b+1).IO(gdal.Read, 0, 0, x, y, buf, x, y, 0, 0); err != nil {
			log.Error(g.logTag+"read tif band failed", zap.Int("band", b), zap.Error(err))
			r = nil
			err = &RasterError{Op: "read", Path: tif, Err: fmt.Errorf("%w: band %d: %v", ErrTifReadFailed, b+1, err)}
			return
		}
		for i, v := range buf {
			r.Data[i*bc+b] = v
		}
	}
	return
}

// 读取单个波段（1起），用于标签影像
func (g *Toolbox) ReadBand(tif string, band int) (r *Raster, err error) {
	all, err := g.ReadRaster(tif)
	if err != nil {
		return
	}
	if band < 1 || band > all.Bands {
		err = &RasterError{Op: "read", Path: tif, Err: fmt.Errorf("%w: band %d of %d", ErrInvalidRaster, band, all.Bands)}
		return
	}
	r = NewRaster(all.Height, all.Width, 1)
	r.Projection = all.Projection
	r.GeoTransform = all.GeoTransform
	for i := range r.Data {
		r.Data[i] = all.Data[i*all.Bands+band-1]
	}
	return
}

// 将单波段结果按原地理参考写为Float32 GTiff
// 先写临时文件再重命名，避免输出路径上出现残缺文件
func (g *Toolbox) WriteRaster(out string, data mat.Matrix, geoTransform [6]float64, projection string) (err error) {
	y, x := data.Dims()
	if x == 0 || y == 0 {
		err = &RasterError{Op: "write", Path: out, Err: ErrInvalidOutputSize}
		return
	}
	driver, err := gdal.GetDriverByName(TIF_DRIVER_NAME)
	if err != nil {
		err = &RasterError{Op: "write", Path: out, Err: fmt.Errorf("%w: %v", ErrGdalDriverCreate, err)}
		return
	}
	dir := g.tmpDir
	if dir == "" {
		dir = filepath.Dir(out)
	}
	tmp := filepath.Join(dir, fmt.Sprintf(TMP_TIF, uuid.NewString()))
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()
	log.Info(g.logTag+"start write tif", zap.String("out", out), zap.Int("width", x), zap.Int("height", y))
	ds := driver.Create(tmp, x, y, 1, gdal.Float32, TifCreateOptions)
	if ds.RasterCount() != 1 { // 创建失败时句柄为空
		log.Error(g.logTag+"create tif failed", zap.String("tmp", tmp))
		err = &RasterError{Op: "create", Path: tmp, Err: ErrGdalDriverCreate}
		return
	}
	buf := make([]float32, x*y)
	for i := 0; i < y; i++ {
		for j := 0; j < x; j++ {
			buf[i*x+j] = float32(data.At(i, j))
		}
	}
	if err = ds.SetGeoTransform(geoTransform); err == nil {
		if projection != "" {
			err = ds.SetProjection(projection)
		}
	}
	if err == nil {
		err = ds.RasterBand(1).IO(gdal.Write, 0, 0, x, y, buf, x, y, 0, 0)
	}
	if err != nil {
		ds.Close()
		log.Error(g.logTag+"write tif failed", zap.String("out", out), zap.Error(err))
		err = &RasterError{Op: "write", Path: out, Err: fmt.Errorf("%w: %v", ErrTifWriteFailed, err)}
		return
	}
	ds.FlushCache()
	ds.Close()
	if err = os.Rename(tmp, out); err != nil {
		err = &RasterError{Op: "write", Path: out, Err: err}
		return
	}
	log.Info(g.logTag+"tif written", zap.String("out", out))
	return
}
