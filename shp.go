package vegtile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/wgdzlh/vegtile/log"
	"github.com/wgdzlh/vegtile/utils"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// 瓦片索引：每个瓦片的key及其所属划分
type TileIndex struct {
	Size  int
	Keys  []TileKey
	Split Split
}

// 索引shp的字段名与划分取值
type indexSchema struct {
	row, col, size, split string
	train, test           string
}

var (
	utf8Schema = indexSchema{
		row: SHP_FIELD_ROW, col: SHP_FIELD_COL, size: SHP_FIELD_SIZE, split: SHP_FIELD_SPLIT,
		train: SPLIT_TRAIN, test: SPLIT_TEST,
	}
	gbkSchema = indexSchema{
		row: SHP_FIELD_ROW_ZH, col: SHP_FIELD_COL_ZH, size: SHP_FIELD_SIZE_ZH, split: SHP_FIELD_SPLIT_ZH,
		train: SPLIT_TRAIN_ZH, test: SPLIT_TEST_ZH,
	}
)

// GBK模式下所有文本转为GBK字节
func (s indexSchema) encode(gbk bool) (out indexSchema, err error) {
	out = s
	if !gbk {
		return
	}
	for _, p := range []*string{&out.row, &out.col, &out.size, &out.split, &out.train, &out.test} {
		if *p, err = utils.Utf8StrToGbk(*p); err != nil {
			return
		}
	}
	return
}

func (s indexSchema) sideOf(sp *Split) map[TileKey]string {
	m := map[TileKey]string{}
	if sp == nil {
		return m
	}
	for _, k := range sp.Train {
		m[k] = s.train
	}
	for _, k := range sp.Test {
		m[k] = s.test
	}
	return m
}

// 要素顺序：训练集、测试集（各自保持划分顺序），其余按行优先
// 读回后划分顺序不变，WithKeys可完全复现原数据集
func indexOrder(ts *TileSet, sp *Split) []TileKey {
	keys := make([]TileKey, 0, ts.Len())
	seen := make(map[TileKey]struct{}, ts.Len())
	add := func(k TileKey) {
		if _, ok := ts.tiles[k]; !ok {
			return
		}
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if sp != nil {
		for _, k := range sp.Train {
			add(k)
		}
		for _, k := range sp.Test {
			add(k)
		}
	}
	for _, k := range ts.Keys() {
		add(k)
	}
	return keys
}

func (g *Toolbox) initIndexLayer(layer gdal.Layer, s indexSchema) (err error) {
	for _, name := range []string{s.row, s.col, s.size} {
		fd := gdal.CreateFieldDefinition(name, gdal.FT_Integer)
		err = layer.CreateField(fd, false)
		fd.Destroy()
		if err != nil {
			return
		}
	}
	fd := gdal.CreateFieldDefinition(s.split, gdal.FT_String)
	fd.SetWidth(8)
	err = layer.CreateField(fd, false)
	fd.Destroy()
	return
}

// 将瓦片范围及划分写入shp（UTF-8，带cpg），坐标系取自影像投影
func (g *Toolbox) WriteTileIndex(shp string, ts *TileSet, geoTransform [6]float64, projection string, sp *Split) error {
	return g.writeTileIndex(shp, ts, geoTransform, projection, sp, false)
}

// 供旧版GIS软件使用：中文字段名及取值按GBK写入，不生成cpg
func (g *Toolbox) WriteLegacyTileIndex(shp string, ts *TileSet, geoTransform [6]float64, projection string, sp *Split) error {
	return g.writeTileIndex(shp, ts, geoTransform, projection, sp, true)
}

// 先在临时目录生成，完成后整体移动到目标位置
func (g *Toolbox) writeTileIndex(shp string, ts *TileSet, geoTransform [6]float64, projection string, sp *Split, gbk bool) (err error) {
	schema := utf8Schema
	if gbk {
		schema = gbkSchema
	}
	if schema, err = schema.encode(gbk); err != nil {
		return
	}
	ref, err := g.getRefOrEmpty(projection)
	if err != nil {
		return
	}
	parent := g.tmpDir
	if parent == "" {
		parent = filepath.Dir(shp)
	}
	stage, err := utils.GetUniqSubDir(parent)
	if err != nil {
		return
	}
	defer os.RemoveAll(stage)
	name := utils.GetFilenameWithoutExt(shp)
	log.Info(g.logTag+"output tile index", zap.String("shp", shp), zap.Int("tiles", ts.Len()), zap.Bool("gbk", gbk))
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Create(filepath.Join(stage, name+FILE_EXT_SHP), nil)
	if !ok {
		err = &RasterError{Op: "create", Path: shp, Err: ErrGdalDriverCreate}
		return
	}
	layerOpt := ENCODING_OPTION
	if gbk {
		layerOpt = NO_ENCODING_OPTION // 不转码，原样写入GBK字节
	}
	layer := ds.CreateLayer(name, ref, gdal.GT_Polygon, []string{layerOpt})
	if err = g.initIndexLayer(layer, schema); err != nil {
		ds.Destroy()
		return
	}
	var (
		def     = layer.Definition()
		rowIdx  = def.FieldIndex(schema.row)
		colIdx  = def.FieldIndex(schema.col)
		sizeIdx = def.FieldIndex(schema.size)
		splIdx  = def.FieldIndex(schema.split)
		sides   = schema.sideOf(sp)
		feature gdal.Feature
		geo     gdal.Geometry
		cnt     int
		e       error
	)
	for i, k := range indexOrder(ts, sp) {
		feature = def.Create()
		if e = feature.SetFID(int64(i)); e != nil {
			log.Error(g.logTag+"err in set feature fid", zap.Error(e))
			feature.Destroy()
			continue
		}
		feature.SetFieldInteger(rowIdx, k.Row)
		feature.SetFieldInteger(colIdx, k.Col)
		feature.SetFieldInteger(sizeIdx, ts.Size)
		feature.SetFieldString(splIdx, sides[k])
		if geo, e = g.parseWKT(TileFootprintWkt(geoTransform, k, ts.Size), ref); e != nil {
			feature.Destroy()
			continue
		}
		if e = feature.SetGeometryDirectly(geo); e != nil {
			log.Error(g.logTag+"err in set geom of feature", zap.Error(e))
			geo.Destroy() // 所有权未转移给要素
			feature.Destroy()
			continue
		}
		if e = layer.Create(feature); e != nil {
			log.Error(g.logTag+"err in create feature of layer", zap.Error(e))
		} else {
			cnt++
		}
		feature.Destroy()
	}
	ds.Destroy() // 生成shp文件 + 释放资源
	if cnt != ts.Len() {
		err = fmt.Errorf("%w: %d of %d tile features written", ErrGdalDriverCreate, cnt, ts.Len())
		return
	}
	if gbk {
		// 无cpg时读取方按GBK解码
		if e = os.Remove(filepath.Join(stage, name+FILE_EXT_CPG)); e != nil && !os.IsNotExist(e) {
			err = e
			return
		}
	}
	if _, err = utils.MoveSidecars(stage, name, filepath.Dir(shp)); err != nil {
		return
	}
	log.Info(g.logTag+"tile index created", zap.String("shp", shp), zap.Int("valid", cnt))
	return
}

// 无cpg且非UTF-8的文本按GBK解码，失败时剔除非法字节
func (g *Toolbox) decodeText(s string, hasCpg bool) string {
	if hasCpg || utf8.ValidString(s) {
		return s
	}
	d, e := utils.GbkStrToUtf8(s)
	if e != nil {
		log.Error(g.logTag+"err in trans-encoding shp text", zap.Error(e))
		return utils.PurifyForUtf8(s)
	}
	return d
}

// 按英文或中文字段名定位索引字段，字段名先做编码还原
func (g *Toolbox) indexFieldsOf(def gdal.FeatureDefinition, hasCpg bool) (fields [4]int, err error) {
	names := make(map[string]int, def.FieldCount())
	for i := 0; i < def.FieldCount(); i++ {
		names[strings.TrimSpace(g.decodeText(def.FieldDefinition(i).Name(), hasCpg))] = i
	}
	for i, alias := range [4][2]string{
		{utf8Schema.row, gbkSchema.row},
		{utf8Schema.col, gbkSchema.col},
		{utf8Schema.size, gbkSchema.size},
		{utf8Schema.split, gbkSchema.split},
	} {
		j, ok := names[alias[0]]
		if !ok {
			j, ok = names[alias[1]]
		}
		if !ok {
			err = fmt.Errorf(ErrColumnMissingTemplate, alias[0])
			return
		}
		fields[i] = j
	}
	return
}

// 读取瓦片索引shp，兼容UTF-8与旧版GBK（中文字段名）两种格式
func (g *Toolbox) ReadTileIndex(shp string) (idx TileIndex, err error) {
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Open(shp, 0)
	if !ok {
		err = &RasterError{Op: "open", Path: shp, Err: ErrGdalDriverOpen}
		return
	}
	defer ds.Destroy()
	_, e := os.Stat(strings.TrimSuffix(shp, FILE_EXT_SHP) + FILE_EXT_CPG)
	hasCpg := e == nil
	layer := ds.LayerByIndex(0)
	fields, err := g.indexFieldsOf(layer.Definition(), hasCpg)
	if err != nil {
		return
	}
	var (
		feature *gdal.Feature
		key     TileKey
	)
	for {
		if feature = layer.NextFeature(); feature == nil {
			break
		}
		key = TileKey{Row: feature.FieldAsInteger(fields[0]), Col: feature.FieldAsInteger(fields[1])}
		if idx.Size == 0 {
			idx.Size = feature.FieldAsInteger(fields[2])
		}
		side := g.decodeText(feature.FieldAsString(fields[3]), hasCpg)
		feature.Destroy()
		idx.Keys = append(idx.Keys, key)
		switch strings.TrimSpace(side) {
		case SPLIT_TRAIN, SPLIT_TRAIN_ZH:
			idx.Split.Train = append(idx.Split.Train, key)
		case SPLIT_TEST, SPLIT_TEST_ZH:
			idx.Split.Test = append(idx.Split.Test, key)
		}
	}
	log.Info(g.logTag+"got tile index from shp", zap.String("shp", shp), zap.Int("tiles", len(idx.Keys)),
		zap.Int("train", len(idx.Split.Train)), zap.Int("test", len(idx.Split.Test)), zap.Bool("cpg", hasCpg))
	return
}
