package vegtile

const (
	FILE_EXT_SHP    = ".shp"
	FILE_EXT_TIF    = ".tif"
	SHAPE_ENCODING  = "UTF-8"
	ZH_ENC          = "GBK"
	TIF_DRIVER_NAME = "GTiff"
	SHP_DRIVER_NAME = "ESRI Shapefile"
	ENCODING_OPTION = "ENCODING=" + SHAPE_ENCODING

	DefaultTileSize     = 224
	DefaultTestFraction = 0.2
	// 两次2x2池化，输入边长须为4的倍数
	SpatialDivisor = 4
	ModelBands     = 4

	SHP_FIELD_ROW   = "row"
	SHP_FIELD_COL   = "col"
	SHP_FIELD_SPLIT = "split"
	SHP_FIELD_SIZE  = "size"
	FILE_EXT_CPG    = ".cpg"
	SPLIT_TRAIN     = "train"
	SPLIT_TEST      = "test"

	// 旧版GBK编码索引（无cpg）使用的中文字段名及划分取值
	SHP_FIELD_ROW_ZH   = "行号"
	SHP_FIELD_COL_ZH   = "列号"
	SHP_FIELD_SIZE_ZH  = "边长"
	SHP_FIELD_SPLIT_ZH = "划分"
	SPLIT_TRAIN_ZH     = "训练"
	SPLIT_TEST_ZH      = "测试"
	NO_ENCODING_OPTION = "ENCODING="

	ErrColumnMissingTemplate = `tile index shp missing field [%s]`

	TMP_TIF = ".%s.tmp" + FILE_EXT_TIF
)

var (
	// GTiff创建参数
	TifCreateOptions = []string{"COMPRESS=LZW", "TILED=YES"}
)
