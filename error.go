package vegtile

import (
	"errors"
	"fmt"
)

var (
	ErrGdalDriverCreate  = errors.New("gdal driver create err")
	ErrGdalDriverOpen    = errors.New("gdal driver open err")
	ErrInvalidTif        = errors.New("invalid tif")
	ErrEmptyTif          = errors.New("empty tif")
	ErrTifReadFailed     = errors.New("tif read failed")
	ErrTifWriteFailed    = errors.New("tif write failed")
	ErrInvalidRaster     = errors.New("invalid raster")
	ErrInvalidTileSize   = errors.New("tile size must be positive")
	ErrTileShape         = errors.New("tile shape differs from tile set")
	ErrTileNotFound      = errors.New("tile not found")
	ErrTileOutOfBounds   = errors.New("tile out of output bounds")
	ErrEmptyTileSet      = errors.New("empty tile set")
	ErrInvalidFraction   = errors.New("test fraction must be in (0, 1)")
	ErrEmptySplit        = errors.New("split leaves train or test side empty")
	ErrSplitKeys         = errors.New("split keys overlap")
	ErrInvalidOutputSize = errors.New("invalid output size")
	ErrShapeMismatch     = errors.New("shape mismatch")
	ErrVoidProjection    = errors.New("raster with void projection")
)

// 栅格文件读写错误，携带失败路径
type RasterError struct {
	Op   string
	Path string
	Err  error
}

func (e *RasterError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *RasterError) Unwrap() error {
	return e.Err
}

// 配对瓦片集中缺失某个key
type MissingTileError struct {
	Key TileKey
	Set string
}

func (e *MissingTileError) Error() string {
	return fmt.Sprintf("%s tiles: key %s: %v", e.Set, e.Key, ErrTileNotFound)
}

func (e *MissingTileError) Unwrap() error {
	return ErrTileNotFound
}
