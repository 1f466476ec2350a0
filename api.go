package vegtile

import (
	"cmp"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// 多波段栅格，Data按 行×列×波段 排列
type Raster struct {
	Height       int
	Width        int
	Bands        int
	Data         []float32
	Projection   string     // WKT投影
	GeoTransform [6]float64 // 仿射地理变换
}

func NewRaster(height, width, bands int) *Raster {
	return &Raster{
		Height: height,
		Width:  width,
		Bands:  bands,
		Data:   make([]float32, height*width*bands),
	}
}

func (r *Raster) Validate() error {
	if r == nil || r.Height <= 0 || r.Width <= 0 || r.Bands <= 0 {
		return ErrInvalidRaster
	}
	if len(r.Data) != r.Height*r.Width*r.Bands {
		return fmt.Errorf("%w: data length %d != %dx%dx%d", ErrInvalidRaster, len(r.Data), r.Height, r.Width, r.Bands)
	}
	return nil
}

func (r *Raster) At(row, col, band int) float32 {
	return r.Data[(row*r.Width+col)*r.Bands+band]
}

func (r *Raster) Set(row, col, band int, v float32) {
	r.Data[(row*r.Width+col)*r.Bands+band] = v
}

// 取出单个波段（0起）
func (r *Raster) Band(b int) *mat.Dense {
	out := mat.NewDense(r.Height, r.Width, nil)
	for i := 0; i < r.Height; i++ {
		for j := 0; j < r.Width; j++ {
			out.Set(i, j, float64(r.At(i, j, b)))
		}
	}
	return out
}

// 瓦片左上角像素坐标
type TileKey struct {
	Row int
	Col int
}

func (k TileKey) String() string {
	return fmt.Sprintf("%d_%d", k.Row, k.Col)
}

func compareKeys(a, b TileKey) int {
	if c := cmp.Compare(a.Row, b.Row); c != 0 {
		return c
	}
	return cmp.Compare(a.Col, b.Col)
}

// 固定尺寸的方形瓦片，Data按 行×列×波段 排列
type Tile struct {
	Key   TileKey
	Size  int
	Bands int
	Data  []float32
}

func NewTile(key TileKey, size, bands int) *Tile {
	return &Tile{
		Key:   key,
		Size:  size,
		Bands: bands,
		Data:  make([]float32, size*size*bands),
	}
}

func (t *Tile) At(row, col, band int) float32 {
	return t.Data[(row*t.Size+col)*t.Bands+band]
}

func (t *Tile) Set(row, col, band int, v float32) {
	t.Data[(row*t.Size+col)*t.Bands+band] = v
}

// 瓦片集合：所有瓦片形状一致
type TileSet struct {
	Size  int
	Bands int
	tiles map[TileKey]*Tile
}

func NewTileSet(size, bands int) *TileSet {
	return &TileSet{
		Size:  size,
		Bands: bands,
		tiles: map[TileKey]*Tile{},
	}
}

func (s *TileSet) Put(t *Tile) error {
	if t.Size != s.Size || t.Bands != s.Bands || len(t.Data) != t.Size*t.Size*t.Bands {
		return fmt.Errorf("%w: key %s has %dx%dx%d, set is %dx%dx%d",
			ErrTileShape, t.Key, t.Size, t.Size, t.Bands, s.Size, s.Size, s.Bands)
	}
	s.tiles[t.Key] = t
	return nil
}

func (s *TileSet) Get(key TileKey) (t *Tile, ok bool) {
	t, ok = s.tiles[key]
	return
}

func (s *TileSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tiles)
}

// 按行优先排序的key
func (s *TileSet) Keys() []TileKey {
	keys := make([]TileKey, 0, len(s.tiles))
	for k := range s.tiles {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// 若干瓦片叠成的数组：N×Size×Size×Bands
type Stack struct {
	N     int
	Size  int
	Bands int
	Data  []float32
}

func (s *Stack) Shape() [4]int {
	return [4]int{s.N, s.Size, s.Size, s.Bands}
}

// 第i个瓦片的拷贝
func (s *Stack) Tile(i int, key TileKey) *Tile {
	n := s.Size * s.Size * s.Bands
	t := NewTile(key, s.Size, s.Bands)
	copy(t.Data, s.Data[i*n:(i+1)*n])
	return t
}

// 训练/测试key划分
type Split struct {
	Train []TileKey
	Test  []TileKey
}

type Dataset struct {
	Split
	SatTrain *Stack
	VegTrain *Stack
	SatTest  *Stack
	VegTest  *Stack
}
