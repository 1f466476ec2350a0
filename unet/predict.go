package unet

import (
	"fmt"

	"github.com/wgdzlh/vegtile"

	"github.com/born-ml/born/tensor"
)

// N×T×T×C -> [N, C, T, T]
func toNCHW[B tensor.Backend](s *vegtile.Stack, backend B) (*tensor.Tensor[float32, B], error) {
	n, size, c := s.N, s.Size, s.Bands
	if len(s.Data) != n*size*size*c {
		return nil, fmt.Errorf("%w: stack data length %d != %v", vegtile.ErrShapeMismatch, len(s.Data), s.Shape())
	}
	buf := make([]float32, len(s.Data))
	for i := 0; i < n; i++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				src := ((i*size+y)*size + x) * c
				for ch := 0; ch < c; ch++ {
					buf[((i*c+ch)*size+y)*size+x] = s.Data[src+ch]
				}
			}
		}
	}
	return tensor.FromSlice(buf, tensor.Shape{n, c, size, size}, backend)
}

// [N, C, H, W] (H=W) -> N×H×W×C
func fromNCHW[B tensor.Backend](t *tensor.Tensor[float32, B]) *vegtile.Stack {
	s := t.Shape()
	n, c, size := s[0], s[1], s[2]
	data := t.Data()
	out := &vegtile.Stack{N: n, Size: size, Bands: c, Data: make([]float32, len(data))}
	for i := 0; i < n; i++ {
		for ch := 0; ch < c; ch++ {
			for y := 0; y < size; y++ {
				for x := 0; x < size; x++ {
					out.Data[((i*size+y)*size+x)*c+ch] = data[((i*c+ch)*size+y)*size+x]
				}
			}
		}
	}
	return out
}

// 批量推理：N×T×T×4 -> N×T×T×1
func (m *UNet[B]) PredictStack(s *vegtile.Stack) (out *vegtile.Stack, err error) {
	x, err := toNCHW(s, m.backend)
	if err != nil {
		return
	}
	y, err := m.Infer(x)
	if err != nil {
		return
	}
	out = fromNCHW(y)
	return
}

// 单瓦片推理，结果沿用输入key
func (m *UNet[B]) PredictTile(t *vegtile.Tile) (out *vegtile.Tile, err error) {
	st, err := m.PredictStack(&vegtile.Stack{N: 1, Size: t.Size, Bands: t.Bands, Data: t.Data})
	if err != nil {
		return
	}
	out = st.Tile(0, t.Key)
	return
}

// 推理前按训练集波段统计量做标准化
type Predictor[B tensor.Backend] struct {
	Model *UNet[B]
	Stats []vegtile.BandStat
}

func NewPredictor[B tensor.Backend](model *UNet[B], stats ...vegtile.BandStat) *Predictor[B] {
	return &Predictor[B]{Model: model, Stats: stats}
}

func (p *Predictor[B]) PredictTile(t *vegtile.Tile) (*vegtile.Tile, error) {
	if len(p.Stats) == 0 {
		return p.Model.PredictTile(t)
	}
	ts := vegtile.NewTileSet(t.Size, t.Bands)
	if err := ts.Put(t); err != nil {
		return nil, err
	}
	norm, err := vegtile.NormalizeTiles(ts, p.Stats)
	if err != nil {
		return nil, err
	}
	nt, _ := norm.Get(t.Key)
	return p.Model.PredictTile(nt)
}

var (
	_ vegtile.TilePredictor = (*UNet[CPUBackend])(nil)
	_ vegtile.TilePredictor = (*Predictor[CPUBackend])(nil)
)
