package vegtile

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// 单波段统计量
type BandStat struct {
	Mean float64
	Std  float64
}

// 按波段统计瓦片集合的均值与标准差
func BandStats(ts *TileSet) (stats []BandStat, err error) {
	if ts.Len() == 0 {
		err = ErrEmptyTileSet
		return
	}
	n := ts.Size * ts.Size
	vals := make([]float64, 0, n*ts.Len())
	stats = make([]BandStat, ts.Bands)
	keys := ts.Keys()
	for b := 0; b < ts.Bands; b++ {
		vals = vals[:0]
		for _, k := range keys {
			t := ts.tiles[k]
			for p := 0; p < n; p++ {
				vals = append(vals, float64(t.Data[p*ts.Bands+b]))
			}
		}
		stats[b].Mean, stats[b].Std = stat.MeanStdDev(vals, nil)
	}
	return
}

// 按波段z-score标准化，返回新的瓦片集合；标准差为0的波段只做去均值
func NormalizeTiles(ts *TileSet, stats []BandStat) (out *TileSet, err error) {
	if len(stats) != ts.Bands {
		err = fmt.Errorf("%w: %d band stats for %d bands", ErrShapeMismatch, len(stats), ts.Bands)
		return
	}
	out = NewTileSet(ts.Size, ts.Bands)
	for k, t := range ts.tiles {
		nt := NewTile(k, t.Size, t.Bands)
		for i, v := range t.Data {
			s := stats[i%t.Bands]
			d := float64(v) - s.Mean
			if s.Std > 0 {
				d /= s.Std
			}
			nt.Data[i] = float32(d)
		}
		out.tiles[k] = nt
	}
	return
}

// 概率图中不低于阈值的像素比例
func Coverage(pred mat.Matrix, threshold float64) float64 {
	r, c := pred.Dims()
	if r == 0 || c == 0 {
		return 0
	}
	vals := flatten(pred)
	hit := floats.Count(func(v float64) bool { return v >= threshold }, vals)
	return float64(hit) / float64(len(vals))
}

// 二值化后与标签逐像素比较的准确率（"accuracy"指标）
func PixelAccuracy(pred, truth mat.Matrix, threshold float64) (acc float64, err error) {
	pr, pc := pred.Dims()
	tr, tc := truth.Dims()
	if pr != tr || pc != tc {
		err = fmt.Errorf("%w: prediction %dx%d, truth %dx%d", ErrShapeMismatch, pr, pc, tr, tc)
		return
	}
	p, t := flatten(pred), flatten(truth)
	if len(p) == 0 {
		return
	}
	bin := func(v float64) float64 {
		if v >= threshold {
			return 1
		}
		return 0
	}
	for i := range p {
		p[i], t[i] = bin(p[i]), bin(t[i])
	}
	floats.Sub(p, t)
	wrong := floats.Norm(p, 1)
	acc = 1 - wrong/float64(len(p))
	if math.IsNaN(acc) {
		acc = 0
	}
	return
}

func flatten(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}
