package vegtile

import (
	"fmt"
)

// 像素(行,列)左上角 -> 地理坐标
func PixelToGeo(gt [6]float64, row, col float64) (x, y float64) {
	x = gt[0] + col*gt[1] + row*gt[2]
	y = gt[3] + col*gt[4] + row*gt[5]
	return
}

// 地理坐标 -> 像素(行,列)，仿射矩阵不可逆时ok为false
func GeoToPixel(gt [6]float64, x, y float64) (row, col float64, ok bool) {
	det := gt[1]*gt[5] - gt[2]*gt[4]
	if det == 0 {
		return
	}
	dx, dy := x-gt[0], y-gt[3]
	col = (gt[5]*dx - gt[2]*dy) / det
	row = (gt[1]*dy - gt[4]*dx) / det
	ok = true
	return
}

// 瓦片经纬度/投影范围 [minX, maxX, minY, maxY]
func TileSpan(gt [6]float64, key TileKey, size int) (span [4]float64) {
	r, c, s := float64(key.Row), float64(key.Col), float64(size)
	xs, ys := make([]float64, 0, 4), make([]float64, 0, 4)
	for _, p := range [][2]float64{{r, c}, {r, c + s}, {r + s, c}, {r + s, c + s}} {
		x, y := PixelToGeo(gt, p[0], p[1])
		xs = append(xs, x)
		ys = append(ys, y)
	}
	span[0], span[1] = minMax(xs)
	span[2], span[3] = minMax(ys)
	return
}

// 瓦片四角多边形WKT，支持带旋转的地理变换
func TileFootprintWkt(gt [6]float64, key TileKey, size int) string {
	return footprintWkt(gt, key.Row, key.Col, size, size)
}

func footprintWkt(gt [6]float64, row, col, height, width int) string {
	r, c, h, w := float64(row), float64(col), float64(height), float64(width)
	x0, y0 := PixelToGeo(gt, r, c)
	x1, y1 := PixelToGeo(gt, r, c+w)
	x2, y2 := PixelToGeo(gt, r+h, c+w)
	x3, y3 := PixelToGeo(gt, r+h, c)
	return fmt.Sprintf("POLYGON((%[1]f %[2]f, %[3]f %[4]f, %[5]f %[6]f, %[7]f %[8]f, %[1]f %[2]f))",
		x0, y0, x1, y1, x2, y2, x3, y3)
}

// 以(row, col)为新原点的地理变换
func ShiftGeoTransform(gt [6]float64, row, col int) [6]float64 {
	out := gt
	out[0], out[3] = PixelToGeo(gt, float64(row), float64(col))
	return out
}

func PointsToWkt(x1, x2, y1, y2 float64) string {
	return fmt.Sprintf("POLYGON((%[1]f %[3]f, %[1]f %[4]f, %[2]f %[4]f, %[2]f %[3]f, %[1]f %[3]f))", x1, x2, y1, y2)
}

func SpanToWkt(span [4]float64) string {
	return PointsToWkt(span[0], span[1], span[2], span[3])
}

func minMax(vs []float64) (lo, hi float64) {
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return
}
