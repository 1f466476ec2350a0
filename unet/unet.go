// Package unet 两级编码-解码卷积网络（U-Net变体），输出逐像素植被概率
package unet

import (
	"fmt"

	"github.com/wgdzlh/vegtile"

	"github.com/born-ml/born/autodiff"
	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
)

const (
	InChannels  = vegtile.ModelBands
	OutChannels = 1
	ModelType   = "UNet"
)

// CPU上可用的默认后端：autodiff包装后才有ReLU/Sigmoid
type CPUBackend = *autodiff.Backend[*cpu.Backend]

type layer[B tensor.Backend] struct {
	name string
	conv *nn.Conv2D[B]
}

type UNet[B tensor.Backend] struct {
	enc1       *nn.Conv2D[B] // 4 -> 32
	enc2       *nn.Conv2D[B] // 32 -> 64
	bottleneck *nn.Conv2D[B] // 64 -> 128
	dec2       *nn.Conv2D[B] // 128+64 -> 64
	dec1       *nn.Conv2D[B] // 64+32 -> 32
	head       *nn.Conv2D[B] // 32 -> 1, 1x1
	pool       *nn.MaxPool2D[B]

	layers  []layer[B]
	config  *TrainingConfig
	backend B
}

// 构造未训练的网络，参数随机初始化
func New[B tensor.Backend](backend B) *UNet[B] {
	m := &UNet[B]{
		enc1:       nn.NewConv2D(InChannels, 32, 3, 3, 1, 1, true, backend),
		enc2:       nn.NewConv2D(32, 64, 3, 3, 1, 1, true, backend),
		bottleneck: nn.NewConv2D(64, 128, 3, 3, 1, 1, true, backend),
		dec2:       nn.NewConv2D(128+64, 64, 3, 3, 1, 1, true, backend),
		dec1:       nn.NewConv2D(64+32, 32, 3, 3, 1, 1, true, backend),
		head:       nn.NewConv2D(32, OutChannels, 1, 1, 1, 0, true, backend),
		pool:       nn.NewMaxPool2D(2, 2, backend),
		backend:    backend,
	}
	m.layers = []layer[B]{
		{"enc1", m.enc1},
		{"enc2", m.enc2},
		{"bottleneck", m.bottleneck},
		{"dec2", m.dec2},
		{"dec1", m.dec1},
		{"head", m.head},
	}
	return m
}

func NewCPU() *UNet[CPUBackend] {
	return New(autodiff.New(cpu.New()))
}

func (m *UNet[B]) Backend() B {
	return m.backend
}

// x: [N, 4, H, W]，H、W须为4的倍数；返回 [N, 1, H, W]
func (m *UNet[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	s1 := nn.ReLUFunc(m.enc1.Forward(x))
	s2 := nn.ReLUFunc(m.enc2.Forward(m.pool.Forward(s1)))
	b := nn.ReLUFunc(m.bottleneck.Forward(m.pool.Forward(s2)))

	d2 := tensor.Cat([]*tensor.Tensor[float32, B]{upsample2x(b), s2}, 1)
	d2 = nn.ReLUFunc(m.dec2.Forward(d2))
	d1 := tensor.Cat([]*tensor.Tensor[float32, B]{upsample2x(d2), s1}, 1)
	d1 = nn.ReLUFunc(m.dec1.Forward(d1))

	return nn.SigmoidFunc(m.head.Forward(d1))
}

// 最近邻2倍上采样：[N,C,H,W] -> [N,C,2H,2W]
func upsample2x[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	s := x.Shape()
	n, c, h, w := s[0], s[1], s[2], s[3]
	return x.Reshape(n, c, h, 1, w, 1).
		Expand(tensor.Shape{n, c, h, 2, w, 2}).
		Reshape(n, c, 2*h, 2*w)
}

// NCHW输入形状校验
func CheckInputShape(shape tensor.Shape) error {
	if len(shape) != 4 {
		return fmt.Errorf("%w: want [N, %d, H, W], got %v", vegtile.ErrShapeMismatch, InChannels, shape)
	}
	if shape[0] <= 0 || shape[1] != InChannels {
		return fmt.Errorf("%w: want [N, %d, H, W], got %v", vegtile.ErrShapeMismatch, InChannels, shape)
	}
	h, w := shape[2], shape[3]
	if h <= 0 || w <= 0 || h%vegtile.SpatialDivisor != 0 || w%vegtile.SpatialDivisor != 0 {
		return fmt.Errorf("%w: spatial size %dx%d not divisible by %d",
			vegtile.ErrShapeMismatch, h, w, vegtile.SpatialDivisor)
	}
	return nil
}

// 先校验形状再前向，避免born内部panic
func (m *UNet[B]) Infer(x *tensor.Tensor[float32, B]) (y *tensor.Tensor[float32, B], err error) {
	if err = CheckInputShape(x.Shape()); err != nil {
		return
	}
	y = m.Forward(x)
	return
}

func (m *UNet[B]) Parameters() []*nn.Parameter[B] {
	var ps []*nn.Parameter[B]
	for _, l := range m.layers {
		ps = append(ps, l.conv.Parameters()...)
	}
	return ps
}

// 参数名形如 enc1.weight、enc1.bias
func (m *UNet[B]) StateDict() map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor, 2*len(m.layers))
	for _, l := range m.layers {
		for i, p := range l.conv.Parameters() {
			sd[paramName(l.name, i)] = p.Tensor().Raw()
		}
	}
	return sd
}

func (m *UNet[B]) LoadStateDict(sd map[string]*tensor.RawTensor) error {
	for _, l := range m.layers {
		for i, p := range l.conv.Parameters() {
			name := paramName(l.name, i)
			raw, ok := sd[name]
			if !ok {
				return fmt.Errorf("missing %s in state dict", name)
			}
			if !raw.Shape().Equal(p.Tensor().Shape()) {
				return fmt.Errorf("%s shape mismatch: expected %v, got %v", name, p.Tensor().Shape(), raw.Shape())
			}
			if raw.DType() != tensor.Float32 {
				return fmt.Errorf("%s dtype mismatch: expected float32, got %v", name, raw.DType())
			}
			copy(p.Tensor().Data(), raw.AsFloat32())
		}
	}
	return nil
}

func paramName(layer string, i int) string {
	if i == 0 {
		return layer + ".weight"
	}
	return layer + ".bias"
}
