package unet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wgdzlh/vegtile/log"

	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/optim"
	"github.com/born-ml/born/tensor"
	"go.uber.org/zap"
)

const (
	OPTIMIZER_ADAM = "adam"
	OPTIMIZER_SGD  = "sgd"
	LOSS_BCE       = "binary_crossentropy"
	METRIC_ACC     = "accuracy"

	metaOptimizer = "optimizer"
	metaLoss      = "loss"
	metaMetrics   = "metrics"

	logTag = "unet:"
)

var (
	ErrUnknownOptimizer = errors.New("unknown optimizer")
	ErrNotCompiled      = errors.New("model not compiled")
)

// 训练配置，均为交给训练框架解析的标识
type TrainingConfig struct {
	Optimizer string
	Loss      string
	Metrics   []string
}

func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Optimizer: OPTIMIZER_ADAM,
		Loss:      LOSS_BCE,
		Metrics:   []string{METRIC_ACC},
	}
}

// 空字段取默认值
func (c TrainingConfig) withDefaults() TrainingConfig {
	def := DefaultTrainingConfig()
	if c.Optimizer == "" {
		c.Optimizer = def.Optimizer
	}
	if c.Loss == "" {
		c.Loss = def.Loss
	}
	if c.Metrics == nil {
		c.Metrics = def.Metrics
	}
	return c
}

func (m *UNet[B]) Compile(cfg TrainingConfig) {
	cfg = cfg.withDefaults()
	m.config = &cfg
	log.Debug(logTag+"compiled", zap.String("optimizer", cfg.Optimizer),
		zap.String("loss", cfg.Loss), zap.Strings("metrics", cfg.Metrics))
}

func NewCompiled[B tensor.Backend](backend B, cfg ...TrainingConfig) *UNet[B] {
	m := New(backend)
	c := DefaultTrainingConfig()
	if len(cfg) > 0 {
		c = cfg[0]
	}
	m.Compile(c)
	return m
}

// 未编译时ok为false
func (m *UNet[B]) TrainingConfig() (cfg TrainingConfig, ok bool) {
	if m.config == nil {
		return
	}
	return *m.config, true
}

// 将优化器标识解析为born优化器，供外部训练循环使用
func (m *UNet[B]) NewOptimizer(lr float32) (opt optim.Optimizer, err error) {
	if m.config == nil {
		err = ErrNotCompiled
		return
	}
	switch strings.ToLower(m.config.Optimizer) {
	case OPTIMIZER_ADAM:
		opt = optim.NewAdam(m.Parameters(), optim.AdamConfig{
			LR:    lr,
			Betas: [2]float32{0.9, 0.999},
			Eps:   1e-8,
		}, m.backend)
	case OPTIMIZER_SGD:
		opt = optim.NewSGD(m.Parameters(), optim.SGDConfig{LR: lr}, m.backend)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownOptimizer, m.config.Optimizer)
	}
	return
}

// 以born格式保存权重，训练配置写入元数据
func (m *UNet[B]) Save(path string) error {
	meta := map[string]string{}
	if m.config != nil {
		meta[metaOptimizer] = m.config.Optimizer
		meta[metaLoss] = m.config.Loss
		meta[metaMetrics] = strings.Join(m.config.Metrics, ",")
	}
	if err := nn.Save[B](m, path, ModelType, meta); err != nil {
		log.Error(logTag+"save weights failed", zap.String("path", path), zap.Error(err))
		return err
	}
	log.Info(logTag+"weights saved", zap.String("path", path))
	return nil
}

func (m *UNet[B]) Load(path string) error {
	hdr, err := nn.Load[B](path, m.backend, m)
	if err != nil {
		log.Error(logTag+"load weights failed", zap.String("path", path), zap.Error(err))
		return err
	}
	if hdr.ModelType != ModelType {
		log.Warn(logTag+"unexpected model type in weights file", zap.String("type", hdr.ModelType))
	}
	if opt, ok := hdr.Metadata[metaOptimizer]; ok {
		cfg := TrainingConfig{Optimizer: opt, Loss: hdr.Metadata[metaLoss]}
		if ms := hdr.Metadata[metaMetrics]; ms != "" {
			cfg.Metrics = strings.Split(ms, ",")
		}
		m.Compile(cfg)
	}
	return nil
}
