package vegtile

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/wgdzlh/vegtile/log"

	"go.uber.org/zap"
)

type splitConfig struct {
	testFraction float64
	seed         *int64
	train, test  []TileKey
}

type SplitOption func(*splitConfig)

// 测试集比例，默认0.2
func WithTestFraction(f float64) SplitOption {
	return func(c *splitConfig) {
		c.testFraction = f
	}
}

// 固定随机种子以复现划分
func WithSeed(seed int64) SplitOption {
	return func(c *splitConfig) {
		c.seed = &seed
	}
}

// 直接使用已有划分（如从瓦片索引shp读回）
func WithKeys(train, test []TileKey) SplitOption {
	return func(c *splitConfig) {
		c.train = train
		c.test = test
	}
}

// 测试集数量取 ceil(f*n)
func splitSizes(n int, f float64) (nTrain, nTest int, err error) {
	if !(f > 0 && f < 1) {
		err = fmt.Errorf("%w: %v", ErrInvalidFraction, f)
		return
	}
	nTest = int(math.Ceil(f * float64(n)))
	nTrain = n - nTest
	if n > 0 && (nTrain == 0 || nTest == 0) {
		err = fmt.Errorf("%w: n=%d, test fraction %v", ErrEmptySplit, n, f)
	}
	return
}

// 随机打乱后前nTest个为测试集，其余为训练集
func PartitionKeys(keys []TileKey, f float64, rng *rand.Rand) (sp Split, err error) {
	nTrain, nTest, err := splitSizes(len(keys), f)
	if err != nil {
		return
	}
	perm := rng.Perm(len(keys))
	sp.Test = make([]TileKey, 0, nTest)
	sp.Train = make([]TileKey, 0, nTrain)
	for i, p := range perm {
		if i < nTest {
			sp.Test = append(sp.Test, keys[p])
		} else {
			sp.Train = append(sp.Train, keys[p])
		}
	}
	return
}

// 划分卫星/植被配对瓦片为训练集与测试集，两者通过相同key配对
func SplitTiles(sat, veg *TileSet, opts ...SplitOption) (ds *Dataset, err error) {
	c := splitConfig{testFraction: DefaultTestFraction}
	for _, opt := range opts {
		opt(&c)
	}
	if err = checkPaired(sat, veg); err != nil {
		return
	}
	var sp Split
	if c.train != nil || c.test != nil {
		if err = checkKeys(sat, c.train, c.test); err != nil {
			return
		}
		sp = Split{Train: c.train, Test: c.test}
	} else {
		seed := time.Now().UnixNano()
		if c.seed != nil {
			seed = *c.seed
		}
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
		if sp, err = PartitionKeys(sat.Keys(), c.testFraction, rng); err != nil {
			return
		}
	}
	ds = &Dataset{Split: sp}
	if ds.SatTrain, err = GatherTiles(sat, sp.Train, "satellite"); err != nil {
		return nil, err
	}
	if ds.VegTrain, err = GatherTiles(veg, sp.Train, "vegetation"); err != nil {
		return nil, err
	}
	if ds.SatTest, err = GatherTiles(sat, sp.Test, "satellite"); err != nil {
		return nil, err
	}
	if ds.VegTest, err = GatherTiles(veg, sp.Test, "vegetation"); err != nil {
		return nil, err
	}
	log.Info(logTag+"tiles split", zap.Int("train", len(sp.Train)), zap.Int("test", len(sp.Test)),
		zap.Float64("testFraction", c.testFraction), zap.Bool("seeded", c.seed != nil))
	return
}

// 按keys顺序叠加瓦片，缺失key时报错
func GatherTiles(ts *TileSet, keys []TileKey, name string) (st *Stack, err error) {
	n := ts.Size * ts.Size * ts.Bands
	st = &Stack{
		N:     len(keys),
		Size:  ts.Size,
		Bands: ts.Bands,
		Data:  make([]float32, len(keys)*n),
	}
	for i, k := range keys {
		t, ok := ts.tiles[k]
		if !ok {
			log.Error(logTag+"tile missing in paired set", zap.String("set", name), zap.Stringer("key", k))
			return nil, &MissingTileError{Key: k, Set: name}
		}
		copy(st.Data[i*n:(i+1)*n], t.Data)
	}
	return
}

// 给定划分须不相交，且key均存在于卫星瓦片集
func checkKeys(ts *TileSet, train, test []TileKey) error {
	seen := make(map[TileKey]struct{}, len(train)+len(test))
	for _, side := range [][]TileKey{train, test} {
		for _, k := range side {
			if _, dup := seen[k]; dup {
				return fmt.Errorf("%w: duplicate key %s", ErrSplitKeys, k)
			}
			if _, ok := ts.tiles[k]; !ok {
				return &MissingTileError{Key: k, Set: "satellite"}
			}
			seen[k] = struct{}{}
		}
	}
	if len(seen) < ts.Len() {
		log.Warn(logTag+"split covers a subset of tiles", zap.Int("assigned", len(seen)), zap.Int("tiles", ts.Len()))
	}
	return nil
}

// 植被瓦片的key须都存在于卫星瓦片集（反向缺失在GatherTiles中报出）
func checkPaired(sat, veg *TileSet) error {
	for _, k := range veg.Keys() {
		if _, ok := sat.tiles[k]; !ok {
			log.Error(logTag+"tile missing in paired set", zap.String("set", "satellite"), zap.Stringer("key", k))
			return &MissingTileError{Key: k, Set: "satellite"}
		}
	}
	return nil
}
