package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wgdzlh/vegtile"
	"github.com/wgdzlh/vegtile/log"
	"github.com/wgdzlh/vegtile/unet"
)

func main() {
	mode := flag.String("mode", "split", "Mode: split, predict or init")
	satPath := flag.String("sat", "", "Path to 4-band satellite GeoTIFF")
	vegPath := flag.String("veg", "", "Path to vegetation label GeoTIFF (split)")
	indexPath := flag.String("index", "", "Tile index shapefile to write (split)")
	fromIndex := flag.String("from-index", "", "Tile index shapefile whose split is reused (split)")
	legacy := flag.Bool("gbk", false, "Write the tile index with GBK Chinese field names and no .cpg (split)")
	weights := flag.String("weights", "", "Path to .born weights file (predict, init)")
	outPath := flag.String("out", "", "Output probability GeoTIFF (predict)")
	tileSize := flag.Int("tile", vegtile.DefaultTileSize, "Tile edge length in pixels")
	testFraction := flag.Float64("test", vegtile.DefaultTestFraction, "Test fraction of tiles")
	seed := flag.Int64("seed", 0, "Split seed, 0 for time based")
	tmpDir := flag.String("tmp", "", "Directory for temporary files")

	flag.Parse()
	defer func() { _ = log.Sync() }()

	g := vegtile.NewToolbox(*tmpDir)
	defer g.Close()

	var err error
	switch *mode {
	case "split":
		if *satPath == "" || *vegPath == "" {
			usage("vegseg -mode split -sat SAT.tif -veg VEG.tif [-index TILES.shp] [-from-index OLD.shp] [OPTIONS]")
		}
		err = runSplit(g, splitArgs{
			sat: *satPath, veg: *vegPath, index: *indexPath, fromIndex: *fromIndex, legacy: *legacy,
			tileSize: *tileSize, testFraction: *testFraction, seed: *seed,
		})

	case "predict":
		if *satPath == "" || *outPath == "" {
			usage("vegseg -mode predict -sat SAT.tif -out PROB.tif [-weights MODEL.born] [OPTIONS]")
		}
		err = runPredict(g, *satPath, *outPath, *weights, *tileSize)

	case "init":
		if *weights == "" {
			usage("vegseg -mode init -weights MODEL.born")
		}
		model := unet.NewCPU()
		model.Compile(unet.DefaultTrainingConfig())
		err = model.Save(*weights)

	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", *mode)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage(line string) {
	fmt.Fprintln(os.Stderr, "Usage: "+line)
	flag.PrintDefaults()
	os.Exit(1)
}

type splitArgs struct {
	sat, veg         string
	index, fromIndex string
	legacy           bool
	tileSize         int
	testFraction     float64
	seed             int64
}

func runSplit(g *vegtile.Toolbox, a splitArgs) error {
	opts := []vegtile.SplitOption{vegtile.WithTestFraction(a.testFraction)}
	if a.seed != 0 {
		opts = append(opts, vegtile.WithSeed(a.seed))
	}
	if a.fromIndex != "" {
		idx, err := g.ReadTileIndex(a.fromIndex)
		if err != nil {
			return err
		}
		if idx.Size != a.tileSize {
			return fmt.Errorf("tile index %s uses tile size %d, not %d", a.fromIndex, idx.Size, a.tileSize)
		}
		opts = append(opts, vegtile.WithKeys(idx.Split.Train, idx.Split.Test))
	}
	pd, err := g.PrepareDataset(a.sat, a.veg, a.tileSize, opts...)
	if err != nil {
		return err
	}
	fmt.Printf("Train: %v\n", pd.SatTrain.Shape())
	fmt.Printf("Test:  %v\n", pd.SatTest.Shape())

	if ratio, _, err := g.TiledCoverage(pd.Sat, pd.SatTiles); err == nil {
		fmt.Printf("Tiled coverage: %.4f\n", ratio)
	}
	if a.index == "" {
		return nil
	}
	write := g.WriteTileIndex
	if a.legacy {
		write = g.WriteLegacyTileIndex
	}
	if err = write(a.index, pd.SatTiles, pd.Sat.GeoTransform, pd.Sat.Projection, &pd.Split); err != nil {
		return err
	}
	fmt.Printf("Tile index: %s\n", a.index)
	return nil
}

func runPredict(g *vegtile.Toolbox, satPath, outPath, weights string, tileSize int) error {
	if tileSize%vegtile.SpatialDivisor != 0 {
		return fmt.Errorf("%w: tile size %d not divisible by %d", vegtile.ErrShapeMismatch, tileSize, vegtile.SpatialDivisor)
	}
	model := unet.NewCPU()
	if weights != "" {
		if err := model.Load(weights); err != nil {
			return err
		}
	}
	pred, err := g.PredictRaster(satPath, outPath, tileSize, model)
	if err != nil {
		return err
	}
	fmt.Printf("Prediction: %s\n", outPath)
	fmt.Printf("Vegetation coverage: %.4f\n", vegtile.Coverage(pred, 0.5))
	return nil
}
