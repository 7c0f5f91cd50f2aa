package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/annel0/terrain-gen/internal/api"
	"github.com/annel0/terrain-gen/internal/config"
	"github.com/annel0/terrain-gen/internal/logging"
	"github.com/annel0/terrain-gen/internal/scene"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config path (or TERRAIN_CONFIG)")
		seed       = flag.Int64("seed", -1, "Noise seed; -1 uses the clock")
		width      = flag.Int("width", 0, "Grid width override")
		height     = flag.Int("height", 0, "Grid height override")
		asJSON     = flag.Bool("json", false, "Print summary as JSON")
		verbose    = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	level := logging.WARN
	if *verbose {
		level = logging.DEBUG
	}
	logging.SetDefaultLevel(level)
	logging.GetLoggerManager().SetFileless(true)

	tc := cfg.Terrain
	if *seed >= 0 {
		if *seed > math.MaxUint32 {
			log.Fatalf("❌ Seed %d out of range", *seed)
		}
		tc = tc.WithSeed(uint32(*seed))
	}
	if *width > 0 {
		tc.Width = *width
	}
	if *height > 0 {
		tc.Height = *height
	}

	sc := scene.New(scene.Options{})
	t, err := sc.Regenerate(context.Background(), tc)
	if err != nil {
		log.Fatalf("❌ Generation failed: %v", err)
	}

	summary := api.Summarize(t)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			log.Fatalf("❌ Encode failed: %v", err)
		}
		return
	}

	fmt.Printf("terrain %s\n", summary.ID)
	fmt.Printf("  grid:      %dx%d\n", summary.Width, summary.Height)
	fmt.Printf("  seed:      %d\n", summary.Seed)
	fmt.Printf("  vertices:  %d\n", summary.Vertices)
	fmt.Printf("  triangles: %d\n", summary.Triangles)
	fmt.Printf("  bounds:    %v .. %v\n", summary.BoundsMin, summary.BoundsMax)
	fmt.Printf("  elapsed:   %.2fms\n", summary.ElapsedMS)
}
