package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/openethology/blobtrack/background"
	"github.com/openethology/blobtrack/batch"
	"github.com/openethology/blobtrack/images"
	"github.com/openethology/blobtrack/params"
	"github.com/openethology/blobtrack/video"
)

func main() {
	var (
		paramsPath     string
		outDir         string
		mode           string
		dirFPS         float64
		autoBackground bool
		bgMode         string
		bgPercentile   float64
		bgFrames       int
	)

	flag.StringVar(&paramsPath, "params", "", "JSON tracking-parameter snapshot (defaults used when empty)")
	flag.StringVar(&outDir, "out", ".", "directory for per-file track logs")
	flag.StringVar(&mode, "mode", string(params.ModeRGB), "video mode: RGB or Thermal")
	flag.Float64Var(&dirFPS, "fps", 30, "nominal frame rate for image-directory sources")
	flag.BoolVar(&autoBackground, "auto-background", false, "estimate a background image per file before tracking")
	flag.StringVar(&bgMode, "background-mode", string(params.BackgroundMedian), "background statistic: Median, Mean, Min, Max or Percentile")
	flag.Float64Var(&bgPercentile, "background-percentile", 50, "percentile for -background-mode=Percentile")
	flag.IntVar(&bgFrames, "background-frames", 10, "number of evenly spaced background sample frames")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: blobtrack [flags] video-or-frame-dir ...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	videoMode := params.VideoMode(mode)
	p := params.Defaults()
	if paramsPath != "" {
		loaded, err := params.Load(paramsPath)
		if err != nil {
			log.Fatalf("blobtrack: %v", err)
		}
		p = loaded
	}
	p.VideoMode = videoMode
	if err := p.Validate(); err != nil {
		log.Fatalf("blobtrack: %v", err)
	}

	grey := videoMode == params.ModeThermal
	opener := func(path string) (video.Source, error) {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return video.OpenDir(path, dirFPS, grey)
		}
		return video.OpenCapture(path, grey)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	entries := make([]batch.Entry, 0, len(files))
	for _, f := range files {
		ep := p.Clone()
		if autoBackground {
			img, err := estimateFor(f, opener, bgMode, bgPercentile, bgFrames)
			if err != nil {
				log.Printf("blobtrack: background estimation for %s failed: %v", f, err)
				continue
			}
			if img != nil {
				ep.Background = params.Background{Enabled: true, Image: img}
			}
		}
		entries = append(entries, batch.NewEntry(f, outDir, videoMode, ep))
	}

	sched := &batch.Scheduler{Open: opener}
	failed := 0
	for _, res := range sched.Run(ctx, entries) {
		if res.State == batch.StateFailed {
			failed++
		}
	}
	if failed > 0 {
		log.Printf("blobtrack: %d of %d entries failed", failed, len(entries))
		os.Exit(1)
	}
}

// estimateFor builds an auto-timed background spec for one clip and runs the
// estimator against it.
func estimateFor(path string, opener video.Opener, mode string, percentile float64, frames int) (*images.Frame, error) {
	spec := params.BackgroundSpec{
		Mode:       params.BackgroundMode(mode),
		Percentile: percentile,
		FramesNum:  frames,
	}
	src, err := opener(path)
	if err != nil {
		return nil, err
	}
	duration := src.Duration()
	src.Close()
	spec.AutoTimes(duration)
	return background.Estimate(spec, opener, path)
}
