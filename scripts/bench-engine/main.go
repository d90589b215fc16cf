// bench-engine measures heap memory and wall time of the analysis pipeline
// at increasing sample counts, using synthetic timings with a realistic
// noise profile.
//
// Usage:
//
//	go run ./scripts/bench-engine --scales 10000,100000,1000000 --runs 3 \
//	  --profile-dir docs/profiles/engine
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/benchfang/pkg/bench"
)

// Synthetic workload shape: a tight base latency with Gaussian jitter and a
// sparse tail of preemption spikes, so both filter stages have work to do.
const (
	baseNs     = 50_000
	jitterNs   = 1_500
	spikeEvery = 400
	spikeNs    = 2_000_000
)

type heapSnapshot struct {
	label      string
	heapInUse  uint64
	heapSys    uint64
	totalAlloc uint64
	numGC      uint32
}

type runTiming struct {
	scale    int
	run      int
	wall     time.Duration
	filter   time.Duration
	analyze  time.Duration
	kept     uint64
	rejected int64
}

func main() {
	scalesArg := flag.String("scales", "10000,100000,1000000", "Comma-separated sample counts to sweep")
	runs := flag.Int("runs", 3, "Process calls per scale (reruns reuse pooled histograms)")
	seed := flag.Uint64("seed", 1, "Seed for the synthetic workload and the resampler")
	window := flag.Int("window", 0, "Temporal window length (0 = default, -1 = disable)")
	profileDir := flag.String("profile-dir", "", "Directory to write heap profiles")
	cpuProfile := flag.Bool("cpu-profile", false, "Write CPU profile to profile-dir/cpu.prof")

	flag.Parse()

	if *profileDir == "" {
		log.Fatal("--profile-dir is required")
	}

	scales, err := parseScales(*scalesArg)
	if err != nil {
		log.Fatalf("parse --scales: %v", err)
	}

	if err := os.MkdirAll(*profileDir, 0o755); err != nil {
		log.Fatalf("mkdir profile-dir: %v", err)
	}

	if *cpuProfile {
		cpuPath := filepath.Join(*profileDir, "cpu.prof")

		cpuFile, cpuErr := os.Create(cpuPath)
		if cpuErr != nil {
			log.Fatalf("create cpu profile: %v", cpuErr)
		}
		defer cpuFile.Close()

		if startErr := pprof.StartCPUProfile(cpuFile); startErr != nil {
			log.Fatalf("start cpu profile: %v", startErr)
		}

		defer pprof.StopCPUProfile()

		log.Printf("CPU profiling enabled -> %s", cpuPath)
	}

	engine := bench.NewEngine(bench.EngineOptions{
		TemporalWindow: *window,
		Seed:           *seed,
	})

	var snapshots []heapSnapshot

	takeSnapshot := func(label string) {
		runtime.GC()
		runtime.GC()

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		snapshots = append(snapshots, heapSnapshot{
			label:      label,
			heapInUse:  m.HeapInuse,
			heapSys:    m.HeapSys,
			totalAlloc: m.TotalAlloc,
			numGC:      m.NumGC,
		})
		log.Printf("  [heap] %-32s inuse=%7.1f MB  sys=%7.1f MB  cumalloc=%8.1f MB",
			label, float64(m.HeapInuse)/1e6, float64(m.HeapSys)/1e6, float64(m.TotalAlloc)/1e6)
	}

	writeHeapProfile := func(name string) {
		runtime.GC()
		runtime.GC()

		path := filepath.Join(*profileDir, name)

		f, ferr := os.Create(path)
		if ferr != nil {
			log.Printf("warning: create heap profile %s: %v", path, ferr)

			return
		}
		defer f.Close()

		if perr := pprof.WriteHeapProfile(f); perr != nil {
			log.Printf("warning: write heap profile %s: %v", path, perr)
		}
	}

	ctx := context.Background()
	noise := rand.New(rand.NewSource(int64(*seed))) //nolint:gosec // deterministic fixture seed.

	var timings []runTiming

	takeSnapshot("start")
	writeHeapProfile("heap_start.prof")

	for _, scale := range scales {
		samples := syntheticSamples(noise, scale)

		takeSnapshot(fmt.Sprintf("scale_%d_generated", scale))

		for run := 1; run <= *runs; run++ {
			log.Printf("processing scale %d run %d/%d", scale, run, *runs)

			start := time.Now()

			result, perr := engine.Process(ctx, samples)
			if perr != nil {
				log.Fatalf("process scale %d run %d: %v", scale, run, perr)
			}

			timings = append(timings, runTiming{
				scale:    scale,
				run:      run,
				wall:     time.Since(start),
				filter:   result.FilterDuration,
				analyze:  result.AnalyzeDuration,
				kept:     result.Samples,
				rejected: result.TemporalOutliers + result.DensityOutliers,
			})
		}

		takeSnapshot(fmt.Sprintf("scale_%d_processed", scale))
		writeHeapProfile(fmt.Sprintf("heap_scale_%d.prof", scale))
	}

	takeSnapshot("end")
	writeHeapProfile("heap_end.prof")

	printHeapTimeline(snapshots)
	printThroughput(timings)
	printReuseEffect(timings)
}

func printHeapTimeline(snapshots []heapSnapshot) {
	fmt.Println()
	fmt.Println("=== Heap Memory Timeline ===")
	fmt.Printf("%-34s %10s %10s %12s %8s\n", "Phase", "InUse(MB)", "Sys(MB)", "CumAlloc(MB)", "GCs")
	fmt.Println("----------------------------------+----------+----------+------------+--------")

	for _, s := range snapshots {
		fmt.Printf("%-34s %10.1f %10.1f %12.1f %8d\n",
			s.label, float64(s.heapInUse)/1e6, float64(s.heapSys)/1e6, float64(s.totalAlloc)/1e6, s.numGC)
	}
}

func printThroughput(timings []runTiming) {
	fmt.Println()
	fmt.Println("=== Pipeline Throughput ===")
	fmt.Printf("%10s %4s %12s %12s %12s %14s %9s\n",
		"Scale", "Run", "Wall", "Filter", "Analyze", "Samples/s", "Rejected")
	fmt.Println("----------+----+------------+------------+------------+--------------+---------")

	for _, t := range timings {
		perSec := float64(t.scale) / t.wall.Seconds()
		fmt.Printf("%10d %4d %12s %12s %12s %14.0f %9d\n",
			t.scale, t.run, t.wall.Round(time.Microsecond), t.filter.Round(time.Microsecond),
			t.analyze.Round(time.Microsecond), perSec, t.rejected)
	}
}

// printReuseEffect compares the first run at each scale against the mean of
// the reruns. Reruns draw histogram storage from the engine pool, so the gap
// approximates the allocation cost the pool saves.
func printReuseEffect(timings []runTiming) {
	firsts := make(map[int]time.Duration)
	rerunTotal := make(map[int]time.Duration)
	rerunCount := make(map[int]int)

	var scales []int

	for _, t := range timings {
		if t.run == 1 {
			firsts[t.scale] = t.wall
			scales = append(scales, t.scale)

			continue
		}

		rerunTotal[t.scale] += t.wall
		rerunCount[t.scale]++
	}

	fmt.Println()
	fmt.Println("=== Pool Reuse Effect ===")

	for _, scale := range scales {
		if rerunCount[scale] == 0 {
			fmt.Printf("  scale %d: single run, no rerun to compare\n", scale)

			continue
		}

		mean := rerunTotal[scale] / time.Duration(rerunCount[scale])
		saved := firsts[scale] - mean
		pct := 100 * float64(saved) / float64(firsts[scale])
		fmt.Printf("  scale %d: first %s, rerun mean %s (%.1f%% faster)\n",
			scale, firsts[scale].Round(time.Microsecond), mean.Round(time.Microsecond), pct)
	}
}

func parseScales(arg string) ([]int, error) {
	var scales []int

	for part := range strings.SplitSeq(arg, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("scale %q: %w", part, err)
		}

		if n <= 0 {
			return nil, fmt.Errorf("scale %d: must be positive", n)
		}

		scales = append(scales, n)
	}

	if len(scales) == 0 {
		return nil, errors.New("no scales given")
	}

	return scales, nil
}

func syntheticSamples(noise *rand.Rand, n int) []int64 {
	samples := make([]int64, n)

	for i := range samples {
		v := int64(baseNs + noise.NormFloat64()*jitterNs)
		if v < 1 {
			v = 1
		}

		if noise.Intn(spikeEvery) == 0 {
			v += spikeNs + noise.Int63n(spikeNs)
		}

		samples[i] = v
	}

	return samples
}
