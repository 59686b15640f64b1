// Package main provides a headless rehearsal of the fireworks show.
//
// It runs the scheduler, factory and physics at a fixed tick rate over a
// simulated time range, without a window or audio, and prints per-minute
// spawn counts by firework type together with the active window and phase.
//
// Usage:
//
//	go run ./cmd/showsim [flags]
//
// Flags:
//
//	--config <file>       Show config YAML (default: built-in)
//	--from <time>         Start of the simulated range (default: show target)
//	--duration <d>        Length of the simulated range (default: 1h)
//	--seed <n>            Random seed (default: 1)
//	--width, --height     Simulated canvas size (default: 1920x1080)
//	--tps <n>             Simulation ticks per second (default: 60)
//	--verbose             Enable verbose logging
//
// Example:
//
//	go run ./cmd/showsim --from 2026-02-17T00:50:00 --duration 10m
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/decker502/lunarfest/pkg/config"
	"github.com/decker502/lunarfest/pkg/systems"
	"github.com/decker502/lunarfest/pkg/types"
)

var (
	configFlag   = flag.String("config", "", "Show config YAML file")
	fromFlag     = flag.String("from", "", "Start time, e.g. 2026-02-17T00:50:00 (default: show target)")
	durationFlag = flag.Duration("duration", time.Hour, "Simulated duration")
	seedFlag     = flag.Int64("seed", 1, "Random seed")
	widthFlag    = flag.Float64("width", 1920, "Simulated canvas width")
	heightFlag   = flag.Float64("height", 1080, "Simulated canvas height")
	tpsFlag      = flag.Int("tps", systems.DefaultRunnerTPS, "Simulation ticks per second")
	verboseFlag  = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()
	if !*verboseFlag {
		log.SetOutput(io.Discard)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "showsim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.DefaultShowConfig()
	if *configFlag != "" {
		loaded, err := config.LoadShowConfig(*configFlag)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	from := cfg.TargetTime()
	if *fromFlag != "" {
		t, err := parseTime(*fromFlag, cfg.Loc())
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		from = t
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := systems.NewShowRunner(cfg, rand.New(rand.NewSource(*seedFlag)), *widthFlag, *heightFlag, *tpsFlag)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	printHeader(w)
	summary, err := runner.Run(ctx, from, *durationFlag, func(m systems.MinuteReport) {
		printMinute(w, m, cfg.Loc())
	})
	_ = w.Flush()

	printSummary(os.Stdout, summary)
	return err
}

// parseTime 解析 RFC3339 或配置时区下的本地时间
func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, loc)
}

func printHeader(w io.Writer) {
	fmt.Fprint(w, "minute\twindow\tphase")
	for _, ft := range types.AllFireworkTypes {
		fmt.Fprintf(w, "\t%s", ft)
	}
	fmt.Fprintln(w, "\ttotal\tpeak live\tpeak particles")
}

func printMinute(w io.Writer, m systems.MinuteReport, loc *time.Location) {
	phase := m.Phase
	if phase == "" {
		phase = "-"
	}
	fmt.Fprintf(w, "%s\t%s\t%s", m.Start.In(loc).Format("01-02 15:04"), m.Window, phase)
	for _, ft := range types.AllFireworkTypes {
		fmt.Fprintf(w, "\t%d", m.Spawned[ft])
	}
	fmt.Fprintf(w, "\t%d\t%d\t%d\n", m.Total, m.PeakLive, m.PeakParticles)
}

func printSummary(w io.Writer, s systems.RunSummary) {
	fmt.Fprintf(w, "\n%d ticks, %d fireworks launched, %d exploded, %d finished, peak %d live\n",
		s.Ticks, s.Total, s.Explosions, s.Finished, s.PeakLive)
	for _, ft := range types.AllFireworkTypes {
		fmt.Fprintf(w, "  %-7s %d\n", ft, s.Spawned[ft])
	}
}
