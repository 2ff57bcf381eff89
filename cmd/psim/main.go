// Command psim runs the particle simulator headless: it builds the
// selected strategy, advances it for a fixed number of frames, and
// reports frame timing, optionally as CSV.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/particles"
	"github.com/gogpu/particles/app"
	"github.com/gogpu/particles/config"
	"github.com/gogpu/particles/internal/gpu"
	"github.com/gogpu/particles/telemetry"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (optional)")
		method     = flag.String("method", "", "simulation method: cpu, compute, transform-feedback, fragment")
		count      = flag.Int("count", 0, "particle count")
		mode       = flag.String("mode", "", "generation mode: hollow or filled")
		workers    = flag.Int("workers", -1, "CPU strategy workers, 0 = GOMAXPROCS")
		frames     = flag.Int("frames", 300, "frames to simulate")
		dt         = flag.Float64("dt", 1.0/60.0, "fixed frame delta in seconds")
		csvPath    = flag.String("csv", "", "write per-frame records to this CSV file")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if err := run(*configPath, *method, *count, *mode, *workers, *frames, float32(*dt), *csvPath, *verbose); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, method string, count int, mode string, workers, frames int, dt float32, csvPath string, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	particles.SetLogger(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Flags override the config file.
	if method != "" {
		cfg.Simulation.Method = method
	}
	if count > 0 {
		cfg.Simulation.Count = count
	}
	if mode != "" {
		cfg.Simulation.Mode = mode
	}
	if workers >= 0 {
		cfg.Simulation.Workers = workers
	}
	if csvPath != "" {
		cfg.Telemetry.CSVPath = csvPath
	}

	m, err := particles.ParseMethod(cfg.Simulation.Method)
	if err != nil {
		return err
	}
	genMode, err := particles.ParseGenerationMode(cfg.Simulation.Mode)
	if err != nil {
		return err
	}

	// GPU-backed methods need a device; the CPU strategy runs host-only
	// without one.
	var dev *gpu.Device
	if m != particles.MethodCPU {
		dev, err = gpu.Open()
		if err != nil {
			return fmt.Errorf("method %s needs a GPU device: %w", m, err)
		}
		dev.UseSPIRV = cfg.GPU.UseSPIRV
		defer dev.Close()
	}

	session, err := app.NewSession(dev, particles.Config{
		Method:  m,
		Count:   cfg.Simulation.Count,
		Mode:    genMode,
		Workers: cfg.Simulation.Workers,
	})
	if err != nil {
		return err
	}
	defer session.Destroy()

	session.SetGravity(float32(cfg.Physics.Gravity))
	session.SetMouseForce(float32(cfg.Physics.MouseForce))
	session.SetMouseRadius(float32(cfg.Physics.MouseRadius))
	session.SetMaxColorDist(float32(cfg.Physics.MaxColorDist))
	session.SetColorMode(particles.ColorMode(cfg.Physics.ColorMode))
	session.SetFov(float32(cfg.Camera.Fov))
	session.Camera().Speed = float32(cfg.Camera.Speed)
	session.Camera().Sensitivity = float32(cfg.Camera.Sensitivity)

	collector := telemetry.NewCollector(cfg.Telemetry.WindowFrames)
	output, err := telemetry.NewOutput(cfg.Telemetry.CSVPath)
	if err != nil {
		return err
	}
	defer output.Close()

	logger.Info("benchmark start",
		"method", m.String(),
		"particles", session.Sim().ParticleCount(),
		"mode", genMode.String(),
		"frames", frames)

	for frame := 1; frame <= frames; frame++ {
		collector.StartFrame()
		if err := session.Update(dt); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		d := collector.EndFrame()

		stats := collector.Stats()
		if err := output.Write(telemetry.FrameRecord{
			Frame:     frame,
			Method:    m.String(),
			Particles: session.Sim().ParticleCount(),
			FrameMs:   float64(d.Microseconds()) / 1000.0,
			EMAMs:     stats.EMAMs,
			FPS:       stats.FPS,
		}); err != nil {
			return err
		}
	}

	stats := collector.Stats()
	fmt.Printf("method=%s particles=%d frames=%d\n", m, session.Sim().ParticleCount(), stats.Frames)
	fmt.Printf("frame time: ema=%.3fms p50=%.3fms p95=%.3fms p99=%.3fms\n",
		stats.EMAMs, stats.P50Ms, stats.P95Ms, stats.P99Ms)
	if stats.FPS > 0 {
		fmt.Printf("fps: %.1f\n", stats.FPS)
	}
	return nil
}
