// Command frameipc-service is the producer process: it registers
// devices, finalizes the introspection tree, creates the OS-visible
// shared-memory segments, and serves the operator HTTP surface
// (/metrics, /healthz, /debug/introspection) while sampling synthetic
// telemetry into the per-device rings on a timer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lattice-gfx/frameipc/engine/capabilities"
	"github.com/lattice-gfx/frameipc/engine/comms"
	"github.com/lattice-gfx/frameipc/engine/config"
	"github.com/lattice-gfx/frameipc/engine/internal/runtime"
	"github.com/lattice-gfx/frameipc/engine/introspection"
	"github.com/lattice-gfx/frameipc/engine/resources"
	"github.com/lattice-gfx/frameipc/engine/session"
	"github.com/lattice-gfx/frameipc/engine/shmseg"
	"github.com/lattice-gfx/frameipc/engine/telemetry/events"
	"github.com/lattice-gfx/frameipc/engine/telemetry/metrics"
	"github.com/lattice-gfx/frameipc/engine/telemetrylog"
	"github.com/lattice-gfx/frameipc/engine/telemetrymap"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/lattice-gfx/frameipc/engine/adapters/telemetryhttp"
)

// demo metric ids sampled by the synthetic producer loop.
const (
	metricGPUUtilization uint32 = 1
	metricCPUUtilization uint32 = 2
)

func main() {
	var (
		configPath     string
		prefix         string
		salt           string
		listenAddr     string
		logLevel       string
		metricsBackend string
		sampleEvery    time.Duration
	)
	flag.StringVar(&configPath, "config", "", "optional YAML config file, read once at startup")
	flag.StringVar(&prefix, "prefix", "", "segment name prefix (overrides config)")
	flag.StringVar(&salt, "salt", "", "segment name salt (overrides config; random if both empty)")
	flag.StringVar(&listenAddr, "listen", "", "operator HTTP listen address (overrides config)")
	flag.StringVar(&logLevel, "log-level", "", "debug|info|warn|error (overrides config)")
	flag.StringVar(&metricsBackend, "metrics-backend", "prom", "prom|noop")
	flag.DurationVar(&sampleEvery, "sample-interval", 16*time.Millisecond, "synthetic telemetry sampling cadence")
	flag.Parse()

	cfg, err := config.LoadYAMLFile(config.Defaults(), configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "frameipc-service: load config: %v\n", err)
		os.Exit(1)
	}
	cfg = config.LoadEnv(cfg)
	if prefix != "" {
		cfg.Prefix = prefix
	}
	if salt != "" {
		cfg.Salt = salt
	}
	if listenAddr != "" {
		cfg.MetricsListenAddr = listenAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger := telemetrylog.New("frameipc-service", parseLevel(cfg.LogLevel))

	registry := prometheus.NewRegistry()
	var metricsProvider metrics.Provider = metrics.NoopProvider{}
	if metricsBackend == "prom" {
		metricsProvider = metrics.NewPrometheusProvider(registry)
	}

	namer, err := shmseg.NewNamer(cfg.Prefix, cfg.Salt)
	if err != nil {
		logger.Error("create namer", "error", err)
		os.Exit(1)
	}

	bus := events.NewBus(logger)
	sessions := session.NewMap()
	resMgr := resources.NewManager(resources.Config{MaxTracked: 256, MaxInFlight: 32, SweepInterval: 30 * time.Second}, logger)
	defer resMgr.Close()

	svc := comms.NewServiceComms(namer, logger)
	svc.SetResourceManager(resMgr)

	sampled := func(uint32) (comms.MetricKind, telemetrymap.ValueType) {
		return comms.MetricKindSampled, telemetrymap.ValueTypeFloat64
	}
	gpuID, err := svc.RegisterGPUDevice(introspection.VendorUnknown, "gpu0",
		capabilities.MetricCapabilities{metricGPUUtilization: 1}, sampled)
	if err != nil {
		logger.Error("register gpu device", "error", err)
		os.Exit(1)
	}
	if err := svc.RegisterCPUDevice(introspection.VendorUnknown, "cpu",
		capabilities.MetricCapabilities{metricCPUUtilization: 1}, sampled); err != nil {
		logger.Error("register cpu device", "error", err)
		os.Exit(1)
	}
	svc.FinalizeGPUDevices()
	svc.FinalizeCPUDevice()
	bus.Publish(events.Event{Category: events.CategoryDevice, Name: "devices_finalized", Fields: map[string]any{"gpu_id": gpuID}})

	introSeg, err := shmseg.Create(namer.Introspection(), shmseg.KindIntrospection, 64*1024)
	if err != nil {
		logger.Error("create introspection segment", "error", err)
		os.Exit(1)
	}
	defer introSeg.Close()
	sysSeg, err := shmseg.Create(namer.System(), shmseg.KindSystem, 256*1024)
	if err != nil {
		logger.Error("create system segment", "error", err)
		os.Exit(1)
	}
	defer sysSeg.Close()
	gpuSeg, err := shmseg.Create(namer.GPU(gpuID), shmseg.KindGPU, 256*1024)
	if err != nil {
		logger.Error("create gpu segment", "error", err)
		os.Exit(1)
	}
	defer gpuSeg.Close()

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer provider shutdown", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := &serviceHealth{svc: svc}
	mux := telemetryhttp.NewMux(registry, health, svc)
	srv := &http.Server{Addr: cfg.MetricsListenAddr, Handler: mux}
	go func() {
		logger.Info("operator http surface listening", "addr", cfg.MetricsListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "error", err)
		}
	}()

	gpuTelemetry, err := svc.GPUTelemetry(gpuID)
	if err != nil {
		logger.Error("look up gpu telemetry", "error", err)
		os.Exit(1)
	}

	loops := runtime.NewGroup(logger)
	loops.Start(ctx, map[string]runtime.Task{
		"gpu-sample":  newSampleTask(gpuTelemetry, metricGPUUtilization, "frameipc_gpu_sample_tick", sessions, metricsProvider, logger, sampleEvery),
		"cpu-sample":  newSampleTask(svc.SystemTelemetry(), metricCPUUtilization, "frameipc_cpu_sample_tick", sessions, metricsProvider, logger, sampleEvery),
		"trace-flush": newTraceFlushTask(tp, logger, 5*time.Second),
	})

	<-ctx.Done()
	logger.Info("shutting down")
	if err := loops.Stop(); err != nil {
		logger.Warn("background loops", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// newSampleTask builds a runtime.Task that pushes a synthetic sample
// into metricID's rings in tm at the session-reduced cadence,
// demonstrating the producer side of the ring contract end to end. The
// ticker period is re-derived from the active session set on every
// tick, so a session requesting a tighter cadence takes effect on its
// next reduction.
func newSampleTask(tm *telemetrymap.Map, metricID uint32, gaugeName string, sessions *session.Map, provider metrics.Provider, logger *slog.Logger, fallback time.Duration) runtime.Task {
	return func(ctx context.Context) error {
		period := sessions.ReducedTelemetryPeriod(fallback)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		var tick uint64
		startedAt := uint64(0)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				tick++
				startedAt += uint64(period.Nanoseconds())

				if rings, err := tm.FindFloat64Rings(metricID); err == nil {
					for _, r := range rings {
						r.Push(syntheticUtilization(tick), startedAt)
					}
				}
				provider.SetGauge(gaugeName, nil, float64(tick))
				logger.Debug("sample tick", "metric", gaugeName, "tick", tick)

				if next := sessions.ReducedTelemetryPeriod(fallback); next != period {
					period = next
					ticker.Reset(period)
				}
			}
		}
	}
}

// newTraceFlushTask builds a runtime.Task that periodically force-flushes
// the process's span processor, the idiomatic equivalent of the
// original's dedicated trace-flush thread.
func newTraceFlushTask(tp *sdktrace.TracerProvider, logger *slog.Logger, interval time.Duration) runtime.Task {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				flushCtx, cancel := context.WithTimeout(ctx, interval)
				if err := tp.ForceFlush(flushCtx); err != nil {
					logger.Warn("trace flush failed", "error", err)
				}
				cancel()
			}
		}
	}
}

// syntheticUtilization produces a deterministic, bounded stand-in
// utilization curve for the demo sampling loop.
func syntheticUtilization(tick uint64) float64 {
	return float64(tick%100) / 100
}

type serviceHealth struct {
	svc *comms.ServiceComms
}

func (h *serviceHealth) Healthy() (bool, string) {
	root := h.svc.IntrospectionRoot()
	if len(root.Devices) == 0 {
		return false, "no devices registered"
	}
	return true, ""
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
