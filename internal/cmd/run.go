package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/goclaw/typedbus/config"
	"github.com/goclaw/typedbus/pkg/api"
	"github.com/goclaw/typedbus/pkg/api/handlers"
	"github.com/goclaw/typedbus/pkg/eventbus"
	"github.com/goclaw/typedbus/pkg/lane"
	"github.com/goclaw/typedbus/pkg/logger"
	"github.com/goclaw/typedbus/pkg/metrics"
	"github.com/goclaw/typedbus/pkg/telemetry/tracing"
	"github.com/goclaw/typedbus/pkg/version"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

type runOptions struct {
	*rootOptions

	interval time.Duration
	duration time.Duration
	debug    bool
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bus with a demo producer and consumers",
		Long: `Run starts the lanes and the bus from configuration, wires a ticker that
posts CountEvent and MediaLikedChangedEvent to three consumers, and serves
/health, /status, /debug and /metrics on the introspection server until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if opts.duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.duration)
				defer cancel()
			}
			return opts.run(ctx)
		},
	}

	cmd.Flags().DurationVar(&opts.interval, "interval", time.Second, "interval between posted events")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	return cmd
}

func (o *runOptions) run(ctx context.Context) error {
	if o.interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", o.interval)
	}

	cfg, loader, err := o.load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := &logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	if o.debug {
		logCfg.Level = logger.DebugLevel
	}
	log := logger.New(logCfg)
	logger.SetGlobal(log)
	defer log.Close()

	info := version.Get()
	log.Info("Starting typedbus",
		"version", info.Version,
		"gitCommit", info.GitCommit,
		"app", cfg.App.Name,
		"environment", cfg.App.Environment,
	)
	log.Debug("Configuration loaded", "config", cfg.String())

	tp, err := tracing.Init(ctx, cfg.Tracing, cfg.App.Name, info.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	var started startup
	started.add("tracing", tp.Shutdown)

	m := metrics.NewManager(metricsConfig(cfg.Metrics))

	lanes := lane.NewManager(
		lane.WithLogger(log.With("component", "lane")),
		lane.WithMetrics(m),
	)
	exec, err := startLanes(cfg, lanes)
	if err != nil {
		started.release(log)
		return err
	}

	busOpts := []eventbus.Option{
		eventbus.WithLogger(log.With("component", "eventbus")),
		eventbus.WithMetrics(m),
		eventbus.WithTracerProvider(tp),
	}
	var bus *eventbus.Bus
	if cfg.Bus.Shared {
		bus = eventbus.InitShared(busOpts...)
	} else {
		bus = eventbus.New(busOpts...)
	}

	topo := startTopology(ctx, bus, exec, log, o.interval)

	var wg sync.WaitGroup
	serverErr := make(chan error, 2)

	var server *api.HTTPServer
	if cfg.Server.Enabled {
		h := &api.Handlers{
			Health:   handlers.NewHealthHandler(bus, lanes),
			Debug:    handlers.NewDebugHandler(bus, lanes),
			Recorder: m,
		}
		if m.Enabled() && cfg.Metrics.Port == 0 {
			h.Metrics = m.Handler()
			h.MetricsPath = cfg.Metrics.Path
		}
		server = api.NewHTTPServer(cfg.Server, log, h)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Start(); err != nil {
				serverErr <- err
			}
		}()
	}

	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	defer stopMetrics()
	if m.Enabled() && cfg.Metrics.Port > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("Starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := m.StartServer(metricsCtx, cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				serverErr <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	if o.configPath != "" {
		watcher, err := watchLogLevel(ctx, o.configPath, loader, cfg, log)
		if err != nil {
			log.Warn("Config hot reload disabled", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	log.Info("typedbus is running",
		"server", cfg.Server.Enabled,
		"addr", cfg.Server.Addr(),
		"lanes", lanes.Names(),
		"default_lane", cfg.Bus.DefaultLane,
	)

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down", "reason", context.Cause(ctx))
	case runErr = <-serverErr:
		log.Error("Server error", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down HTTP server", "error", err)
		}
	}
	stopMetrics()
	wg.Wait()

	topo.Stop()
	if cfg.Bus.Shared {
		eventbus.ShutdownShared()
	} else {
		bus.Close()
	}

	if err := lanes.Close(shutdownCtx); err != nil {
		log.Error("Error closing lanes", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracing", "error", err)
	}

	log.Info("typedbus stopped")
	return runErr
}

// startup remembers what run has started so a failed startup can stop it
// again, newest first.
type startup struct {
	steps []startupStep
}

type startupStep struct {
	name string
	stop func(context.Context) error
}

func (s *startup) add(name string, stop func(context.Context) error) {
	s.steps = append(s.steps, startupStep{name: name, stop: stop})
}

func (s *startup) release(log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(s.steps) - 1; i >= 0; i-- {
		if err := s.steps[i].stop(ctx); err != nil {
			log.Error("Error releasing after failed startup", "step", s.steps[i].name, "error", err)
		}
	}
	s.steps = nil
}

func metricsConfig(cfg config.MetricsConfig) metrics.Config {
	defaults := metrics.DefaultConfig()
	return metrics.Config{
		Enabled:             cfg.Enabled,
		Port:                cfg.Port,
		Path:                cfg.Path,
		LaneWaitBuckets:     defaults.LaneWaitBuckets,
		HTTPDurationBuckets: defaults.HTTPDurationBuckets,
	}
}

// registerLanes adds the configured lanes to lanes. Redirect targets are
// resolved at submit time, so order does not matter.
func registerLanes(cfg *config.Config, lanes *lane.Manager) error {
	for _, lc := range cfg.Lanes {
		bp := lane.Drop
		if lc.Backpressure != "" {
			var err error
			if bp, err = lane.ParseBackpressure(lc.Backpressure); err != nil {
				return fmt.Errorf("lane %s: %w", lc.Name, err)
			}
		}
		_, err := lanes.Register(&lane.Config{
			Name:           lc.Name,
			Capacity:       lc.Capacity,
			MaxConcurrency: lc.Workers,
			Backpressure:   bp,
			RedirectLane:   lc.RedirectLane,
			RateLimit:      lc.RateLimit,
			Burst:          lc.Burst,
		})
		if err != nil {
			return fmt.Errorf("failed to register lane %s: %w", lc.Name, err)
		}
	}
	return nil
}

// startLanes registers the configured lanes and resolves the default
// executor. Every lane in lanes is closed again when either step fails.
func startLanes(cfg *config.Config, lanes *lane.Manager) (eventbus.Executor, error) {
	err := registerLanes(cfg, lanes)
	var exec eventbus.Executor
	if err == nil {
		exec, err = defaultExecutor(cfg, lanes)
	}
	if err != nil {
		_ = lanes.Close(context.Background())
		return nil, err
	}
	return exec, nil
}

// defaultExecutor returns the lane named by bus.default_lane, or
// GoExecutor when none is configured.
func defaultExecutor(cfg *config.Config, lanes *lane.Manager) (eventbus.Executor, error) {
	if cfg.Bus.DefaultLane == "" {
		return eventbus.GoExecutor, nil
	}
	l, err := lanes.Get(cfg.Bus.DefaultLane)
	if err != nil {
		return nil, fmt.Errorf("default lane: %w", err)
	}
	return l, nil
}

// watchLogLevel applies log level changes from the config file while the
// process runs. Other settings need a restart.
func watchLogLevel(ctx context.Context, path string, loader *config.Loader, cfg *config.Config, log logger.Logger) (*config.Watcher, error) {
	watcher, err := config.NewWatcher(path, loader,
		config.WithWatcherLogger(log.With("component", "config")))
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	current := config.ExtractHotReloadable(cfg)
	watcher.OnChange(func(next *config.Config) {
		hot := config.ExtractHotReloadable(next)
		mu.Lock()
		defer mu.Unlock()
		if !hot.Changed(current) {
			return
		}
		log.SetLevel(logger.ParseLevel(hot.LogLevel))
		log.Info("Log level changed", "from", current.LogLevel, "to", hot.LogLevel)
		current = hot
	})

	go func() {
		if err := watcher.Watch(ctx); err != nil && ctx.Err() == nil {
			log.Warn("Config watcher stopped", "error", err)
		}
	}()
	return watcher, nil
}
