package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/react-agent/application"
	"github.com/felixgeelhaar/react-agent/domain/agent"
	"github.com/felixgeelhaar/react-agent/domain/cache"
	domainconfig "github.com/felixgeelhaar/react-agent/domain/config"
	"github.com/felixgeelhaar/react-agent/domain/middleware"
	domainoracle "github.com/felixgeelhaar/react-agent/domain/oracle"
	"github.com/felixgeelhaar/react-agent/domain/pack"
	"github.com/felixgeelhaar/react-agent/domain/run"
	"github.com/felixgeelhaar/react-agent/domain/tool"
	infraconfig "github.com/felixgeelhaar/react-agent/infrastructure/config"
	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
	inframw "github.com/felixgeelhaar/react-agent/infrastructure/middleware"
	"github.com/felixgeelhaar/react-agent/infrastructure/observability"
	infraoracle "github.com/felixgeelhaar/react-agent/infrastructure/oracle"
	infrapack "github.com/felixgeelhaar/react-agent/infrastructure/pack"
	"github.com/felixgeelhaar/react-agent/infrastructure/resilience"
	"github.com/felixgeelhaar/react-agent/infrastructure/storage"
	"github.com/felixgeelhaar/react-agent/infrastructure/storage/memory"
	"github.com/felixgeelhaar/react-agent/infrastructure/telemetry"
	"github.com/felixgeelhaar/react-agent/pack/core"
	"github.com/felixgeelhaar/react-agent/pack/search"
	"github.com/felixgeelhaar/react-agent/pack/text"
)

// runtimeOptions adjust the loaded configuration before wiring.
type runtimeOptions struct {
	scripted      bool
	maxIterations int
	storage       string
	noEngine      bool
}

// runtime holds everything a command needs to run tasks.
type runtime struct {
	cfg      *domainconfig.Config
	registry tool.Registry
	packs    *infrapack.Registry
	engine   *application.Engine
	store    run.Store
	cache    cache.Cache
	metrics  *telemetry.Metrics
	provider *observability.Provider

	stopMetrics context.CancelFunc
}

// loadConfig reads the configuration file (or defaults) and applies the
// environment overlay.
func (a *App) loadConfig() (*domainconfig.Config, error) {
	cfg, err := infraconfig.NewLoader().LoadFile(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// buildRuntime wires configuration, tools, storage, telemetry and the engine.
// Callers must call close on the returned runtime.
func (a *App) buildRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	if opts.scripted {
		cfg.Oracle.Provider = infraoracle.ProviderScripted
	}
	if opts.maxIterations > 0 {
		cfg.Agent.MaxIterations = opts.maxIterations
	}
	if opts.storage != "" {
		cfg.Storage.Backend = opts.storage
	}
	if cfg.Storage.Backend == storage.BackendFile && cfg.Storage.Path == "" {
		cfg.Storage.Path = storage.DefaultResultDir
	}
	if err := domainconfig.Validate(cfg); err != nil {
		return nil, err
	}

	lc := infraconfig.Logging(cfg)
	lc.Output = a.stderr
	logging.Init(lc)

	rt := &runtime{cfg: cfg, packs: infrapack.NewRegistry()}
	ok := false
	defer func() {
		if !ok {
			rt.close(ctx)
		}
	}()

	if rt.registry, err = a.buildRegistry(cfg, rt.packs); err != nil {
		return nil, err
	}
	if opts.noEngine {
		ok = true
		return rt, nil
	}

	if rt.store, err = storage.Open(ctx, cfg.Storage); err != nil {
		return nil, err
	}
	if rt.cache, err = storage.OpenCache(cfg.Tools.Cache); err != nil {
		return nil, err
	}

	if rt.provider, err = observability.New(ctx, observability.FromConfig(cfg.Telemetry, Version)); err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	if rt.metrics, err = telemetry.NewMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	if addr := cfg.Telemetry.MetricsAddr; addr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		rt.stopMetrics = cancel
		go func() {
			if err := rt.metrics.Serve(metricsCtx, addr); err != nil {
				logging.Warn().
					Add(logging.Component("metrics")).
					Add(logging.ErrorField(err)).
					Msg("metrics endpoint stopped")
			}
		}()
	}

	orc := a.oracle
	var refiner domainoracle.Refiner
	if orc == nil {
		if orc, err = infraoracle.NewFromConfig(cfg.Oracle); err != nil {
			return nil, fmt.Errorf("create oracle: %w", err)
		}
		if refiner, err = infraoracle.NewRefinerFromConfig(cfg.Oracle); err != nil {
			return nil, fmt.Errorf("create refiner: %w", err)
		}
	}

	engineOpts := []application.Option{
		application.WithRegistry(rt.registry),
		application.WithOracle(orc),
		application.WithExecutor(resilience.NewExecutorWithOptions(infraconfig.ExecutorOptions(cfg)...)),
		application.WithMiddleware(rt.middleware()),
		application.WithClassifier(infraconfig.Classifier(cfg)),
		application.WithTracer(rt.provider.Tracer()),
		application.WithMeter(rt.provider.Meter()),
		application.WithConfig(infraconfig.EngineConfig(cfg)),
		application.WithObserver(rt.metrics),
	}
	if refiner != nil {
		engineOpts = append(engineOpts, application.WithRefiner(refiner))
	}
	if f, ok := orc.(forgetter); ok {
		engineOpts = append(engineOpts, application.WithObserver(forgetObserver{f}))
	}

	if rt.engine, err = application.NewEngineWithOptions(engineOpts...); err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	ok = true
	return rt, nil
}

// buildRegistry installs the core, search and text packs.
func (a *App) buildRegistry(cfg *domainconfig.Config, packs *infrapack.Registry) (tool.Registry, error) {
	provider := a.searchProvider
	if provider == nil {
		p, err := search.NewProvider(cfg.Search)
		if errors.Is(err, search.ErrMissingAPIKey) {
			logging.Warn().
				Add(logging.Component("search")).
				Add(logging.Reason("SERPAPI_KEY not set")).
				Msg("falling back to DuckDuckGo")
			fallback := cfg.Search
			fallback.Provider = "duckduckgo"
			p, err = search.NewProvider(fallback)
		}
		if err != nil {
			return nil, fmt.Errorf("create search provider: %w", err)
		}
		provider = p
	}

	searchPack, err := search.New(provider,
		search.WithLocale(cfg.Search.Language, cfg.Search.Country),
		search.WithNumResults(cfg.Search.NumResults),
	)
	if err != nil {
		return nil, fmt.Errorf("create search pack: %w", err)
	}

	for _, p := range []*pack.Pack{core.New(), searchPack, text.New()} {
		if err := packs.Register(p); err != nil {
			return nil, err
		}
	}

	registry := memory.NewToolRegistry()
	if err := packs.InstallAll(registry); err != nil {
		return nil, fmt.Errorf("install packs: %w", err)
	}
	return registry, nil
}

// middleware assembles the tool middleware chain. Registration order is
// execution order.
func (rt *runtime) middleware() *middleware.Registry {
	reg := middleware.NewRegistry().
		Use("tracing", inframw.Tracing(inframw.TracingConfig{})).
		Use("metrics", inframw.Metrics(rt.metrics)).
		Use("logging", inframw.Logging(inframw.LoggingConfig{})).
		Use("validation", inframw.Validation(inframw.ValidationConfig{}))

	if rl, ok := infraconfig.RateLimit(rt.cfg); ok {
		reg = reg.Use("ratelimit", inframw.RateLimit(rl))
	}
	if rt.cache != nil {
		reg = reg.Use("cache", inframw.Caching(inframw.CacheConfig{
			Cache: rt.cache,
			TTL:   infraconfig.CacheTTL(rt.cfg),
		}))
	}
	return reg
}

// execute runs one task and persists its result.
func (rt *runtime) execute(ctx context.Context, query string) (agent.Result, error) {
	result, err := rt.engine.Run(ctx, query)
	if err != nil {
		return result, err
	}
	if err := storage.Persist(ctx, rt.store, result); err != nil {
		return result, fmt.Errorf("save result: %w", err)
	}
	return result, nil
}

func (rt *runtime) close(ctx context.Context) {
	if rt.stopMetrics != nil {
		rt.stopMetrics()
	}
	if rt.provider != nil {
		if err := rt.provider.Shutdown(ctx); err != nil {
			logging.Warn().Add(logging.Component("telemetry")).Add(logging.ErrorField(err)).Msg("shutdown failed")
		}
	}
	for _, v := range []any{rt.cache, rt.store} {
		if err := storage.Close(v); err != nil {
			logging.Warn().Add(logging.Component("storage")).Add(logging.ErrorField(err)).Msg("close failed")
		}
	}
}

// forgetter is implemented by oracles that keep per-run state.
type forgetter interface {
	Forget(runID string)
}

// forgetObserver releases oracle state once a run ends.
type forgetObserver struct {
	oracle forgetter
}

func (forgetObserver) OnStep(context.Context, string, agent.Step) {}

func (o forgetObserver) OnComplete(_ context.Context, result agent.Result) {
	o.oracle.Forget(result.RunID)
}
