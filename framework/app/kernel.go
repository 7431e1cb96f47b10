package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-dibridge/framework/config"
	"github.com/km-arc/go-dibridge/framework/container"
	"github.com/km-arc/go-dibridge/framework/graph"
	"github.com/km-arc/go-dibridge/framework/inspect"
	"github.com/km-arc/go-dibridge/framework/loader"
	"github.com/km-arc/go-dibridge/framework/parameters"
	"github.com/km-arc/go-dibridge/framework/providers"
	"github.com/km-arc/go-dibridge/framework/routing"
	"github.com/km-arc/go-dibridge/framework/transform"
)

// Kernel drives one build of the bridge: it loads both graphs, transforms
// the compiled graph into the runtime graph, compiles the runtime, reflects
// the realized runtime graph back and compiles the compiled side.
//
//	k, err := app.New(config.Load())
//	k.RegisterRuntime(&MailerProvider{})
//	if err := k.Build(); err != nil { ... }
//	mailer, err := k.Facade().Get("mailer")
type Kernel struct {
	config   *config.Config
	logger   *zap.Logger
	registry *container.Registry
	metrics  *inspect.Metrics

	compiledGraph *graph.ContainerGraph
	runtimeGraph  *graph.ContainerGraph

	compiledProviders *container.ProviderRegistry
	runtimeProviders  *container.ProviderRegistry
	peer              *providers.ContainerServiceProvider

	pair *transform.Pair

	compiled *container.Container
	runtime  *container.Container
	facade   *container.Adapter

	forward  *transform.Result
	backward *transform.Result
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithLogger sets the logger shared by every component of the build.
func WithLogger(logger *zap.Logger) Option {
	return func(k *Kernel) {
		if logger != nil {
			k.logger = logger
		}
	}
}

// WithRegistry adds application constructors to the framework ones.
func WithRegistry(reg *container.Registry) Option {
	return func(k *Kernel) {
		if reg != nil {
			k.registry.Merge(reg)
		}
	}
}

// WithMetrics records transforms and inspector lookups into m.
func WithMetrics(m *inspect.Metrics) Option {
	return func(k *Kernel) {
		if m != nil {
			k.metrics = m
		}
	}
}

// New creates a kernel and registers the framework providers: the compiled
// graph file on the compiled side; kernel parameters, service_container,
// the router and the runtime graph file on the runtime side.
func New(cfg *config.Config, opts ...Option) (*Kernel, error) {
	k := &Kernel{
		config:   cfg,
		logger:   zap.NewNop(),
		registry: providers.Registry(),
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.metrics == nil {
		k.metrics = inspect.NewMetrics()
	}

	k.compiledGraph = graph.NewWithParameters(parameters.New(cfg.Bridge.Separator))
	k.runtimeGraph = graph.NewWithParameters(parameters.New(cfg.Bridge.Separator))
	k.compiledProviders = container.NewProviderRegistry(k.compiledGraph)
	k.runtimeProviders = container.NewProviderRegistry(k.runtimeGraph)
	k.pair = transform.NewPair(graph.Compiled, graph.Runtime, cfg.Bridge.Services, transform.WithLogger(k.logger))
	k.peer = &providers.ContainerServiceProvider{}

	files := loader.New(loader.WithLogger(k.logger))
	for _, step := range []struct {
		registry *container.ProviderRegistry
		provider container.ServiceProvider
	}{
		{k.compiledProviders, &providers.GraphFileProvider{Loader: files, Files: []string{cfg.Bridge.CompiledGraph}}},
		{k.runtimeProviders, &providers.KernelServiceProvider{Config: cfg}},
		{k.runtimeProviders, k.peer},
		{k.runtimeProviders, &providers.RoutingServiceProvider{}},
		{k.runtimeProviders, &providers.GraphFileProvider{Loader: files, Files: []string{cfg.Bridge.RuntimeGraph}}},
	} {
		if err := step.registry.Register(step.provider); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// RegisterCompiled adds a provider to the compiled side. Call before Build.
func (k *Kernel) RegisterCompiled(p container.ServiceProvider) error {
	return k.compiledProviders.Register(p)
}

// RegisterRuntime adds a provider to the runtime side. Call before Build.
func (k *Kernel) RegisterRuntime(p container.ServiceProvider) error {
	return k.runtimeProviders.Register(p)
}

// Build runs the pipeline once. Later calls are no-ops.
func (k *Kernel) Build() error {
	if k.facade != nil {
		return nil
	}

	config.ResolveEnv(k.compiledGraph.Parameters)
	config.ResolveEnv(k.runtimeGraph.Parameters)

	forward, err := k.pair.ToDestination(k.compiledGraph, k.runtimeGraph)
	if err != nil {
		return err
	}
	k.metrics.ObserveTransform("forward", forward)

	runtime, err := container.Compile(k.runtimeGraph, graph.Runtime, k.registry,
		container.WithLogger(k.logger))
	if err != nil {
		return err
	}

	backward, err := k.pair.ToSource(runtime.Graph(), k.compiledGraph)
	if err != nil {
		return err
	}
	k.metrics.ObserveTransform("backward", backward)

	compiled, err := container.Compile(k.compiledGraph, graph.Compiled, k.registry,
		container.WithLogger(k.logger),
		container.WithExternal(graph.Runtime.Name, container.NewAdapter(runtime)),
	)
	if err != nil {
		return err
	}
	runtime.SetExternal(graph.Compiled.Name, compiled)
	k.peer.Peer = compiled

	if err := k.runtimeProviders.Boot(runtime); err != nil {
		return err
	}
	if err := k.compiledProviders.Boot(compiled); err != nil {
		return err
	}

	k.compiled, k.runtime = compiled, runtime
	k.forward, k.backward = forward, backward
	k.facade = container.NewAdapter(runtime)

	k.logger.Info("kernel built",
		zap.String("environment", k.config.App.Env),
		zap.Int("compiled", k.compiledGraph.Len()),
		zap.Int("runtime", k.runtimeGraph.Len()),
		zap.Int("warnings", len(forward.Warnings)+len(backward.Warnings)),
	)
	return nil
}

// ── Accessors ─────────────────────────────────────────────────────────────────

// Facade is the read-only view of the runtime container the compiled side
// resolves through. Nil before Build.
func (k *Kernel) Facade() *container.Adapter { return k.facade }

func (k *Kernel) Compiled() *container.Container { return k.compiled }
func (k *Kernel) Runtime() *container.Container  { return k.runtime }

func (k *Kernel) CompiledGraph() *graph.ContainerGraph { return k.compiledGraph }
func (k *Kernel) RuntimeGraph() *graph.ContainerGraph  { return k.runtimeGraph }

// Results returns the forward and backward transform results of Build.
func (k *Kernel) Results() (forward, backward *transform.Result) {
	return k.forward, k.backward
}

func (k *Kernel) Config() *config.Config    { return k.config }
func (k *Kernel) Metrics() *inspect.Metrics { return k.metrics }

// Environment returns APP_ENV value.
func (k *Kernel) Environment() string { return k.config.App.Env }
func (k *Kernel) IsDebug() bool       { return k.config.App.Debug }

// Router resolves the runtime router.
func (k *Kernel) Router() (*routing.Router, error) {
	if k.runtime == nil {
		return nil, errNotBuilt
	}
	return container.Resolve[*routing.Router](k.runtime, providers.Router)
}

// ── Serving ───────────────────────────────────────────────────────────────────

var errNotBuilt = errors.New("app: kernel is not built")

// Serve builds the kernel if needed and serves the inspector on addr until
// ctx is done.
func (k *Kernel) Serve(ctx context.Context, addr string) error {
	if err := k.Build(); err != nil {
		return err
	}
	router, err := k.Router()
	if err != nil {
		return err
	}
	router.Middleware(routing.RequestLogger(k.logger))
	inspect.New(k.facade, inspect.WithLogger(k.logger), inspect.WithMetrics(k.metrics)).Mount(router)

	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe() }()
	k.logger.Info("inspector listening", zap.String("addr", addr))

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
		if err := <-done; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// NewLogger builds a development logger in debug mode, production otherwise.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.App.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
