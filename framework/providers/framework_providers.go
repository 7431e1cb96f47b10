package providers

import (
	"github.com/km-arc/go-dibridge/framework/config"
	"github.com/km-arc/go-dibridge/framework/container"
	"github.com/km-arc/go-dibridge/framework/graph"
	"github.com/km-arc/go-dibridge/framework/loader"
	"github.com/km-arc/go-dibridge/framework/routing"
)

// ServiceContainer is the runtime-side name of the adapter over the
// compiled-side container.
const ServiceContainer = "service_container"

// Router is the service name of the inspector router.
const Router = "router"

// Type identifiers of the framework services.
var (
	AdapterType = container.TypeKey(&container.Adapter{})
	RouterType  = container.TypeKey(&routing.Router{})
)

// Registry returns the constructors of the framework services.
func Registry() *container.Registry {
	return container.NewRegistry().
		Constructor(RouterType, func(...any) (any, error) { return routing.New(), nil })
}

// ── KernelServiceProvider ─────────────────────────────────────────────────────

// KernelServiceProvider sets the kernel parameters from the configuration.
//
// Parameters:
//   - kernel.environment, kernel.debug, kernel.name
//   - kernel.project_dir, kernel.cache_dir, kernel.logs_dir
//   - kernel.charset
type KernelServiceProvider struct {
	container.BaseProvider
	Config *config.Config
}

func (p *KernelServiceProvider) Register(g *graph.ContainerGraph) error {
	app := p.Config.App
	g.Parameters.Add(map[string]any{
		"kernel.environment": app.Env,
		"kernel.debug":       app.Debug,
		"kernel.name":        app.Name,
		"kernel.project_dir": app.ProjectDir,
		"kernel.cache_dir":   app.CacheDir,
		"kernel.logs_dir":    app.LogsDir,
		"kernel.charset":     app.Charset,
	})
	return nil
}

// ── ContainerServiceProvider ──────────────────────────────────────────────────

// ContainerServiceProvider declares the service_container service: a
// read-only adapter over the other side's container. The definition is
// synthetic; Boot provides the instance once Peer is set.
//
// Bound services:
//   - "service_container" → *container.Adapter
type ContainerServiceProvider struct {
	Peer container.ReadOnly
}

func (p *ContainerServiceProvider) Register(g *graph.ContainerGraph) error {
	g.Register(ServiceContainer, AdapterType).SetSynthetic(true).SetPublic(true)
	return nil
}

func (p *ContainerServiceProvider) Boot(app *container.Container) error {
	if p.Peer != nil {
		app.Instance(ServiceContainer, container.NewAdapter(p.Peer))
	}
	return nil
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router the inspector mounts on.
//
// Bound services:
//   - "router" → *routing.Router
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(g *graph.ContainerGraph) error {
	g.Register(Router, RouterType).SetPublic(true)
	return nil
}

// ── GraphFileProvider ─────────────────────────────────────────────────────────

// GraphFileProvider loads YAML graph files. Empty paths are ignored.
type GraphFileProvider struct {
	container.BaseProvider
	Loader *loader.Loader
	Files  []string
}

func (p *GraphFileProvider) Register(g *graph.ContainerGraph) error {
	l := p.Loader
	if l == nil {
		l = loader.New()
	}
	for _, file := range p.Files {
		if file == "" {
			continue
		}
		if err := l.LoadFile(g, file); err != nil {
			return err
		}
	}
	return nil
}
