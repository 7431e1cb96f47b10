package container

import "github.com/km-arc/go-dibridge/framework/graph"

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider contributes to one side of the bridge in two phases.
//
// Register adds definitions and parameters to the graph before anything is
// transformed or compiled. Boot runs once the container is realized, making
// it safe to resolve services.
//
//	type MailerProvider struct{ container.BaseProvider }
//
//	func (p *MailerProvider) Register(g *graph.ContainerGraph) error {
//	    g.Register("mailer", "app.Mailer").SetArguments(graph.Ref("logger"))
//	    return nil
//	}
//
//	func (p *MailerProvider) Boot(app *container.Container) error {
//	    _, err := app.Get("mailer")
//	    return err
//	}
type ServiceProvider interface {
	// Register adds definitions to the graph.
	// Do NOT expect services to exist here; use Boot for that.
	Register(g *graph.ContainerGraph) error

	// Boot is called after the container is compiled.
	Boot(app *Container) error
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with a no-op Boot.
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(g *graph.ContainerGraph) error { ... }
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry runs the two phases of a set of providers against one
// graph and, later, the container compiled from it.
type ProviderRegistry struct {
	graph      *graph.ContainerGraph
	app        *Container
	providers  []ServiceProvider
	registered map[ServiceProvider]bool
}

// NewProviderRegistry creates a registry bound to g.
func NewProviderRegistry(g *graph.ContainerGraph) *ProviderRegistry {
	return &ProviderRegistry{
		graph:      g,
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register method. A provider added
// after Boot is booted immediately.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if r.registered[provider] {
		return nil
	}
	r.registered[provider] = true

	if err := provider.Register(r.graph); err != nil {
		return err
	}
	r.providers = append(r.providers, provider)

	if r.app != nil {
		return provider.Boot(r.app)
	}
	return nil
}

// Boot calls Boot on every provider, in registration order. Only the first
// call has an effect.
func (r *ProviderRegistry) Boot(app *Container) error {
	if r.app != nil {
		return nil
	}
	r.app = app
	for _, provider := range r.providers {
		if err := provider.Boot(app); err != nil {
			return err
		}
	}
	return nil
}

// Booted returns true if Boot has been called.
func (r *ProviderRegistry) Booted() bool { return r.app != nil }

// Providers returns the registered providers.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.providers }
