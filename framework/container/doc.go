// Package container realizes a container graph into shared service
// instances, and exposes one realized container to the other side of the
// bridge through a read-only Adapter.
//
// # Overview
//
// A graph declares services by type identifier. Go has no runtime
// constructor lookup, so a Registry maps each type identifier to a
// Constructor; static factories are registered the same way. Setter calls
// and service factory methods are invoked by reflection.
//
// # Container Lifecycle
//
//  1. Build the graph: loader.Load, providers' Register
//  2. Compile: c, err := container.Compile(g, graph.Runtime, registry)
//  3. Wire the other side: c.SetExternal("compiled", other)
//  4. Boot providers: registry.Boot(c)
//  5. Resolve: c.Get("mailer")
//
// # Registry
//
//	reg := container.NewRegistry().
//	    Constructor("app.Mailer", func(args ...any) (any, error) {
//	        return &Mailer{Transport: args[0].(string)}, nil
//	    }).
//	    Factory("app.ClientFactory", "create", func(args ...any) (any, error) {
//	        return NewClient(args...)
//	    })
//
// # Resolving
//
//	raw, err := c.Get("mailer")
//
//	// Generic
//	mailer, err := container.Resolve[*Mailer](c, "mailer")
//
//	// By type: the service named after the type, else the only
//	// autowired one
//	logger, err := c.MakeType("app.Logger")
//
// # Arguments
//
//	graph.Ref("logger")        // the shared "logger" instance
//	graph.Param("db.host")     // parameter value, ParameterNotFoundError if absent
//	graph.Defer(graph.Ref(x))  // container.Deferred, resolved when called
//	graph.LazyList(...)        // *container.Iterator, resolved while iterating
//	graph.Inline(def)          // a private instance built for this position
//
// # Synthetic services
//
//	// provided by hand
//	c.Instance("request", req)
//
//	// mirrored from the other model: served by the supplier of that model
//	c.SetExternal("compiled", container.NewAdapter(compiledContainer))
//
// # Tags
//
//	handlers, err := c.Tagged("app.handler")  // []any, definition order
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(g *graph.ContainerGraph) error {
//	    g.Register("mailer", "app.Mailer").SetArguments(graph.Param("mailer.transport"))
//	    return nil
//	}
//
//	providers := container.NewProviderRegistry(g)
//	providers.Register(&AppServiceProvider{})
//	...
//	providers.Boot(c)
package container
