package container_test

import (
	"errors"
	"testing"

	"github.com/km-arc/go-dibridge/framework/container"
	"github.com/km-arc/go-dibridge/framework/graph"
)

// ── stub providers ────────────────────────────────────────────────────────────

type eagerProvider struct {
	container.BaseProvider
	registerCalled bool
	bootCalled     bool
}

func (p *eagerProvider) Register(g *graph.ContainerGraph) error {
	p.registerCalled = true
	g.Register("eager-svc", "test.Eager")
	return nil
}

func (p *eagerProvider) Boot(app *container.Container) error {
	p.bootCalled = true
	return nil
}

// multiProvider registers multiple definitions.
type multiProvider struct {
	container.BaseProvider
}

func (p *multiProvider) Register(g *graph.ContainerGraph) error {
	g.Register("alpha", "test.Alpha")
	g.Register("beta", "test.Beta")
	return nil
}

// failingProvider fails in the phase named by failIn.
type failingProvider struct {
	failIn string
}

func (p *failingProvider) Register(_ *graph.ContainerGraph) error {
	if p.failIn == "register" {
		return errors.New("register failed")
	}
	return nil
}

func (p *failingProvider) Boot(_ *container.Container) error {
	if p.failIn == "boot" {
		return errors.New("boot failed")
	}
	return nil
}

func stubRegistry() *container.Registry {
	return container.NewRegistry().
		Value("test.Eager", "eager").
		Value("test.Alpha", "α").
		Value("test.Beta", "β")
}

func compile(t *testing.T, g *graph.ContainerGraph) *container.Container {
	t.Helper()
	c, err := container.Compile(g, graph.Runtime, stubRegistry())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return c
}

// ── ProviderRegistry ──────────────────────────────────────────────────────────

func TestRegistry_Provider_RegisterCalled(t *testing.T) {
	reg := container.NewProviderRegistry(graph.New())

	p := &eagerProvider{}
	if err := reg.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !p.registerCalled {
		t.Error("Register() should be called immediately")
	}
}

func TestRegistry_Provider_BootCalledAfterBoot(t *testing.T) {
	g := graph.New()
	reg := container.NewProviderRegistry(g)

	p := &eagerProvider{}
	_ = reg.Register(p)

	if p.bootCalled {
		t.Error("Boot() should NOT be called before registry.Boot()")
	}

	if err := reg.Boot(compile(t, g)); err != nil {
		t.Fatalf("Boot: %v", err)
	}

	if !p.bootCalled {
		t.Error("Boot() should be called after registry.Boot()")
	}
}

func TestRegistry_Provider_ServiceResolvable(t *testing.T) {
	g := graph.New()
	reg := container.NewProviderRegistry(g)
	_ = reg.Register(&eagerProvider{})

	c := compile(t, g)
	_ = reg.Boot(c)

	got, err := container.Resolve[string](c, "eager-svc")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "eager" {
		t.Errorf("eager-svc: got %q, want 'eager'", got)
	}
}

func TestRegistry_Boot_IdempotentCallsAreIgnored(t *testing.T) {
	g := graph.New()
	reg := container.NewProviderRegistry(g)

	p := &eagerProvider{}
	_ = reg.Register(p)

	c := compile(t, g)
	_ = reg.Boot(c)
	p.bootCalled = false
	_ = reg.Boot(c) // second call should be no-op

	if !reg.Booted() {
		t.Error("Booted() should be true after Boot()")
	}
	if p.bootCalled {
		t.Error("second Boot() should not boot providers again")
	}
}

func TestRegistry_Booted_FalseBeforeBoot(t *testing.T) {
	reg := container.NewProviderRegistry(graph.New())
	if reg.Booted() {
		t.Error("Booted() should be false before Boot()")
	}
}

func TestRegistry_DuplicateRegister_Ignored(t *testing.T) {
	reg := container.NewProviderRegistry(graph.New())

	p := &eagerProvider{}
	_ = reg.Register(p)
	_ = reg.Register(p) // second register of same instance

	if len(reg.Providers()) != 1 {
		t.Errorf("Providers(): got %d, want 1", len(reg.Providers()))
	}
}

// ── Multiple providers ────────────────────────────────────────────────────────

func TestRegistry_MultipleProviders_AllServicesResolvable(t *testing.T) {
	g := graph.New()
	reg := container.NewProviderRegistry(g)
	_ = reg.Register(&multiProvider{})
	_ = reg.Register(&eagerProvider{})

	c := compile(t, g)
	_ = reg.Boot(c)

	for id, want := range map[string]string{"alpha": "α", "beta": "β", "eager-svc": "eager"} {
		got, err := container.Resolve[string](c, id)
		if err != nil {
			t.Errorf("%s: %v", id, err)
			continue
		}
		if got != want {
			t.Errorf("%s: got %q, want %q", id, got, want)
		}
	}
}

// ── Failures ──────────────────────────────────────────────────────────────────

func TestRegistry_RegisterError_Returned(t *testing.T) {
	reg := container.NewProviderRegistry(graph.New())

	if err := reg.Register(&failingProvider{failIn: "register"}); err == nil {
		t.Error("Register() should return the provider's error")
	}
	if len(reg.Providers()) != 0 {
		t.Error("a provider that failed to register should not be kept")
	}
}

func TestRegistry_BootError_Returned(t *testing.T) {
	g := graph.New()
	reg := container.NewProviderRegistry(g)
	_ = reg.Register(&failingProvider{failIn: "boot"})

	if err := reg.Boot(compile(t, g)); err == nil {
		t.Error("Boot() should return the provider's error")
	}
}

// ── BaseProvider defaults ─────────────────────────────────────────────────────

func TestBaseProvider_Defaults(t *testing.T) {
	var p container.BaseProvider

	if err := p.Boot(nil); err != nil {
		t.Errorf("BaseProvider.Boot() should be a no-op, got %v", err)
	}
}

// ── Boot after registration (late provider) ───────────────────────────────────

func TestRegistry_RegisterAfterBoot_BootsImmediately(t *testing.T) {
	g := graph.New()
	reg := container.NewProviderRegistry(g)
	_ = reg.Boot(compile(t, g)) // boot before registering

	p := &eagerProvider{}
	_ = reg.Register(p) // register after boot

	if !p.bootCalled {
		t.Error("provider registered after Boot() should be booted immediately")
	}
}
