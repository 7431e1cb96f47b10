package providers_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-dibridge/framework/config"
	"github.com/km-arc/go-dibridge/framework/container"
	"github.com/km-arc/go-dibridge/framework/graph"
	"github.com/km-arc/go-dibridge/framework/providers"
	"github.com/km-arc/go-dibridge/framework/routing"
)

func TestKernelServiceProvider_Parameters(t *testing.T) {
	g := graph.New()
	p := &providers.KernelServiceProvider{Config: &config.Config{App: config.AppConfig{
		Name: "shop", Env: "production", ProjectDir: "/srv/shop",
		CacheDir: "/srv/shop/var/cache", LogsDir: "/srv/shop/var/log", Charset: "UTF-8",
	}}}
	require.NoError(t, p.Register(g))

	want := map[string]any{
		"kernel.environment": "production",
		"kernel.debug":       false,
		"kernel.name":        "shop",
		"kernel.project_dir": "/srv/shop",
		"kernel.cache_dir":   "/srv/shop/var/cache",
		"kernel.logs_dir":    "/srv/shop/var/log",
		"kernel.charset":     "UTF-8",
	}
	for key, value := range want {
		got, err := g.Parameters.Get(key)
		require.NoError(t, err, key)
		assert.Equal(t, value, got, key)
	}
}

func TestContainerServiceProvider(t *testing.T) {
	peerGraph := graph.New()
	peerGraph.Parameters.Set("answer", 42)
	peer, err := container.Compile(peerGraph, graph.Compiled, container.NewRegistry())
	require.NoError(t, err)

	g := graph.New()
	p := &providers.ContainerServiceProvider{}
	require.NoError(t, p.Register(g))

	d, ok := g.Definition(providers.ServiceContainer)
	require.True(t, ok)
	assert.True(t, d.Synthetic)
	assert.True(t, d.Public)
	assert.Equal(t, providers.AdapterType, d.Type)

	c, err := container.Compile(g, graph.Runtime, providers.Registry())
	require.NoError(t, err)

	require.NoError(t, p.Boot(c))
	_, err = c.Get(providers.ServiceContainer)
	assert.Error(t, err, "nothing is provided without a peer")

	p.Peer = peer
	require.NoError(t, p.Boot(c))
	sc, err := container.Resolve[*container.Adapter](c, providers.ServiceContainer)
	require.NoError(t, err)
	v, err := sc.GetParameter("answer")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRoutingServiceProvider(t *testing.T) {
	g := graph.New()
	require.NoError(t, (&providers.RoutingServiceProvider{}).Register(g))

	c, err := container.Compile(g, graph.Runtime, providers.Registry())
	require.NoError(t, err)

	r, err := container.Resolve[*routing.Router](c, providers.Router)
	require.NoError(t, err)
	again, _ := c.Get(providers.Router)
	assert.Same(t, r, again)
}

func TestGraphFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services:\n    logger: {class: app.Logger}\n"), 0o600))

	g := graph.New()
	require.NoError(t, (&providers.GraphFileProvider{Files: []string{"", path}}).Register(g))
	assert.True(t, g.HasDefinition("logger"))
	assert.Equal(t, []string{path}, g.Resources())

	err := (&providers.GraphFileProvider{Files: []string{path + ".missing"}}).Register(graph.New())
	assert.Error(t, err)
}
