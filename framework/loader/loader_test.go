package loader_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-dibridge/framework/graph"
	"github.com/km-arc/go-dibridge/framework/loader"
)

const mailerYAML = `
parameters:
    mailer:
        transport: smtp
        port: 25
    app.secret: '%env(APP_SECRET)%'
services:
    logger:
        class: app.Logger
        arguments: [main]
        autowired: true
    mailer:
        class: app.Mailer
        arguments:
            - '%mailer.transport%'
            - '@logger'
            - '@@not-a-ref'
            - '%env(APP_SECRET)%'
            - !closure '@cache'
            - !iterator {b: '@logger', a: 1}
            - !service {class: app.Handler, arguments: ['%mailer.port%']}
            - {level: debug, targets: [a, b]}
            - null
        calls:
            - [setDebug, [true]]
            - {method: setPort, arguments: ['%mailer.port%']}
            - [reset]
        tags: {app.mailer: {priority: 1}, kernel.reset: ~}
        public: true
    client:
        class: app.Client
        factory: ['@factory', create]
    factory: ~
    static:
        factory: 'app.Client::create'
    inline.factory:
        factory: [!service {class: app.ClientFactory}, build]
    ghost:
        class: app.Ghost
        origin: 'compiled:ghost'
    app.Mailer: '@mailer'
aliases:
    mailer.default: {target: '@mailer', public: true}
    mailer.other: mailer
resources: [config/mailer.yaml]
`

func load(t *testing.T, data string) *graph.ContainerGraph {
	t.Helper()
	g := graph.New()
	require.NoError(t, loader.New().Load(g, []byte(data)))
	return g
}

func TestLoad_Parameters(t *testing.T) {
	g := load(t, mailerYAML)

	v, err := g.Parameters.Get("mailer.transport")
	require.NoError(t, err)
	assert.Equal(t, "smtp", v)

	v, err = g.Parameters.Get("mailer.port")
	require.NoError(t, err)
	assert.Equal(t, 25, v)

	assert.Equal(t, []string{"%env(APP_SECRET)%"}, g.Parameters.EnvPlaceholders())
}

func TestLoad_Arguments(t *testing.T) {
	g := load(t, mailerYAML)

	d, ok := g.Definition("mailer")
	require.True(t, ok)
	assert.Equal(t, "app.Mailer", d.Type)
	assert.True(t, d.Public)
	require.Len(t, d.Arguments, 9)

	assert.Equal(t, graph.Param("mailer.transport"), d.Arguments[0])
	assert.Equal(t, graph.Ref("logger"), d.Arguments[1])
	assert.Equal(t, graph.Value("@not-a-ref"), d.Arguments[2])
	assert.Equal(t, graph.Value("%env(APP_SECRET)%"), d.Arguments[3], "env markers stay literal")
	assert.Equal(t, graph.Defer(graph.Ref("cache")), d.Arguments[4])
	assert.Equal(t, graph.LazyCollection{Entries: []graph.Entry{
		{Key: "b", Value: graph.Ref("logger")},
		{Key: "a", Value: graph.Value(1)},
	}}, d.Arguments[5], "document order is kept")

	inline, ok := d.Arguments[6].(graph.InlineDefinition)
	require.True(t, ok)
	assert.Equal(t, "app.Handler", inline.Definition.Type)
	assert.Equal(t, []graph.Argument{graph.Param("mailer.port")}, inline.Definition.Arguments)

	assert.Equal(t, graph.Collection{Keyed: true, Entries: []graph.Entry{
		{Key: "level", Value: graph.Value("debug")},
		{Key: "targets", Value: graph.List(graph.Value("a"), graph.Value("b"))},
	}}, d.Arguments[7])
	assert.Equal(t, graph.Value(nil), d.Arguments[8])
}

func TestLoad_CallsAndTags(t *testing.T) {
	g := load(t, mailerYAML)
	d, _ := g.Definition("mailer")

	assert.Equal(t, []graph.MethodCall{
		{Method: "setDebug", Arguments: []graph.Argument{graph.Value(true)}},
		{Method: "setPort", Arguments: []graph.Argument{graph.Param("mailer.port")}},
		{Method: "reset"},
	}, d.Calls)

	assert.Equal(t, map[string]any{"priority": 1}, d.Tags["app.mailer"])
	assert.True(t, d.HasTag("kernel.reset"))
}

func TestLoad_TagList(t *testing.T) {
	g := load(t, `
services:
    handler:
        class: app.Handler
        tags: [app.handler, {name: app.listener, event: boot}]
`)
	d, _ := g.Definition("handler")
	assert.True(t, d.HasTag("app.handler"))
	assert.Equal(t, map[string]any{"event": "boot"}, d.Tags["app.listener"])
}

func TestLoad_Factories(t *testing.T) {
	g := load(t, mailerYAML)

	client, _ := g.Definition("client")
	assert.Equal(t, &graph.Factory{Target: graph.Ref("factory"), Method: "create"}, client.Factory)

	static, _ := g.Definition("static")
	assert.Equal(t, &graph.Factory{Target: graph.Value("app.Client"), Method: "create"}, static.Factory)

	inline, _ := g.Definition("inline.factory")
	target, ok := inline.Factory.Target.(graph.InlineDefinition)
	require.True(t, ok)
	assert.Equal(t, "app.ClientFactory", target.Definition.Type)
	assert.Equal(t, "build", inline.Factory.Method)

	bare, _ := g.Definition("factory")
	assert.Equal(t, "factory", bare.Type, "a null service is typed after its name")
}

func TestLoad_AliasesAndOrigins(t *testing.T) {
	g := load(t, mailerYAML)

	assert.Equal(t, []string{"app.Mailer", "mailer.default", "mailer.other"}, g.AliasNames())
	a, _ := g.Alias("mailer.default")
	assert.Equal(t, graph.Alias{Target: "mailer", Public: true}, a)
	a, _ = g.Alias("mailer.other")
	assert.Equal(t, graph.Alias{Target: "mailer"}, a)

	ghost, _ := g.Definition("ghost")
	assert.True(t, ghost.Mirrored())
	assert.Equal(t, "compiled", ghost.Origin)
	assert.Equal(t, "ghost", ghost.OriginName)

	assert.Equal(t, []string{"config/mailer.yaml"}, g.Resources())
	assert.Equal(t, []string{"logger", "mailer", "client", "factory", "static", "inline.factory", "ghost"}, g.DefinitionNames())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "services: [unclosed"},
		{"services not a mapping", "services: [a, b]"},
		{"service not a mapping", "services:\n    a: [1]"},
		{"bad factory", "services:\n    a: {factory: nope}"},
		{"bad origin", "services:\n    a: {origin: nope}"},
		{"alias without target", "aliases:\n    a: {public: true}"},
		{"tag without name", "services:\n    a: {tags: [{event: x}]}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := loader.New().Load(graph.New(), []byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_RecordsResource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services:\n    logger: {class: app.Logger}\n"), 0o600))

	g := graph.New()
	require.NoError(t, loader.New().LoadFile(g, path))
	assert.True(t, g.HasDefinition("logger"))
	assert.Equal(t, []string{path}, g.Resources())

	err := loader.New().LoadFile(g, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_ReadsDump(t *testing.T) {
	g := load(t, mailerYAML)

	dump, err := g.Dump()
	require.NoError(t, err)

	again := graph.New()
	require.NoError(t, loader.New().Load(again, dump))

	second, err := again.Dump()
	require.NoError(t, err)
	assert.Equal(t, string(dump), string(second))
}
