package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dierrors "github.com/km-arc/go-dibridge/framework/errors"
	"github.com/km-arc/go-dibridge/framework/graph"
)

// ── Definitions and aliases ───────────────────────────────────────────────────

func TestGraph_RegisterKeepsOrder(t *testing.T) {
	g := graph.New()
	g.Register("b", "B")
	g.Register("a", "A")
	g.Register("b", "B2")

	assert.Equal(t, []string{"b", "a"}, g.DefinitionNames())
	d, ok := g.Definition("b")
	require.True(t, ok)
	assert.Equal(t, "B2", d.Type)
	assert.Equal(t, "b", d.Name)
	assert.Equal(t, 2, g.Len())
}

func TestGraph_AliasAndDefinitionShareNamespace(t *testing.T) {
	g := graph.New()
	g.Register("mailer", "Mailer")
	g.SetAlias("mailer", graph.Alias{Target: "other"})

	assert.False(t, g.HasDefinition("mailer"))
	assert.True(t, g.HasAlias("mailer"))

	g.Register("mailer", "Mailer")
	assert.False(t, g.HasAlias("mailer"))
	assert.True(t, g.Has("mailer"))
}

func TestGraph_FindDefinitionThroughAliases(t *testing.T) {
	g := graph.New()
	g.Register("real", "Real")
	g.SetAlias("a", graph.Alias{Target: "b"})
	g.SetAlias("b", graph.Alias{Target: "real"})

	d, err := g.FindDefinition("a")
	require.NoError(t, err)
	assert.Equal(t, "real", d.Name)

	_, err = g.FindDefinition("missing")
	assert.True(t, dierrors.IsNotFound(err))
}

func TestGraph_CyclicAlias(t *testing.T) {
	g := graph.New()
	g.SetAlias("a", graph.Alias{Target: "b"})
	g.SetAlias("b", graph.Alias{Target: "c"})
	g.SetAlias("c", graph.Alias{Target: "a"})

	_, err := g.ResolveAlias("a")
	require.Error(t, err)
	assert.True(t, dierrors.IsCyclicAlias(err))
	assert.Contains(t, err.Error(), "a -> b -> c -> a")

	assert.True(t, dierrors.IsCyclicAlias(g.ValidateAliases()))
}

func TestGraph_DanglingAliasIsNotACycle(t *testing.T) {
	g := graph.New()
	g.SetAlias("a", graph.Alias{Target: "nowhere"})

	assert.NoError(t, g.ValidateAliases())
}

// ── Candidate sets ────────────────────────────────────────────────────────────

func TestGraph_CandidateSets(t *testing.T) {
	g := graph.New()
	g.Register("b1", "B").SetAutowired(true)
	g.Register("a1", "A")
	g.Register("b2", "B")
	g.Register("b3", "B").SetAutowired(true)
	g.Register("tpl", "B").SetAbstract(true).SetAutowired(true)
	g.Register("synthetic", "")

	sets := g.CandidateSets()
	require.Len(t, sets, 2)
	assert.Equal(t, graph.CandidateSet{Type: "A", Other: []string{"a1"}}, sets[0])
	assert.Equal(t, graph.CandidateSet{
		Type:      "B",
		Autowired: []string{"b1", "b3"},
		Other:     []string{"b2"},
	}, sets[1])

	assert.Equal(t, sets[1], g.Candidates("B"))
}

// ── Copying ───────────────────────────────────────────────────────────────────

func TestGraph_CloneIsDeep(t *testing.T) {
	inner := graph.NewDefinition("Inner")
	g := graph.New()
	g.Parameters.Set("p", 1)
	g.Register("svc", "Svc").
		SetArguments(graph.Inline(inner), graph.Inline(inner), graph.Value(map[string]any{"k": "v"})).
		AddTag("tag", map[string]any{"priority": 1})
	g.AddResource("config/services.yaml")

	c := g.Clone()
	d, _ := c.Definition("svc")
	d.Type = "Changed"
	d.Tags["tag"]["priority"] = 2
	d.Arguments[2].(graph.Literal).Value.(map[string]any)["k"] = "changed"
	c.Parameters.Set("p", 2)
	c.AddResource("other")

	orig, _ := g.Definition("svc")
	assert.Equal(t, "Svc", orig.Type)
	assert.Equal(t, 1, orig.Tags["tag"]["priority"])
	assert.Equal(t, "v", orig.Arguments[2].(graph.Literal).Value.(map[string]any)["k"])
	v, _ := g.Parameters.Lookup("p")
	assert.Equal(t, 1, v)
	assert.Equal(t, []string{"config/services.yaml"}, g.Resources())

	first := d.Arguments[0].(graph.InlineDefinition).Definition
	second := d.Arguments[1].(graph.InlineDefinition).Definition
	assert.Same(t, first, second, "shared inline definitions stay shared")
	assert.NotSame(t, inner, first)
}

func TestGraph_Adopt(t *testing.T) {
	g := graph.New()
	g.Register("old", "Old")

	next := g.Clone()
	next.Register("new", "New")
	g.Adopt(next)

	assert.True(t, g.HasDefinition("new"))
	assert.True(t, g.HasDefinition("old"))
}

func TestGraph_ResourcesAreDeduplicated(t *testing.T) {
	g := graph.New()
	g.AddResource("b")
	g.AddResource("a")
	g.AddResource("b")

	assert.Equal(t, []string{"b", "a"}, g.Resources())
}

// ── Models ────────────────────────────────────────────────────────────────────

func TestModel_SanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"mailer", "mailer"},
		{"my-service", "my_service"},
		{`App\Mailer`, "App.Mailer"},
		{"a b@c", "a_b_c"},
		{"ünïcode", "_n_code"},
		{"", "_"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := graph.Compiled.SanitizeName(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, graph.Compiled.LegalName(got))
		})
	}

	assert.Equal(t, "any name-at@all", graph.Runtime.SanitizeName("any name-at@all"))
	assert.False(t, graph.Compiled.LegalName("a-b"))
}
