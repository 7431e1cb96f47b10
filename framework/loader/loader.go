// Package loader reads container graphs from YAML, in the notation
// graph.Dump writes.
//
//	parameters:
//	    mailer:
//	        transport: smtp
//	services:
//	    logger:
//	        class: app.Logger
//	        autowired: true
//	    mailer:
//	        class: app.Mailer
//	        arguments: ['%mailer.transport%', '@logger', !closure '@cache']
//	        calls:
//	            - [setDebug, [true]]
//	        tags: {app.mailer: {priority: 1}}
//	    app.Mailer: '@mailer'
//	aliases:
//	    mailer.default: {target: mailer, public: true}
//	resources: [config/mailer.yaml]
//
// Argument notation: '@name' references a service, '@@text' is the literal
// '@text', '%path%' references a parameter. The tags !closure, !iterator
// and !service wrap a value lazily, build a lazy collection and declare an
// inline definition.
package loader

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-dibridge/framework/graph"
	"github.com/km-arc/go-dibridge/framework/parameters"
)

const (
	tagClosure  = "!closure"
	tagIterator = "!iterator"
	tagService  = "!service"
)

// document is the top level of a graph file. Sections that carry order are
// kept as nodes.
type document struct {
	Parameters map[string]any `yaml:"parameters"`
	Services   yaml.Node      `yaml:"services"`
	Aliases    yaml.Node      `yaml:"aliases"`
	Resources  []string       `yaml:"resources"`
}

type service struct {
	Class     string      `yaml:"class"`
	Factory   yaml.Node   `yaml:"factory"`
	Arguments []yaml.Node `yaml:"arguments"`
	Calls     []yaml.Node `yaml:"calls"`
	Tags      yaml.Node   `yaml:"tags"`
	Public    bool        `yaml:"public"`
	Synthetic bool        `yaml:"synthetic"`
	Abstract  bool        `yaml:"abstract"`
	Autowired bool        `yaml:"autowired"`
	Origin    string      `yaml:"origin"`
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Loader fills graphs from YAML documents.
type Loader struct {
	logger *zap.Logger
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile loads path into g and records it as a resource of g.
func (l *Loader) LoadFile(g *graph.ContainerGraph, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("loader: %w", err)
	}
	if err := l.Load(g, data); err != nil {
		return fmt.Errorf("%w (in %s)", err, path)
	}
	g.AddResource(path)
	return nil
}

// Load adds the parameters, services, aliases and resources of data to g.
// Entries already in g are replaced.
func (l *Loader) Load(g *graph.ContainerGraph, data []byte) error {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("loader: %w", err)
	}

	g.Parameters.Add(doc.Parameters)

	if err := eachPair(&doc.Services, "services", func(name string, n *yaml.Node) error {
		return l.service(g, name, n)
	}); err != nil {
		return err
	}

	if err := eachPair(&doc.Aliases, "aliases", func(name string, n *yaml.Node) error {
		alias, err := aliasOf(n)
		if err != nil {
			return fmt.Errorf("loader: alias %q: %w", name, err)
		}
		g.SetAlias(name, alias)
		return nil
	}); err != nil {
		return err
	}

	for _, r := range doc.Resources {
		g.AddResource(r)
	}

	l.logger.Debug("graph loaded",
		zap.Int("parameters", len(doc.Parameters)),
		zap.Int("definitions", g.Len()),
		zap.Int("aliases", len(g.AliasNames())),
	)
	return nil
}

// ── Sections ──────────────────────────────────────────────────────────────────

func eachPair(section *yaml.Node, label string, fn func(key string, value *yaml.Node) error) error {
	switch section.Kind {
	case 0:
		return nil
	case yaml.MappingNode:
	case yaml.ScalarNode:
		if section.ShortTag() == "!!null" {
			return nil
		}
		fallthrough
	default:
		return fmt.Errorf("loader: line %d: %s must be a mapping", section.Line, label)
	}
	for i := 0; i+1 < len(section.Content); i += 2 {
		if err := fn(section.Content[i].Value, section.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) service(g *graph.ContainerGraph, name string, n *yaml.Node) error {
	n = resolveAlias(n)

	// 'app.Mailer: @mailer' declares an alias.
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str" && strings.HasPrefix(n.Value, "@") {
		g.SetAlias(name, graph.Alias{Target: n.Value[1:]})
		return nil
	}
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		g.Register(name, name)
		return nil
	}

	d, err := definition(n)
	if err != nil {
		return fmt.Errorf("loader: service %q: %w", name, err)
	}
	g.SetDefinition(name, d)
	return nil
}

func definition(n *yaml.Node) (*graph.Definition, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	var s service
	if err := n.Decode(&s); err != nil {
		return nil, err
	}

	d := graph.NewDefinition(s.Class).
		SetPublic(s.Public).
		SetSynthetic(s.Synthetic).
		SetAbstract(s.Abstract).
		SetAutowired(s.Autowired)

	args, err := argumentList(pointers(s.Arguments))
	if err != nil {
		return nil, err
	}
	d.Arguments = args

	if s.Factory.Kind != 0 {
		if d.Factory, err = factory(&s.Factory); err != nil {
			return nil, err
		}
	}

	for i := range s.Calls {
		call, err := methodCall(&s.Calls[i])
		if err != nil {
			return nil, err
		}
		d.Calls = append(d.Calls, call)
	}

	if err := tags(d, &s.Tags); err != nil {
		return nil, err
	}

	if s.Origin != "" {
		origin, originName, ok := strings.Cut(s.Origin, ":")
		if !ok || origin == "" || originName == "" {
			return nil, fmt.Errorf("origin %q: expected model:name", s.Origin)
		}
		d.Mirror(origin, originName)
	}
	return d, nil
}

// factory reads [target, method] or 'Type::method'.
func factory(n *yaml.Node) (*graph.Factory, error) {
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.ScalarNode:
		typeName, method, ok := strings.Cut(n.Value, "::")
		if !ok {
			return nil, fmt.Errorf("line %d: factory %q: expected Type::method", n.Line, n.Value)
		}
		return &graph.Factory{Target: graph.Value(typeName), Method: method}, nil
	case yaml.SequenceNode:
		if len(n.Content) != 2 {
			return nil, fmt.Errorf("line %d: factory: expected [target, method]", n.Line)
		}
		target, err := argument(n.Content[0])
		if err != nil {
			return nil, err
		}
		return &graph.Factory{Target: target, Method: n.Content[1].Value}, nil
	default:
		return nil, fmt.Errorf("line %d: factory: expected a sequence", n.Line)
	}
}

// methodCall reads [method, [args]] or {method: m, arguments: [args]}.
func methodCall(n *yaml.Node) (graph.MethodCall, error) {
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.SequenceNode:
		if len(n.Content) == 0 || len(n.Content) > 2 {
			return graph.MethodCall{}, fmt.Errorf("line %d: call: expected [method, [arguments]]", n.Line)
		}
		call := graph.MethodCall{Method: n.Content[0].Value}
		if len(n.Content) == 2 {
			var err error
			if call.Arguments, err = argumentList(resolveAlias(n.Content[1]).Content); err != nil {
				return graph.MethodCall{}, err
			}
		}
		return call, nil
	case yaml.MappingNode:
		var spec struct {
			Method    string      `yaml:"method"`
			Arguments []yaml.Node `yaml:"arguments"`
		}
		if err := n.Decode(&spec); err != nil {
			return graph.MethodCall{}, err
		}
		args, err := argumentList(pointers(spec.Arguments))
		return graph.MethodCall{Method: spec.Method, Arguments: args}, err
	default:
		return graph.MethodCall{}, fmt.Errorf("line %d: call: expected a sequence", n.Line)
	}
}

// tags reads {name: {attrs}} or [name, {name: n, attr: v}].
func tags(d *graph.Definition, n *yaml.Node) error {
	switch n.Kind {
	case 0:
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			var attrs map[string]any
			if err := n.Content[i+1].Decode(&attrs); err != nil {
				return err
			}
			d.AddTag(n.Content[i].Value, attrs)
		}
		return nil
	case yaml.SequenceNode:
		for _, item := range n.Content {
			if item.Kind == yaml.ScalarNode {
				d.AddTag(item.Value, nil)
				continue
			}
			var attrs map[string]any
			if err := item.Decode(&attrs); err != nil {
				return err
			}
			name, _ := attrs["name"].(string)
			if name == "" {
				return fmt.Errorf("line %d: tag without a name", item.Line)
			}
			delete(attrs, "name")
			d.AddTag(name, attrs)
		}
		return nil
	default:
		return fmt.Errorf("line %d: tags: expected a mapping or a sequence", n.Line)
	}
}

func aliasOf(n *yaml.Node) (graph.Alias, error) {
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.ScalarNode:
		return graph.Alias{Target: strings.TrimPrefix(n.Value, "@")}, nil
	case yaml.MappingNode:
		var a struct {
			Target string `yaml:"target"`
			Public bool   `yaml:"public"`
		}
		if err := n.Decode(&a); err != nil {
			return graph.Alias{}, err
		}
		if a.Target == "" {
			return graph.Alias{}, fmt.Errorf("line %d: missing target", n.Line)
		}
		return graph.Alias{Target: strings.TrimPrefix(a.Target, "@"), Public: a.Public}, nil
	default:
		return graph.Alias{}, fmt.Errorf("line %d: expected a name or a mapping", n.Line)
	}
}

// ── Arguments ─────────────────────────────────────────────────────────────────

func argumentList(nodes []*yaml.Node) ([]graph.Argument, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	out := make([]graph.Argument, len(nodes))
	for i, n := range nodes {
		a, err := argument(n)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

func argument(n *yaml.Node) (graph.Argument, error) {
	n = resolveAlias(n)

	switch n.Tag {
	case tagClosure:
		inner, err := argument(untagged(n))
		if err != nil {
			return nil, err
		}
		return graph.Defer(inner), nil
	case tagIterator:
		entries, _, err := entries(untagged(n))
		if err != nil {
			return nil, err
		}
		return graph.LazyCollection{Entries: entries}, nil
	case tagService:
		d, err := definition(untagged(n))
		if err != nil {
			return nil, err
		}
		return graph.Inline(d), nil
	}

	switch n.Kind {
	case yaml.ScalarNode:
		return scalar(n)
	case yaml.SequenceNode, yaml.MappingNode:
		entries, keyed, err := entries(n)
		if err != nil {
			return nil, err
		}
		return graph.Collection{Entries: entries, Keyed: keyed}, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported argument", n.Line)
	}
}

func scalar(n *yaml.Node) (graph.Argument, error) {
	if n.ShortTag() != "!!str" {
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return graph.Value(v), nil
	}

	s := n.Value
	switch {
	case strings.HasPrefix(s, "@@"):
		return graph.Value(s[1:]), nil
	case strings.HasPrefix(s, "@"):
		return graph.Ref(s[1:]), nil
	}
	if path, ok := parameters.ParseReference(s); ok && !parameters.IsEnvPlaceholder(s) {
		return graph.Param(path), nil
	}
	return graph.Value(s), nil
}

func pointers(nodes []yaml.Node) []*yaml.Node {
	out := make([]*yaml.Node, len(nodes))
	for i := range nodes {
		out[i] = &nodes[i]
	}
	return out
}

// entries reads a sequence as positional entries and a mapping as keyed
// entries in document order.
func entries(n *yaml.Node) ([]graph.Entry, bool, error) {
	switch n.Kind {
	case yaml.SequenceNode:
		out := make([]graph.Entry, len(n.Content))
		for i, item := range n.Content {
			v, err := argument(item)
			if err != nil {
				return nil, false, err
			}
			out[i] = graph.Entry{Value: v}
		}
		return out, false, nil
	case yaml.MappingNode:
		out := make([]graph.Entry, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := argument(n.Content[i+1])
			if err != nil {
				return nil, false, err
			}
			out = append(out, graph.Entry{Key: n.Content[i].Value, Value: v})
		}
		return out, true, nil
	default:
		return nil, false, fmt.Errorf("line %d: expected a sequence or a mapping", n.Line)
	}
}

// untagged returns a copy of n with its local tag removed, so the value
// underneath resolves as if untagged.
func untagged(n *yaml.Node) *yaml.Node {
	c := *n
	c.Tag = ""
	return &c
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
