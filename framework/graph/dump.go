package graph

import (
	"bytes"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	dierrors "github.com/km-arc/go-dibridge/framework/errors"
)

// Dump renders the graph as YAML. Output is a pure function of the graph:
// definitions and aliases in insertion order, map keys sorted. Two graphs
// with identical dumps are identical for every purpose of this module.
//
// The notation matches what framework/loader reads:
//
//	parameters:
//	    mailer.transport: smtp
//	services:
//	    mailer:
//	        class: app.Mailer
//	        arguments: ['%mailer.transport%', '@logger', !closure '@cache']
//	aliases:
//	    app.Mailer: {target: mailer}
func (g *ContainerGraph) Dump() ([]byte, error) {
	root := mappingNode()

	if params := g.Parameters.All(); len(params) > 0 {
		n := &yaml.Node{}
		if err := n.Encode(params); err != nil {
			return nil, err
		}
		appendPair(root, "parameters", n)
	}

	if len(g.definitionOrder) > 0 {
		services := mappingNode()
		for _, name := range g.definitionOrder {
			n, err := definitionNode(g.definitions[name])
			if err != nil {
				return nil, err
			}
			appendPair(services, name, n)
		}
		appendPair(root, "services", services)
	}

	if len(g.aliasOrder) > 0 {
		aliases := mappingNode()
		for _, name := range g.aliasOrder {
			a := g.aliases[name]
			n := mappingNode()
			n.Style = yaml.FlowStyle
			appendPair(n, "target", scalarNode(a.Target))
			if a.Public {
				appendPair(n, "public", boolNode(true))
			}
			appendPair(aliases, name, n)
		}
		appendPair(root, "aliases", aliases)
	}

	if len(g.resources) > 0 {
		res := &yaml.Node{Kind: yaml.SequenceNode}
		for _, r := range g.resources {
			res.Content = append(res.Content, scalarNode(r))
		}
		appendPair(root, "resources", res)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(4)
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func definitionNode(d *Definition) (*yaml.Node, error) {
	n := mappingNode()

	if d.Type != "" {
		appendPair(n, "class", scalarNode(d.Type))
	}

	if d.Factory != nil {
		target, err := ArgumentNode(d.Factory.Target)
		if err != nil {
			return nil, dierrors.Wrap(d.Name, err)
		}
		f := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		f.Content = []*yaml.Node{target, scalarNode(d.Factory.Method)}
		appendPair(n, "factory", f)
	}

	if len(d.Arguments) > 0 {
		args, err := argumentsNode(d.Arguments)
		if err != nil {
			return nil, dierrors.Wrap(d.Name, err)
		}
		appendPair(n, "arguments", args)
	}

	if len(d.Calls) > 0 {
		calls := &yaml.Node{Kind: yaml.SequenceNode}
		for _, call := range d.Calls {
			args, err := argumentsNode(call.Arguments)
			if err != nil {
				return nil, dierrors.Wrap(d.Name, err)
			}
			c := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
			c.Content = []*yaml.Node{scalarNode(call.Method), args}
			calls.Content = append(calls.Content, c)
		}
		appendPair(n, "calls", calls)
	}

	if len(d.Tags) > 0 {
		names := make([]string, 0, len(d.Tags))
		for name := range d.Tags {
			names = append(names, name)
		}
		sort.Strings(names)
		tags := mappingNode()
		for _, name := range names {
			attrs := &yaml.Node{}
			if err := attrs.Encode(d.Tags[name]); err != nil {
				return nil, err
			}
			attrs.Style = yaml.FlowStyle
			appendPair(tags, name, attrs)
		}
		appendPair(n, "tags", tags)
	}

	for _, flag := range []struct {
		key string
		on  bool
	}{
		{"public", d.Public},
		{"synthetic", d.Synthetic},
		{"abstract", d.Abstract},
		{"autowired", d.Autowired},
	} {
		if flag.on {
			appendPair(n, flag.key, boolNode(true))
		}
	}

	if d.Origin != "" {
		appendPair(n, "origin", scalarNode(d.Origin+":"+d.OriginName))
	}

	return n, nil
}

func argumentsNode(args []Argument) (*yaml.Node, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, a := range args {
		n, err := ArgumentNode(a)
		if err != nil {
			return nil, err
		}
		seq.Content = append(seq.Content, n)
	}
	return seq, nil
}

// ArgumentNode renders one argument in loader notation.
func ArgumentNode(a Argument) (*yaml.Node, error) {
	switch v := a.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case Literal:
		value := v.Value
		if s, ok := value.(string); ok && strings.HasPrefix(s, "@") {
			value = "@" + s
		}
		n := &yaml.Node{}
		if err := n.Encode(value); err != nil {
			return nil, err
		}
		return n, nil
	case ParameterRef:
		return scalarNode("%" + v.Path + "%"), nil
	case ServiceRef:
		return scalarNode("@" + v.Name), nil
	case Collection:
		return entriesNode(v.Entries, v.Keyed)
	case LazyCollection:
		n, err := entriesNode(v.Entries, len(v.Entries) > 0 && v.Entries[0].Key != "")
		if err != nil {
			return nil, err
		}
		n.Tag = "!iterator"
		return n, nil
	case Closure:
		n, err := ArgumentNode(v.Inner)
		if err != nil {
			return nil, err
		}
		n.Tag = "!closure"
		return n, nil
	case InlineDefinition:
		n, err := definitionNode(v.Definition)
		if err != nil {
			return nil, err
		}
		n.Tag = "!service"
		return n, nil
	default:
		return nil, dierrors.UnsupportedArgument("", "", a)
	}
}

func entriesNode(entries []Entry, keyed bool) (*yaml.Node, error) {
	kind := yaml.SequenceNode
	if keyed {
		kind = yaml.MappingNode
	}
	n := &yaml.Node{Kind: kind, Style: yaml.FlowStyle}
	for _, e := range entries {
		value, err := ArgumentNode(e.Value)
		if err != nil {
			return nil, err
		}
		if keyed {
			n.Content = append(n.Content, scalarNode(e.Key))
		}
		n.Content = append(n.Content, value)
	}
	return n, nil
}

// ── yaml.Node helpers ─────────────────────────────────────────────────────────

func mappingNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode}
}

func scalarNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func boolNode(b bool) *yaml.Node {
	v := "false"
	if b {
		v = "true"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v}
}

func appendPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, scalarNode(key), value)
}
