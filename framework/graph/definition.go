package graph

// Definition is a declarative recipe for one named service.
type Definition struct {
	Name string

	// Type is the implementing type identifier. Empty for synthetic or
	// abstract definitions that have none.
	Type string

	Factory   *Factory
	Arguments []Argument
	Calls     []MethodCall

	// Tags maps a tag name to its attributes.
	Tags map[string]map[string]any

	Public    bool
	Synthetic bool
	Abstract  bool
	Autowired bool

	// Origin names the model whose runtime supplies a synthetic instance,
	// OriginName the service name over there. Both are empty for services
	// this graph constructs itself.
	Origin     string
	OriginName string
}

// Factory builds a service through Target.Method instead of a constructor.
// Target is a Literal type name (static factory), a ServiceRef or an
// InlineDefinition.
type Factory struct {
	Target Argument
	Method string
}

// MethodCall is invoked on the instance after construction.
type MethodCall struct {
	Method    string
	Arguments []Argument
}

// NewDefinition creates a private, non-autowired definition of typeName.
func NewDefinition(typeName string, args ...Argument) *Definition {
	return &Definition{Type: typeName, Arguments: args}
}

// ── Fluent setters ────────────────────────────────────────────────────────────

func (d *Definition) SetType(typeName string) *Definition {
	d.Type = typeName
	return d
}

func (d *Definition) SetArguments(args ...Argument) *Definition {
	d.Arguments = args
	return d
}

func (d *Definition) SetFactory(target Argument, method string) *Definition {
	d.Factory = &Factory{Target: target, Method: method}
	return d
}

func (d *Definition) AddCall(method string, args ...Argument) *Definition {
	d.Calls = append(d.Calls, MethodCall{Method: method, Arguments: args})
	return d
}

// AddTag adds or replaces a tag. Nil attributes are stored as an empty map.
func (d *Definition) AddTag(name string, attributes map[string]any) *Definition {
	if d.Tags == nil {
		d.Tags = make(map[string]map[string]any)
	}
	if attributes == nil {
		attributes = map[string]any{}
	}
	d.Tags[name] = attributes
	return d
}

func (d *Definition) HasTag(name string) bool {
	_, ok := d.Tags[name]
	return ok
}

func (d *Definition) SetPublic(public bool) *Definition {
	d.Public = public
	return d
}

func (d *Definition) SetAutowired(autowired bool) *Definition {
	d.Autowired = autowired
	return d
}

func (d *Definition) SetSynthetic(synthetic bool) *Definition {
	d.Synthetic = synthetic
	return d
}

func (d *Definition) SetAbstract(abstract bool) *Definition {
	d.Abstract = abstract
	return d
}

// Mirror marks d as supplied by another model's runtime under originName.
func (d *Definition) Mirror(origin, originName string) *Definition {
	d.Synthetic = true
	d.Origin = origin
	d.OriginName = originName
	return d
}

// Mirrored reports whether d is supplied by another model's runtime.
func (d *Definition) Mirrored() bool {
	return d.Synthetic && d.Origin != ""
}

// Clone returns a deep copy. Inline definitions shared between positions
// stay shared in the copy.
func (d *Definition) Clone() *Definition {
	return cloner{}.definition(d)
}
