package widget

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/entrhq/widgetry/pkg/locator"
)

// sequence is the process-wide declaration counter. It starts at 0 and
// never resets, so any two declarations are comparable even across
// unrelated view classes.
var sequence atomic.Uint64

func nextSequence() uint64 {
	return sequence.Add(1)
}

// Declaration is the inert description of a field before it is bound to a
// parent. It is immutable once created.
type Declaration struct {
	name     string
	sequence uint64
	builder  Builder
}

// Name returns the field name.
func (d *Declaration) Name() string {
	return d.name
}

// Sequence returns the global declaration order stamp.
func (d *Declaration) Sequence() uint64 {
	return d.sequence
}

// Builder returns the factory that materializes the field.
func (d *Declaration) Builder() Builder {
	return d.builder
}

// Declare creates a standalone declaration, stamping it with the next
// sequence id. Field uses it for view members.
func Declare(name string, builder Builder) *Declaration {
	return &Declaration{name: name, sequence: nextSequence(), builder: builder}
}

// BeforeFillFunc runs once before a view fill touches any field.
type BeforeFillFunc func(v *View, values map[string]any) error

// AfterFillFunc runs once after a view fill, even when nothing was filled.
type AfterFillFunc func(v *View, changed bool) error

// ReadFunc replaces a view's Read. It may call ReadValues for the default
// field-by-field result.
type ReadFunc func(v *View) (any, error)

// ParamsFunc enumerates the valid parameter sets of a parametrized view for
// the current page state. The field gives access to the enclosing scope.
type ParamsFunc func(field *ParametrizedField) ([]Params, error)

// ViewClass is the explicit registration of a view: its ordered fields, its
// ROOT and FRAME locators, parameters and lifecycle hooks. A ViewClass is a
// Builder, so nesting a view is declaring a Field with the class.
type ViewClass struct {
	name       string
	root       locator.Locator
	frame      locator.Locator
	fields     []*Declaration
	index      map[string]*Declaration
	parameters []string
	allParams  ParamsFunc
	beforeFill BeforeFillFunc
	afterFill  AfterFillFunc
	readFn     ReadFunc
	err        error
}

// ViewOption configures a ViewClass under definition.
type ViewOption func(*classDefinition)

type classDefinition struct {
	class   *ViewClass
	extends []*ViewClass
	own     []*Declaration
	errs    []error
}

// DefineView registers a view class. Options are applied in source order;
// Field options stamp their sequence ids when evaluated, which Go does left
// to right, so fields keep their declaration order.
//
// Inherited fields come first in the merged list only by virtue of having
// lower sequence ids; a redeclared name replaces the inherited field and
// takes the position of the new declaration. Declaring the same name twice
// in one definition panics.
func DefineView(name string, opts ...ViewOption) *ViewClass {
	def := &classDefinition{class: &ViewClass{name: name}}
	for _, opt := range opts {
		opt(def)
	}

	class := def.class
	merged := make(map[string]*Declaration)
	for _, parent := range def.extends {
		if class.root.IsZero() {
			class.root = parent.root
		}
		if class.frame.IsZero() {
			class.frame = parent.frame
		}
		if class.parameters == nil {
			class.parameters = parent.parameters
		}
		if class.allParams == nil {
			class.allParams = parent.allParams
		}
		if class.beforeFill == nil {
			class.beforeFill = parent.beforeFill
		}
		if class.afterFill == nil {
			class.afterFill = parent.afterFill
		}
		if class.readFn == nil {
			class.readFn = parent.readFn
		}
		for _, decl := range parent.fields {
			merged[decl.name] = decl
		}
	}

	seen := make(map[string]bool, len(def.own))
	for _, decl := range def.own {
		if seen[decl.name] {
			panic(fmt.Sprintf("widget: view %s declares field %q twice", name, decl.name))
		}
		seen[decl.name] = true
		merged[decl.name] = decl
	}

	class.fields = make([]*Declaration, 0, len(merged))
	for _, decl := range merged {
		class.fields = append(class.fields, decl)
	}
	sort.Slice(class.fields, func(i, j int) bool {
		return class.fields[i].sequence < class.fields[j].sequence
	})
	class.index = merged

	if len(def.errs) > 0 {
		class.err = fmt.Errorf("view %s: %w", name, def.errs[0])
	}
	return class
}

// Field declares a named child widget.
func Field(name string, builder Builder) ViewOption {
	decl := Declare(name, builder)
	return func(def *classDefinition) {
		def.own = append(def.own, decl)
	}
}

// Nested embeds a view class as a child widget. A *ViewClass is already a
// Builder; Nested only reads better in a field list.
func Nested(class *ViewClass) Builder {
	return class
}

// Root sets the view's own anchor. Children of the view are located inside it.
func Root(loc any) ViewOption {
	resolved, err := locator.Resolve(loc)
	return func(def *classDefinition) {
		if err != nil {
			def.errs = append(def.errs, err)
			return
		}
		def.class.root = resolved
	}
}

// Frame makes the view switch into the iframe matched by loc before any
// child lookup.
func Frame(loc any) ViewOption {
	resolved, err := locator.Resolve(loc)
	return func(def *classDefinition) {
		if err != nil {
			def.errs = append(def.errs, err)
			return
		}
		def.class.frame = resolved
	}
}

// Extends inherits the fields, locators, parameters and hooks of parent.
func Extends(parent *ViewClass) ViewOption {
	return func(def *classDefinition) {
		if parent.err != nil {
			def.errs = append(def.errs, parent.err)
		}
		def.extends = append(def.extends, parent)
	}
}

// Parameters declares the ordered parameter names of a parametrized view.
func Parameters(names ...string) ViewOption {
	return func(def *classDefinition) {
		def.class.parameters = append([]string(nil), names...)
	}
}

// AllParameters registers the enumerator used by All, indexing and iteration.
func AllParameters(fn ParamsFunc) ViewOption {
	return func(def *classDefinition) {
		def.class.allParams = fn
	}
}

// BeforeFill registers a hook run before a fill touches any field.
func BeforeFill(fn BeforeFillFunc) ViewOption {
	return func(def *classDefinition) {
		def.class.beforeFill = fn
	}
}

// AfterFill registers a hook run after every fill.
func AfterFill(fn AfterFillFunc) ViewOption {
	return func(def *classDefinition) {
		def.class.afterFill = fn
	}
}

// ReadWith overrides what Read returns for the view, e.g. to collapse a
// composite control into one value.
func ReadWith(fn ReadFunc) ViewOption {
	return func(def *classDefinition) {
		def.class.readFn = fn
	}
}

// Name returns the class name.
func (c *ViewClass) Name() string {
	return c.name
}

// Fields returns the declarations in ascending sequence order.
func (c *ViewClass) Fields() []*Declaration {
	return append([]*Declaration(nil), c.fields...)
}

// FieldNames returns the field names in declaration order.
func (c *ViewClass) FieldNames() []string {
	names := make([]string, len(c.fields))
	for i, decl := range c.fields {
		names[i] = decl.name
	}
	return names
}

// Lookup returns the declaration registered under name.
func (c *ViewClass) Lookup(name string) (*Declaration, bool) {
	decl, ok := c.index[name]
	return decl, ok
}

// ParameterNames returns the declared parameters of a parametrized view.
func (c *ViewClass) ParameterNames() []string {
	return append([]string(nil), c.parameters...)
}

// Err returns the first definition error, such as an invalid locator.
func (c *ViewClass) Err() error {
	return c.err
}

// Build materializes the class as a nested view of parent.
func (c *ViewClass) Build(parent Widget) (Widget, error) {
	if parent == nil {
		return nil, fmt.Errorf("view %s: %w", c.name, errNoParent)
	}
	return c.instantiate(parent, parent.Browser(), nil)
}

func (c *ViewClass) instantiate(parent Widget, browser *Browser, params map[string]any) (*View, error) {
	if c.err != nil {
		return nil, c.err
	}
	v := &View{
		Base: Base{
			parent:  parent,
			browser: browser,
			kind:    c.name,
			root:    c.root,
			frame:   c.frame,
			params:  params,
		},
		class: c,
		cache: make(map[cacheKey]Widget),
	}
	return v, nil
}
