// Package viewdef compiles YAML view definitions into widget view classes,
// so pages can be described without writing Go.
//
//	views:
//	  - name: Login
//	    root: "#login"
//	    fields:
//	      - {name: username, kind: input, locator: "#username"}
//	      - {name: remember, kind: checkbox, locator: "#remember"}
package viewdef

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/widgetry/pkg/locator"
	"github.com/entrhq/widgetry/pkg/widget"
)

// Registry holds compiled view classes by name.
type Registry struct {
	classes map[string]*widget.ViewClass
	order   []string
}

// Get returns the class registered under name.
func (r *Registry) Get(name string) (*widget.ViewClass, bool) {
	class, ok := r.classes[name]
	return class, ok
}

// Names returns the view names in the order they were defined.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Load reads and compiles a view definition file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read views file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and compiles a view definition document.
func Parse(data []byte) (*Registry, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse views: %w", err)
	}
	return Compile(doc)
}

// Compile turns a document into view classes. Views may reference views
// defined later in the document; cycles are rejected.
func Compile(doc Document) (*Registry, error) {
	c := &compiler{
		defs:      make(map[string]*ViewDef, len(doc.Views)),
		compiling: make(map[string]bool),
		reg:       &Registry{classes: make(map[string]*widget.ViewClass)},
	}
	for i := range doc.Views {
		def := &doc.Views[i]
		if def.Name == "" {
			return nil, fmt.Errorf("view %d: name is required", i)
		}
		if _, dup := c.defs[def.Name]; dup {
			return nil, fmt.Errorf("view %q defined twice", def.Name)
		}
		c.defs[def.Name] = def
		c.reg.order = append(c.reg.order, def.Name)
	}

	for _, name := range c.reg.order {
		if _, err := c.class(name); err != nil {
			return nil, err
		}
	}
	return c.reg, nil
}

type compiler struct {
	defs      map[string]*ViewDef
	compiling map[string]bool
	reg       *Registry
}

func (c *compiler) class(name string) (*widget.ViewClass, error) {
	if class, ok := c.reg.classes[name]; ok {
		return class, nil
	}
	def, ok := c.defs[name]
	if !ok {
		return nil, fmt.Errorf("unknown view %q", name)
	}
	if c.compiling[name] {
		return nil, fmt.Errorf("view %q references itself", name)
	}
	c.compiling[name] = true
	defer delete(c.compiling, name)

	opts, err := c.viewOptions(def)
	if err != nil {
		return nil, fmt.Errorf("view %q: %w", name, err)
	}

	var class *widget.ViewClass
	if err := catch(func() { class = widget.DefineView(name, opts...) }); err != nil {
		return nil, err
	}
	if err := class.Err(); err != nil {
		return nil, err
	}
	c.reg.classes[name] = class
	return class, nil
}

func (c *compiler) viewOptions(def *ViewDef) ([]widget.ViewOption, error) {
	var opts []widget.ViewOption

	if def.Extends != "" {
		parent, err := c.class(def.Extends)
		if err != nil {
			return nil, err
		}
		opts = append(opts, widget.Extends(parent))
	}
	if def.Root != nil {
		loc, err := resolve(def.Root)
		if err != nil {
			return nil, fmt.Errorf("root: %w", err)
		}
		opts = append(opts, widget.Root(loc))
	}
	if def.Frame != nil {
		loc, err := resolve(def.Frame)
		if err != nil {
			return nil, fmt.Errorf("frame: %w", err)
		}
		opts = append(opts, widget.Frame(loc))
	}
	if len(def.Parameters) > 0 {
		opts = append(opts, widget.Parameters(def.Parameters...))
	}
	if src := def.AllParameters; src != nil {
		loc, err := resolve(src.Locator)
		if err != nil {
			return nil, fmt.Errorf("all_parameters: %w", err)
		}
		if src.Attribute == "" {
			return nil, errors.New("all_parameters: attribute is required")
		}
		param := src.Parameter
		if param == "" {
			if len(def.Parameters) != 1 {
				return nil, errors.New("all_parameters: parameter is required unless the view has exactly one")
			}
			param = def.Parameters[0]
		}
		opts = append(opts, widget.AllParameters(widget.ParamsFromAttribute(loc, src.Attribute, param)))
	}

	for i := range def.Fields {
		field := &def.Fields[i]
		if field.Name == "" {
			return nil, fmt.Errorf("field %d: name is required", i)
		}
		builder, err := c.builder(field)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Name, err)
		}
		opts = append(opts, widget.Field(field.Name, builder))
	}
	return opts, nil
}

func (c *compiler) builder(f *FieldDef) (widget.Builder, error) {
	switch f.Kind {
	case KindText, KindInput, KindCheckbox, KindButton, KindSelect:
		loc, err := resolve(f.Locator)
		if err != nil {
			return nil, err
		}
		return leaf(f.Kind, loc), nil
	case KindView:
		class, err := c.class(f.View)
		if err != nil {
			return nil, err
		}
		return widget.Nested(class), nil
	case KindParametrized:
		class, err := c.class(f.View)
		if err != nil {
			return nil, err
		}
		return widget.Parametrized(class), nil
	case KindTable:
		return c.table(f)
	case KindConditional:
		return c.conditional(f)
	case KindVersionPick:
		return c.versionPick(f)
	case "":
		return nil, errors.New("kind is required")
	}
	return nil, fmt.Errorf("unknown kind %q", f.Kind)
}

func leaf(kind string, loc locator.Locator) widget.Builder {
	switch kind {
	case KindText:
		return widget.Text(loc)
	case KindInput:
		return widget.Input(loc)
	case KindCheckbox:
		return widget.Checkbox(loc)
	case KindButton:
		return widget.Button(loc)
	default:
		return widget.Select(loc)
	}
}

func (c *compiler) table(f *FieldDef) (widget.Builder, error) {
	loc, err := resolve(f.Locator)
	if err != nil {
		return nil, err
	}

	var opts []widget.TableOption
	if f.Header != nil {
		header, err := resolve(f.Header)
		if err != nil {
			return nil, fmt.Errorf("header: %w", err)
		}
		opts = append(opts, widget.HeaderRow(header))
	}
	if f.Rows != nil {
		rows, err := resolve(f.Rows)
		if err != nil {
			return nil, fmt.Errorf("rows: %w", err)
		}
		opts = append(opts, widget.BodyRows(rows))
	}
	if f.Associative != "" {
		opts = append(opts, widget.Associative(f.Associative))
	}
	for i := range f.Columns {
		col := &f.Columns[i]
		builder, err := c.builder(&col.Widget)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		switch {
		case col.Index != nil:
			opts = append(opts, widget.ColumnWidgetAt(*col.Index, builder))
		case col.Column != "":
			opts = append(opts, widget.ColumnWidget(col.Column, builder))
		default:
			return nil, fmt.Errorf("column %d: column or index is required", i)
		}
	}
	if f.RowAdder != "" {
		opts = append(opts, widget.RowAdder(clickSibling(f.RowAdder)))
	}
	return widget.NewTable(loc, opts...), nil
}

// clickSibling adds rows by clicking the named button of the view that
// holds the table.
func clickSibling(name string) widget.RowAdderFunc {
	return func(t *widget.Table) error {
		view, ok := t.Parent().(*widget.View)
		if !ok {
			return fmt.Errorf("row adder %q: table is not inside a view", name)
		}
		child, err := view.Child(name)
		if err != nil {
			return fmt.Errorf("row adder: %w", err)
		}
		button, ok := child.(*widget.ButtonWidget)
		if !ok {
			return fmt.Errorf("row adder %q is %T, not a button", name, child)
		}
		return button.Click()
	}
}

func (c *compiler) conditional(f *FieldDef) (widget.Builder, error) {
	if len(f.On) == 0 {
		return nil, errors.New("conditional: on is required")
	}
	cases := make([]widget.Case, 0, len(f.Cases))
	defaults := 0
	for i := range f.Cases {
		cd := &f.Cases[i]
		builder, err := c.builder(&cd.Widget)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
		if cd.Default {
			defaults++
			cases = append(cases, widget.Default(builder))
			continue
		}
		cases = append(cases, widget.When(equals(cd.Equals, len(f.On)), builder))
	}
	if defaults > 1 {
		return nil, errors.New("conditional: more than one default case")
	}
	return widget.Conditional(f.On, cases...), nil
}

// equals compares by printed form, since YAML scalars and widget values
// rarely share a Go type.
func equals(want any, refs int) widget.Predicate {
	if refs > 1 {
		wants, _ := want.([]any)
		return func(values ...any) bool {
			if len(wants) != len(values) {
				return false
			}
			for i := range values {
				if fmt.Sprint(values[i]) != fmt.Sprint(wants[i]) {
					return false
				}
			}
			return true
		}
	}
	return func(values ...any) bool {
		return len(values) > 0 && fmt.Sprint(values[0]) == fmt.Sprint(want)
	}
}

func (c *compiler) versionPick(f *FieldDef) (widget.Builder, error) {
	if len(f.Versions) == 0 {
		return nil, errors.New("version_pick: versions are required")
	}
	variants := make(map[string]widget.Builder, len(f.Versions))
	for version, def := range f.Versions {
		builder, err := c.builder(&def)
		if err != nil {
			return nil, fmt.Errorf("version %q: %w", version, err)
		}
		variants[version] = builder
	}
	return widget.VersionPick(variants), nil
}

// resolve accepts YAML sequences as [strategy, value] pairs.
func resolve(input any) (locator.Locator, error) {
	if input == nil {
		return locator.Locator{}, errors.New("locator is required")
	}
	if seq, ok := input.([]any); ok {
		pair := make([]string, len(seq))
		for i, v := range seq {
			s, ok := v.(string)
			if !ok {
				return locator.Locator{}, fmt.Errorf("locator pair element %d is not a string", i)
			}
			pair[i] = s
		}
		input = pair
	}
	return locator.Resolve(input)
}

func catch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	fn()
	return nil
}
