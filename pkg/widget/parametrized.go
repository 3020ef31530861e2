package widget

import (
	"fmt"
	"iter"
	"slices"
	"sort"
	"strings"

	"github.com/entrhq/widgetry/pkg/locator"
)

// ParametrizedField is the entry point of a parametrized view. Calling it
// with parameters yields a fresh view whose locators render against the
// parent's context merged with those parameters.
type ParametrizedField struct {
	Base
	class *ViewClass
}

type parametrizedBuilder struct {
	class *ViewClass
}

// Parametrized declares a field giving access to instances of a view class
// declared with Parameters.
func Parametrized(class *ViewClass) Builder {
	return parametrizedBuilder{class: class}
}

func (p parametrizedBuilder) Build(parent Widget) (Widget, error) {
	if parent == nil {
		return nil, fmt.Errorf("parametrized %s: %w", p.class.name, errNoParent)
	}
	if err := p.class.Err(); err != nil {
		return nil, err
	}
	base := NewBase(parent, locator.Locator{})
	base.kind = p.class.name
	return newParametrizedField(base, p.class), nil
}

func newParametrizedField(base Base, class *ViewClass) *ParametrizedField {
	return &ParametrizedField{Base: base, class: class}
}

// Class returns the parametrized view class.
func (p *ParametrizedField) Class() *ViewClass {
	return p.class
}

// Call binds an instance. Arguments are positional values in parameter
// order, a Params mapping, or positional values followed by a mapping for
// the rest. Every declared parameter must be supplied.
func (p *ParametrizedField) Call(args ...any) (*View, error) {
	params, err := p.bindArgs(args)
	if err != nil {
		return nil, err
	}
	return p.instance(params)
}

// MustCall is like Call but panics on error.
func (p *ParametrizedField) MustCall(args ...any) *View {
	v, err := p.Call(args...)
	if err != nil {
		panic(err)
	}
	return v
}

func (p *ParametrizedField) bindArgs(args []any) (Params, error) {
	names := p.class.parameters
	params := make(Params, len(names))
	positional := 0
	for i, arg := range args {
		if m, ok := arg.(map[string]any); ok {
			if i != len(args)-1 {
				return nil, fmt.Errorf("%s: parameter mapping must be the last argument", p.Path())
			}
			for k, v := range m {
				if !slices.Contains(names, k) {
					return nil, fmt.Errorf("%s: unknown parameter %q", p.Path(), k)
				}
				if _, dup := params[k]; dup {
					return nil, fmt.Errorf("%s: parameter %q given twice", p.Path(), k)
				}
				params[k] = v
			}
			continue
		}
		if positional >= len(names) {
			return nil, fmt.Errorf("%s: takes %d parameters, got more", p.Path(), len(names))
		}
		params[names[positional]] = arg
		positional++
	}
	for _, name := range names {
		if _, ok := params[name]; !ok {
			return nil, fmt.Errorf("%s: missing parameter %q", p.Path(), name)
		}
	}
	return params, nil
}

func (p *ParametrizedField) instance(params Params) (*View, error) {
	v, err := p.class.instantiate(p, p.browser, params)
	if err != nil {
		return nil, err
	}
	v.name = instanceName(p.class, params)
	return v, nil
}

func instanceName(class *ViewClass, params Params) string {
	names := class.parameters
	if len(names) == 0 {
		for k := range params {
			names = append(names, k)
		}
		sort.Strings(names)
	}
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%v", name, params[name])
	}
	return class.name + "(" + strings.Join(parts, ", ") + ")"
}

// All returns the parameter sets valid for the current page state.
func (p *ParametrizedField) All() ([]Params, error) {
	if p.class.allParams == nil {
		return nil, fmt.Errorf("%s: view %s has no parameter enumerator", p.Path(), p.class.name)
	}
	all, err := p.class.allParams(p)
	if err != nil {
		return nil, fmt.Errorf("%s: enumerate parameters: %w", p.Path(), err)
	}
	return all, nil
}

// Len returns the number of valid parameter sets.
func (p *ParametrizedField) Len() (int, error) {
	all, err := p.All()
	return len(all), err
}

// Index binds the instance for the i-th parameter set. Negative indexes
// count from the end.
func (p *ParametrizedField) Index(i int) (*View, error) {
	all, err := p.All()
	if err != nil {
		return nil, err
	}
	if i < 0 {
		i += len(all)
	}
	if i < 0 || i >= len(all) {
		return nil, fmt.Errorf("%s: index %d out of range [0, %d)", p.Path(), i, len(all))
	}
	return p.instance(all[i])
}

// Slice binds the instances for parameter sets [i, j). Bounds are clamped
// and negative bounds count from the end.
func (p *ParametrizedField) Slice(i, j int) ([]*View, error) {
	all, err := p.All()
	if err != nil {
		return nil, err
	}
	i, j = clampRange(i, j, len(all))
	views := make([]*View, 0, j-i)
	for _, params := range all[i:j] {
		v, err := p.instance(params)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func clampRange(i, j, n int) (int, int) {
	norm := func(x int) int {
		if x < 0 {
			x += n
		}
		return min(max(x, 0), n)
	}
	i, j = norm(i), norm(j)
	if j < i {
		j = i
	}
	return i, j
}

// Iter yields a fresh instance per parameter set. Enumeration happens when
// the sequence is ranged over, so each traversal sees the current page.
func (p *ParametrizedField) Iter() iter.Seq2[*View, error] {
	return func(yield func(*View, error) bool) {
		all, err := p.All()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, params := range all {
			v, err := p.instance(params)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// Each calls fn for every instance, stopping at the first error.
func (p *ParametrizedField) Each(fn func(v *View) error) error {
	for v, err := range p.Iter() {
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// Displayed reports whether any instance is displayed. Without an
// enumerator it reports whether the enclosing scope is displayed.
func (p *ParametrizedField) Displayed() (bool, error) {
	if p.class.allParams == nil {
		return p.Base.Displayed()
	}
	for v, err := range p.Iter() {
		if err != nil {
			return false, err
		}
		displayed, err := v.Displayed()
		if err != nil {
			return false, err
		}
		if displayed {
			return true, nil
		}
	}
	return false, nil
}

// Read reads every instance in enumeration order. Without an enumerator
// there is nothing to read and the field is skipped.
func (p *ParametrizedField) Read() (any, error) {
	if p.class.allParams == nil {
		return nil, ErrSkip
	}
	var out []*Values
	for v, err := range p.Iter() {
		if err != nil {
			return nil, err
		}
		values, err := v.ReadValues()
		if err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, nil
}

// Fill fills instances positionally from a list of mappings. A nil entry
// leaves its instance untouched.
func (p *ParametrizedField) Fill(value any) (bool, error) {
	items, ok := asList(value)
	if !ok {
		return false, &FillTypeMismatchError{Path: p.Path(), Widget: fmt.Sprintf("list fill with %T", value)}
	}
	all, err := p.All()
	if err != nil {
		return false, err
	}
	if len(items) > len(all) {
		return false, fmt.Errorf("%s: %d values for %d instances", p.Path(), len(items), len(all))
	}
	changed := false
	for i, item := range items {
		if item == nil {
			continue
		}
		v, err := p.instance(all[i])
		if err != nil {
			return changed, err
		}
		c, err := v.Fill(item)
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}
	return changed, nil
}

func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []*Values:
		out := make([]any, len(v))
		for i, item := range v {
			if item != nil {
				out[i] = item
			}
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			if item != nil {
				out[i] = item
			}
		}
		return out, true
	}
	return nil, false
}

// ParamsFromAttribute enumerates one parameter set per element matching
// loc, taking param from the element's attr attribute.
func ParamsFromAttribute(loc any, attr, param string) ParamsFunc {
	resolved, err := locator.Resolve(loc)
	return func(field *ParametrizedField) ([]Params, error) {
		if err != nil {
			return nil, err
		}
		var all []Params
		err := field.FindAll(resolved, func(d Driver, els []Element) error {
			for _, el := range els {
				value, ok, err := d.Attribute(el, attr)
				if err != nil {
					return err
				}
				if ok {
					all = append(all, Params{param: value})
				}
			}
			return nil
		})
		return all, err
	}
}
