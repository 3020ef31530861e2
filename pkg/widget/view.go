package widget

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// cacheKey identifies a materialized child: the declaration plus, for
// polymorphic fields, which variant was selected.
type cacheKey struct {
	decl    *Declaration
	variant int
}

const plainVariant = -1

// selector is implemented by polymorphic builders. selectVariant runs on
// every access; only the materialized variant is cached.
type selector interface {
	selectVariant(owner *View, name string) (int, Builder, error)
}

// View is a bound instance of a ViewClass. It lazily materializes its
// fields and caches them for its own lifetime. The cache is never shared
// with other instances of the same class.
type View struct {
	Base
	class *ViewClass

	mu    sync.Mutex
	cache map[cacheKey]Widget
}

// Class returns the view's class.
func (v *View) Class() *ViewClass {
	return v.class
}

// Params returns the parameters this view was instantiated with.
func (v *View) Params() Params {
	out := make(Params, len(v.params))
	for k, val := range v.params {
		out[k] = val
	}
	return out
}

// Child returns the widget declared under name, materializing it on first
// access. Repeated calls return the identical instance, except for
// polymorphic fields whose variant is re-selected on every access.
func (v *View) Child(name string) (Widget, error) {
	decl, ok := v.class.index[name]
	if !ok {
		return nil, fmt.Errorf("%s has no field %q", v.Path(), name)
	}
	return v.materialize(decl)
}

// MustChild is like Child but panics on error.
func (v *View) MustChild(name string) Widget {
	w, err := v.Child(name)
	if err != nil {
		panic(err)
	}
	return w
}

// Nested returns the child view declared under name.
func (v *View) Nested(name string) (*View, error) {
	w, err := v.Child(name)
	if err != nil {
		return nil, err
	}
	nested, ok := w.(*View)
	if !ok {
		return nil, fmt.Errorf("%s.%s is a %T, not a view", v.Path(), name, w)
	}
	return nested, nil
}

// Children returns every materialized field in declaration order.
func (v *View) Children() ([]Widget, error) {
	children := make([]Widget, 0, len(v.class.fields))
	for _, decl := range v.class.fields {
		w, err := v.materialize(decl)
		if err != nil {
			return nil, err
		}
		children = append(children, w)
	}
	return children, nil
}

func (v *View) materialize(decl *Declaration) (Widget, error) {
	variant := plainVariant
	builder := decl.builder
	if sel, ok := builder.(selector); ok {
		var err error
		variant, builder, err = sel.selectVariant(v, decl.name)
		if err != nil {
			return nil, err
		}
	}
	return v.bind(cacheKey{decl: decl, variant: variant}, decl.name, builder)
}

func (v *View) bind(key cacheKey, name string, builder Builder) (Widget, error) {
	v.mu.Lock()
	if w, ok := v.cache[key]; ok {
		v.mu.Unlock()
		return w, nil
	}
	v.mu.Unlock()

	w, err := builder.Build(v)
	if err != nil {
		return nil, fmt.Errorf("build %s.%s: %w", v.Path(), name, err)
	}
	w.core().name = name

	v.mu.Lock()
	defer v.mu.Unlock()
	if existing, ok := v.cache[key]; ok {
		return existing, nil
	}
	v.cache[key] = w
	return w, nil
}

// Displayed reports whether the view is visible. A view with its own ROOT
// or FRAME checks its anchor; a transparent view is displayed when any of
// its children is.
func (v *View) Displayed() (bool, error) {
	if !v.root.IsZero() || !v.frame.IsZero() {
		return v.Base.Displayed()
	}
	children, err := v.Children()
	if err != nil {
		return false, err
	}
	for _, child := range children {
		displayed, err := child.Displayed()
		if err != nil {
			return false, err
		}
		if displayed {
			return true, nil
		}
	}
	return false, nil
}

// Read returns the result of the class's ReadWith function when one is
// set, and ReadValues otherwise.
func (v *View) Read() (any, error) {
	if v.class.readFn != nil {
		return v.class.readFn(v)
	}
	return v.ReadValues()
}

// ReadValues reads every readable field in declaration order. Fields that
// are not Readers, or whose Read returns ErrSkip, are omitted.
func (v *View) ReadValues() (*Values, error) {
	logger := v.browser.logger
	values := NewValues()
	for _, decl := range v.class.fields {
		w, err := v.materialize(decl)
		if err != nil {
			return nil, err
		}
		reader, ok := w.(Reader)
		if !ok {
			continue
		}
		value, err := reader.Read()
		if errors.Is(err, ErrSkip) {
			logger.Debugf("%s skipped on read", w.Path())
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", w.Path(), err)
		}
		values.Set(decl.name, value)
	}
	return values, nil
}

// Fill sets the view's fields from a mapping. Dotted keys are expanded
// into nested mappings and nil values are dropped. Fields are filled in
// declaration order regardless of the mapping's order. Unknown keys and
// fields that cannot be filled are logged and skipped. Fill reports
// whether any field changed.
func (v *View) Fill(value any) (bool, error) {
	raw, ok := asMap(value)
	if !ok {
		return false, fmt.Errorf("fill %s: expected a mapping, got %T", v.Path(), value)
	}
	values, err := expandDotted(raw)
	if err != nil {
		return false, fmt.Errorf("fill %s: %w", v.Path(), err)
	}

	logger := v.browser.logger
	unknown := make([]string, 0)
	for key := range values {
		if _, ok := v.class.index[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		logger.Warnf("%s has no field %q, ignoring it", v.Path(), key)
	}

	if v.class.beforeFill != nil {
		if err := v.class.beforeFill(v, values); err != nil {
			return false, fmt.Errorf("before fill %s: %w", v.Path(), err)
		}
	}

	changed := false
	for _, decl := range v.class.fields {
		value, ok := values[decl.name]
		if !ok {
			continue
		}
		w, err := v.materialize(decl)
		if err != nil {
			return changed, err
		}
		filler, ok := w.(Filler)
		if !ok {
			logger.Warnf("skipping fill: %v", &FillTypeMismatchError{Path: w.Path(), Widget: fmt.Sprintf("%T", w)})
			continue
		}
		fieldChanged, err := filler.Fill(value)
		var mismatch *FillTypeMismatchError
		if errors.As(err, &mismatch) {
			logger.Warnf("skipping fill: %v", mismatch)
			continue
		}
		if err != nil {
			return changed, fmt.Errorf("fill %s: %w", w.Path(), err)
		}
		logger.Verbosef("filled %s (changed=%t)", w.Path(), fieldChanged)
		changed = changed || fieldChanged
	}

	if v.class.afterFill != nil {
		if err := v.class.afterFill(v, changed); err != nil {
			return changed, fmt.Errorf("after fill %s: %w", v.Path(), err)
		}
	}
	return changed, nil
}
