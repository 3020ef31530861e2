package widget

import (
	"errors"
	"fmt"
	"reflect"
)

// Predicate decides a conditional case from the current values of the
// reference fields, passed in reference order.
type Predicate func(values ...any) bool

// Case is one branch of a conditional field.
type Case struct {
	predicate Predicate
	builder   Builder
	isDefault bool
}

// When registers a case chosen when pred holds.
func When(pred Predicate, builder Builder) Case {
	return Case{predicate: pred, builder: builder}
}

// WhenEquals registers a case chosen when the first reference value equals value.
func WhenEquals(value any, builder Builder) Case {
	return When(func(values ...any) bool {
		return len(values) > 0 && reflect.DeepEqual(values[0], value)
	}, builder)
}

// Default registers the case used when no other case matches.
func Default(builder Builder) Case {
	return Case{builder: builder, isDefault: true}
}

// ConditionalBuilder switches between builders according to the current
// values of sibling fields.
type ConditionalBuilder struct {
	refs     []string
	cases    []Case
	fallback int
}

// Conditional declares a field whose implementation depends on the values
// of the sibling fields named by refs. The values are read fresh on every
// access. The first matching non-default case wins regardless of where
// the default case was registered. Registering two defaults panics.
func Conditional(refs []string, cases ...Case) *ConditionalBuilder {
	cb := &ConditionalBuilder{refs: append([]string(nil), refs...), fallback: -1}
	for i, c := range cases {
		if c.isDefault {
			if cb.fallback >= 0 {
				panic("widget: conditional declares more than one default case")
			}
			cb.fallback = i
		}
	}
	cb.cases = append([]Case(nil), cases...)
	return cb
}

func (cb *ConditionalBuilder) selectVariant(owner *View, name string) (int, Builder, error) {
	values := make([]any, len(cb.refs))
	for i, ref := range cb.refs {
		if ref == name {
			return 0, nil, fmt.Errorf("%s.%s references itself", owner.Path(), name)
		}
		w, err := owner.Child(ref)
		if err != nil {
			return 0, nil, err
		}
		reader, ok := w.(Reader)
		if !ok {
			return 0, nil, fmt.Errorf("%s.%s: reference %s cannot be read", owner.Path(), name, w.Path())
		}
		value, err := reader.Read()
		if err != nil && !errors.Is(err, ErrSkip) {
			return 0, nil, fmt.Errorf("%s.%s: read reference %s: %w", owner.Path(), name, w.Path(), err)
		}
		values[i] = value
	}

	for i, c := range cb.cases {
		if c.isDefault || c.predicate == nil {
			continue
		}
		if c.predicate(values...) {
			return i, c.builder, nil
		}
	}
	if cb.fallback >= 0 {
		return cb.fallback, cb.cases[cb.fallback].builder, nil
	}
	return 0, nil, &ConditionalUnresolvedError{Path: owner.Path() + "." + name, Values: values}
}

// Build resolves the case against parent, which must be a view owning the
// reference fields.
func (cb *ConditionalBuilder) Build(parent Widget) (Widget, error) {
	owner, ok := parent.(*View)
	if !ok {
		return nil, fmt.Errorf("conditional field needs a view parent, got %T", parent)
	}
	_, builder, err := cb.selectVariant(owner, "")
	if err != nil {
		return nil, err
	}
	return builder.Build(owner)
}
