package widget

import (
	"fmt"
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Values is an insertion-ordered key/value mapping. View.Read returns keys
// in declaration order, and Values marshals to JSON and YAML in that order.
type Values = orderedmap.OrderedMap[string, any]

// Params is a parameter set for a parametrized view.
type Params = map[string]any

// NewValues returns an empty Values.
func NewValues() *Values {
	return orderedmap.New[string, any]()
}

// ValuesOf builds Values from alternating keys and values.
func ValuesOf(pairs ...any) *Values {
	if len(pairs)%2 != 0 {
		panic("widget: ValuesOf needs key/value pairs")
	}
	values := NewValues()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("widget: ValuesOf key %v is not a string", pairs[i]))
		}
		values.Set(key, pairs[i+1])
	}
	return values
}

// ToMap converts Values, recursively, into plain maps. Useful for comparing
// read results and for encoders that do not know about Values.
func ToMap(values *Values) map[string]any {
	out := make(map[string]any, values.Len())
	for pair := values.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = plain(pair.Value)
	}
	return out
}

func plain(v any) any {
	switch val := v.(type) {
	case *Values:
		return ToMap(val)
	case []*Values:
		list := make([]any, len(val))
		for i, item := range val {
			list[i] = ToMap(item)
		}
		return list
	default:
		return v
	}
}

// asMap accepts the mapping shapes fill understands.
func asMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case *Values:
		if v == nil {
			return nil, false
		}
		out := make(map[string]any, v.Len())
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			out[pair.Key] = pair.Value
		}
		return out, true
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}

// expandDotted turns {"foo.bar": 1, "foo.baz": 2} into
// {"foo": {"bar": 1, "baz": 2}}, merging with an explicit nested mapping
// under the same key, and drops nil values. Only the first path segment
// is split; nested views expand the rest when they are filled.
func expandDotted(values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(values))

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := values[key]
		if value == nil {
			continue
		}

		head, rest, dotted := strings.Cut(key, ".")
		if !dotted {
			if existing, ok := out[key]; ok {
				merged, err := mergeNested(key, existing, value)
				if err != nil {
					return nil, err
				}
				out[key] = merged
				continue
			}
			out[key] = value
			continue
		}

		if head == "" || rest == "" {
			return nil, fmt.Errorf("invalid dotted key %q", key)
		}
		merged, err := mergeNested(head, out[head], map[string]any{rest: value})
		if err != nil {
			return nil, err
		}
		out[head] = merged
	}

	return out, nil
}

func mergeNested(key string, existing, addition any) (any, error) {
	if existing == nil {
		if m, ok := asMap(addition); ok {
			return copyMap(m), nil
		}
		return addition, nil
	}
	left, okLeft := asMap(existing)
	right, okRight := asMap(addition)
	if !okLeft || !okRight {
		return nil, fmt.Errorf("key %q has both a value and nested keys", key)
	}
	merged := copyMap(left)
	for k, v := range right {
		if prev, ok := merged[k]; ok {
			nested, err := mergeNested(key+"."+k, prev, v)
			if err != nil {
				return nil, err
			}
			merged[k] = nested
			continue
		}
		merged[k] = v
	}
	return merged, nil
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
