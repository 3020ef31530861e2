package locator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Strategy identifies how a locator value is interpreted by a driver.
type Strategy string

const (
	// StrategyCSS matches elements with a CSS selector
	StrategyCSS Strategy = "css"

	// StrategyXPath matches elements with an XPath expression
	StrategyXPath Strategy = "xpath"

	// StrategyText matches elements by their normalized text
	StrategyText Strategy = "text"

	// StrategyID matches the element carrying the given id attribute
	StrategyID Strategy = "id"

	// StrategyRole matches elements by ARIA role and optional accessible name
	StrategyRole Strategy = "role"

	// StrategyAttributes matches elements carrying every attribute in the map
	StrategyAttributes Strategy = "attributes"
)

// Locator is the canonical form every locator input is normalized into.
// It is a plain value; resolving it against a scope is the driver's job.
type Locator struct {
	Strategy Strategy

	// Value holds the selector, expression, text or role name.
	Value string

	// Name is the accessible name for role locators.
	Name string

	// Attributes is only used by StrategyAttributes.
	Attributes map[string]string
}

// Locatable is implemented by objects that know how to produce a locator.
type Locatable interface {
	Locator() (Locator, error)
}

var (
	// tag?#id?(.class)+ and tag?#id are unambiguous CSS
	idClassPattern = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9-]*)?(#[a-zA-Z_-][\w-]*)?(\.[a-zA-Z_-][\w-]*)*$`)

	xpathPrefixes = []string{"/", "./", "(", ".."}
)

// CSS returns a CSS locator.
func CSS(selector string) Locator {
	return Locator{Strategy: StrategyCSS, Value: selector}
}

// XPath returns an XPath locator.
func XPath(expr string) Locator {
	return Locator{Strategy: StrategyXPath, Value: expr}
}

// Text returns a locator matching elements by normalized text.
func Text(text string) Locator {
	return Locator{Strategy: StrategyText, Value: text}
}

// ID returns a locator matching an element id.
func ID(id string) Locator {
	return Locator{Strategy: StrategyID, Value: id}
}

// Role returns a locator matching an ARIA role. name may be empty.
func Role(role, name string) Locator {
	return Locator{Strategy: StrategyRole, Value: role, Name: name}
}

// Attrs returns a locator matching elements carrying all given attributes.
func Attrs(attrs map[string]string) Locator {
	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	return Locator{Strategy: StrategyAttributes, Attributes: copied}
}

// Resolve normalizes a locator input into its canonical form.
//
// Structured inputs (Locator, Locatable, maps and pairs) are never
// reinterpreted. Bare strings are detected in order: unambiguous id/class
// CSS, XPath prefixes, and finally CSS.
func Resolve(input any) (Locator, error) {
	switch v := input.(type) {
	case Locator:
		if v.Strategy == "" {
			return Locator{}, &LocatorError{Input: input, Reason: "missing strategy"}
		}
		return v, nil
	case *Locator:
		if v == nil {
			return Locator{}, &LocatorError{Input: input, Reason: "nil locator"}
		}
		return Resolve(*v)
	case Locatable:
		loc, err := v.Locator()
		if err != nil {
			return Locator{}, &LocatorError{Input: input, Reason: err.Error()}
		}
		return Resolve(loc)
	case string:
		return fromString(v)
	case map[string]string:
		return fromMap(v)
	case map[string]any:
		converted := make(map[string]string, len(v))
		for key, val := range v {
			s, ok := val.(string)
			if !ok {
				return Locator{}, &LocatorError{Input: input, Reason: fmt.Sprintf("attribute %q is not a string", key)}
			}
			converted[key] = s
		}
		return fromMap(converted)
	case [2]string:
		return fromPair(v[0], v[1])
	case []string:
		if len(v) != 2 {
			return Locator{}, &LocatorError{Input: input, Reason: "pair must have exactly two elements"}
		}
		return fromPair(v[0], v[1])
	default:
		return Locator{}, &LocatorError{Input: input, Reason: fmt.Sprintf("unsupported locator type %T", input)}
	}
}

// MustResolve is like Resolve but panics on error. It is meant for
// package-level view definitions.
func MustResolve(input any) Locator {
	loc, err := Resolve(input)
	if err != nil {
		panic(err)
	}
	return loc
}

func fromString(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locator{}, &LocatorError{Input: s, Reason: "empty locator"}
	}

	if (strings.ContainsAny(s, "#.")) && idClassPattern.MatchString(s) {
		return CSS(s), nil
	}

	for _, prefix := range xpathPrefixes {
		if strings.HasPrefix(s, prefix) {
			return XPath(s), nil
		}
	}

	return CSS(s), nil
}

func fromPair(strategy, value string) (Locator, error) {
	st, ok := parseStrategy(strategy)
	if !ok || st == StrategyAttributes {
		return Locator{}, &LocatorError{Input: [2]string{strategy, value}, Reason: fmt.Sprintf("unknown strategy %q", strategy)}
	}
	if value == "" {
		return Locator{}, &LocatorError{Input: [2]string{strategy, value}, Reason: "empty value"}
	}
	return Locator{Strategy: st, Value: value}, nil
}

func fromMap(m map[string]string) (Locator, error) {
	if len(m) == 0 {
		return Locator{}, &LocatorError{Input: m, Reason: "empty map"}
	}
	if len(m) == 1 {
		for key, value := range m {
			if st, ok := parseStrategy(key); ok && st != StrategyAttributes {
				return fromPair(key, value)
			}
		}
	}
	if role, ok := m["role"]; ok && len(m) == 2 {
		if name, ok := m["name"]; ok {
			return Role(role, name), nil
		}
	}
	return Attrs(m), nil
}

func parseStrategy(s string) (Strategy, bool) {
	switch Strategy(strings.ToLower(s)) {
	case StrategyCSS:
		return StrategyCSS, true
	case StrategyXPath:
		return StrategyXPath, true
	case StrategyText:
		return StrategyText, true
	case StrategyID:
		return StrategyID, true
	case StrategyRole:
		return StrategyRole, true
	case StrategyAttributes:
		return StrategyAttributes, true
	}
	return "", false
}

// String renders the locator as strategy=value.
func (l Locator) String() string {
	switch l.Strategy {
	case StrategyAttributes:
		keys := make([]string, 0, len(l.Attributes))
		for k := range l.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%q", k, l.Attributes[k]))
		}
		return "attributes=[" + strings.Join(parts, " ") + "]"
	case StrategyRole:
		if l.Name != "" {
			return fmt.Sprintf("role=%s[name=%q]", l.Value, l.Name)
		}
	}
	return fmt.Sprintf("%s=%s", l.Strategy, l.Value)
}

// IsZero reports whether the locator is unset.
func (l Locator) IsZero() bool {
	return l.Strategy == "" && l.Value == "" && len(l.Attributes) == 0
}
