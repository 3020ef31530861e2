package locator

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(\|quote)?\}`)

// IsTemplate reports whether the locator contains {name} placeholders.
func (l Locator) IsTemplate() bool {
	if placeholderPattern.MatchString(l.Value) || placeholderPattern.MatchString(l.Name) {
		return true
	}
	for _, v := range l.Attributes {
		if placeholderPattern.MatchString(v) {
			return true
		}
	}
	return false
}

// Render substitutes {name} placeholders with values from params.
// {name|quote} renders the value as a string literal suitable for the
// locator's strategy. A placeholder without a value is a LocatorError.
func (l Locator) Render(params map[string]any) (Locator, error) {
	if !l.IsTemplate() {
		return l, nil
	}

	rendered := l
	var err error

	if rendered.Value, err = renderString(l.Value, l.Strategy, params); err != nil {
		return Locator{}, &LocatorError{Input: l, Reason: err.Error()}
	}
	if rendered.Name, err = renderString(l.Name, l.Strategy, params); err != nil {
		return Locator{}, &LocatorError{Input: l, Reason: err.Error()}
	}
	if l.Attributes != nil {
		rendered.Attributes = make(map[string]string, len(l.Attributes))
		for k, v := range l.Attributes {
			out, renderErr := renderString(v, StrategyAttributes, params)
			if renderErr != nil {
				return Locator{}, &LocatorError{Input: l, Reason: renderErr.Error()}
			}
			rendered.Attributes[k] = out
		}
	}

	return rendered, nil
}

func renderString(s string, strategy Strategy, params map[string]any) (string, error) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := placeholderPattern.FindStringSubmatch(match)
		value, ok := params[sub[1]]
		if !ok {
			missing = append(missing, sub[1])
			return match
		}
		text := fmt.Sprint(value)
		if sub[2] == "" {
			return text
		}
		if strategy == StrategyXPath {
			return QuoteXPath(text)
		}
		return QuoteCSS(text)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("missing parameters: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// QuoteXPath renders s as an XPath string literal.
func QuoteXPath(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if part != "" {
			quoted = append(quoted, "'"+part+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// QuoteCSS renders s as a double-quoted CSS string.
func QuoteCSS(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
