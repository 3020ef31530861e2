package playwright

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/entrhq/widgetry/pkg/locator"
)

// Selector maps a locator onto a Playwright selector engine.
func Selector(loc locator.Locator) (string, error) {
	switch loc.Strategy {
	case locator.StrategyCSS:
		return "css=" + loc.Value, nil
	case locator.StrategyXPath:
		// Playwright evaluates "/..." from an element handle relative to it
		return "xpath=" + loc.Value, nil
	case locator.StrategyText:
		return "text=" + strconv.Quote(loc.Value), nil
	case locator.StrategyID:
		return "id=" + loc.Value, nil
	case locator.StrategyRole:
		if loc.Name == "" {
			return "role=" + loc.Value, nil
		}
		return fmt.Sprintf("role=%s[name=%ss]", loc.Value, strconv.Quote(loc.Name)), nil
	case locator.StrategyAttributes:
		if len(loc.Attributes) == 0 {
			return "", fmt.Errorf("playwright: empty attribute locator")
		}
		keys := make([]string, 0, len(loc.Attributes))
		for k := range loc.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString("css=")
		for _, k := range keys {
			fmt.Fprintf(&b, "[%s=%s]", k, locator.QuoteCSS(loc.Attributes[k]))
		}
		return b.String(), nil
	}
	return "", fmt.Errorf("playwright: unsupported locator strategy %q", loc.Strategy)
}
