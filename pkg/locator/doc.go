// Package locator normalizes the different ways an author can point at an
// element into one canonical Locator value.
//
// Accepted inputs:
//
//   - a bare string: "#login", "input.big" and "form#f.wide" are CSS;
//     strings starting with "/", "./", "..", or "(" are XPath; anything
//     else is CSS
//   - a {strategy: value} map: map[string]string{"xpath": "//a"}
//   - a (strategy, value) pair: [2]string{"text", "Sign in"}
//   - an attribute map: map[string]string{"name": "q", "type": "search"}
//   - any value implementing Locatable
//
// Locators may carry {name} placeholders which are rendered lazily with
// Render, so one declaration can be reused with different parameters.
package locator
