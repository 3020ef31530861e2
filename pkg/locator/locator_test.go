package locator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedLocatable struct {
	loc Locator
	err error
}

func (f fixedLocatable) Locator() (Locator, error) {
	return f.loc, f.err
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Locator
	}{
		{name: "id selector", input: "#login", want: CSS("#login")},
		{name: "tag with classes", input: "input.big.wide", want: CSS("input.big.wide")},
		{name: "tag id and class", input: "form#f.wide", want: CSS("form#f.wide")},
		{name: "absolute xpath", input: "//div[@id='x']", want: XPath("//div[@id='x']")},
		{name: "relative xpath", input: "./tbody/tr", want: XPath("./tbody/tr")},
		{name: "parenthesized xpath", input: "(//a)[2]", want: XPath("(//a)[2]")},
		{name: "parent xpath", input: "..", want: XPath("..")},
		{name: "plain css fallback", input: "div > a[href]", want: CSS("div > a[href]")},
		{name: "css with whitespace", input: "  #x  ", want: CSS("#x")},
		{name: "strategy map", input: map[string]string{"xpath": "//a"}, want: XPath("//a")},
		{name: "text pair", input: [2]string{"text", "Sign in"}, want: Text("Sign in")},
		{name: "slice pair", input: []string{"id", "main"}, want: ID("main")},
		{name: "role map", input: map[string]string{"role": "button", "name": "Save"}, want: Role("button", "Save")},
		{name: "attribute map", input: map[string]string{"name": "q", "type": "search"}, want: Attrs(map[string]string{"name": "q", "type": "search"})},
		{name: "canonical passthrough", input: Text("#not-css"), want: Text("#not-css")},
		{name: "pointer", input: &Locator{Strategy: StrategyID, Value: "a"}, want: ID("a")},
		{name: "locatable", input: fixedLocatable{loc: XPath("//b")}, want: XPath("//b")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	inputs := []any{
		"",
		42,
		[]string{"css"},
		[2]string{"bogus", "x"},
		map[string]string{},
		map[string]any{"name": 3},
		fixedLocatable{err: errors.New("boom")},
		Locator{},
	}

	for _, input := range inputs {
		_, err := Resolve(input)
		var locErr *LocatorError
		assert.ErrorAs(t, err, &locErr, "input %#v", input)
	}
}

func TestMustResolvePanics(t *testing.T) {
	assert.Panics(t, func() { MustResolve(3.5) })
	assert.NotPanics(t, func() { MustResolve("#ok") })
}

func TestRender(t *testing.T) {
	loc := XPath("//div[@id={id}]")
	assert.True(t, loc.IsTemplate())

	rendered, err := loc.Render(map[string]any{"id": "foo"})
	require.NoError(t, err)
	assert.Equal(t, "//div[@id=foo]", rendered.Value)
	assert.False(t, rendered.IsTemplate())

	quoted, err := XPath("//div[@id={id|quote}]").Render(map[string]any{"id": "foo"})
	require.NoError(t, err)
	assert.Equal(t, "//div[@id='foo']", quoted.Value)

	css, err := CSS("tr[data-key={key|quote}]").Render(map[string]any{"key": `a"b`})
	require.NoError(t, err)
	assert.Equal(t, `tr[data-key="a\"b"]`, css.Value)

	attrs, err := Attrs(map[string]string{"data-row": "{n}"}).Render(map[string]any{"n": 3})
	require.NoError(t, err)
	assert.Equal(t, "3", attrs.Attributes["data-row"])
}

func TestRender_MissingParameter(t *testing.T) {
	_, err := XPath("//div[@id={id}]").Render(map[string]any{"other": 1})
	var locErr *LocatorError
	require.ErrorAs(t, err, &locErr)
	assert.Contains(t, err.Error(), "id")
}

func TestRender_NoPlaceholdersIsIdentity(t *testing.T) {
	loc := CSS("#static")
	rendered, err := loc.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, loc, rendered)
}

func TestQuoteXPath(t *testing.T) {
	assert.Equal(t, "'plain'", QuoteXPath("plain"))
	assert.Equal(t, `"it's"`, QuoteXPath("it's"))
	assert.Equal(t, `concat('a', "'", 'b"c')`, QuoteXPath(`a'b"c`))
}

func TestString(t *testing.T) {
	assert.Equal(t, "css=#a", CSS("#a").String())
	assert.Equal(t, `role=button[name="Save"]`, Role("button", "Save").String())
	assert.Equal(t, `attributes=[a="1" b="2"]`, Attrs(map[string]string{"b": "2", "a": "1"}).String())
}
