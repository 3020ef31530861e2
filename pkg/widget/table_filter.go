package widget

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
)

// RowFilter selects table rows. Filters passed together are ANDed.
type RowFilter interface {
	fmt.Stringer
	match(snap *rowSnapshot) (bool, error)
	bind(t *tableSnapshot) error
}

// rowSnapshot is the text and attribute content of one body row at the
// time a traversal started.
type rowSnapshot struct {
	cells []string
	attrs map[string]*string
}

type tableSnapshot struct {
	headers []string
	rows    []*rowSnapshot
}

type matcher struct {
	op   string
	want string
	g    glob.Glob
	err  error
}

func newMatcher(op, want string) matcher {
	m := matcher{op: op, want: want}
	if op == "glob" {
		m.g, m.err = glob.Compile(want)
	}
	return m
}

func (m matcher) matches(got string) (bool, error) {
	switch m.op {
	case "eq":
		return got == m.want, nil
	case "contains":
		return strings.Contains(got, m.want), nil
	case "startswith":
		return strings.HasPrefix(got, m.want), nil
	case "endswith":
		return strings.HasSuffix(got, m.want), nil
	case "glob":
		if m.err != nil {
			return false, fmt.Errorf("invalid glob %q: %w", m.want, m.err)
		}
		return m.g.Match(got), nil
	}
	return false, fmt.Errorf("unknown filter operator %q", m.op)
}

func (m matcher) String() string {
	if m.op == "eq" {
		return fmt.Sprintf("= %q", m.want)
	}
	return fmt.Sprintf("%s %q", m.op, m.want)
}

// ColumnRef addresses a column by header name or by index.
type ColumnRef struct {
	name    string
	index   int
	byIndex bool
}

// Column addresses a column by raw or attributized header name.
func Column(name string) ColumnRef {
	return ColumnRef{name: name}
}

// ColumnAt addresses a column by its zero-based index.
func ColumnAt(index int) ColumnRef {
	return ColumnRef{index: index, byIndex: true}
}

func (c ColumnRef) String() string {
	if c.byIndex {
		return "#" + strconv.Itoa(c.index)
	}
	return c.name
}

func (c ColumnRef) filter(op, want string) RowFilter {
	return &columnFilter{col: c, m: newMatcher(op, want)}
}

// Equals matches cells whose text equals want.
func (c ColumnRef) Equals(want string) RowFilter { return c.filter("eq", want) }

// Contains matches cells whose text contains want.
func (c ColumnRef) Contains(want string) RowFilter { return c.filter("contains", want) }

// StartsWith matches cells whose text starts with want.
func (c ColumnRef) StartsWith(want string) RowFilter { return c.filter("startswith", want) }

// EndsWith matches cells whose text ends with want.
func (c ColumnRef) EndsWith(want string) RowFilter { return c.filter("endswith", want) }

// Matches matches cells whose text matches the glob pattern.
func (c ColumnRef) Matches(pattern string) RowFilter { return c.filter("glob", pattern) }

type columnFilter struct {
	col   ColumnRef
	m     matcher
	index int
}

func (f *columnFilter) bind(t *tableSnapshot) error {
	if f.col.byIndex {
		f.index = f.col.index
		return nil
	}
	idx, ok := columnIndex(t.headers, f.col.name)
	if !ok {
		return fmt.Errorf("no column %q", f.col.name)
	}
	f.index = idx
	return nil
}

func (f *columnFilter) match(snap *rowSnapshot) (bool, error) {
	if f.index < 0 || f.index >= len(snap.cells) {
		return false, nil
	}
	return f.m.matches(snap.cells[f.index])
}

func (f *columnFilter) String() string {
	return fmt.Sprintf("%s %s", f.col, f.m)
}

// AttrRef addresses a DOM attribute of the row element.
type AttrRef struct {
	name string
}

// RowAttr addresses the row element's attribute name.
func RowAttr(name string) AttrRef {
	return AttrRef{name: name}
}

func (a AttrRef) filter(op, want string) RowFilter {
	return &attrFilter{name: a.name, m: newMatcher(op, want)}
}

// Equals matches rows whose attribute equals want.
func (a AttrRef) Equals(want string) RowFilter { return a.filter("eq", want) }

// Contains matches rows whose attribute contains want.
func (a AttrRef) Contains(want string) RowFilter { return a.filter("contains", want) }

// StartsWith matches rows whose attribute starts with want.
func (a AttrRef) StartsWith(want string) RowFilter { return a.filter("startswith", want) }

// EndsWith matches rows whose attribute ends with want.
func (a AttrRef) EndsWith(want string) RowFilter { return a.filter("endswith", want) }

// Matches matches rows whose attribute matches the glob pattern.
func (a AttrRef) Matches(pattern string) RowFilter { return a.filter("glob", pattern) }

type attrFilter struct {
	name string
	m    matcher
}

func (f *attrFilter) bind(*tableSnapshot) error { return nil }

func (f *attrFilter) match(snap *rowSnapshot) (bool, error) {
	value := snap.attrs[f.name]
	if value == nil {
		return false, nil
	}
	return f.m.matches(*value)
}

func (f *attrFilter) String() string {
	return fmt.Sprintf("@%s %s", f.name, f.m)
}

var whereOps = map[string]string{
	"contains":   "contains",
	"startswith": "startswith",
	"endswith":   "endswith",
	"glob":       "glob",
}

// Where builds a column filter from keyword-style keys: "name" for
// equality, or "name__contains", "name__startswith", "name__endswith" and
// "name__glob". Keys of the form "#i" address a column by index.
func Where(conditions map[string]any) RowFilter {
	keys := make([]string, 0, len(conditions))
	for k := range conditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	all := make(allFilter, 0, len(keys))
	for _, key := range keys {
		column, op := key, "eq"
		if head, suffix, ok := strings.Cut(key, "__"); ok {
			mapped, known := whereOps[suffix]
			if !known {
				return errFilter{fmt.Errorf("unknown filter operator in %q", key)}
			}
			column, op = head, mapped
		}
		ref := Column(column)
		if i, ok := indexKey(column); ok {
			ref = ColumnAt(i)
		}
		all = append(all, ref.filter(op, stringify(conditions[key])))
	}
	return all
}

type allFilter []RowFilter

func (a allFilter) bind(t *tableSnapshot) error {
	for _, f := range a {
		if err := f.bind(t); err != nil {
			return err
		}
	}
	return nil
}

func (a allFilter) match(snap *rowSnapshot) (bool, error) {
	for _, f := range a {
		ok, err := f.match(snap)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (a allFilter) String() string {
	parts := make([]string, len(a))
	for i, f := range a {
		parts[i] = f.String()
	}
	return strings.Join(parts, " and ")
}

type errFilter struct {
	err error
}

func (e errFilter) bind(*tableSnapshot) error        { return e.err }
func (e errFilter) match(*rowSnapshot) (bool, error) { return false, e.err }
func (e errFilter) String() string                   { return e.err.Error() }

func filterStrings(filters []RowFilter) []string {
	out := make([]string, len(filters))
	for i, f := range filters {
		out[i] = f.String()
	}
	return out
}

func attrNames(filters []RowFilter) []string {
	var names []string
	var walk func(f RowFilter)
	walk = func(f RowFilter) {
		switch v := f.(type) {
		case *attrFilter:
			names = append(names, v.name)
		case allFilter:
			for _, inner := range v {
				walk(inner)
			}
		}
	}
	for _, f := range filters {
		walk(f)
	}
	return names
}

// Attributize turns a header such as "First Name" into "first_name".
func Attributize(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127
		if !alnum {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// columnIndex returns the first column whose header or attributized header
// equals name.
func columnIndex(headers []string, name string) (int, bool) {
	if i, ok := indexKey(name); ok {
		return i, i < len(headers) || len(headers) == 0
	}
	for i, h := range headers {
		if h == name {
			return i, true
		}
	}
	for i, h := range headers {
		if Attributize(h) == name {
			return i, true
		}
	}
	return 0, false
}

func indexKey(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, "#")
	if !ok || rest == "" {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}
