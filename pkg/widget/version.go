package widget

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Lowest is the VersionPick key that applies below every declared version.
const Lowest = "<lowest>"

// VersionPickBuilder selects one of several builders by comparing the
// application version against the declared keys.
type VersionPickBuilder struct {
	keys     []string
	parsed   []version
	variants map[string]Builder
	lowest   Builder
	err      error
}

// VersionPick declares a field whose implementation depends on the
// application version. The variant with the greatest key not above the
// current version wins; Lowest applies when no key qualifies.
//
//	widget.VersionPick(map[string]widget.Builder{
//		widget.Lowest: widget.Text("#old"),
//		"2.0.0":       widget.Text("#new"),
//	})
func VersionPick(variants map[string]Builder) *VersionPickBuilder {
	vp := &VersionPickBuilder{variants: variants, lowest: variants[Lowest]}
	for key := range variants {
		if key == Lowest {
			continue
		}
		vp.keys = append(vp.keys, key)
	}
	sort.Slice(vp.keys, func(i, j int) bool {
		return CompareVersions(vp.keys[i], vp.keys[j]) < 0
	})
	for _, key := range vp.keys {
		v, err := parseVersion(key)
		if err != nil && vp.err == nil {
			vp.err = err
		}
		vp.parsed = append(vp.parsed, v)
	}
	return vp
}

// Pick returns the variant index and builder for current. The index of
// Lowest is len(keys).
func (vp *VersionPickBuilder) Pick(current string) (int, Builder, bool) {
	cur, err := parseVersion(current)
	if err == nil {
		for i := len(vp.parsed) - 1; i >= 0; i-- {
			if compareParsed(vp.parsed[i], cur) <= 0 {
				return i, vp.variants[vp.keys[i]], true
			}
		}
	}
	if vp.lowest != nil {
		return len(vp.keys), vp.lowest, true
	}
	return 0, nil, false
}

func (vp *VersionPickBuilder) resolve(b *Browser, path string) (int, Builder, error) {
	if vp.err != nil {
		return 0, nil, vp.err
	}
	current, err := b.Version()
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w", path, err)
	}
	idx, builder, ok := vp.Pick(current)
	if !ok {
		keys := append([]string(nil), vp.keys...)
		return 0, nil, &VersionPickUnresolvedError{Path: path, Version: current, Keys: keys}
	}
	b.logger.Debugf("%s picked variant %d for version %s", path, idx, current)
	return idx, builder, nil
}

func (vp *VersionPickBuilder) selectVariant(owner *View, name string) (int, Builder, error) {
	return vp.resolve(owner.browser, owner.Path()+"."+name)
}

// Build materializes the variant for the current version directly. Inside a
// view the owner's cache is used instead.
func (vp *VersionPickBuilder) Build(parent Widget) (Widget, error) {
	if parent == nil {
		return nil, fmt.Errorf("version pick: %w", errNoParent)
	}
	_, builder, err := vp.resolve(parent.Browser(), parent.Path())
	if err != nil {
		return nil, err
	}
	return builder.Build(parent)
}

type versionPart struct {
	number int
	suffix string
}

type version []versionPart

func parseVersion(s string) (version, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "v"))
	if s == "" {
		return nil, fmt.Errorf("empty version")
	}
	parts := strings.Split(s, ".")
	v := make(version, 0, len(parts))
	for _, part := range parts {
		digits := 0
		for digits < len(part) && part[digits] >= '0' && part[digits] <= '9' {
			digits++
		}
		if digits == 0 {
			return nil, fmt.Errorf("invalid version %q", s)
		}
		n, err := strconv.Atoi(part[:digits])
		if err != nil {
			return nil, fmt.Errorf("invalid version %q: %w", s, err)
		}
		v = append(v, versionPart{number: n, suffix: part[digits:]})
	}
	return v, nil
}

func compareParsed(a, b version) int {
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		var pa, pb versionPart
		if i < len(a) {
			pa = a[i]
		}
		if i < len(b) {
			pb = b[i]
		}
		if pa.number != pb.number {
			if pa.number < pb.number {
				return -1
			}
			return 1
		}
		if c := strings.Compare(pa.suffix, pb.suffix); c != 0 {
			return c
		}
	}
	return 0
}

// CompareVersions compares dotted versions numerically component by
// component, so 1.10.0 sorts after 1.9.9 and 2.0 equals 2.0.0. A trailing
// alphanumeric suffix on a component is compared lexically. Unparseable
// versions compare as strings.
func CompareVersions(a, b string) int {
	va, errA := parseVersion(a)
	vb, errB := parseVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return compareParsed(va, vb)
}
