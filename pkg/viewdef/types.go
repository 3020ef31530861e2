package viewdef

// Document is a YAML file of view definitions.
type Document struct {
	Views []ViewDef `yaml:"views"`
}

// ViewDef describes one view class. Locators take the same forms as in Go
// code: a string, a {strategy: value} mapping, an attribute mapping or a
// [strategy, value] pair.
type ViewDef struct {
	Name    string `yaml:"name"`
	Extends string `yaml:"extends"`
	Root    any    `yaml:"root"`
	Frame   any    `yaml:"frame"`

	// Parameters and AllParameters make the view parametrized
	Parameters    []string     `yaml:"parameters"`
	AllParameters *ParamSource `yaml:"all_parameters"`

	// Fields keep the order they are listed in
	Fields []FieldDef `yaml:"fields"`
}

// ParamSource enumerates parameters from an attribute of every element
// matching Locator.
type ParamSource struct {
	Locator   any    `yaml:"locator"`
	Attribute string `yaml:"attribute"`
	Parameter string `yaml:"parameter"`
}

// Field kinds
const (
	KindText         = "text"
	KindInput        = "input"
	KindCheckbox     = "checkbox"
	KindButton       = "button"
	KindSelect       = "select"
	KindView         = "view"
	KindParametrized = "parametrized"
	KindTable        = "table"
	KindConditional  = "conditional"
	KindVersionPick  = "version_pick"
)

// FieldDef describes a child widget.
type FieldDef struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Locator any    `yaml:"locator"`

	// View names the class of view and parametrized fields
	View string `yaml:"view"`

	// Table settings
	Header      any         `yaml:"header"`
	Rows        any         `yaml:"rows"`
	Associative string      `yaml:"associative"`
	Columns     []ColumnDef `yaml:"columns"`
	// RowAdder names a button field of the enclosing view clicked to add rows
	RowAdder string `yaml:"row_adder"`

	// Conditional settings
	On    []string  `yaml:"on"`
	Cases []CaseDef `yaml:"cases"`

	// Version pick variants keyed by minimum version; "<lowest>" is the
	// fallback
	Versions map[string]FieldDef `yaml:"versions"`
}

// ColumnDef embeds a widget in every cell of a column, chosen by header
// name or by index.
type ColumnDef struct {
	Column string   `yaml:"column"`
	Index  *int     `yaml:"index"`
	Widget FieldDef `yaml:"widget"`
}

// CaseDef is one branch of a conditional field.
type CaseDef struct {
	// Equals is compared against the single referenced field, or against
	// the list of referenced values when there are several
	Equals  any      `yaml:"equals"`
	Default bool     `yaml:"default"`
	Widget  FieldDef `yaml:"widget"`
}
