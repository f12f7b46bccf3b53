package template

import "slices"

// Template is a named text with ${var} placeholders whose variables are
// known up front. Rendering requires every variable to be supplied.
type Template struct {
	name string
	text string
	vars []string
}

var strict = NewExpander(WithMissingAction(MissingError))

// Parse scans text for ${var} placeholders.
func Parse(name, text string) *Template {
	var vars []string
	for _, m := range bracePattern.FindAllStringSubmatch(text, -1) {
		if !slices.Contains(vars, m[1]) {
			vars = append(vars, m[1])
		}
	}
	return &Template{name: name, text: text, vars: vars}
}

// Name returns the template name.
func (t *Template) Name() string { return t.name }

// Text returns the unrendered template text.
func (t *Template) Text() string { return t.text }

// Vars returns the placeholder names in order of first appearance.
func (t *Template) Vars() []string { return slices.Clone(t.vars) }

// Render substitutes vars into the template. Every placeholder must have a
// value; extra keys are ignored. Values are inserted literally.
func (t *Template) Render(vars map[string]string) (string, error) {
	m := make(map[string]any, len(vars))
	for k, v := range vars {
		m[k] = v
	}
	out, err := strict.Expand(t.text, m)
	if err != nil {
		if uv, ok := err.(*UndefinedVariableError); ok {
			uv.Template = t.name
		}
		return "", err
	}
	return out, nil
}
