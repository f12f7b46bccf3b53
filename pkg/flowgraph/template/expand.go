package template

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// bracePattern matches ${name}; names are alphanumeric plus underscore.
// A bare $name is left alone.
var bracePattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Expander expands variable patterns in strings.
//
// Create with NewExpander() and configure with Option functions.
// Expander is safe for concurrent use after construction.
type Expander struct {
	missingAction MissingAction
}

// NewExpander creates a new Expander with the given options.
//
// By default unknown placeholders are kept as-is.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{missingAction: MissingKeep}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand expands variable patterns in s using the provided vars.
// Substituted values are inserted literally and never re-expanded.
//
// An error is only returned when MissingAction is MissingError and a
// variable is not found.
func (e *Expander) Expand(s string, vars map[string]any) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	result := bracePattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := vars[name]; ok {
			return fmt.Sprint(val)
		}
		if e.missingAction == MissingError && !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
		return match
	})

	if len(missing) > 0 {
		return result, &UndefinedVariableError{Names: missing}
	}
	return result, nil
}

// ExpandMap expands variable patterns in all string values of a map.
//
// Returns a new map. Non-string values are copied as-is; nested maps and
// slices are expanded recursively. On error (with MissingError), returns
// nil and the first error.
func (e *Expander) ExpandMap(m map[string]any, vars map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}

	result := make(map[string]any, len(m))
	for k, v := range m {
		expanded, err := e.expandValue(v, vars)
		if err != nil {
			return nil, err
		}
		result[k] = expanded
	}
	return result, nil
}

func (e *Expander) expandValue(v any, vars map[string]any) (any, error) {
	switch val := v.(type) {
	case string:
		return e.Expand(val, vars)
	case map[string]any:
		return e.ExpandMap(val, vars)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			expanded, err := e.expandValue(item, vars)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return v, nil
	}
}

// UndefinedVariableError is returned when one or more variables are not found.
type UndefinedVariableError struct {
	// Template names the template being rendered, if any.
	Template string
	// Names is the list of undefined variable names.
	Names []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	prefix := ""
	if e.Template != "" {
		prefix = "template " + e.Template + ": "
	}
	if len(e.Names) == 1 {
		return fmt.Sprintf("%sundefined variable: %s", prefix, e.Names[0])
	}
	return fmt.Sprintf("%sundefined variables: %s", prefix, strings.Join(e.Names, ", "))
}
