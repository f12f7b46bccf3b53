package argus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/randalmurphal/argus/pkg/flowgraph"
	fgerrors "github.com/randalmurphal/argus/pkg/flowgraph/errors"
)

func (d Deps) extract(ctx flowgraph.Context, s RunState) (RunState, error) {
	resp, err := d.generate(ctx, extractorPrompt, nil, s.Document())
	if err != nil {
		return s, err
	}

	set, err := ParseEntities(resp.Content)
	switch {
	case err != nil:
		ctx.Logger().Warn("entity extraction fell back to empty set", "error", err)
	case set.Reason != "":
		ctx.Logger().Warn("entity extraction dropped malformed keys", "reason", set.Reason)
	}
	s.Entities = &set
	return s, nil
}

// entityLists maps the list keys of the extractor object to their fields.
var entityLists = []struct {
	key string
	dst func(*EntitySet) *[]string
}{
	{"founders", func(e *EntitySet) *[]string { return &e.Founders }},
	{"competitors", func(e *EntitySet) *[]string { return &e.Competitors }},
	{"financial_claims", func(e *EntitySet) *[]string { return &e.FinancialClaims }},
}

// ParseEntities decodes extractor output. Markdown code fences around the
// object are ignored and missing keys read as empty.
//
// Each key is decoded on its own: a key holding the wrong kind of value is
// left empty, named in Reason, and does not affect the others. Object items
// in a list contribute their name or title.
//
// When the text is not a JSON object ParseEntities returns the fallback set
// from EmptyEntitySet together with a *errors.JSONParseError describing
// why; callers may continue with the returned set.
func ParseEntities(text string) (EntitySet, error) {
	body := stripFences(text)

	var fields map[string]json.RawMessage
	if err := decodeObject(body, &fields); err != nil {
		parseErr := &fgerrors.JSONParseError{Input: body, Err: err}
		return EmptyEntitySet(parseErr.Error()), parseErr
	}

	set := EntitySet{
		Founders:        []string{},
		Competitors:     []string{},
		FinancialClaims: []string{},
		Outcome:         OutcomeParsed,
	}
	var dropped []string
	for _, l := range entityLists {
		items, err := parseList(fields[l.key])
		if err != nil {
			dropped = append(dropped, l.key+": "+err.Error())
			continue
		}
		*l.dst(&set) = items
	}
	industry, err := parseText(fields["industry"])
	if err != nil {
		dropped = append(dropped, "industry: "+err.Error())
	}
	set.Industry = industry
	set.Reason = strings.Join(dropped, "; ")
	return set, nil
}

func decodeObject(body string, v any) error {
	trimmed := bytes.TrimSpace([]byte(body))
	if len(trimmed) == 0 {
		return errors.New("empty output")
	}
	if trimmed[0] != '{' {
		return fmt.Errorf("expected a JSON object, got %q", truncate(string(trimmed), 40))
	}
	return json.Unmarshal(trimmed, v)
}

// stripFences returns the contents of the first ```json fence, or of the
// first plain ``` fence, or the whole text.
func stripFences(text string) string {
	for _, fence := range []string{"```json", "```"} {
		if _, after, ok := strings.Cut(text, fence); ok {
			body, _, _ := strings.Cut(after, "```")
			return strings.TrimSpace(body)
		}
	}
	return strings.TrimSpace(text)
}

// decodeValue decodes one JSON value, keeping numbers as written.
func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// parseList reads an array, a single string, or null. Blank entries are
// dropped.
func parseList(raw json.RawMessage) ([]string, error) {
	v, err := decodeValue(raw)
	if err != nil {
		return nil, err
	}
	out := []string{}
	switch t := v.(type) {
	case nil:
	case string:
		out = appendItem(out, t)
	case []any:
		for _, item := range t {
			out = appendItem(out, itemText(item))
		}
	default:
		return nil, fmt.Errorf("expected a list, got %s", jsonKind(v))
	}
	return out, nil
}

// parseText reads a string, a scalar, or a list joined with commas.
func parseText(raw json.RawMessage) (string, error) {
	v, err := decodeValue(raw)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case map[string]any:
		return "", fmt.Errorf("expected a string, got %s", jsonKind(v))
	case []any:
		var parts []string
		for _, item := range t {
			parts = appendItem(parts, itemText(item))
		}
		return strings.Join(parts, ", "), nil
	default:
		return strings.TrimSpace(itemText(v)), nil
	}
}

func appendItem(items []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		items = append(items, s)
	}
	return items
}

// itemText renders one decoded value as text. Objects yield their name or
// title, and otherwise their compact JSON.
func itemText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		for _, key := range []string{"name", "title"} {
			if s, ok := t[key].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func jsonKind(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
