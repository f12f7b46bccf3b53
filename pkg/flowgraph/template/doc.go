// Package template expands ${var} placeholders in prompt text and
// configuration values.
//
// Template is used for prompts whose variables must all be present:
//
//	t := template.Parse("founders", "Analyze:\n${evidence}")
//	prompt, err := t.Render(map[string]string{"evidence": text})
//
// Expander handles looser cases such as expanding environment variables in
// loaded configuration, where unknown placeholders may be kept.
package template
