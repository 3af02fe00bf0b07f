//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package capability

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"trpc.group/trpc-go/trpc-workflow-go/state"
)

// mustachePlaceholderRE matches Mustache-style placeholders like {{key}} and
// the optional suffix '?' (e.g. {{key?}}). It purposely restricts the allowed
// characters to avoid over-replacing in free text.
var mustachePlaceholderRE = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)(\?)?\s*\}\}`)

// stateVarRE matches native single-brace placeholders.
var stateVarRE = regexp.MustCompile(`\{([^{}]+)\}`)

// validStateNameRE matches identifiers usable as state keys in templates.
var validStateNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// InjectState replaces state placeholders in an instruction template with
// their values from the state view. Supported patterns:
//
//   - {variable_name}: replaced with the value of the key; left untouched
//     when the key is absent, so the model sees the unresolved variable.
//   - {variable_name?}: optional, replaced with the empty string when absent.
//
// Mustache-style {{...}} placeholders are normalized to the single-brace
// form first, so templates authored for other systems work unchanged.
//
// Example:
//
//	template: "Critique the concept in {concept}."
//	state:    {"concept": "a heist film"}
//	result:   "Critique the concept in a heist film."
func InjectState(template string, view state.View) string {
	if template == "" {
		return template
	}
	template = mustachePlaceholderRE.ReplaceAllString(template, `{$1$2}`)

	return stateVarRE.ReplaceAllStringFunc(template, func(match string) string {
		varName := strings.Trim(match, "{}")
		optional := strings.HasSuffix(varName, "?")
		if optional {
			varName = strings.TrimSuffix(varName, "?")
		}
		if !validStateNameRE.MatchString(varName) {
			return match
		}

		if raw, ok := view.Get(varName); ok {
			var value any
			if err := json.Unmarshal(raw, &value); err == nil {
				return fmt.Sprintf("%v", value)
			}
			return string(raw)
		}
		if optional {
			return ""
		}
		return match
	})
}
