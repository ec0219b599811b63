package configutil

import (
	"fmt"
	"sort"
	"strings"
)

// Schema names the keys a settings map may carry. Key matching follows
// the same loose rules as DecodeSettings, so `base-url`, `base_url`,
// and `BaseURL` all mean the same key.
type Schema struct {
	Required     []string
	Optional     []string
	AllowUnknown bool
}

// ValidateSettings checks a settings map against a schema before it is
// decoded, so a typo in a config key surfaces as an error instead of
// being silently dropped by the decoder.
func ValidateSettings(input map[string]any, schema Schema) error {
	required := make(map[string]string, len(schema.Required))
	for _, key := range schema.Required {
		required[normalizeKey(key)] = key
	}
	allowed := make(map[string]struct{}, len(schema.Required)+len(schema.Optional))
	for norm := range required {
		allowed[norm] = struct{}{}
	}
	for _, key := range schema.Optional {
		allowed[normalizeKey(key)] = struct{}{}
	}

	var missing, unknown []string
	seen := make(map[string]bool, len(input))
	for key, value := range input {
		norm := normalizeKey(key)
		seen[norm] = true
		if _, ok := allowed[norm]; !ok && !schema.AllowUnknown {
			unknown = append(unknown, key)
		}
		if origKey, ok := required[norm]; ok && isEmptyValue(value) {
			missing = append(missing, origKey)
		}
	}
	for norm, origKey := range required {
		if !seen[norm] {
			missing = append(missing, origKey)
		}
	}

	if len(missing) == 0 && len(unknown) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(unknown)
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(missing, ", "))
	}
	if len(unknown) > 0 {
		parts = append(parts, "unknown: "+strings.Join(unknown, ", "))
	}
	return fmt.Errorf("invalid settings (%s)", strings.Join(parts, "; "))
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
