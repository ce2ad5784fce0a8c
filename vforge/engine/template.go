package engine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Placeholder syntax: {{root.key}} with an optional filter chain, e.g.
// {{arg.tags|join:,|upper}}. Filters are whitelisted; anything else is a
// build-time error.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\.([a-zA-Z_][a-zA-Z0-9_]*)((?:\s*\|\s*[a-zA-Z_]+(?::[^|{}]*)?)*)\s*\}\}`)

type filterCall struct {
	name string
	arg  string
	has  bool // filter carried an explicit :arg
}

// parseFilters splits a |filter|filter:arg chain. Everything after a colon
// is the argument, taken verbatim so separators may contain spaces.
func parseFilters(chain string) ([]filterCall, error) {
	out := make([]filterCall, 0, 2)
	for _, p := range strings.Split(chain, "|") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		fc := filterCall{name: strings.TrimSpace(p)}
		if i := strings.Index(p, ":"); i >= 0 {
			fc.name = strings.TrimSpace(p[:i])
			fc.arg = p[i+1:]
			fc.has = true
		}
		switch fc.name {
		case "upper", "lower", "join", "default":
		default:
			return nil, templateErrf("unknown filter %q", fc.name)
		}
		out = append(out, fc)
	}
	return out, nil
}

func applyFilters(value any, found bool, filters []filterCall) (any, bool, error) {
	for _, f := range filters {
		switch f.name {
		case "default":
			if !found || value == nil || value == "" {
				value = f.arg
				found = true
			}
		case "upper":
			if found {
				value = strings.ToUpper(stringify(value))
			}
		case "lower":
			if found {
				value = strings.ToLower(stringify(value))
			}
		case "join":
			if !found {
				continue
			}
			sep := ","
			if f.has {
				sep = f.arg
			}
			items, ok := value.([]any)
			if !ok {
				return nil, false, templateErrf("join filter requires an array, got %T", value)
			}
			parts := make([]string, len(items))
			for i, it := range items {
				parts[i] = stringify(it)
			}
			value = strings.Join(parts, sep)
		}
	}
	return value, found, nil
}

// stringify renders a resolved value for string interpolation. Composite
// values serialize as JSON so they stay parseable on the receiving end.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool, int, int64, float64:
		return fmt.Sprintf("%v", t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// ExpandString substitutes every placeholder in s against ns. A placeholder
// whose key is missing fails the whole expansion unless a default filter
// rescues it.
func ExpandString(s string, ns Namespace) (string, error) {
	var expandErr error
	out := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		if expandErr != nil {
			return match
		}
		v, err := resolvePlaceholder(match, ns)
		if err != nil {
			expandErr = err
			return match
		}
		return stringify(v)
	})
	if expandErr != nil {
		return "", expandErr
	}
	// anything brace-delimited that survived expansion missed the
	// root.key grammar and must not reach the wire as literal text
	if strings.Contains(out, "{{") || strings.Contains(out, "}}") {
		return "", templateErrf("malformed placeholder in %q", s)
	}
	return out, nil
}

// ExpandValue expands a value of any shape. A string that is exactly one
// placeholder resolves to the underlying typed value so numbers, booleans and
// objects survive the round trip; strings with surrounding text interpolate.
// Maps and slices expand recursively.
func ExpandValue(v any, ns Namespace) (any, error) {
	switch t := v.(type) {
	case string:
		if m := placeholderPattern.FindStringIndex(t); m != nil && m[0] == 0 && m[1] == len(t) {
			return resolvePlaceholder(t, ns)
		}
		return ExpandString(t, ns)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			ev, err := ExpandValue(val, ns)
			if err != nil {
				return nil, err
			}
			out[k] = ev
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			ev, err := ExpandValue(val, ns)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	default:
		return v, nil
	}
}

// ExpandStringMap expands every value of a string map (headers, query).
func ExpandStringMap(m map[string]string, ns Namespace) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		ev, err := ExpandString(v, ns)
		if err != nil {
			return nil, err
		}
		out[k] = ev
	}
	return out, nil
}

func resolvePlaceholder(match string, ns Namespace) (any, error) {
	sub := placeholderPattern.FindStringSubmatch(match)
	if sub == nil {
		return nil, templateErrf("malformed placeholder %q", match)
	}
	root, key, chain := sub[1], sub[2], sub[3]
	if !ValidTemplateRoot(root) {
		return nil, templateErrf("unknown namespace %q in placeholder %q", root, match)
	}
	filters, err := parseFilters(chain)
	if err != nil {
		return nil, err
	}
	v, found := ns.Lookup(root, key)
	v, found, err = applyFilters(v, found, filters)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, templateErrf("no value for %s.%s", root, key)
	}
	return v, nil
}

// ValidateTemplate walks every placeholder in s at build time and rejects
// unknown namespaces and unknown filters before the tool is ever registered.
// Key presence is a call-time concern and deliberately not checked here.
func ValidateTemplate(s string) error {
	for _, sub := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		root, chain := sub[1], sub[3]
		if !ValidTemplateRoot(root) {
			return configErrf("unknown namespace %q in template %q", root, s)
		}
		if _, err := parseFilters(chain); err != nil {
			return configErrf("template %q: %v", s, err)
		}
	}
	residual := placeholderPattern.ReplaceAllString(s, "")
	if strings.Contains(residual, "{{") || strings.Contains(residual, "}}") {
		return configErrf("malformed placeholder in template %q", s)
	}
	return nil
}

// ValidateTemplateValue recursively validates templates in a body value.
func ValidateTemplateValue(v any) error {
	switch t := v.(type) {
	case string:
		return ValidateTemplate(t)
	case map[string]any:
		for _, val := range t {
			if err := ValidateTemplateValue(val); err != nil {
				return err
			}
		}
	case []any:
		for _, val := range t {
			if err := ValidateTemplateValue(val); err != nil {
				return err
			}
		}
	}
	return nil
}
