package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNamespace() Namespace {
	return NewNamespace(
		map[string]any{"api_key": "abc123", "base": "https://api.example.com"},
		map[string]any{"call_id": "call-42", "caller": "Alice"},
		map[string]any{"city": "Berlin", "count": 3, "tags": []any{"a", "b"}, "empty": ""},
	)
}

func TestExpandStringSubstitutesAllNamespaces(t *testing.T) {
	ns := testNamespace()
	out, err := ExpandString("{{const.base}}/weather?city={{arg.city}}&call={{ctx.call_id}}", ns)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/weather?city=Berlin&call=call-42", out)
}

func TestExpandStringMissingKeyFails(t *testing.T) {
	_, err := ExpandString("{{arg.missing}}", testNamespace())
	require.Error(t, err)
	assert.Equal(t, KindTemplate, KindOf(err))
}

func TestExpandStringUnknownNamespaceFails(t *testing.T) {
	_, err := ExpandString("{{env.home}}", testNamespace())
	require.Error(t, err)
	assert.Equal(t, KindTemplate, KindOf(err))
}

func TestExpandStringFilters(t *testing.T) {
	ns := testNamespace()

	out, err := ExpandString("{{arg.city|upper}}", ns)
	require.NoError(t, err)
	assert.Equal(t, "BERLIN", out)

	out, err = ExpandString("{{ctx.caller|lower}}", ns)
	require.NoError(t, err)
	assert.Equal(t, "alice", out)

	out, err = ExpandString("{{arg.tags|join:, }}", ns)
	require.NoError(t, err)
	assert.Equal(t, "a, b", out)

	out, err = ExpandString("{{arg.missing|default:fallback}}", ns)
	require.NoError(t, err)
	assert.Equal(t, "fallback", out)

	// default also rescues empty strings
	out, err = ExpandString("{{arg.empty|default:none}}", ns)
	require.NoError(t, err)
	assert.Equal(t, "none", out)
}

func TestExpandStringUnknownFilterFails(t *testing.T) {
	_, err := ExpandString("{{arg.city|reverse}}", testNamespace())
	require.Error(t, err)
}

func TestExpandStringJoinRequiresArray(t *testing.T) {
	_, err := ExpandString("{{arg.city|join:,}}", testNamespace())
	require.Error(t, err)
	assert.Equal(t, KindTemplate, KindOf(err))
}

func TestExpandValueKeepsTypes(t *testing.T) {
	ns := testNamespace()

	v, err := ExpandValue("{{arg.count}}", ns)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	v, err = ExpandValue("{{arg.tags}}", ns)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, v)

	// surrounding text forces interpolation
	v, err = ExpandValue("count={{arg.count}}", ns)
	require.NoError(t, err)
	assert.Equal(t, "count=3", v)
}

func TestExpandValueRecursesIntoBody(t *testing.T) {
	ns := testNamespace()
	body := map[string]any{
		"location": "{{arg.city}}",
		"meta": map[string]any{
			"caller": "{{ctx.caller}}",
			"nested": []any{"{{const.api_key}}", 7},
		},
		"static": true,
	}
	v, err := ExpandValue(body, ns)
	require.NoError(t, err)
	expanded := v.(map[string]any)
	assert.Equal(t, "Berlin", expanded["location"])
	meta := expanded["meta"].(map[string]any)
	assert.Equal(t, "Alice", meta["caller"])
	assert.Equal(t, []any{"abc123", 7}, meta["nested"])
	assert.Equal(t, true, expanded["static"])
}

func TestValidateTemplate(t *testing.T) {
	assert.NoError(t, ValidateTemplate("{{const.base}}/x/{{arg.id|default:1}}"))
	assert.Error(t, ValidateTemplate("{{bogus.key}}"))
	assert.Error(t, ValidateTemplate("{{arg.id|explode}}"))
	// key presence is a call-time concern
	assert.NoError(t, ValidateTemplate("{{arg.never_supplied}}"))
}

func TestNamespaceCopiesInputs(t *testing.T) {
	constants := map[string]any{"k": "v"}
	ns := NewNamespace(constants, nil, nil)
	constants["k"] = "mutated"
	v, ok := ns.Lookup(RootConst, "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestExpandStringIdempotentWithoutPlaceholders(t *testing.T) {
	for _, s := range []string{"", "plain text", "https://x.example/{path}", "50% off {not a placeholder}"} {
		out, err := ExpandString(s, testNamespace())
		require.NoError(t, err)
		assert.Equal(t, s, out)
	}
}

func TestExpandStringRejectsMalformedPlaceholders(t *testing.T) {
	for _, s := range []string{
		"{{foo}}",               // no namespace
		"{{const.api-key}}",     // key outside the grammar
		"{{arg.}}",              // missing key
		"prefix {{}} suffix",    // empty braces
		"unbalanced {{arg.city", // never closed
	} {
		_, err := ExpandString(s, testNamespace())
		require.Error(t, err, "input %q", s)
		assert.Equal(t, KindTemplate, KindOf(err))
	}
}

func TestValidateTemplateRejectsMalformedPlaceholders(t *testing.T) {
	for _, s := range []string{"{{foo}}", "{{const.api-key}}", "{{arg.city}} and {{oops}}"} {
		err := ValidateTemplate(s)
		require.Error(t, err, "input %q", s)
		assert.Equal(t, KindConfiguration, KindOf(err))
	}
}

func TestValidateArgumentNames(t *testing.T) {
	err := ValidateArgumentNames([]string{"city"}, map[string]any{"city": "x"})
	require.Error(t, err)
	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.NoError(t, ValidateArgumentNames([]string{"city"}, map[string]any{"api_key": "x"}))

	// reserved namespace roots are not usable as argument names
	for _, name := range []string{"const", "ctx", "arg"} {
		err := ValidateArgumentNames([]string{name}, nil)
		require.Error(t, err)
		assert.Equal(t, KindConfiguration, KindOf(err))
	}

	err = ValidateArgumentNames([]string{"city", "city"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}
