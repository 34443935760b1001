package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_KnownPrompts(t *testing.T) {
	for _, key := range []string{"extract_rules", "verify_system", "verify_user"} {
		t.Run(key, func(t *testing.T) {
			prompt, err := Get("compliance.json", key)
			require.NoError(t, err)
			assert.NotEmpty(t, prompt)
		})
	}
}

func TestGet_MissingKey(t *testing.T) {
	_, err := Get("compliance.json", "no_such_prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_prompt")
}

func TestGet_MissingFile(t *testing.T) {
	_, err := Get("missing.json", "extract_rules")
	assert.Error(t, err)
}

func TestMustGet_PanicsOnMissing(t *testing.T) {
	assert.Panics(t, func() {
		MustGet("compliance.json", "no_such_prompt")
	})
}

func TestFormat(t *testing.T) {
	out := Format("check {{.Content}} against {{.Rules}} in {{.Mode}} mode", map[string]string{
		"Content": "the text",
		"Rules":   "the rules",
		"Mode":    "custom",
	})
	assert.Equal(t, "check the text against the rules in custom mode", out)
}

func TestFormat_UnknownPlaceholderLeftIntact(t *testing.T) {
	out := Format("hello {{.Name}}", map[string]string{"Other": "x"})
	assert.Equal(t, "hello {{.Name}}", out)
}

func TestPromptPlaceholders(t *testing.T) {
	extract := MustGet("compliance.json", "extract_rules")
	assert.Contains(t, extract, "{{.Mode}}")

	verifyUser := MustGet("compliance.json", "verify_user")
	assert.Contains(t, verifyUser, "{{.Rules}}")
	assert.Contains(t, verifyUser, "{{.Content}}")
}

func TestVerifyUserPromptOverrides(t *testing.T) {
	verifyUser := MustGet("compliance.json", "verify_user")

	// The overrides are numbered headings with hyphenated sub-points.
	assert.Contains(t, verifyUser, "1. IGNORE TRUTH\n   - ")
	assert.Contains(t, verifyUser, "2. IGNORE LOGIC\n   - ")
	assert.Contains(t, verifyUser, "3. CONTEXTUAL PII\n   - ")
	assert.NotContains(t, verifyUser, "—")
}
