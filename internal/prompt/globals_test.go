package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateGlobalContext(t *testing.T) {
	t.Run("detects missing keys in order of first appearance", func(t *testing.T) {
		body := "{{ global.company }} says {{ global.motto }} and again {{ global.company }}"
		missing := ValidateGlobalContext(body, map[string]any{})
		assert.Equal(t, []string{"company", "motto"}, missing)
	})

	t.Run("present keys are not reported", func(t *testing.T) {
		body := "{{ global.company }} / {{ global.motto }}"
		missing := ValidateGlobalContext(body, map[string]any{"company": "Acme"})
		assert.Equal(t, []string{"motto"}, missing)
	})

	t.Run("no global references", func(t *testing.T) {
		missing := ValidateGlobalContext("Hello {{ name }}!", nil)
		assert.Empty(t, missing)
	})

	t.Run("lexical scan survives an unparseable body", func(t *testing.T) {
		missing := ValidateGlobalContext("{% if %} {{ global.company }", map[string]any{})
		assert.Equal(t, []string{"company"}, missing)
	})

	t.Run("prose outside expressions is not a reference", func(t *testing.T) {
		missing := ValidateGlobalContext("For escalation see global.support first.", map[string]any{})
		assert.Empty(t, missing)
	})

	t.Run("only expression spans are scanned", func(t *testing.T) {
		body := "{{ global.company }} (docs mention global.legacy elsewhere)"
		missing := ValidateGlobalContext(body, map[string]any{})
		assert.Equal(t, []string{"company"}, missing)
	})
}
