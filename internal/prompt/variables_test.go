package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chad-syntax/agentsmith-sub001/internal/models"
)

func strPtr(s string) *string { return &s }

func TestValidateVariables(t *testing.T) {
	declared := []models.PromptVariable{
		{Name: "name", Type: models.VarTypeString, Required: true},
		{Name: "tone", Type: models.VarTypeString, Required: false, DefaultValue: strPtr("friendly")},
		{Name: "note", Type: models.VarTypeString, Required: false},
	}

	t.Run("missing required reported, not raised", func(t *testing.T) {
		result := ValidateVariables(declared, map[string]any{})
		assert.Equal(t, []string{"name"}, result.MissingNames())
	})

	t.Run("default substitution for absent optionals", func(t *testing.T) {
		result := ValidateVariables(declared, map[string]any{"name": "Ada"})
		assert.Empty(t, result.Missing)
		assert.Equal(t, "friendly", result.Resolved["tone"])
	})

	t.Run("optional without default resolves to nil", func(t *testing.T) {
		result := ValidateVariables(declared, map[string]any{"name": "Ada"})
		val, ok := result.Resolved["note"]
		assert.True(t, ok)
		assert.Nil(t, val)
	})

	t.Run("supplied value beats default", func(t *testing.T) {
		result := ValidateVariables(declared, map[string]any{"name": "Ada", "tone": "formal"})
		assert.Equal(t, "formal", result.Resolved["tone"])
	})

	t.Run("undeclared keys are dropped", func(t *testing.T) {
		result := ValidateVariables(declared, map[string]any{"name": "Ada", "rogue": "x"})
		_, ok := result.Resolved["rogue"]
		assert.False(t, ok)
	})

	t.Run("values copied verbatim regardless of declared type", func(t *testing.T) {
		result := ValidateVariables(declared, map[string]any{"name": 42})
		assert.Equal(t, 42, result.Resolved["name"])
	})
}
