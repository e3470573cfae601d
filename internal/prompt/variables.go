package prompt

import (
	"github.com/chad-syntax/agentsmith-sub001/internal/models"
)

// VariableResult reports the outcome of validating supplied values
// against a version's declared variables. Missing required variables
// are returned as data, not raised, so callers pick the error envelope.
type VariableResult struct {
	Missing  []models.PromptVariable
	Resolved map[string]any
}

func (r VariableResult) MissingNames() []string {
	names := make([]string, len(r.Missing))
	for i, v := range r.Missing {
		names[i] = v.Name
	}
	return names
}

// ValidateVariables merges supplied values with declared defaults.
// Declared acts as an allow-list: supplied keys outside it are dropped.
// Supplied values are copied verbatim; types are advisory only.
func ValidateVariables(declared []models.PromptVariable, supplied map[string]any) VariableResult {
	result := VariableResult{Resolved: make(map[string]any, len(declared))}

	for _, v := range declared {
		if val, ok := supplied[v.Name]; ok {
			result.Resolved[v.Name] = val
			continue
		}
		if v.Required {
			result.Missing = append(result.Missing, v)
			continue
		}
		if v.DefaultValue != nil {
			result.Resolved[v.Name] = *v.DefaultValue
		} else {
			result.Resolved[v.Name] = nil
		}
	}

	return result
}
