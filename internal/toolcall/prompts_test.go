package toolcall

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argobridge/argobridge/internal/models"
)

func TestBuildToolPromptEmbedsValues(t *testing.T) {
	tools := []any{
		map[string]any{"name": "get_weather", "description": "Weather lookup"},
	}

	prompt, err := BuildToolPrompt(tools, "auto", true, models.FamilyOpenAI)
	require.NoError(t, err)

	assert.Contains(t, prompt, `"get_weather"`)
	assert.Contains(t, prompt, `"auto"`)
	assert.Contains(t, prompt, "Parallel calls allowed: true")
	assert.NotContains(t, prompt, "{{tools_json}}")
	assert.NotContains(t, prompt, "{{tool_choice_json}}")
	assert.NotContains(t, prompt, "{{parallel_flag}}")
}

func TestBuildToolPromptDefaults(t *testing.T) {
	prompt, err := BuildToolPrompt(nil, nil, false, models.FamilyOpenAI)
	require.NoError(t, err)

	assert.Contains(t, prompt, "[]")
	assert.Contains(t, prompt, `"none"`)
	assert.Contains(t, prompt, "Parallel calls allowed: false")
}

func TestBuildToolPromptFamilySelection(t *testing.T) {
	tests := []struct {
		family models.Family
		marker string
	}{
		{models.FamilyOpenAI, "TWO response modes"},
		{models.FamilyAnthropic, "Planning Tool Calls with Dependencies"},
		{models.FamilyGoogle, "FORBIDDEN BEHAVIORS"},
		{models.FamilyUnknown, "TWO response modes"},
	}

	for _, tt := range tests {
		t.Run(string(tt.family), func(t *testing.T) {
			prompt, err := BuildToolPrompt(nil, nil, false, tt.family)
			require.NoError(t, err)
			assert.Contains(t, prompt, tt.marker)
		})
	}
}

func TestValidateToolChoice(t *testing.T) {
	tests := []struct {
		name    string
		choice  any
		wantErr bool
	}{
		{"nil", nil, false},
		{"none", "none", false},
		{"auto", "auto", false},
		{"required", "required", false},
		{"bad string", "sometimes", true},
		{"named object", map[string]any{"name": "get_weather"}, false},
		{"function wrapper", map[string]any{"function": map[string]any{"name": "f"}}, false},
		{"nameless object", map[string]any{"type": "function"}, true},
		{"wrong type", 42, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateToolChoice(tt.choice)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInjectToolPromptAppendsToSystemMessage(t *testing.T) {
	data := map[string]any{
		"model": "claude-sonnet",
		"tools": []any{map[string]any{"name": "f"}},
		"messages": []any{
			map[string]any{"role": "system", "content": "You are terse."},
			map[string]any{"role": "user", "content": "hi"},
		},
	}

	out, err := InjectToolPrompt(data)
	require.NoError(t, err)

	messages := out["messages"].([]any)
	require.Len(t, messages, 2)
	content := messages[0].(map[string]any)["content"].(string)
	assert.True(t, strings.HasPrefix(content, "You are terse.\n\n"))
	assert.Contains(t, content, "<tool_call>")

	assert.NotContains(t, out, "tools")
	assert.NotContains(t, out, "tool_choice")
	assert.NotContains(t, out, "parallel_tool_calls")
}

func TestInjectToolPromptPreservesStructuredSystemContent(t *testing.T) {
	data := map[string]any{
		"model": "claude-sonnet",
		"tools": []any{map[string]any{"name": "f"}},
		"messages": []any{
			map[string]any{
				"role": "system",
				"content": []any{
					map[string]any{"type": "text", "text": "You are terse."},
				},
			},
			map[string]any{"role": "user", "content": "hi"},
		},
	}

	out, err := InjectToolPrompt(data)
	require.NoError(t, err)

	messages := out["messages"].([]any)
	require.Len(t, messages, 2)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)

	first := content[0].(map[string]any)
	assert.Equal(t, "You are terse.", first["text"])

	second := content[1].(map[string]any)
	assert.Equal(t, "text", second["type"])
	assert.Contains(t, second["text"].(string), "<tool_call>")
}

func TestInjectToolPromptCreatesSystemMessage(t *testing.T) {
	data := map[string]any{
		"model": "claude-sonnet",
		"tools": []any{map[string]any{"name": "f"}},
		"messages": []any{
			map[string]any{"role": "user", "content": "hi"},
		},
	}

	out, err := InjectToolPrompt(data)
	require.NoError(t, err)

	messages := out["messages"].([]any)
	require.Len(t, messages, 2)
	first := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Contains(t, first["content"].(string), "<tool_call>")
}

func TestInjectToolPromptSystemField(t *testing.T) {
	t.Run("string concatenation", func(t *testing.T) {
		data := map[string]any{
			"model":  "claude-sonnet",
			"tools":  []any{map[string]any{"name": "f"}},
			"system": "Existing instructions.",
		}

		out, err := InjectToolPrompt(data)
		require.NoError(t, err)

		system := out["system"].(string)
		assert.True(t, strings.HasPrefix(system, "Existing instructions.\n\n"))
		assert.Contains(t, system, "<tool_call>")
	})

	t.Run("list append", func(t *testing.T) {
		data := map[string]any{
			"model":  "claude-sonnet",
			"tools":  []any{map[string]any{"name": "f"}},
			"system": []any{"first block"},
		}

		out, err := InjectToolPrompt(data)
		require.NoError(t, err)

		system := out["system"].([]any)
		require.Len(t, system, 2)
		assert.Equal(t, "first block", system[0])
		assert.Contains(t, system[1].(string), "<tool_call>")
	})
}

func TestInjectToolPromptNoTools(t *testing.T) {
	data := map[string]any{"model": "claude-sonnet", "messages": []any{}}

	out, err := InjectToolPrompt(data)
	require.NoError(t, err)
	assert.NotContains(t, out, "system")
}

func TestApplyToolsNative(t *testing.T) {
	t.Run("openai passthrough", func(t *testing.T) {
		data := map[string]any{
			"model":               "gpt4o",
			"tools":               []any{map[string]any{"name": "f"}},
			"tool_choice":         "auto",
			"parallel_tool_calls": true,
		}

		out, err := ApplyToolsNative(data)
		require.NoError(t, err)
		assert.Contains(t, out, "tools")
		assert.NotContains(t, out, "parallel_tool_calls")
	})

	t.Run("anthropic not implemented", func(t *testing.T) {
		data := map[string]any{
			"model": "claude-opus",
			"tools": []any{map[string]any{"name": "f"}},
		}
		_, err := ApplyToolsNative(data)
		assert.ErrorIs(t, err, ErrNotImplemented)
	})

	t.Run("invalid tool rejected", func(t *testing.T) {
		data := map[string]any{
			"model": "gpt4o",
			"tools": []any{map[string]any{"description": "nameless"}},
		}
		_, err := ApplyToolsNative(data)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestApplyToolsFallsBackToInjection(t *testing.T) {
	data := map[string]any{
		"model": "claude-opus",
		"tools": []any{map[string]any{"name": "f"}},
		"messages": []any{
			map[string]any{"role": "user", "content": "hi"},
		},
	}

	out, err := ApplyTools(data)
	require.NoError(t, err)

	// Injection path: tools are gone, a system prompt teaches the markup.
	assert.NotContains(t, out, "tools")
	messages := out["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
}
