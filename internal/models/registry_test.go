package models

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineFamily(t *testing.T) {
	tests := []struct {
		model string
		want  Family
	}{
		{"gpt4o", FamilyOpenAI},
		{"argo:gpt-4o", FamilyOpenAI},
		{"claude-3-opus", FamilyAnthropic},
		{"gemini-pro", FamilyGoogle},
		{"mistral-large", FamilyUnknown},
		{"", FamilyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineFamily(tt.model))
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  string
	}{
		{"alias", "argo:gpt-4o", "gpt4o"},
		{"upstream name passthrough", "gpt4o", "gpt4o"},
		{"empty falls back", "", DefaultModel},
		{"unknown falls back", "some-model", DefaultModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.model))
		})
	}
}

func TestRejectsSystemMessages(t *testing.T) {
	assert.True(t, RejectsSystemMessages("gpto1"))
	assert.True(t, RejectsSystemMessages("gpto1mini"))
	assert.True(t, RejectsSystemMessages("gpto3mini"))
	assert.True(t, RejectsSystemMessages("argo:gpt-o1-mini"))
	assert.False(t, RejectsSystemMessages("gpt4o"))
	assert.False(t, RejectsSystemMessages("claude-3-opus"))
}

func TestEncodingFor(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gpto1mini", "o200k_base"},
		{"gpt4o", "o200k_base"},
		{"gpt4", "cl100k_base"},
		{"gpt35", "cl100k_base"},
		{"ada002", "cl100k_base"},
		{"v3small", "cl100k_base"},
		{"unknown-model", DefaultEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodingFor(tt.model))
		})
	}
}

func TestListSortedAndComplete(t *testing.T) {
	infos := List()
	require.Len(t, infos, len(ChatModels)+len(EmbedModels))

	assert.True(t, sort.SliceIsSorted(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	}))
	for _, info := range infos {
		assert.Equal(t, "model", info.Object)
		assert.Equal(t, "argo", info.OwnedBy)
	}
}
