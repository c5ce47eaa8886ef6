package forecast

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptBuilder_Build(t *testing.T) {
	builder := NewPromptBuilder()

	prompt, err := builder.Build("Kyoto")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(prompt, "You are David Attenborough"))
	assert.Contains(t, prompt, "5-day weather forecast for Kyoto day-by-day")
	assert.Contains(t, prompt, "temperature in Fahrenheit")
	assert.Contains(t, prompt, FormatInstructions)
	assert.Equal(t, 1, strings.Count(prompt, "Kyoto"))
}

func TestPromptBuilder_Deterministic(t *testing.T) {
	builder := NewPromptBuilder()

	first, err := builder.Build("Reykjavík")
	require.NoError(t, err)
	second, err := builder.Build("Reykjavík")
	require.NoError(t, err)

	assert.Equal(t, first, second)

	other, err := NewPromptBuilder().Build("Reykjavík")
	require.NoError(t, err)
	assert.Equal(t, first, other)
}

func TestPromptBuilder_LocationIsNotReinterpreted(t *testing.T) {
	builder := NewPromptBuilder()

	tests := []struct {
		name     string
		location string
	}{
		{name: "template action", location: "{{.Location}}"},
		{name: "format action", location: "{{.Format}} town"},
		{name: "original placeholder text", location: "the given location"},
		{name: "json braces", location: `{"day1": "string"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := builder.Build(tt.location)
			require.NoError(t, err)

			assert.Equal(t, 1, strings.Count(prompt, tt.location))
			assert.Contains(t, prompt, "forecast for "+tt.location+" day-by-day")
			assert.Contains(t, prompt, FormatInstructions)
		})
	}
}

func TestPromptBuilder_TrimsLocation(t *testing.T) {
	prompt, err := NewPromptBuilder().Build("  Nairobi \n")
	require.NoError(t, err)
	assert.Contains(t, prompt, "forecast for Nairobi day-by-day")
}
