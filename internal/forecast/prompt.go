// internal/forecast/prompt.go
package forecast

import (
	"fmt"
	"strings"
	"text/template"
)

const narrationTemplate = `You are David Attenborough, a highly intelligent and captivating naturalist. You are narrating the 5-day weather forecast for {{.Location}} day-by-day. Explain the science behind the weather, in addition to providing interesting facts about the local wildlife. For each day, you will describe the weather; including the temperature in Fahrenheit. Make the response very interesting, while adhering to the following JSON schema:
{{.Format}}
Respond with the JSON object only, without any text before or after it.`

// PromptBuilder renders the narration prompt. Values are inserted as data and
// never parsed as template text.
type PromptBuilder struct {
	tmpl   *template.Template
	format string
}

type promptData struct {
	Location string
	Format   string
}

// NewPromptBuilder creates a PromptBuilder for the narration template.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{
		tmpl:   template.Must(template.New("narration").Option("missingkey=error").Parse(narrationTemplate)),
		format: FormatInstructions,
	}
}

// Build renders the prompt for location.
func (b *PromptBuilder) Build(location string) (string, error) {
	var sb strings.Builder
	data := promptData{
		Location: strings.TrimSpace(location),
		Format:   b.format,
	}
	if err := b.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render narration prompt: %w", err)
	}
	return sb.String(), nil
}
