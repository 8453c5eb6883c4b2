package openai

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultNarrativeTemplate = `Employee: {{.EmployeeName}}
Store: {{.StoreName}} (#{{.StoreNumber}})
Period: {{.Period.StartDate}} to {{.Period.EndDate}} ({{.ReportType}})
Bonus: ${{printf "%.2f" .TotalBonus}}
Qualified: {{if .IsQualified}}yes{{else}}no{{end}}`

// Prompt is a system message plus a text/template for the user message
type Prompt struct {
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	System       string  `yaml:"system"`
	UserTemplate string  `yaml:"user_template"`

	user *template.Template
}

// PromptConfig holds the prompts used by the narrator
type PromptConfig struct {
	ReportNarrative Prompt `yaml:"report_narrative"`
}

// DefaultPrompts is used when no prompts file is configured
func DefaultPrompts() *PromptConfig {
	p := &PromptConfig{
		ReportNarrative: Prompt{
			Temperature:  0.4,
			MaxTokens:    160,
			System:       "You write short, encouraging bonus report summaries for auto-service store employees. Two or three sentences, plain text, no greetings.",
			UserTemplate: defaultNarrativeTemplate,
		},
	}
	if err := p.compile(); err != nil {
		panic(err)
	}
	return p
}

// LoadPrompts reads a YAML prompts file over the defaults. Templates are
// parsed here so a broken file fails at startup rather than per report.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	prompts := DefaultPrompts()
	if err := yaml.Unmarshal(data, prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}
	if err := prompts.compile(); err != nil {
		return nil, fmt.Errorf("invalid prompts file %s: %w", promptsPath, err)
	}
	return prompts, nil
}

func (c *PromptConfig) compile() error {
	return c.ReportNarrative.compile("report_narrative")
}

func (p *Prompt) compile(name string) error {
	switch {
	case strings.TrimSpace(p.System) == "":
		return fmt.Errorf("%s: system prompt is empty", name)
	case p.MaxTokens <= 0:
		return fmt.Errorf("%s: max_tokens must be positive", name)
	case p.Temperature < 0 || p.Temperature > 2:
		return fmt.Errorf("%s: temperature must be between 0 and 2", name)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(p.UserTemplate)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	p.user = tmpl
	return nil
}

// Render executes the user template against data
func (p *Prompt) Render(data interface{}) (string, error) {
	if p.user == nil {
		return "", errors.New("prompt template not compiled")
	}
	var sb strings.Builder
	if err := p.user.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return sb.String(), nil
}
