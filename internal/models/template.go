package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Template is a questionnaire definition loaded from a YAML file, so a
// recurring survey can be imported in one shot instead of authored
// question by question in chat.
type Template struct {
	Title       string             `yaml:"title"`
	Description string             `yaml:"description"`
	Questions   []TemplateQuestion `yaml:"questions"`
}

// TemplateQuestion mirrors one question entry in a template file.
type TemplateQuestion struct {
	Text     string       `yaml:"text"`
	Type     QuestionType `yaml:"type"`
	Options  []string     `yaml:"options,omitempty"`
	Required *bool        `yaml:"required,omitempty"`
}

// IsRequired defaults to true when the template omits the field, matching
// chat-authored questions.
func (q TemplateQuestion) IsRequired() bool {
	return q.Required == nil || *q.Required
}

// LoadTemplate reads and validates a questionnaire template file.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}

	var tpl Template
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template YAML: %w", err)
	}
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Validate enforces the same rules the authoring flow enforces before a
// question is persisted.
func (t *Template) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("template has no title")
	}
	if len(t.Questions) == 0 {
		return fmt.Errorf("template %q has no questions", t.Title)
	}
	for i, q := range t.Questions {
		if q.Text == "" {
			return fmt.Errorf("question %d has no text", i+1)
		}
		if !q.Type.Valid() {
			return fmt.Errorf("question %d has unknown type %q", i+1, q.Type)
		}
		if q.Type.HasOptions() && len(q.Options) < 2 {
			return fmt.Errorf("question %d needs at least 2 options, got %d", i+1, len(q.Options))
		}
		if !q.Type.HasOptions() && len(q.Options) > 0 {
			return fmt.Errorf("question %d is a text question but has options", i+1)
		}
	}
	return nil
}
