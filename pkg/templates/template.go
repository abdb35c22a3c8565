package templates

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/seyniprops/backoffice/pkg/notification"
)

// DefaultLanguage is the fallback language used when a template is missing in
// the requested language.
const DefaultLanguage = "fr"

// Template is one reusable content definition, unique per
// (code, channel, language).
type Template struct {
	// Code identifies the content, e.g. "WELCOME_TENANT".
	Code string `yaml:"code" json:"code"`

	Channel  notification.Channel `yaml:"channel" json:"channel"`
	Language string               `yaml:"language" json:"language"`

	// Subject is optional; used for email and in-app titles.
	Subject string `yaml:"subject,omitempty" json:"subject,omitempty"`
	Body    string `yaml:"body" json:"body"`

	// Variables declares the placeholder names the template expects.
	Variables []string `yaml:"variables,omitempty" json:"variables,omitempty"`

	// Active templates are visible to lookup; inactive ones are retained as
	// configuration but never rendered.
	Active bool `yaml:"active" json:"active"`
}

// Validate checks the template definition is complete enough to store.
func (t Template) Validate() error {
	if t.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidTemplate)
	}
	if !t.Channel.Valid() {
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidTemplate, t.Channel)
	}
	if t.Body == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidTemplate)
	}
	if _, err := NormalizeLanguage(t.Language); err != nil {
		return err
	}
	return nil
}

// NormalizeLanguage parses a BCP-47 tag and reduces it to its base language,
// so "fr-SN" and "fr" address the same catalog slot.
func NormalizeLanguage(lang string) (string, error) {
	if lang == "" {
		return DefaultLanguage, nil
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// Render substitutes the supplied variables into the subject and body. Every
// occurrence of {{name}} for a supplied variable is replaced; placeholders of
// variables that were not supplied stay verbatim in the output. This is a
// deliberate contract, not a defect: it makes incomplete variable sets visible
// in the delivered message instead of silently blanking them.
func (t Template) Render(variables map[string]string) (subject, body string) {
	subject = t.Subject
	body = t.Body
	for name, value := range variables {
		placeholder := "{{" + name + "}}"
		body = strings.ReplaceAll(body, placeholder, value)
		if subject != "" {
			subject = strings.ReplaceAll(subject, placeholder, value)
		}
	}
	return subject, body
}
