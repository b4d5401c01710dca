package email

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/futig/dashboard-backend/internal/entity"
)

// Template names accepted by the outreach endpoint. "custom" passes
// subject and body through untouched.
const (
	TemplateUnactivated = "unactivated_account"
	TemplateInactive    = "inactive_user"
	TemplateCheckIn     = "check_in"
	TemplateFeedback    = "feedback"
	TemplateCustom      = "custom"
)

type templateDef struct {
	subject string
	body    string
}

var templates = map[string]templateDef{
	TemplateUnactivated: {
		subject: "Getting started with {{.AppName}}",
		body: "Hi {{.Name}},\n\n" +
			"We noticed you have not activated your {{.AppName}} account yet. " +
			"It only takes a minute to get set up, and we are happy to walk you through it.\n\n" +
			"Reply to this email and we will schedule a quick onboarding call.\n\n" +
			"Best,\nThe {{.AppName}} Team",
	},
	TemplateInactive: {
		subject: "We miss you at {{.AppName}}",
		body: "Hi {{.Name}},\n\n" +
			"It has been a while since your last session. " +
			"If anything is getting in the way, we would love to help.\n\n" +
			"Best,\nThe {{.AppName}} Team",
	},
	TemplateCheckIn: {
		subject: "Checking in from {{.AppName}}",
		body: "Hi {{.Name}},\n\n" +
			"Just checking in to see how things are going with {{.AppName}}. " +
			"Let us know if there is anything we can improve for you.\n\n" +
			"Best,\nThe {{.AppName}} Team",
	},
	TemplateFeedback: {
		subject: "How is {{.AppName}} working for you?",
		body: "Hi {{.Name}},\n\n" +
			"We would love to hear your feedback on {{.AppName}}. " +
			"A couple of sentences on what works and what does not would help us a lot.\n\n" +
			"Best,\nThe {{.AppName}} Team",
	},
}

type templateData struct {
	Name    string
	AppName string
}

// Render produces the final subject and body for an outreach message.
// Non-custom templates ignore the request subject and body; the custom
// template requires both.
func Render(appName, templateName, toName, subject, body string) (string, string, error) {
	if templateName == TemplateCustom || templateName == "" {
		if subject == "" {
			return "", "", entity.ErrEmptySubject
		}
		if body == "" {
			return "", "", entity.ErrEmptyBody
		}
		return subject, body, nil
	}

	def, ok := templates[templateName]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", entity.ErrUnknownTemplate, templateName)
	}

	data := templateData{Name: toName, AppName: appName}
	if data.Name == "" {
		data.Name = "there"
	}

	renderedSubject, err := renderTemplate(def.subject, data)
	if err != nil {
		return "", "", err
	}
	renderedBody, err := renderTemplate(def.body, data)
	if err != nil {
		return "", "", err
	}

	return renderedSubject, renderedBody, nil
}

func renderTemplate(text string, data templateData) (string, error) {
	tmpl, err := template.New("email").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}

	return buf.String(), nil
}
