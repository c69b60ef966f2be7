package mailer

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	texttemplate "text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Message is a rendered email.
type Message struct {
	Subject string
	HTML    string
}

// InvitationData feeds the invitation template.
type InvitationData struct {
	Title       string
	InviterName string
	Link        string
}

// UnlockData feeds the unlock template.
type UnlockData struct {
	Title string
	Link  string
}

type templateSource struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

type templateFile struct {
	Invitation templateSource `yaml:"invitation"`
	Unlock     templateSource `yaml:"unlock"`
}

type compiled struct {
	subject *texttemplate.Template
	body    *template.Template
}

// Templates renders the notification emails.
type Templates struct {
	invitation compiled
	unlock     compiled
}

// LoadTemplates parses a YAML document with invitation and unlock entries.
// A nil src uses the built-in templates.
func LoadTemplates(src []byte) (*Templates, error) {
	if src == nil {
		src = defaultTemplates
	}

	var f templateFile
	if err := yaml.Unmarshal(src, &f); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	inv, err := compile("invitation", f.Invitation)
	if err != nil {
		return nil, err
	}
	unl, err := compile("unlock", f.Unlock)
	if err != nil {
		return nil, err
	}
	return &Templates{invitation: inv, unlock: unl}, nil
}

func compile(name string, s templateSource) (compiled, error) {
	if s.Subject == "" || s.Body == "" {
		return compiled{}, fmt.Errorf("template %s: subject and body are required", name)
	}
	subj, err := texttemplate.New(name + ".subject").Option("missingkey=error").Parse(s.Subject)
	if err != nil {
		return compiled{}, fmt.Errorf("template %s subject: %w", name, err)
	}
	body, err := template.New(name + ".body").Option("missingkey=error").Parse(s.Body)
	if err != nil {
		return compiled{}, fmt.Errorf("template %s body: %w", name, err)
	}
	return compiled{subject: subj, body: body}, nil
}

func (c compiled) render(data any) (Message, error) {
	var subj, body bytes.Buffer
	if err := c.subject.Execute(&subj, data); err != nil {
		return Message{}, err
	}
	if err := c.body.Execute(&body, data); err != nil {
		return Message{}, err
	}
	return Message{Subject: subj.String(), HTML: body.String()}, nil
}

func (t *Templates) Invitation(d InvitationData) (Message, error) {
	return t.invitation.render(d)
}

func (t *Templates) Unlock(d UnlockData) (Message, error) {
	return t.unlock.render(d)
}
