package mailer

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/url"
	"time"
)

//go:embed templates/invitation.html
var defaultInvitationTemplate string

type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

type invitationData struct {
	RecipientName string
	AcceptLink    string
	Code          string
	ExpiresAt     time.Time
	Resend        bool
}

type Renderer struct {
	invitation *template.Template
}

// NewRenderer parses the invitation template from path, or the built-in one when
// path is empty.
func NewRenderer(path string) (*Renderer, error) {
	var (
		tmpl *template.Template
		err  error
	)
	if path != "" {
		tmpl, err = template.ParseFiles(path)
	} else {
		tmpl, err = template.New("invitation").Parse(defaultInvitationTemplate)
	}
	if err != nil {
		return nil, fmt.Errorf("parse invitation template: %w", err)
	}
	return &Renderer{invitation: tmpl}, nil
}

func (r *Renderer) Render(msg Message) (Rendered, error) {
	link, err := AcceptLink(msg.AcceptURL, msg.Code)
	if err != nil {
		return Rendered{}, err
	}

	name := msg.RecipientName
	if name == "" {
		name = msg.To
	}

	data := invitationData{
		RecipientName: name,
		AcceptLink:    link,
		Code:          msg.Code,
		ExpiresAt:     msg.ExpiresAt.UTC(),
		Resend:        msg.Kind == KindInvitationResend,
	}

	var buf bytes.Buffer
	if err := r.invitation.Execute(&buf, data); err != nil {
		return Rendered{}, fmt.Errorf("render invitation: %w", err)
	}

	subject := "You are invited to the staff portal"
	if data.Resend {
		subject = "Your new staff portal invitation"
	}
	text := fmt.Sprintf("Hello %s,\n\nAccept your invitation: %s\nCode: %s\nExpires: %s\n",
		name, link, msg.Code, msg.ExpiresAt.UTC().Format("2 January 2006 15:04 MST"))

	return Rendered{Subject: subject, HTML: buf.String(), Text: text}, nil
}

// AcceptLink appends the code to the accept URL as the "code" query parameter.
func AcceptLink(base, code string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse accept url: %w", err)
	}
	q := u.Query()
	q.Set("code", code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
