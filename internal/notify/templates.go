package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// RenderedEmail is the channel-ready form of a message.
type RenderedEmail struct {
	Subject string
	Text    string
	HTML    string
}

type emailView struct {
	Branding
	Title string
	Body  string
	Type  string
}

var htmlEmail = htmltemplate.Must(htmltemplate.New("email.html").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:24px;background:#f5f5f5;font-family:Helvetica,Arial,sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="max-width:600px;margin:0 auto;background:#ffffff;border-radius:8px;">
    <tr><td style="padding:16px 24px;background:{{.PrimaryColor}};color:#ffffff;font-size:18px;font-weight:bold;border-radius:8px 8px 0 0;">{{.AppName}}</td></tr>
    <tr><td style="padding:24px;">
      <h2 style="margin:0 0 12px 0;color:#111827;">{{.Title}}</h2>
      <p style="margin:0 0 16px 0;color:#374151;line-height:1.5;">{{.Body}}</p>
      {{- if .DashboardURL}}
      <a href="{{.DashboardURL}}" style="display:inline-block;padding:10px 16px;background:{{.PrimaryColor}};color:#ffffff;text-decoration:none;border-radius:4px;">Open dashboard</a>
      {{- end}}
    </td></tr>
    <tr><td style="padding:16px 24px;color:#6b7280;font-size:12px;">{{.FooterText}}</td></tr>
  </table>
</body>
</html>
`))

var textEmail = texttemplate.Must(texttemplate.New("email.txt").Parse(`{{.Title}}

{{.Body}}
{{if .DashboardURL}}
Open dashboard: {{.DashboardURL}}
{{end}}
--
{{.FooterText}}
`))

// RenderEmail produces subject, plain text and HTML bodies for msg.
func RenderEmail(msg Message, branding Branding) (RenderedEmail, error) {
	branding = branding.withDefaults()
	view := emailView{
		Branding: branding,
		Title:    msg.Title,
		Body:     msg.Body,
		Type:     msg.Type,
	}

	var html, text bytes.Buffer
	if err := htmlEmail.Execute(&html, view); err != nil {
		return RenderedEmail{}, fmt.Errorf("render html email: %w", err)
	}
	if err := textEmail.Execute(&text, view); err != nil {
		return RenderedEmail{}, fmt.Errorf("render text email: %w", err)
	}

	return RenderedEmail{
		Subject: fmt.Sprintf("[%s] %s", branding.AppName, strings.TrimSpace(msg.Title)),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// ShortText formats msg for SMS-sized channels.
func ShortText(msg Message) string {
	title := strings.TrimSpace(msg.Title)
	body := strings.TrimSpace(msg.Body)
	switch {
	case title == "":
		return body
	case body == "":
		return title
	default:
		return title + ": " + body
	}
}
