// Package email provides email sending capabilities via SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

// Config holds SMTP configuration
type Config struct {
	Host      string
	Port      string
	Username  string
	Password  string
	From      string
	FromName  string
	EnableTLS bool
}

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

// NewService creates a new email service
func NewService(config Config) *Service {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendEmail sends a plain text email
func (s *Service) SendEmail(to []string, subject, body string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		strings.Join(to, ", "),
		from,
		subject,
		body,
	))

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg)
}

// SendHTMLEmail sends an HTML email
func (s *Service) SendHTMLEmail(to []string, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	// Simple multipart message
	boundary := "boundary-atelier"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	// Plain text part (fallback)
	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n")
	fmt.Fprintf(&msg, "\r\n")

	// HTML part
	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg.Bytes())
}

type DeliverableReadyData struct {
	AppName       string
	ClientName    string
	ProjectName   string
	MilestoneName string
	DocumentName  string
	PortalURL     string
}

type TaskReviewedData struct {
	AppName     string
	UserName    string
	TaskTitle   string
	ProjectName string
	Approved    bool
	Feedback    string
	PortalURL   string
}

// SendDeliverableReadyEmail tells a client a milestone deliverable is
// waiting for their review in the portal.
func (s *Service) SendDeliverableReadyEmail(to string, data DeliverableReadyData) error {
	if data.AppName == "" {
		data.AppName = "Atelier"
	}
	subject := fmt.Sprintf("%s: deliverable ready for %s", data.AppName, data.MilestoneName)
	html, err := renderTemplate(deliverableReadyTemplate, data)
	if err != nil {
		return fmt.Errorf("render deliverable template: %w", err)
	}
	return s.SendHTMLEmail([]string{to}, subject, html)
}

// SendTaskReviewedEmail tells an assignee their submission was
// approved or sent back with feedback.
func (s *Service) SendTaskReviewedEmail(to string, data TaskReviewedData) error {
	if data.AppName == "" {
		data.AppName = "Atelier"
	}
	verdict := "approved"
	if !data.Approved {
		verdict = "returned"
	}
	subject := fmt.Sprintf("%s: task %q %s", data.AppName, data.TaskTitle, verdict)
	html, err := renderTemplate(taskReviewedTemplate, data)
	if err != nil {
		return fmt.Errorf("render task reviewed template: %w", err)
	}
	return s.SendHTMLEmail([]string{to}, subject, html)
}

func renderTemplate(tmpl string, data interface{}) (string, error) {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const deliverableReadyTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Deliverable ready for review</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #1a1a1a; padding-bottom: 10px; margin-bottom: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #1a1a1a; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>Hi {{.ClientName}},</h2>

    <p>The <strong>{{.MilestoneName}}</strong> milestone of <strong>{{.ProjectName}}</strong> is complete. We have uploaded <strong>{{.DocumentName}}</strong> for your review.</p>

    <p>
        <a href="{{.PortalURL}}" class="button">Review in the Portal</a>
    </p>

    <p>You can approve the document or leave comments directly on it.</p>

    <div class="footer">
        <p>You are receiving this because you are the client on {{.ProjectName}}.</p>
    </div>
</body>
</html>`

const taskReviewedTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Task review result</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #1a1a1a; padding-bottom: 10px; margin-bottom: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #1a1a1a; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .feedback { background: #fff3cd; padding: 12px; border-radius: 4px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>Hi {{.UserName}},</h2>

    {{if .Approved}}
    <p>Your submission for <strong>{{.TaskTitle}}</strong> on <strong>{{.ProjectName}}</strong> was approved. The task is now complete.</p>
    {{else}}
    <p>Your submission for <strong>{{.TaskTitle}}</strong> on <strong>{{.ProjectName}}</strong> was sent back for changes.</p>
    {{if .Feedback}}
    <div class="feedback">
        <strong>Feedback:</strong> {{.Feedback}}
    </div>
    {{end}}
    {{end}}

    <p>
        <a href="{{.PortalURL}}" class="button">Open the Task</a>
    </p>

    <div class="footer">
        <p>You are receiving this because the task is assigned to you.</p>
    </div>
</body>
</html>`
