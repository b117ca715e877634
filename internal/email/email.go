// Package email delivers operator alert emails over SMTP.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"time"

	"innsync_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// Sender delivers one alert email.
type Sender interface {
	SendAlert(ctx context.Context, toEmail, subject string, data AlertData) error
}

// AlertData fills the alert template.
type AlertData struct {
	Heading string
	Lines   []string
}

var alertTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
	<h2>{{.Heading}}</h2>
	{{range .Lines}}<p>{{.}}</p>
	{{end}}
</body>
</html>`))

// SMTPSender implements Sender using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a sender from the SMTP configuration.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

// SendAlert renders and delivers one alert email.
func (s *SMTPSender) SendAlert(ctx context.Context, toEmail, subject string, data AlertData) error {
	var body bytes.Buffer
	if err := alertTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("render alert: %w", err)
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, body.String())

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
