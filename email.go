package gotauth

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
)

// Mailer delivers the account notifications that carry a plaintext password.
// Callers never see its errors: the flows log them and carry on.
type Mailer interface {
	SendNewAccountEmail(ctx context.Context, to, password string) error
	SendRecoveryEmail(ctx context.Context, to, password string) error
}

// Message is a rendered HTML email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// MessageSender moves a rendered message to its recipient.
type MessageSender interface {
	SendMessage(ctx context.Context, msg Message) error
}

const (
	SubjectNewAccount = "GotMoney App - new user"
	SubjectRecovery   = "GotMoney App - new password"
)

// NewAccountMessage renders the welcome email.
func NewAccountMessage(to, password string) Message {
	pw := html.EscapeString(password)
	pt := "<p>Você criou uma conta no website GotMoney App. Sua senha de acesso é: " + pw + "</p>"
	en := "<p>You have created an account into GotMoney App website. Your password is: " + pw + "</p>"
	return Message{To: to, Subject: SubjectNewAccount, HTML: pt + "<br/>" + en}
}

// RecoveryMessage renders the password recovery email.
func RecoveryMessage(to, password string) Message {
	pw := html.EscapeString(password)
	pt := "<p>Você solicitou uma nova senha. Sua nova senha de acesso é: " + pw + "</p>"
	en := "<p>You have required a new password. Your new password is: " + pw + "</p>"
	return Message{To: to, Subject: SubjectRecovery, HTML: pt + "<br/>" + en}
}

// TemplateMailer renders notifications and hands them to a MessageSender.
type TemplateMailer struct {
	Sender MessageSender
}

func NewTemplateMailer(sender MessageSender) *TemplateMailer {
	return &TemplateMailer{Sender: sender}
}

func (m *TemplateMailer) SendNewAccountEmail(ctx context.Context, to, password string) error {
	return m.Sender.SendMessage(ctx, NewAccountMessage(to, password))
}

func (m *TemplateMailer) SendRecoveryEmail(ctx context.Context, to, password string) error {
	return m.Sender.SendMessage(ctx, RecoveryMessage(to, password))
}

// ConsoleSender is a development sender that logs emails instead of sending
// them.
type ConsoleSender struct {
	Logger *slog.Logger
}

func (c *ConsoleSender) SendMessage(ctx context.Context, msg Message) error {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "=== EMAIL ===", "to", msg.To, "subject", msg.Subject, "body", msg.HTML)
	return nil
}

// SMTPSender sends mail over implicit TLS (port 465) with PLAIN auth.
type SMTPSender struct {
	Host     string
	Port     string
	Username string
	Password string
	// Defaults to Username
	From string
}

func (s *SMTPSender) SendMessage(ctx context.Context, msg Message) error {
	from := s.From
	if from == "" {
		from = s.Username
	}
	body := []byte(
		fmt.Sprintf("From: %s\r\n", from) +
			fmt.Sprintf("To: %s\r\n", msg.To) +
			fmt.Sprintf("Subject: %s\r\n", msg.Subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			msg.HTML,
	)

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: s.Host}}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(s.Host, s.Port))
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Quit()

	if s.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", s.Username, s.Password, s.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(addressOf(from)); err != nil {
		return err
	}
	if err := client.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	return w.Close()
}

// addressOf strips a display name: "GotMoney <no-reply@x.com>" -> "no-reply@x.com"
func addressOf(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		return strings.TrimSuffix(from[i+1:], ">")
	}
	return from
}
