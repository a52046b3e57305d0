// Package mail delivers account notifications through a durable outbox.
//
// Services enqueue messages into storage; a Worker picks pending rows up,
// sends them through a Sender with retries and records the outcome. Delivery
// problems are logged and never reach the request that produced the mail.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/go-mail/mail/v2"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// WelcomeMessage is sent after signup.
func WelcomeMessage(name, email string) Message {
	return Message{
		To:      email,
		Subject: "Welcome to Task Manager",
		Body:    fmt.Sprintf("Hi %s, Welcome to task manager app", name),
	}
}

// GoodbyeMessage is sent after account deletion.
func GoodbyeMessage(name, email string) Message {
	return Message{
		To:      email,
		Subject: "Sorry to See You Go",
		Body: fmt.Sprintf("Hi %s,\n We are sorry to see you go. Please let us know if there is anything "+
			"we could have done to serve you better. \n Thanks & Goodbye", name),
	}
}

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Username string
	Password string
	Sender   string
	Port     int
}

// SMTPSender sends mail through an SMTP server.
type SMTPSender struct {
	dialer *gomail.Dialer
	sender string
}

// NewSMTPSender creates a sender for cfg.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		sender: cfg.Sender,
	}
}

// Send dials the server and delivers msg.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("To", msg.To)
	m.SetHeader("From", s.sender)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them.
// Used when no SMTP host is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs recipient and subject.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "mail not sent: smtp is not configured",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject))
	return nil
}
