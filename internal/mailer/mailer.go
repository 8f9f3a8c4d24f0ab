// Package mailer delivers hook notifications over authenticated SMTP.
package mailer

import (
	"fmt"
	"strings"

	mail "github.com/wneessen/go-mail"
)

// Message is one composed notification, consumed by a single Send.
type Message struct {
	Subject string
	ReplyTo string
	Body    string
}

// Mailer delivers composed messages. The production implementation is SMTP;
// tests substitute a recording fake.
type Mailer interface {
	Send(msg Message) error
}

// SMTP sends mail over an implicit-TLS SMTP session, authenticating as the
// sender. Sending with no recipients is a no-op.
type SMTP struct {
	Host       string
	Port       int
	Sender     string
	Password   string
	Recipients []string
}

// NewSMTP returns an SMTP mailer for the given account and recipient list.
func NewSMTP(host string, port int, sender, password string, recipients []string) *SMTP {
	return &SMTP{
		Host:       host,
		Port:       port,
		Sender:     sender,
		Password:   password,
		Recipients: recipients,
	}
}

// Send delivers one message to every recipient. No connection is made when
// the recipient list is empty.
func (s *SMTP) Send(msg Message) error {
	if len(s.Recipients) == 0 {
		return nil
	}

	m := mail.NewMsg()
	if err := m.From(s.Sender); err != nil {
		return fmt.Errorf("invalid sender %q: %w", s.Sender, err)
	}
	if err := m.To(s.Recipients...); err != nil {
		return fmt.Errorf("invalid recipient in %q: %w", strings.Join(s.Recipients, ", "), err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return fmt.Errorf("invalid reply-to %q: %w", msg.ReplyTo, err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := mail.NewClient(s.Host,
		mail.WithPort(s.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.Sender),
		mail.WithPassword(s.Password),
	)
	if err != nil {
		return fmt.Errorf("creating SMTP client for %s:%d: %w", s.Host, s.Port, err)
	}

	if err := client.DialAndSend(m); err != nil {
		return fmt.Errorf("sending mail via %s:%d: %w", s.Host, s.Port, err)
	}
	return nil
}
