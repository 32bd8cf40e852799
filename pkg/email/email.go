package email

import (
	"fmt"
	"net/smtp"
)

// Sender sends plain text email through an SMTP relay.
type Sender struct {
	host     string
	port     string
	from     string
	password string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSender returns nil when host or sender address is missing, which disables mail.
func NewSender(host, port, from, password string) *Sender {
	if host == "" || from == "" {
		return nil
	}
	return &Sender{host: host, port: port, from: from, password: password, send: smtp.SendMail}
}

// SendEmail sends a plain text email using SMTP.
func (s *Sender) SendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.from, s.password, s.host)

	msg := []byte("From: " + s.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" + body + "\r\n")

	address := s.host + ":" + s.port

	if err := s.send(address, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
