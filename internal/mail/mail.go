// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mail sends best-effort notifications.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"sync"

	"github.com/pdiddy/publications/pkg/types"
)

// Message is one plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer for cfg, or Nop when no host is configured.
func New(cfg types.MailConfig) Mailer {
	if cfg.Host == "" {
		return Nop{}
	}
	return &SMTP{cfg: cfg, send: smtp.SendMail}
}

// SMTP sends through a relay with optional PLAIN authentication.
type SMTP struct {
	cfg  types.MailConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// Send delivers msg.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	port := s.cfg.Port
	if port == 0 {
		port = 25
	}
	addr := s.cfg.Host + ":" + strconv.Itoa(port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	body := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.cfg.From, msg.To, msg.Subject, msg.Body))
	if err := s.send(addr, auth, s.cfg.From, []string{msg.To}, body); err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.To, err)
	}
	return nil
}

// Nop discards every message.
type Nop struct{}

// Send does nothing.
func (Nop) Send(context.Context, Message) error { return nil }

// Recorder keeps the messages it is asked to send. Tests use it.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

// Send records msg.
func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, msg)
	return nil
}

// Last returns the most recent message, or the zero Message.
func (r *Recorder) Last() Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return Message{}
	}
	return r.Messages[len(r.Messages)-1]
}
