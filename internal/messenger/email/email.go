package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/llevisouza/gestao-cobrancas/internal/messenger"
)

// Config for the SMTP fallback channel.
type Config struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"required"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from" validate:"required,email"`
	Subject  string `yaml:"subject"`
}

// Sender delivers notifications by email when a client has no phone number.
type Sender struct {
	cfg    Config
	dialer *gomail.Dialer
}

func NewSender(cfg Config) *Sender {
	if cfg.Subject == "" {
		cfg.Subject = "Notificação de cobrança"
	}
	return &Sender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *Sender) Send(ctx context.Context, destination, body string) (*messenger.SendResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", destination)
	m.SetHeader("Subject", s.cfg.Subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return &messenger.SendResult{Success: false, Error: err.Error()}, nil
	}
	return &messenger.SendResult{Success: true}, nil
}

// CheckConnection opens and closes an SMTP session.
func (s *Sender) CheckConnection(ctx context.Context) (*messenger.ConnectionStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	closer, err := s.dialer.Dial()
	if err != nil {
		return &messenger.ConnectionStatus{Connected: false, State: fmt.Sprintf("smtp: %v", err)}, nil
	}
	closer.Close()
	return &messenger.ConnectionStatus{Connected: true, State: "open"}, nil
}
