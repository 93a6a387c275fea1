package email

import (
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/example/stock-ledger/internal/config"
)

// Service handles email sending via SMTP
type Service struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewService(cfg config.SMTPConfig) *Service {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &Service{
		addr: cfg.Host + ":" + strconv.Itoa(cfg.Port),
		auth: auth,
		from: cfg.From,
		to:   cfg.To,
		send: smtp.SendMail,
	}
}

// SendStockAlert mails an alert notice to every configured recipient.
func (s *Service) SendStockAlert(n AlertNotice) error {
	if len(s.to) == 0 {
		return fmt.Errorf("no alert recipients configured")
	}
	return s.deliver(AlertSubject(n), BuildAlertBody(n))
}

func (s *Service) deliver(subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, strings.Join(s.to, ", "), subject, body)
	return s.send(s.addr, s.auth, s.from, s.to, []byte(msg))
}
