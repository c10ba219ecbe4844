package mail

import (
	"fmt"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type Config struct {
	Host string `envconfig:"SMTP_HOST" validate:"required" yaml:"host"`
	Port int    `envconfig:"SMTP_PORT" yaml:"port"`
	From string `envconfig:"MAIL_FROM" validate:"omitempty,email" yaml:"from"`
}

func DefaultConfig() Config {
	return Config{
		Host: "postfix-proxy.devint.gcp.openx.org",
		Port: 25,
	}
}

type Message struct {
	From     string
	Subject  string
	HTMLBody string
	To       []string
	Bcc      []string
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Sender delivers HTML mail through an unauthenticated relay.
type Sender struct {
	Config Config
	Send   SendFunc
	Now    func() time.Time
}

func NewSender(c Config) *Sender {
	return &Sender{Config: c, Send: smtp.SendMail, Now: time.Now}
}

// SplitAddresses splits a comma separated recipient list.
func SplitAddresses(list string) []string {
	parts := lo.Map(strings.Split(list, ","), func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Compact(parts)
}

// Build renders the message. Bcc recipients never appear in the headers.
func (m Message) Build(now time.Time) []byte {
	headers := map[string]string{
		"From":         m.From,
		"To":           strings.Join(m.To, ","),
		"Subject":      m.Subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=utf-8",
		"Date":         now.Format(time.RFC1123Z),
	}

	keys := lo.Keys(headers)
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", key, headers[key])
	}
	b.WriteString("\r\n")
	b.WriteString(m.HTMLBody)

	return []byte(b.String())
}

// Envelope lists every address the relay delivers to.
func (m Message) Envelope() []string {
	return append(append([]string{}, m.To...), m.Bcc...)
}

func (s *Sender) Deliver(m Message) error {
	if m.From == "" {
		m.From = s.Config.From
	}
	if m.From == "" {
		return errors.New("no sender address given")
	}
	if len(m.To) == 0 {
		return errors.New("no recipients given")
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	if err := s.Send(addr, nil, m.From, m.Envelope(), m.Build(s.Now())); err != nil {
		return errors.Wrapf(err, "failed to send mail through %s", addr)
	}

	return nil
}
