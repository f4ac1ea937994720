package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// Message is a rendered e-mail ready for delivery.
type Message struct {
	To       string
	Subject  string
	HTML     string
	Text     string
	Template string
}

// Transport delivers rendered messages.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig configures SMTPTransport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPTransport sends messages through an SMTP relay using go-mail.
type SMTPTransport struct {
	client *gomail.Client
	from   string
}

// NewSMTPTransport builds a client for the configured relay. Authentication is
// enabled only when a username is supplied. STARTTLS is used when offered.
func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("mail: smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("mail: sender address is required")
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: smtp client: %w", err)
	}
	return &SMTPTransport{client: client, from: cfg.From}, nil
}

// Send delivers msg as a multipart/alternative message.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMsg()
	if err := m.From(t.from); err != nil {
		return fmt.Errorf("mail: sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("mail: recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)

	if err := t.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("mail: deliver to %s: %w", msg.To, err)
	}
	return nil
}

// LogTransport records messages in the log instead of delivering them. It is
// used when no SMTP relay is configured.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport returns a transport that only logs.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

// Send logs msg metadata and never fails.
func (t *LogTransport) Send(ctx context.Context, msg Message) error {
	t.logger.InfoContext(ctx, "email delivery skipped, no smtp relay configured",
		"to", msg.To,
		"subject", msg.Subject,
		"template", msg.Template,
		"text_bytes", len(msg.Text),
		"html_bytes", len(msg.HTML),
	)
	return nil
}
