// Package mail renders invitation, update and cancellation e-mails for
// sessions and hands them to a Transport.
//
// Delivery is best effort. Transport failures are reported in Result and
// never returned as errors, so callers can persist first and warn later.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/conference-scheduler/internal/i18n"
)

// ErrNoRecipient is returned when a message has no usable address.
var ErrNoRecipient = errors.New("mail: recipient email is required")

// ErrNoSessions is returned when an invitation lists no sessions.
var ErrNoSessions = errors.New("mail: at least one session is required")

// Session is the view of a session needed to render e-mails.
type Session struct {
	ID           string
	Title        string
	Description  string
	FacultyEmail string
	Place        string
	RoomName     string
	Start        time.Time
	End          time.Time
}

// Result reports the outcome of a best-effort delivery.
type Result struct {
	OK      bool
	Message string
}

// Config controls rendering and delivery.
type Config struct {
	BaseURL  string
	Location *time.Location
	Locale   string
	Timeout  time.Duration
	Retries  int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
}

// Dispatcher renders and sends session e-mails.
type Dispatcher struct {
	transport  Transport
	translator *i18n.Translator
	renderer   *renderer
	cfg        Config
	logger     *slog.Logger
}

// NewDispatcher wires a dispatcher. A nil logger falls back to slog.Default.
func NewDispatcher(transport Transport, translator *i18n.Translator, cfg Config, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	return &Dispatcher{
		transport:  transport,
		translator: translator,
		renderer:   newRenderer(cfg.BaseURL, cfg.Location),
		cfg:        cfg,
		logger:     logger,
	}
}

// LoginURL returns the self-service link embedded in e-mails for email.
func (d *Dispatcher) LoginURL(email string) string {
	return LoginURL(d.cfg.BaseURL, email)
}

// SendBulkInvite sends one invitation listing every session to email.
func (d *Dispatcher) SendBulkInvite(ctx context.Context, sessions []Session, facultyName, email string) (Result, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Result{}, ErrNoRecipient
	}
	if len(sessions) == 0 {
		return Result{}, ErrNoSessions
	}

	views, err := d.sessionViews(sessions)
	if err != nil {
		return Result{}, err
	}

	subject := d.translator.Plural(d.cfg.Locale, i18n.MsgInviteSubject, len(sessions), map[string]any{"Title": sessions[0].Title})
	view := emailView{
		Heading:      subject,
		CallToAction: d.t(i18n.MsgMailCTARespond, nil),
		Count:        len(sessions),
		Sessions:     views,
		Text:         d.text(TemplateInvite, facultyName, len(sessions)),
	}
	return d.deliver(ctx, TemplateInvite, email, subject, view)
}

// SendInvite is SendBulkInvite for a single session.
func (d *Dispatcher) SendInvite(ctx context.Context, session Session, facultyName, email string) (Result, error) {
	return d.SendBulkInvite(ctx, []Session{session}, facultyName, email)
}

// SendUpdate notifies the faculty member that a session moved and asks them
// to reconfirm. roomName overrides session.RoomName when set.
func (d *Dispatcher) SendUpdate(ctx context.Context, session Session, facultyName, roomName string) (Result, error) {
	return d.sendSingle(ctx, TemplateUpdate, i18n.MsgUpdateSubject, i18n.MsgMailCTAReconfirm, session, facultyName, roomName)
}

// SendCancellation notifies the faculty member that a session was removed.
func (d *Dispatcher) SendCancellation(ctx context.Context, session Session, facultyName, roomName string) (Result, error) {
	return d.sendSingle(ctx, TemplateCancellation, i18n.MsgCancellationSubject, i18n.MsgMailCTAViewSessions, session, facultyName, roomName)
}

func (d *Dispatcher) sendSingle(ctx context.Context, name, subjectKey, ctaKey string, session Session, facultyName, roomName string) (Result, error) {
	email := strings.TrimSpace(session.FacultyEmail)
	if email == "" {
		return Result{}, ErrNoRecipient
	}
	if roomName != "" {
		session.RoomName = roomName
	}

	views, err := d.sessionViews([]Session{session})
	if err != nil {
		return Result{}, err
	}

	subject := d.t(subjectKey, map[string]any{"Title": session.Title})
	view := emailView{
		Heading:      subject,
		CallToAction: d.t(ctaKey, nil),
		Count:        1,
		Sessions:     views,
		Text:         d.text(name, facultyName, 1),
	}
	return d.deliver(ctx, name, email, subject, view)
}

func (d *Dispatcher) t(key string, data map[string]any) string {
	return d.translator.T(d.cfg.Locale, key, data)
}

func (d *Dispatcher) sessionViews(sessions []Session) ([]sessionView, error) {
	return d.renderer.sessionViews(sessions, d.t(i18n.MsgMailTBA, nil), func(length time.Duration) string {
		return d.translator.Plural(d.cfg.Locale, i18n.MsgMailDuration, int(length/time.Minute), nil)
	})
}

// text assembles the localized body copy for template name.
func (d *Dispatcher) text(name, facultyName string, count int) emailText {
	text := emailText{
		Greeting:     d.t(i18n.MsgMailGreeting, map[string]any{"Name": fallback(facultyName, d.t(i18n.MsgMailColleague, nil))}),
		Signoff:      d.t(i18n.MsgMailThanks, nil),
		Signature:    d.t(i18n.MsgMailSignature, nil),
		LinkFallback: d.t(i18n.MsgMailLinkFallback, nil),
		Columns: columnText{
			Session: d.t(i18n.MsgMailColumnSession, nil),
			Date:    d.t(i18n.MsgMailColumnDate, nil),
			Time:    d.t(i18n.MsgMailColumnTime, nil),
			Venue:   d.t(i18n.MsgMailColumnVenue, nil),
			Hall:    d.t(i18n.MsgMailColumnHall, nil),
		},
	}
	switch name {
	case TemplateInvite:
		text.Intro = d.translator.Plural(d.cfg.Locale, i18n.MsgMailInviteIntro, count, nil)
		text.Note = d.t(i18n.MsgMailInviteOptions, nil)
	case TemplateUpdate:
		text.Intro = d.t(i18n.MsgMailUpdateIntro, nil)
		text.Note = d.t(i18n.MsgMailUpdateReconfirm, nil)
	case TemplateCancellation:
		text.Intro = d.t(i18n.MsgMailCancellationIntro, nil)
		text.Signoff = d.t(i18n.MsgMailApology, nil)
	}
	return text
}

func (d *Dispatcher) deliver(ctx context.Context, name, email, subject string, view emailView) (Result, error) {
	htmlBody, textBody, err := d.renderer.render(name, email, view)
	if err != nil {
		return Result{}, err
	}

	msg := Message{To: email, Subject: subject, HTML: htmlBody, Text: textBody, Template: name}
	logger := d.logger.With("template", name, "to", email)

	var lastErr error
	for attempt := 0; attempt <= d.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Result{OK: false, Message: ctx.Err().Error()}, nil
			case <-time.After(d.cfg.RetryDelay):
			}
		}

		lastErr = d.attempt(ctx, msg)
		if lastErr == nil {
			logger.InfoContext(ctx, "email sent", "attempt", attempt+1)
			return Result{OK: true, Message: fmt.Sprintf("email sent to %s", email)}, nil
		}
		logger.WarnContext(ctx, "email attempt failed", "attempt", attempt+1, "error", lastErr)
	}

	return Result{OK: false, Message: lastErr.Error()}, nil
}

func (d *Dispatcher) attempt(ctx context.Context, msg Message) error {
	if d.transport == nil {
		return errors.New("mail: no transport configured")
	}
	attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	return d.transport.Send(attemptCtx, msg)
}
