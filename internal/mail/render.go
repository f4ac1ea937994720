package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

// descriptionRenderer escapes raw HTML in descriptions (WithUnsafe is not set).
var descriptionRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Template names, also used as metric labels.
const (
	TemplateInvite       = "invite"
	TemplateUpdate       = "update"
	TemplateCancellation = "cancellation"
)

type theme struct {
	Accent template.CSS
	Strong template.CSS
	Soft   template.CSS
}

var themes = map[string]theme{
	TemplateInvite:       {Accent: "#1d4ed8", Strong: "#1e3a8a", Soft: "#eff6ff"},
	TemplateUpdate:       {Accent: "#d97706", Strong: "#92400e", Soft: "#fef3c7"},
	TemplateCancellation: {Accent: "#b91c1c", Strong: "#7f1d1d", Soft: "#fee2e2"},
}

type sessionView struct {
	Title       string
	Description template.HTML
	Date        string
	Time        string
	Duration    string
	Place       string
	Room        string
}

// emailText is the localized copy of one e-mail.
type emailText struct {
	Greeting     string
	Intro        string
	Note         string
	Signoff      string
	Signature    string
	LinkFallback string
	Columns      columnText
}

type columnText struct {
	Session string
	Date    string
	Time    string
	Venue   string
	Hall    string
}

type emailView struct {
	Heading      string
	CallToAction string
	LoginURL     string
	Count        int
	Sessions     []sessionView
	Text         emailText
	Theme        theme
}

type renderer struct {
	baseURL   string
	location  *time.Location
	converter *md.Converter
}

func newRenderer(baseURL string, location *time.Location) *renderer {
	if location == nil {
		location = time.UTC
	}
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &renderer{
		baseURL:   strings.TrimRight(baseURL, "/"),
		location:  location,
		converter: converter,
	}
}

// LoginURL builds the faculty self-service link for email.
func LoginURL(baseURL, email string) string {
	return strings.TrimRight(baseURL, "/") + "/faculty-login?email=" + url.QueryEscape(strings.TrimSpace(email))
}

func (r *renderer) render(name, recipient string, view emailView) (htmlBody, textBody string, err error) {
	view.Theme = themes[name]
	view.LoginURL = LoginURL(r.baseURL, recipient)

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+".html.tmpl", view); err != nil {
		return "", "", fmt.Errorf("mail: render %s: %w", name, err)
	}
	htmlBody = buf.String()

	textBody, err = r.converter.ConvertString(htmlBody)
	if err != nil {
		return "", "", fmt.Errorf("mail: plaintext %s: %w", name, err)
	}
	return htmlBody, strings.TrimSpace(textBody) + "\n", nil
}

// sessionViews formats sessions for the table. tba replaces a missing venue
// or hall and duration labels each session's length.
func (r *renderer) sessionViews(sessions []Session, tba string, duration func(time.Duration) string) ([]sessionView, error) {
	views := make([]sessionView, 0, len(sessions))
	for _, session := range sessions {
		description, err := r.renderDescription(session.Description)
		if err != nil {
			return nil, err
		}
		start := session.Start.In(r.location)
		end := session.End.In(r.location)
		views = append(views, sessionView{
			Title:       session.Title,
			Description: description,
			Date:        start.Format("Mon, 02 Jan 2006"),
			Time:        start.Format("15:04") + " - " + end.Format("15:04"),
			Duration:    duration(session.End.Sub(session.Start)),
			Place:       fallback(session.Place, tba),
			Room:        fallback(session.RoomName, tba),
		})
	}
	return views, nil
}

func (r *renderer) renderDescription(source string) (template.HTML, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := descriptionRenderer.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("mail: render description: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// FormatDuration renders d as whole minutes, e.g. "45 minutes".
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%d minutes", int(d/time.Minute))
}

func fallback(value, alt string) string {
	if strings.TrimSpace(value) == "" {
		return alt
	}
	return value
}
