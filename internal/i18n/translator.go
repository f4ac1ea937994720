// Package i18n localizes API error messages and e-mail copy.
package i18n

import (
	"embed"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed active.*.toml
var localeFS embed.FS

var localeFiles = []string{"active.en.toml", "active.ja.toml"}

// Message identifiers shared by the HTTP layer and the mail dispatcher.
const (
	MsgValidation          = "error_validation"
	MsgInvalidBody         = "error_invalid_body"
	MsgNotFound            = "error_not_found"
	MsgResourceNotFound    = "error_resource_not_found"
	MsgConflict            = "error_conflict"
	MsgInvalidAction       = "error_invalid_action"
	MsgUnauthorized        = "error_unauthorized"
	MsgForbidden           = "error_forbidden"
	MsgInternal            = "error_internal"
	MsgAlreadyExists       = "error_already_exists"
	MsgMethodNotAllowed    = "error_method_not_allowed"
	MsgEmailFailed         = "warning_email_failed"
	MsgInvitesPartial      = "warning_invites_partial"
	MsgInviteSubject       = "mail_invite_subject"
	MsgUpdateSubject       = "mail_update_subject"
	MsgCancellationSubject = "mail_cancellation_subject"
)

// E-mail body copy.
const (
	MsgMailGreeting          = "mail_greeting"
	MsgMailColleague         = "mail_colleague"
	MsgMailInviteIntro       = "mail_invite_intro"
	MsgMailInviteOptions     = "mail_invite_options"
	MsgMailUpdateIntro       = "mail_update_intro"
	MsgMailUpdateReconfirm   = "mail_update_reconfirm"
	MsgMailCancellationIntro = "mail_cancellation_intro"
	MsgMailThanks            = "mail_signoff_thanks"
	MsgMailApology           = "mail_signoff_apology"
	MsgMailSignature         = "mail_signature"
	MsgMailLinkFallback      = "mail_link_fallback"
	MsgMailCTARespond        = "mail_cta_respond"
	MsgMailCTAReconfirm      = "mail_cta_reconfirm"
	MsgMailCTAViewSessions   = "mail_cta_view_sessions"
	MsgMailColumnSession     = "mail_column_session"
	MsgMailColumnDate        = "mail_column_date"
	MsgMailColumnTime        = "mail_column_time"
	MsgMailColumnVenue       = "mail_column_venue"
	MsgMailColumnHall        = "mail_column_hall"
	MsgMailTBA               = "mail_tba"
	MsgMailDuration          = "mail_duration"
)

// Translator is a thin wrapper around go-i18n's Bundle/Localizer.
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
}

// NewTranslator builds a Translator using the given default locale
// (e.g. "en"). Unparseable locales fall back to English.
func NewTranslator(defaultLocale string) (*Translator, error) {
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		tag = language.English
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range localeFiles {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			return nil, fmt.Errorf("i18n: load %s: %w", file, err)
		}
	}

	return &Translator{bundle: bundle, defaultLanguage: tag}, nil
}

// DefaultLanguage reports the fallback locale.
func (t *Translator) DefaultLanguage() language.Tag {
	return t.defaultLanguage
}

// T renders the message identified by key. locale may be a bare tag or a raw
// Accept-Language header. Unknown keys render as the key itself.
func (t *Translator) T(locale, key string, data map[string]any) string {
	return t.localize(locale, key, nil, data)
}

// Plural renders key choosing the plural form for count. count is also
// exposed to the template as .Count.
func (t *Translator) Plural(locale, key string, count int, data map[string]any) string {
	merged := make(map[string]any, len(data)+1)
	for k, v := range data {
		merged[k] = v
	}
	merged["Count"] = count
	return t.localize(locale, key, count, merged)
}

func (t *Translator) localize(locale, key string, count any, data map[string]any) string {
	if key == "" {
		return ""
	}
	if t == nil || t.bundle == nil {
		return key
	}

	languages := make([]string, 0, 2)
	if locale != "" {
		languages = append(languages, locale)
	}
	languages = append(languages, t.defaultLanguage.String())

	localizer := i18n.NewLocalizer(t.bundle, languages...)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
		PluralCount:  count,
	})
	if err != nil {
		return key
	}
	return msg
}
