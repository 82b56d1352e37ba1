// Package translator localizes user-facing notifications.
package translator

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

// Supported languages.
const (
	LanguageEn = "en"
	LanguageEs = "es"
	LanguageFr = "fr"
	LanguageDe = "de"
)

// Message ids shared by every locale file.
const (
	MsgTaskMoved      = "task_moved"
	MsgTaskCreated    = "task_created"
	MsgTaskUpdated    = "task_updated"
	MsgTaskDeleted    = "task_deleted"
	MsgColumnCreated  = "column_created"
	MsgSettingUpdated = "setting_updated"
	MsgProfileUpdated = "profile_updated"
	MsgReportExported = "report_exported"
	MsgReportCopied   = "report_copied"
	MsgSignedIn       = "signed_in"
	MsgSignedOut      = "signed_out"
	MsgActionFailed   = "action_failed"
)

//go:embed locales/*.toml
var localeFS embed.FS

// Translator renders messages in the active language, falling back to English.
type Translator struct {
	bundle *i18n.Bundle

	mu        sync.RWMutex
	lang      string
	localizer *i18n.Localizer
}

// New loads the embedded locales and activates lang.
func New(lang string) (*Translator, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("list locales: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := path.Join("locales", entry.Name())
		data, err := localeFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, entry.Name()); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}
	}

	t := &Translator{bundle: bundle}
	t.SetLanguage(lang)
	return t, nil
}

// Languages lists the loaded language codes in sorted order.
func (t *Translator) Languages() []string {
	tags := t.bundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		base, _ := tag.Base()
		out = append(out, base.String())
	}
	slices.Sort(out)
	return out
}

// SetLanguage switches the active language. Unknown codes fall back to English.
func (t *Translator) SetLanguage(lang string) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = LanguageEn
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lang = lang
	t.localizer = i18n.NewLocalizer(t.bundle, lang, LanguageEn)
}

// Language returns the active language code.
func (t *Translator) Language() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lang
}

// Localize renders messageID with data. Unknown ids come back unchanged.
func (t *Translator) Localize(messageID string, data map[string]any) string {
	t.mu.RLock()
	localizer := t.localizer
	t.mu.RUnlock()

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}
