package tui

import (
	"time"

	"github.com/evanschultz/taskflow/internal/board"
	"github.com/evanschultz/taskflow/internal/config"
	"github.com/evanschultz/taskflow/internal/session"
	"github.com/evanschultz/taskflow/internal/translator"
)

type Option func(*Model)

// WithSession gates the UI behind the sign-in screen.
func WithSession(s *session.Session) Option {
	return func(m *Model) {
		m.session = s
	}
}

func WithTranslator(tr *translator.Translator) Option {
	return func(m *Model) {
		if tr != nil {
			m.tr = tr
		}
	}
}

// WithSettings seeds the settings page and board display flags.
func WithSettings(cfg config.Config) Option {
	return func(m *Model) {
		m.settings = cfg
	}
}

// WithSaveSettings persists settings after every change on the settings page.
func WithSaveSettings(save func(config.Config) error) Option {
	return func(m *Model) {
		m.saveSettings = save
	}
}

func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.writeClipboard = write
		}
	}
}

// WithExportDir sets where report exports are written.
func WithExportDir(dir string) Option {
	return func(m *Model) {
		m.exportDir = dir
	}
}

// WithExportDirFunc resolves the export directory lazily, creating it on first export.
func WithExportDirFunc(resolve func() (string, error)) Option {
	return func(m *Model) {
		m.resolveExportDir = resolve
	}
}

// WithNotifier forwards drag notifications to an additional sink.
func WithNotifier(n board.Notifier) Option {
	return func(m *Model) {
		m.notifier = n
	}
}

// WithOutcomeHook observes every finished drag gesture.
func WithOutcomeHook(hook func(board.Outcome)) Option {
	return func(m *Model) {
		m.onOutcome = hook
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}
