// Package translation resolves user-facing bot strings through the gotext
// catalogs under locales/, selected from the lang config key at startup.
package translation

import (
	"github.com/leonelquinteros/gotext"
)

const fallbackLanguage = "en"

// GetLanguage reports the active catalog language, falling back to English
// when gotext has no determinate locale.
func GetLanguage() string {
	lang := gotext.GetLanguage()

	if lang == "und" || lang == "" {
		return fallbackLanguage
	}

	return lang
}

// Translate resolves a message id against the active catalog. Untranslated
// ids pass through unchanged, so the English literals in the command
// handlers double as the default catalog.
func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}
