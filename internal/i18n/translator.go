package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator maps message keys to localized texts. The workflow raises
// structured error kinds; this is where they become words.
type Translator struct {
	defaultLang string
	messages    map[string]map[string]string
}

func NewTranslator(defaultLang string) (*Translator, error) {
	t := &Translator{
		defaultLang: defaultLang,
		messages:    make(map[string]map[string]string),
	}

	entries, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("failed to read locales: %w", err)
	}

	for _, entry := range entries {
		lang := strings.TrimSuffix(entry.Name(), ".json")
		data, err := localeFS.ReadFile("locales/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read locale %s: %w", lang, err)
		}

		var texts map[string]string
		if err := json.Unmarshal(data, &texts); err != nil {
			return nil, fmt.Errorf("failed to parse locale %s: %w", lang, err)
		}
		t.messages[lang] = texts
	}

	if _, ok := t.messages[defaultLang]; !ok {
		return nil, fmt.Errorf("default language %q has no locale file", defaultLang)
	}

	return t, nil
}

// Translate returns the text for key in lang, falling back to the default
// language and finally to the key itself.
func (t *Translator) Translate(lang, key string) string {
	if texts, ok := t.messages[lang]; ok {
		if text, ok := texts[key]; ok {
			return text
		}
	}
	if text, ok := t.messages[t.defaultLang][key]; ok {
		return text
	}
	return key
}

func (t *Translator) Languages() []string {
	langs := make([]string, 0, len(t.messages))
	for lang := range t.messages {
		langs = append(langs, lang)
	}
	return langs
}
