package i18n

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// Translator looks up localized strings. It is immutable after
// construction and safe for concurrent use.
type Translator struct {
	translations   map[string]map[string]any
	langs          []string
	matchOrder     []string
	matcher        language.Matcher
	defaultLang    string
	fallbackToKey  bool
	missingLogMode bool
	logger         *slog.Logger
}

// NewTranslator loads the adapter's catalogue. Without WithDefaultLanguage
// the first language in sorted order is the default.
func NewTranslator(ctx context.Context, adapter TranslationAdapter, options ...Option) (*Translator, error) {
	if adapter == nil {
		return nil, ErrNilAdapter
	}

	t := &Translator{
		fallbackToKey: true,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(t)
	}

	translations, err := adapter.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(translations) == 0 {
		return nil, ErrNoTranslations
	}
	for lang, tr := range translations {
		if lang == "" {
			return nil, fmt.Errorf("%w: empty language code", ErrInvalidTranslations)
		}
		if tr == nil {
			return nil, fmt.Errorf("%w: nil translations for %q", ErrInvalidTranslations, lang)
		}
	}
	t.translations = translations

	t.langs = make([]string, 0, len(translations))
	for lang := range translations {
		t.langs = append(t.langs, lang)
	}
	slices.Sort(t.langs)

	if t.defaultLang == "" {
		t.defaultLang = t.langs[0]
	}
	if _, ok := translations[t.defaultLang]; !ok {
		return nil, fmt.Errorf("%w: default language %q not loaded", ErrInvalidTranslations, t.defaultLang)
	}

	// the matcher falls back to its first tag
	t.matchOrder = append([]string{t.defaultLang}, slices.DeleteFunc(slices.Clone(t.langs), func(l string) bool {
		return l == t.defaultLang
	})...)
	tags := make([]language.Tag, len(t.matchOrder))
	for i, lang := range t.matchOrder {
		tags[i] = language.Make(lang)
	}
	t.matcher = language.NewMatcher(tags)

	t.logger.InfoContext(ctx, "translations loaded", "languages", t.langs)
	return t, nil
}

// SupportedLanguages returns the loaded language codes, sorted.
func (t *Translator) SupportedLanguages() []string {
	return slices.Clone(t.langs)
}

// DefaultLanguage returns the fallback language.
func (t *Translator) DefaultLanguage() string {
	return t.defaultLang
}

// Match returns the loaded language closest to locale, which may be a
// single tag or an Accept-Language header value. Unknown or malformed input
// yields the default language.
func (t *Translator) Match(locale string) string {
	if locale == "" {
		return t.defaultLang
	}
	desired, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(desired) == 0 {
		return t.defaultLang
	}
	_, idx, _ := t.matcher.Match(desired...)
	return t.matchOrder[idx]
}

// HasTranslation reports whether lang has a value at key.
func (t *Translator) HasTranslation(lang, key string) bool {
	m, ok := t.translations[lang]
	if !ok {
		return false
	}
	_, ok = lookup(m, key)
	return ok
}

// T translates key for lang, replacing %{name} placeholders with the
// key/value pairs in args. A missing translation yields the key itself, or
// an empty string when fallback to the key is disabled.
func (t *Translator) T(lang, key string, args ...string) string {
	if s, ok := t.lookupString(lang, key); ok {
		return substitute(s, args)
	}
	if t.fallbackToKey {
		return substitute(key, args)
	}
	return ""
}

// Td is T with an explicit fallback value.
func (t *Translator) Td(lang, key, defaultValue string, args ...string) string {
	if s, ok := t.lookupString(lang, key); ok {
		return substitute(s, args)
	}
	return substitute(defaultValue, args)
}

func (t *Translator) lookupString(lang, key string) (string, bool) {
	m, ok := t.translations[lang]
	if !ok {
		if t.missingLogMode {
			t.logger.Warn("language not supported", "lang", lang, "key", key)
		}
		return "", false
	}
	val, ok := lookup(m, key)
	if !ok {
		if t.missingLogMode {
			t.logger.Warn("translation not found", "lang", lang, "key", key)
		}
		return "", false
	}
	switch v := val.(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	case int, int64, float64, bool:
		return fmt.Sprint(v), true
	}
	if t.missingLogMode {
		t.logger.Warn("translation is not a string", "lang", lang, "key", key, "type", fmt.Sprintf("%T", val))
	}
	return "", false
}

// lookup walks m along the dot-separated key.
func lookup(m map[string]any, key string) (any, bool) {
	parts := strings.Split(key, ".")
	current := m
	for i, part := range parts {
		val, ok := current[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return val, true
		}
		switch next := val.(type) {
		case map[string]any:
			current = next
		case map[any]any:
			current = make(map[string]any, len(next))
			for k, v := range next {
				if ks, ok := k.(string); ok {
					current[ks] = v
				}
			}
		default:
			return nil, false
		}
	}
	return nil, false
}

var paramRegex = regexp.MustCompile(`%\{([^}]+)\}`)

// substitute replaces %{name} with the matching value from the key/value
// pairs in args. An odd trailing argument is ignored.
func substitute(tmpl string, args []string) string {
	if len(args) < 2 || !strings.Contains(tmpl, "%{") {
		return tmpl
	}
	params := make(map[string]string, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		params[args[i]] = args[i+1]
	}
	return paramRegex.ReplaceAllStringFunc(tmpl, func(match string) string {
		if val, ok := params[match[2:len(match)-1]]; ok {
			return val
		}
		return match
	})
}
