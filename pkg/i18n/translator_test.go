package i18n_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/i18n"
)

func newTranslator(t *testing.T, opts ...i18n.Option) *i18n.Translator {
	t.Helper()
	adapter := &i18n.MapAdapter{Data: map[string]map[string]any{
		"es-AR": {
			"hello": "Hola",
			"notice": map[string]any{
				"due": "Vence el %{date}, importe %{amount}",
			},
			"count": 3,
		},
		"en": {
			"hello": "Hello",
			"notice": map[string]any{
				"due": "Due on %{date}, amount %{amount}",
			},
		},
	}}
	tr, err := i18n.NewTranslator(context.Background(), adapter, opts...)
	require.NoError(t, err)
	return tr
}

func TestNewTranslator(t *testing.T) {
	t.Parallel()

	t.Run("nil adapter", func(t *testing.T) {
		t.Parallel()
		_, err := i18n.NewTranslator(context.Background(), nil)
		assert.ErrorIs(t, err, i18n.ErrNilAdapter)
	})

	t.Run("empty catalogue", func(t *testing.T) {
		t.Parallel()
		_, err := i18n.NewTranslator(context.Background(), &i18n.MapAdapter{})
		assert.ErrorIs(t, err, i18n.ErrNoTranslations)
	})

	t.Run("default language not loaded", func(t *testing.T) {
		t.Parallel()
		adapter := &i18n.MapAdapter{Data: map[string]map[string]any{"en": {"a": "b"}}}
		_, err := i18n.NewTranslator(context.Background(), adapter, i18n.WithDefaultLanguage("fr"))
		assert.ErrorIs(t, err, i18n.ErrInvalidTranslations)
	})

	t.Run("nil language map", func(t *testing.T) {
		t.Parallel()
		adapter := &i18n.MapAdapter{Data: map[string]map[string]any{"en": nil}}
		_, err := i18n.NewTranslator(context.Background(), adapter)
		assert.ErrorIs(t, err, i18n.ErrInvalidTranslations)
	})

	t.Run("languages sorted, first is default", func(t *testing.T) {
		t.Parallel()
		tr := newTranslator(t)
		assert.Equal(t, []string{"en", "es-AR"}, tr.SupportedLanguages())
		assert.Equal(t, "en", tr.DefaultLanguage())
	})
}

func TestTranslator_T(t *testing.T) {
	t.Parallel()

	tr := newTranslator(t)

	assert.Equal(t, "Hola", tr.T("es-AR", "hello"))
	assert.Equal(t, "Due on Mar 31, amount $ 10", tr.T("en", "notice.due", "date", "Mar 31", "amount", "$ 10"))
	assert.Equal(t, "Vence el 31/03, importe %{amount}", tr.T("es-AR", "notice.due", "date", "31/03"),
		"unknown placeholders stay")
	assert.Equal(t, "3", tr.T("es-AR", "count"))

	assert.Equal(t, "missing.key", tr.T("en", "missing.key"), "falls back to the key")
	assert.Equal(t, "hello", tr.T("fr", "hello"), "unknown language falls back to the key")
	assert.Equal(t, "notice", tr.T("en", "notice"), "a map is not a string")
	assert.Equal(t, "hello.deeper", tr.T("en", "hello.deeper"))

	strict := newTranslator(t, i18n.WithFallbackToKey(false))
	assert.Empty(t, strict.T("en", "missing.key"))
}

func TestTranslator_Td(t *testing.T) {
	t.Parallel()

	tr := newTranslator(t)
	assert.Equal(t, "Hello", tr.Td("en", "hello", "fallback"))
	assert.Equal(t, "fallback 1", tr.Td("en", "nope", "fallback %{n}", "n", "1"))
}

func TestTranslator_HasTranslation(t *testing.T) {
	t.Parallel()

	tr := newTranslator(t)
	assert.True(t, tr.HasTranslation("en", "notice.due"))
	assert.True(t, tr.HasTranslation("en", "notice"))
	assert.False(t, tr.HasTranslation("en", "notice.missing"))
	assert.False(t, tr.HasTranslation("fr", "hello"))
}

func TestTranslator_Match(t *testing.T) {
	t.Parallel()

	tr := newTranslator(t, i18n.WithDefaultLanguage("es-AR"))

	tests := map[string]string{
		"":                         "es-AR",
		"es-AR":                    "es-AR",
		"en":                       "en",
		"en-US":                    "en",
		"en-GB;q=0.8, es-AR":       "es-AR",
		"fr-FR, en;q=0.5":          "en",
		"ja":                       "es-AR",
		"not a ;;; language ,, q=": "es-AR",
	}
	for in, want := range tests {
		assert.Equal(t, want, tr.Match(in), "Match(%q)", in)
	}
}
