package i18n_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/i18n"
)

func TestYAMLParser(t *testing.T) {
	t.Parallel()

	p := i18n.NewYAMLParser()
	assert.True(t, p.SupportsFileExtension(".yaml"))
	assert.True(t, p.SupportsFileExtension("YML"))
	assert.False(t, p.SupportsFileExtension("json"))

	got, err := p.Parse(context.Background(), []byte("en:\n  page:\n    title: Billing\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "Billing"}, got["en"]["page"])

	tests := map[string]string{
		"not yaml":     "::: [",
		"empty":        "",
		"scalar value": "en: hello\n",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := p.Parse(context.Background(), []byte(raw))
			assert.ErrorIs(t, err, i18n.ErrFailedToParseYAML)
		})
	}

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Parse(ctx, []byte("en: {a: b}"))
		assert.ErrorIs(t, err, i18n.ErrYAMLParsingCancelled)
	})
}

func TestNewParserForFile(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, i18n.NewParserForFile("locales/en.yaml"))
	assert.NotNil(t, i18n.NewParserForFile("es.YML"))
	assert.Nil(t, i18n.NewParserForFile("en.json"))
	assert.Nil(t, i18n.NewParserForFile("README"))
}

func TestEmbeddedFsAdapter(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"locales/a_es.yaml":  {Data: []byte("es-AR:\n  hello: Hola\n  bye: Chau\n")},
		"locales/b_en.yml":   {Data: []byte("en:\n  hello: Hello\n")},
		"locales/c_es.yaml":  {Data: []byte("es-AR:\n  bye: Adiós\n")},
		"locales/notes.txt":  {Data: []byte("ignored")},
		"locales/nested/x.y": {Data: []byte("ignored")},
	}

	adapter := i18n.NewEmbeddedFsAdapter(i18n.NewYAMLParser(), fsys, "locales")
	require.NotNil(t, adapter)

	got, err := adapter.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]any{
		"es-AR": {"hello": "Hola", "bye": "Adiós"},
		"en":    {"hello": "Hello"},
	}, got)

	tr, err := i18n.NewTranslator(context.Background(), adapter, i18n.WithDefaultLanguage("es-AR"))
	require.NoError(t, err)
	assert.Equal(t, "Adiós", tr.T(tr.Match("es-UY"), "bye"))

	t.Run("invalid arguments", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, i18n.NewEmbeddedFsAdapter(nil, fsys, "locales"))
		assert.Nil(t, i18n.NewEmbeddedFsAdapter(i18n.NewYAMLParser(), nil, "locales"))
		assert.Nil(t, i18n.NewEmbeddedFsAdapter(i18n.NewYAMLParser(), fsys, ""))
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()
		_, err := i18n.NewEmbeddedFsAdapter(i18n.NewYAMLParser(), fsys, "nope").Load(context.Background())
		assert.ErrorIs(t, err, i18n.ErrFailedToReadDirectory)
	})

	t.Run("no supported files", func(t *testing.T) {
		t.Parallel()
		only := fstest.MapFS{"locales/notes.txt": {Data: []byte("x")}}
		_, err := i18n.NewEmbeddedFsAdapter(i18n.NewYAMLParser(), only, "locales").Load(context.Background())
		assert.ErrorIs(t, err, i18n.ErrNoTranslationFilesFound)
	})

	t.Run("broken file", func(t *testing.T) {
		t.Parallel()
		broken := fstest.MapFS{"locales/en.yaml": {Data: []byte("::: [")}}
		_, err := i18n.NewEmbeddedFsAdapter(i18n.NewYAMLParser(), broken, "locales").Load(context.Background())
		assert.ErrorIs(t, err, i18n.ErrFailedToParseFile)
		assert.ErrorIs(t, err, i18n.ErrFailedToParseYAML)
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()
		empty := fstest.MapFS{"locales/en.yaml": {Data: nil}}
		_, err := i18n.NewEmbeddedFsAdapter(i18n.NewYAMLParser(), empty, "locales").Load(context.Background())
		assert.ErrorIs(t, err, i18n.ErrFailedToParseFile)
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := adapter.Load(ctx)
		assert.ErrorIs(t, err, i18n.ErrLoadingCancelled)
	})
}
