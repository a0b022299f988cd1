package qrcode_test

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/qrcode"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestGenerate(t *testing.T) {
	t.Parallel()

	t.Run("png output", func(t *testing.T) {
		t.Parallel()
		png, err := qrcode.Generate("https://www.mercadopago.com/checkout/v1/redirect?pref_id=123", 0)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(png, pngMagic))
	})

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()
		_, err := qrcode.Generate("   ", 128)
		assert.ErrorIs(t, err, qrcode.ErrEmptyContent)
	})

	t.Run("content too long", func(t *testing.T) {
		t.Parallel()
		_, err := qrcode.Generate(strings.Repeat("x", 5000), 128)
		assert.ErrorIs(t, err, qrcode.ErrFailedToGenerate)
	})
}

func TestDataURI(t *testing.T) {
	t.Parallel()

	uri, err := qrcode.DataURI("https://pay.example.com/link", 128)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, pngMagic))

	_, err = qrcode.DataURI("", 128)
	assert.ErrorIs(t, err, qrcode.ErrEmptyContent)
}
