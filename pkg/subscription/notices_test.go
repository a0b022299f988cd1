package subscription_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/i18n"
	"github.com/dmitrymomot/storefront/pkg/subscription"
)

func TestLoadNotices_Locales(t *testing.T) {
	t.Parallel()

	tests := []struct {
		locale      string
		wantLang    string
		wantSubject string
	}{
		{"", "es-AR", "Tu suscripción vence en 3 días"},
		{"es-AR", "es-AR", "Tu suscripción vence en 3 días"},
		{"es-UY", "es-AR", "Tu suscripción vence en 3 días"},
		{"en-US", "en", "Your subscription renews in 3 days"},
		{"en", "en", "Your subscription renews in 3 days"},
		{"ja", "es-AR", "Tu suscripción vence en 3 días"},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			t.Parallel()
			n, err := subscription.LoadNotices(tt.locale)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLang, n.Lang())

			subject, _, err := n.Render(context.Background(), subscription.StageDueIn3, subscription.NoticeData{
				Amount:  "$ 1.000,00",
				DueDate: "01/04/2025",
				PayURL:  "https://shop.example.com/billing",
				Days:    3,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, subject)
		})
	}
}

func TestNotices_Render(t *testing.T) {
	t.Parallel()

	n := subscription.MustLoadNotices("en")
	data := subscription.NoticeData{
		Amount:  "$ 15,000.00 <b>",
		DueDate: "Mar 31, 2025",
		PayURL:  "https://shop.example.com/billing?x=<y>",
		Days:    1,
	}

	subject, body, err := n.Render(context.Background(), subscription.StageDueIn1, data)
	require.NoError(t, err)

	assert.Equal(t, "Your subscription is due tomorrow", subject)
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, `lang="en"`)
	assert.Contains(t, body, "<p>Hi,</p>")
	assert.Contains(t, body, "due tomorrow, Mar 31, 2025. Pay $ 15,000.00 &lt;b&gt; to keep")
	assert.NotContains(t, body, "<y>", "link data must be escaped")
	assert.NotContains(t, body, "<b>", "copy data must be escaped")
	assert.Contains(t, body, ">Pay now</a>")
	assert.Contains(t, body, "automated billing notice")

	_, body, err = n.Render(context.Background(), subscription.StageDueToday, data)
	require.NoError(t, err)
	assert.Contains(t, body, "<p>After the due date", "blank lines split paragraphs")

	_, _, err = n.Render(context.Background(), subscription.NoticeStage("due_in_9"), data)
	assert.ErrorIs(t, err, subscription.ErrUnknownNoticeStage)
}

func TestNotices_Format(t *testing.T) {
	t.Parallel()

	en := subscription.MustLoadNotices("en")
	assert.Contains(t, en.FormatMoney(subscription.Money{Amount: 1500000, Currency: "USD"}), "15,000.00")
	assert.Equal(t, "Mar 31, 2025", en.FormatDate(t0.AddDate(0, 0, 30)))

	es := subscription.MustLoadNotices("es-AR")
	assert.Equal(t, "31/03/2025", es.FormatDate(t0.AddDate(0, 0, 30)))
	assert.NotEmpty(t, es.FormatMoney(subscription.Money{Amount: 1500000, Currency: "ARS"}))

	// unknown ISO code still renders the amount
	assert.Contains(t, en.FormatMoney(subscription.Money{Amount: 250, Currency: "XXZ"}), "XXZ")
}

func TestNewNotices(t *testing.T) {
	t.Parallel()

	stage := func(subject, body string) map[string]any {
		return map[string]any{"subject": subject, "body": body}
	}
	complete := map[string]any{
		"due_in_3":  stage("a", "b"),
		"due_in_1":  stage("a", "b"),
		"due_today": stage("a", "b"),
	}

	t.Run("custom catalogue", func(t *testing.T) {
		t.Parallel()
		tr, err := i18n.NewTranslator(context.Background(), &i18n.MapAdapter{Data: map[string]map[string]any{
			"pt-BR": {"notice": complete},
		}})
		require.NoError(t, err)

		n, err := subscription.NewNotices(tr, "pt")
		require.NoError(t, err)
		assert.Equal(t, "pt-BR", n.Lang())
		assert.Equal(t, "2025-03-31", n.FormatDate(t0.AddDate(0, 0, 30)), "no date layout falls back to ISO")
	})

	t.Run("missing stage", func(t *testing.T) {
		t.Parallel()
		tr, err := i18n.NewTranslator(context.Background(), &i18n.MapAdapter{Data: map[string]map[string]any{
			"en": {"notice": map[string]any{"due_in_3": stage("a", "b")}},
		}})
		require.NoError(t, err)

		_, err = subscription.NewNotices(tr, "en")
		assert.ErrorIs(t, err, subscription.ErrInvalidTemplate)
	})

	t.Run("missing body", func(t *testing.T) {
		t.Parallel()
		tr, err := i18n.NewTranslator(context.Background(), &i18n.MapAdapter{Data: map[string]map[string]any{
			"en": {"notice": map[string]any{
				"due_in_3":  map[string]any{"subject": "a"},
				"due_in_1":  stage("a", "b"),
				"due_today": stage("a", "b"),
			}},
		}})
		require.NoError(t, err)

		_, err = subscription.NewNotices(tr, "en")
		assert.ErrorIs(t, err, subscription.ErrInvalidTemplate)
	})

	t.Run("nil translator", func(t *testing.T) {
		t.Parallel()
		_, err := subscription.NewNotices(nil, "en")
		assert.ErrorIs(t, err, subscription.ErrInvalidTemplate)
	})
}
