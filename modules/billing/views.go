package billing

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"sync"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/storefront/handler"
	"github.com/dmitrymomot/storefront/pkg/i18n"
	"github.com/dmitrymomot/storefront/pkg/subscription"
)

// pageCopy is the UI text for one language. Error codes map to copy here
// and are never shown raw.
type pageCopy struct {
	Lang          string
	OverviewTitle string
	PaymentTitle  string
	ErrorTitle    string
	StatusLabel   string
	PriceLabel    string
	DueLabel      string
	GraceNotice   string
	Suspended     string
	PayButton     string
	AmountLabel   string
	OpenLink      string
	ScanHint      string
	FallbackNote  string
	PaidNote      string
	BackLink      string
	Statuses      map[subscription.Status]string
	Errors        map[string]string
	HTTPErrors    map[int]string
}

//go:embed locales
var localesFS embed.FS

// loadPageTranslator builds the translator over the embedded page copy.
var loadPageTranslator = sync.OnceValues(func() (*i18n.Translator, error) {
	return i18n.NewTranslator(context.Background(),
		i18n.NewEmbeddedFsAdapter(i18n.NewYAMLParser(), localesFS, "locales"),
		i18n.WithDefaultLanguage("es"),
	)
})

var httpErrorKeys = map[int]string{
	http.StatusUnauthorized: "http.unauthorized",
	http.StatusForbidden:    "http.forbidden",
	http.StatusNotFound:     "http.not_found",
}

// newPageCopy resolves the page copy for the language closest to locale.
// Spanish is the default.
func newPageCopy(tr *i18n.Translator, locale string) pageCopy {
	lang := tr.Match(locale)
	t := func(key string) string { return tr.T(lang, key) }

	c := pageCopy{
		Lang:          lang,
		OverviewTitle: t("page.overview_title"),
		PaymentTitle:  t("page.payment_title"),
		ErrorTitle:    t("page.error_title"),
		StatusLabel:   t("page.status_label"),
		PriceLabel:    t("page.price_label"),
		DueLabel:      t("page.due_label"),
		GraceNotice:   t("page.grace_notice"),
		Suspended:     t("page.suspended"),
		PayButton:     t("page.pay_button"),
		AmountLabel:   t("page.amount_label"),
		OpenLink:      t("page.open_link"),
		ScanHint:      t("page.scan_hint"),
		FallbackNote:  t("page.fallback_note"),
		PaidNote:      t("page.paid_note"),
		BackLink:      t("page.back_link"),
		Statuses:      make(map[subscription.Status]string),
		Errors:        make(map[string]string),
		HTTPErrors:    make(map[int]string, len(httpErrorKeys)),
	}
	for _, s := range []subscription.Status{
		subscription.StatusTrialing,
		subscription.StatusActive,
		subscription.StatusPastDue,
		subscription.StatusSuspended,
	} {
		c.Statuses[s] = t("status." + string(s))
	}
	for _, code := range []string{
		subscription.CodeMissingBillingEnv,
		subscription.CodePaymentProviderFailed,
		subscription.CodeInvoiceCreateFailed,
	} {
		c.Errors[code] = t("error." + code)
	}
	for status, key := range httpErrorKeys {
		c.HTTPErrors[status] = t(key)
	}
	return c
}

type overviewPageData struct {
	pageCopy
	Status     string
	Allowed    bool
	InGrace    bool
	Price      string
	PeriodEnd  string
	GraceUntil string
	Error      string
	PayPath    string
}

type paymentPageData struct {
	pageCopy
	Amount   string
	DueDate  string
	Paid     bool
	Fallback bool
	Link     string
	QR       template.URL
}

type errorPageData struct {
	pageCopy
	Message   string
	RequestID string
}

const layoutHTML = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{template "title" .}}</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"></script>
</head>
<body>
<main id="billing">{{template "content" .}}</main>
</body>
</html>`

var layout = template.Must(template.New("layout").Parse(layoutHTML))

func mustPage(title, content string) *template.Template {
	t := template.Must(layout.Clone())
	return template.Must(t.Parse(`{{define "title"}}` + title + `{{end}}{{define "content"}}` + content + `{{end}}`))
}

var overviewTemplate = mustPage(`{{.OverviewTitle}}`, `
<h1>{{.OverviewTitle}}</h1>
{{if .Error}}<p role="alert" class="error">{{.Error}}</p>{{end}}
<dl>
<dt>{{.StatusLabel}}</dt><dd>{{.Status}}</dd>
<dt>{{.PriceLabel}}</dt><dd>{{.Price}}</dd>
<dt>{{.DueLabel}}</dt><dd>{{.PeriodEnd}}</dd>
</dl>
{{if not .Allowed}}<p class="warning">{{.Suspended}}</p>{{end}}
{{if .InGrace}}<p class="warning">{{.GraceNotice}} {{.GraceUntil}}.</p>{{end}}
<form method="post" action="{{.PayPath}}">
<button type="submit" data-on:click__prevent="@post('`+PayPath+`')">{{.PayButton}}</button>
</form>`)

var paymentTemplate = mustPage(`{{.PaymentTitle}}`, `
<h1>{{.PaymentTitle}}</h1>
<dl>
<dt>{{.AmountLabel}}</dt><dd>{{.Amount}}</dd>
<dt>{{.DueLabel}}</dt><dd>{{.DueDate}}</dd>
</dl>
{{if .Paid}}<p>{{.PaidNote}}</p>{{else}}
<p><a href="{{.Link}}" rel="noopener" target="_blank">{{.OpenLink}}</a></p>
{{if .QR}}<figure><img src="{{.QR}}" alt="QR"><figcaption>{{.ScanHint}}</figcaption></figure>{{end}}
{{if .Fallback}}<p class="note">{{.FallbackNote}}</p>{{end}}
{{end}}
<p><a href="`+subscription.BillingPath+`">{{.BackLink}}</a></p>`)

var errorTemplate = mustPage(`{{.ErrorTitle}}`, `
<h1>{{.ErrorTitle}}</h1>
{{if .Message}}<p>{{.Message}}</p>{{end}}
{{if .RequestID}}<p class="muted"><small>{{.RequestID}}</small></p>{{end}}`)

func page(t *template.Template, data any) templ.Component {
	return templ.FromGoHTML(t, data)
}

// errorPage renders failures on billing pages.
func (m *Module) errorPage(p handler.ErrorPageParams) templ.Component {
	return page(errorTemplate, errorPageData{
		pageCopy:  m.text,
		Message:   m.text.HTTPErrors[p.StatusCode],
		RequestID: p.RequestID,
	})
}
