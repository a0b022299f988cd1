package subscription

import (
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/dmitrymomot/storefront/pkg/email"
	"github.com/dmitrymomot/storefront/pkg/i18n"
)

//go:embed locales
var localesFS embed.FS

const DefaultLocale = "es-AR"

var noticeStages = []NoticeStage{StageDueIn3, StageDueIn1, StageDueToday}

// loadTranslator builds the translator over the embedded reminder copy.
var loadTranslator = sync.OnceValues(func() (*i18n.Translator, error) {
	return i18n.NewTranslator(context.Background(),
		i18n.NewEmbeddedFsAdapter(i18n.NewYAMLParser(), localesFS, "locales"),
		i18n.WithDefaultLanguage(DefaultLocale),
	)
})

// NoticeData is passed to reminder copy.
type NoticeData struct {
	Amount  string
	DueDate string
	PayURL  string
	Days    int
}

type noticeEmail struct {
	Lang       string
	Greeting   string
	Paragraphs []string
	PayURL     string
	PayLabel   string
	Footer     string
}

var noticeTemplate = htmltemplate.Must(htmltemplate.New("notice").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}"><body style="font-family:sans-serif;line-height:1.5">
<p>{{.Greeting}}</p>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}<p><a href="{{.PayURL}}">{{.PayLabel}}</a></p>
<hr><p style="color:#888;font-size:12px">{{.Footer}}</p>
</body></html>`))

// Notices renders reminder emails and formats money and dates for one
// locale.
type Notices struct {
	tr         *i18n.Translator
	lang       string
	tag        language.Tag
	printer    *message.Printer
	dateLayout string
}

// LoadNotices selects the closest supported match of locale from the
// embedded copy. An empty locale selects DefaultLocale.
func LoadNotices(locale string) (*Notices, error) {
	tr, err := loadTranslator()
	if err != nil {
		return nil, errors.Join(ErrInvalidTemplate, err)
	}
	return NewNotices(tr, locale)
}

// MustLoadNotices is LoadNotices that panics on error.
func MustLoadNotices(locale string) *Notices {
	n, err := LoadNotices(locale)
	if err != nil {
		panic(err)
	}
	return n
}

// NewNotices binds tr to the closest match of locale and checks that every
// reminder stage has a subject and a body.
func NewNotices(tr *i18n.Translator, locale string) (*Notices, error) {
	if tr == nil {
		return nil, fmt.Errorf("%w: no translator", ErrInvalidTemplate)
	}
	lang := tr.Match(locale)
	for _, stage := range noticeStages {
		for _, part := range []string{"subject", "body"} {
			if key := stageKey(stage, part); !tr.HasTranslation(lang, key) {
				return nil, fmt.Errorf("%w: locale %s has no %s", ErrInvalidTemplate, lang, key)
			}
		}
	}

	tag := language.Make(lang)
	return &Notices{
		tr:         tr,
		lang:       lang,
		tag:        tag,
		printer:    message.NewPrinter(tag),
		dateLayout: tr.Td(lang, "format.date", time.DateOnly),
	}, nil
}

func stageKey(stage NoticeStage, part string) string {
	return "notice." + string(stage) + "." + part
}

// Locale returns the tag the copy was selected for.
func (n *Notices) Locale() language.Tag {
	return n.tag
}

// Lang returns the catalogue language the copy was selected for.
func (n *Notices) Lang() string {
	return n.lang
}

// FormatMoney formats m with the locale's grouping and the currency symbol.
func (n *Notices) FormatMoney(m Money) string {
	value := number.Decimal(float64(m.Amount)/100, number.Scale(2))
	unit, err := currency.ParseISO(m.Currency)
	if err != nil {
		return n.printer.Sprintf("%v %s", value, m.Currency)
	}
	return n.printer.Sprintf("%v %v", currency.Symbol(unit), value)
}

// FormatDate formats t with the locale's date layout.
func (n *Notices) FormatDate(t time.Time) string {
	return t.Format(n.dateLayout)
}

// Render produces the subject and HTML body of the reminder for stage.
func (n *Notices) Render(ctx context.Context, stage NoticeStage, data NoticeData) (subject, body string, err error) {
	if !slices.Contains(noticeStages, stage) {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownNoticeStage, stage)
	}

	args := []string{
		"amount", data.Amount,
		"due_date", data.DueDate,
		"days", strconv.Itoa(data.Days),
	}
	subject = strings.TrimSpace(n.tr.T(n.lang, stageKey(stage, "subject"), args...))

	content := noticeEmail{
		Lang:       n.lang,
		Greeting:   n.tr.T(n.lang, "notice.greeting"),
		Paragraphs: paragraphs(n.tr.T(n.lang, stageKey(stage, "body"), args...)),
		PayURL:     data.PayURL,
		PayLabel:   n.tr.T(n.lang, "notice.pay"),
		Footer:     n.tr.T(n.lang, "notice.footer"),
	}
	body, err = email.Render(ctx, templ.FromGoHTML(noticeTemplate, content))
	if err != nil {
		return "", "", errors.Join(ErrInvalidTemplate, err)
	}
	return subject, body, nil
}

// paragraphs splits text on blank lines.
func paragraphs(text string) []string {
	var out []string
	for p := range strings.SplitSeq(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
