// Package i18n loads translation catalogues and looks up localized strings.
//
// Catalogues are YAML documents keyed by BCP 47 language tag, with nested
// maps addressed by dot-separated keys:
//
//	es-AR:
//	  notice:
//	    due_in_1:
//	      subject: "Tu suscripción vence mañana"
//
// A Translator is built from a TranslationAdapter. EmbeddedFsAdapter reads
// every supported file of a directory in an fs.FS, which is how binaries ship
// their copy with //go:embed; MapAdapter serves in-memory catalogues in tests.
//
//	adapter := i18n.NewEmbeddedFsAdapter(i18n.NewYAMLParser(), locales, "locales")
//	tr, err := i18n.NewTranslator(ctx, adapter, i18n.WithDefaultLanguage("es-AR"))
//	if err != nil {
//		return err
//	}
//	lang := tr.Match("es-UY") // "es-AR"
//	subject := tr.T(lang, "notice.due_in_1.subject")
//
// Values may carry named placeholders in the form %{name}, replaced by the
// key/value pairs passed to T. Unknown placeholders are left as they are.
package i18n
