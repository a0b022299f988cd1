package i18n

import (
	"context"
	"path"
	"strings"
)

// Parser decodes catalogue content into translations keyed by language.
type Parser interface {
	Parse(ctx context.Context, content []byte) (map[string]map[string]any, error)

	// SupportsFileExtension reports whether the parser reads files with ext.
	// The leading dot is optional.
	SupportsFileExtension(ext string) bool
}

// NewParserForFile returns the parser for filename, or nil when no parser
// supports its extension.
func NewParserForFile(filename string) Parser {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(filename), ".")) {
	case "yaml", "yml":
		return NewYAMLParser()
	default:
		return nil
	}
}
