package i18n

import "errors"

var (
	ErrNilAdapter              = errors.New("translation adapter is nil")
	ErrNoTranslations          = errors.New("no translations loaded")
	ErrInvalidTranslations     = errors.New("invalid translations")
	ErrYAMLParsingCancelled    = errors.New("yaml parsing cancelled")
	ErrFailedToParseYAML       = errors.New("failed to parse YAML content")
	ErrLoadingCancelled        = errors.New("loading translations cancelled")
	ErrFailedToReadDirectory   = errors.New("failed to read translation directory")
	ErrFailedToReadFile        = errors.New("failed to read translation file")
	ErrFailedToParseFile       = errors.New("failed to parse translation file")
	ErrNoTranslationFilesFound = errors.New("no translation files found")
)
