package templates

import "errors"

var (
	ErrTemplateNotFound = errors.New("no template for code/channel in requested or default language")
	ErrInvalidTemplate  = errors.New("invalid template definition")
	ErrInvalidLanguage  = errors.New("invalid language tag")
	ErrCatalogNil       = errors.New("template catalog cannot be nil")
)
