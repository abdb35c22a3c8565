package templates

import (
	"context"
	"errors"

	"github.com/seyniprops/backoffice/pkg/notification"
)

// Renderer resolves a template for a notification and renders its content.
// When the requested language has no template, the renderer retries in the
// default language before giving up.
type Renderer struct {
	catalog         Catalog
	defaultLanguage string
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithDefaultLanguage overrides the fallback language (default "fr").
func WithDefaultLanguage(lang string) RendererOption {
	return func(r *Renderer) {
		r.defaultLanguage = lang
	}
}

// NewRenderer creates a renderer over the given catalog.
func NewRenderer(catalog Catalog, opts ...RendererOption) (*Renderer, error) {
	if catalog == nil {
		return nil, ErrCatalogNil
	}

	r := &Renderer{
		catalog:         catalog,
		defaultLanguage: DefaultLanguage,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Render looks up the template for (code, channel, language) and substitutes
// the supplied variables. A miss in the requested language falls back to the
// default language; a miss there returns ErrTemplateNotFound.
func (r *Renderer) Render(ctx context.Context, code string, ch notification.Channel, lang string, variables map[string]string) (subject, body string, err error) {
	normalized, err := NormalizeLanguage(lang)
	if err != nil {
		return "", "", err
	}

	t, err := r.catalog.Lookup(ctx, code, ch, normalized)
	if err != nil {
		if !errors.Is(err, ErrTemplateNotFound) || normalized == r.defaultLanguage {
			return "", "", err
		}
		t, err = r.catalog.Lookup(ctx, code, ch, r.defaultLanguage)
		if err != nil {
			return "", "", err
		}
	}

	subject, body = t.Render(variables)
	return subject, body, nil
}
