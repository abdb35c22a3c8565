package templates

import (
	"context"
	"fmt"
	"sync"

	"github.com/seyniprops/backoffice/pkg/notification"
)

// Catalog looks up active templates by code, channel and language. The
// language is expected to be normalized already; renderers call
// NormalizeLanguage before lookup.
type Catalog interface {
	Lookup(ctx context.Context, code string, ch notification.Channel, lang string) (Template, error)
}

type catalogKey struct {
	code    string
	channel notification.Channel
	lang    string
}

// MemoryCatalog is an in-memory, mutation-safe Catalog. The zero value is not
// usable; construct with NewMemoryCatalog.
type MemoryCatalog struct {
	mu        sync.RWMutex
	templates map[catalogKey]Template
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		templates: make(map[catalogKey]Template),
	}
}

// Put validates and stores a template, replacing any previous definition for
// the same (code, channel, language).
func (c *MemoryCatalog) Put(t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	lang, err := NormalizeLanguage(t.Language)
	if err != nil {
		return err
	}
	t.Language = lang

	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates[catalogKey{code: t.Code, channel: t.Channel, lang: lang}] = t
	return nil
}

// Lookup returns the active template for the exact (code, channel, language)
// key. Inactive templates are treated as absent.
func (c *MemoryCatalog) Lookup(_ context.Context, code string, ch notification.Channel, lang string) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.templates[catalogKey{code: code, channel: ch, lang: lang}]
	if !ok || !t.Active {
		return Template{}, fmt.Errorf("%w: code=%s channel=%s lang=%s", ErrTemplateNotFound, code, ch, lang)
	}
	return t, nil
}
