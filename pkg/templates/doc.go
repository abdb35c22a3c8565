// Package templates provides the reusable message content catalog and the
// renderer the notification engine uses to produce subjects and bodies.
//
// Templates are keyed by (code, channel, language) and contain plain text
// with placeholders of the form {{variableName}}. Rendering is pure string
// substitution: every occurrence of a supplied variable's placeholder is
// replaced, and placeholders for variables that were not supplied are left
// verbatim in the output. There is no expression evaluation.
//
// Lookup falls back to the default language when a template does not exist
// in the requested language; a second miss yields ErrTemplateNotFound and the
// caller decides whether to abort or use a literal fallback.
//
// Catalogs are configuration: they can be populated programmatically or
// loaded from YAML files, and are read-only to the delivery engine.
package templates
