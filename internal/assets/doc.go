// Package assets provides the HTML templates used for invoice and
// order-confirmation rendering. Templates can be loaded from embedded
// files or from a custom directory that overrides them.
package assets
