package assets

// Built-in template names.
const (
	// DefaultTemplateName renders a standard invoice.
	DefaultTemplateName = "invoice"

	// ConfirmationTemplateName renders an order confirmation.
	ConfirmationTemplateName = "confirmation"
)

// TemplateLoader defines the contract for loading HTML template sources.
// Implementations may load from embedded files, the filesystem, or any
// other backing store.
type TemplateLoader interface {
	// LoadTemplate loads an HTML template source by name (without the
	// .html extension).
	// Returns ErrTemplateNotFound if the template doesn't exist.
	// Returns ErrInvalidAssetName if the name contains invalid characters.
	LoadTemplate(name string) (string, error)
}
