package assets

// Resolver combines custom and embedded loaders with fallback logic.
// When a custom directory is configured, it is tried first; embedded
// templates serve as the fallback for anything not overridden.
type Resolver struct {
	custom   TemplateLoader // nil if no custom path configured
	embedded TemplateLoader
}

// NewResolver creates a Resolver.
// If customBasePath is empty, only embedded templates are used.
// Returns error if customBasePath is set but invalid.
func NewResolver(customBasePath string) (*Resolver, error) {
	resolver := &Resolver{
		embedded: NewEmbeddedLoader(),
	}

	if customBasePath != "" {
		fsLoader, err := NewFilesystemLoader(customBasePath)
		if err != nil {
			return nil, err
		}
		resolver.custom = fsLoader
	}

	return resolver, nil
}

// LoadTemplate loads a template, trying the custom loader first if one
// is configured. Only not-found errors fall through to the embedded
// loader; validation and I/O errors are returned as-is.
func (r *Resolver) LoadTemplate(name string) (string, error) {
	if r.custom == nil {
		return r.embedded.LoadTemplate(name)
	}

	content, err := r.custom.LoadTemplate(name)
	if err == nil {
		return content, nil
	}
	if !IsNotFound(err) {
		return "", err
	}

	return r.embedded.LoadTemplate(name)
}

// Compile-time interface check.
var _ TemplateLoader = (*Resolver)(nil)
