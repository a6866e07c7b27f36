package invoicegen

import "errors"

// Sentinel errors for engine operations.
var (
	// Render process lifecycle.
	ErrEngineUnavailable = errors.New("render engine unavailable")
	ErrSurfaceCreate     = errors.New("failed to create rendering surface")
	ErrContentInject     = errors.New("failed to inject document content")
	ErrCapture           = errors.New("output capture failed")

	// Data resolution.
	ErrDocumentSourceNotFound = errors.New("no invoice or order found for the given identifiers")

	// ErrNotFound is returned by store implementations when a single
	// record lookup matches nothing.
	ErrNotFound = errors.New("record not found")

	// Template resolution. Recovered internally by falling back to the
	// built-in default template; exported for tests and diagnostics.
	ErrTemplateNotFound = errors.New("template not found")
	ErrTemplateRender   = errors.New("template rendering failed")

	// Document numbering. Recovered internally by a timestamp-based
	// fallback number; never blocks invoice creation.
	ErrNumberAllocation = errors.New("document number allocation failed")
	ErrCounterConflict  = errors.New("document counter was advanced concurrently")

	// Request validation.
	ErrMissingIdentifier = errors.New("exactly one of invoice id or order id must be set")
	ErrInvalidFormat     = errors.New("invalid output format")
	ErrInvalidPageFormat = errors.New("invalid page format")
	ErrInvalidDimensions = errors.New("invalid screenshot dimensions")
	ErrEmptyHTML         = errors.New("html content cannot be empty")
)

// errorsIsAny reports whether err matches any of the targets.
func errorsIsAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
