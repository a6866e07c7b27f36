package invoicegen

import (
	"fmt"
	"strings"
)

// Output format constants.
const (
	FormatPreview           = "preview"
	FormatPDF               = "pdf"
	FormatScreenshot        = "screenshot"
	FormatOrderConfirmation = "order-confirmation"
)

// Page format constants.
const (
	PageFormatA4     = "A4"
	PageFormatLetter = "Letter"
)

// Screenshot dimension bounds in pixels.
const (
	MinScreenshotDim     = 16
	MaxScreenshotDim     = 8192
	DefaultScreenshotW   = 1200
	DefaultScreenshotH   = 1600
	DefaultScreenshotQty = 90
)

// RenderOptions selects the output of a render request.
type RenderOptions struct {
	Format     string             // "preview", "pdf", "screenshot", "order-confirmation"
	PageFormat string             // "A4", "Letter" (PDF only, empty = A4)
	Screenshot *ScreenshotOptions // screenshot only, nil = defaults
	ShowHeader bool
	ShowFooter bool
}

// ScreenshotOptions configures PNG capture.
type ScreenshotOptions struct {
	Width   int // viewport width in pixels
	Height  int // viewport height in pixels
	Quality int // 1-100, applied only to lossy formats
}

// DefaultScreenshotOptions returns screenshot settings with default values.
func DefaultScreenshotOptions() *ScreenshotOptions {
	return &ScreenshotOptions{
		Width:   DefaultScreenshotW,
		Height:  DefaultScreenshotH,
		Quality: DefaultScreenshotQty,
	}
}

// Validate checks that render options are valid.
func (o *RenderOptions) Validate() error {
	if o == nil {
		return nil
	}

	switch o.Format {
	case "", FormatPreview, FormatPDF, FormatScreenshot, FormatOrderConfirmation:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, o.Format)
	}

	if !isValidPageFormat(o.PageFormat) {
		return fmt.Errorf("%w: %q", ErrInvalidPageFormat, o.PageFormat)
	}

	return o.Screenshot.Validate()
}

// Validate checks that screenshot dimensions are within bounds.
// Returns nil if s is nil (nil means use defaults).
func (s *ScreenshotOptions) Validate() error {
	if s == nil {
		return nil
	}
	if s.Width < MinScreenshotDim || s.Width > MaxScreenshotDim {
		return fmt.Errorf("%w: width %d (must be between %d and %d)",
			ErrInvalidDimensions, s.Width, MinScreenshotDim, MaxScreenshotDim)
	}
	if s.Height < MinScreenshotDim || s.Height > MaxScreenshotDim {
		return fmt.Errorf("%w: height %d (must be between %d and %d)",
			ErrInvalidDimensions, s.Height, MinScreenshotDim, MaxScreenshotDim)
	}
	if s.Quality < 1 || s.Quality > 100 {
		return fmt.Errorf("%w: quality %d (must be between 1 and 100)",
			ErrInvalidDimensions, s.Quality)
	}
	return nil
}

// isValidPageFormat checks if format is a known page format (case-insensitive).
// Empty means A4.
func isValidPageFormat(format string) bool {
	switch strings.ToLower(format) {
	case "", strings.ToLower(PageFormatA4), strings.ToLower(PageFormatLetter):
		return true
	}
	return false
}

// DocumentRef identifies the source record for a render request.
// Exactly one of InvoiceID or OrderID must be set.
type DocumentRef struct {
	InvoiceID string // invoice number or UUID-shaped internal id
	OrderID   string // internal order id or human-readable order number
}

// Validate checks that exactly one identifier is present.
func (r DocumentRef) Validate() error {
	if (r.InvoiceID == "") == (r.OrderID == "") {
		return ErrMissingIdentifier
	}
	return nil
}
