package invoicegen

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"
)

// renderAttempts is the pipeline's own outer retry budget: each attempt
// runs on a fresh surface. It is independent from the process manager's
// launch and surface-creation retries.
const renderAttempts = 3

// Default viewport for PDF rendering in pixels.
const (
	pdfViewportWidth  = 1200
	pdfViewportHeight = 1600
)

// Output magic headers.
var (
	pdfMagic = []byte("%PDF")
	pngMagic = []byte("\x89PNG")
)

// surfaceSource provides rendering surfaces. Implemented by
// processManager; faked in tests.
type surfaceSource interface {
	Surface(ctx context.Context) (surface, error)
}

// renderPipeline converts one HTML document into PDF or PNG bytes with
// bounded retries and guaranteed surface cleanup.
type renderPipeline struct {
	source surfaceSource
	log    *zap.Logger
}

func newRenderPipeline(source surfaceSource, log *zap.Logger) *renderPipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &renderPipeline{source: source, log: log}
}

// PDF renders htmlContent to PDF bytes.
func (p *renderPipeline) PDF(ctx context.Context, htmlContent string, opts captureOptions) ([]byte, error) {
	if htmlContent == "" {
		return nil, ErrEmptyHTML
	}

	buf, err := p.withRetries(ctx, func(s surface) ([]byte, error) {
		if err := s.SetViewport(pdfViewportWidth, pdfViewportHeight); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrContentInject, err)
		}
		if err := p.inject(ctx, s, htmlContent); err != nil {
			return nil, err
		}
		out, err := s.CapturePDF(opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCapture, err)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	if len(buf) == 0 || !bytes.HasPrefix(buf, pdfMagic) {
		return nil, fmt.Errorf("%w: output is not a PDF document", ErrCapture)
	}
	return buf, nil
}

// PNG renders htmlContent to a full-page PNG screenshot.
func (p *renderPipeline) PNG(ctx context.Context, htmlContent string, opts *ScreenshotOptions) ([]byte, error) {
	if htmlContent == "" {
		return nil, ErrEmptyHTML
	}
	if opts == nil {
		opts = DefaultScreenshotOptions()
	}

	buf, err := p.withRetries(ctx, func(s surface) ([]byte, error) {
		if err := s.SetViewport(opts.Width, opts.Height); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrContentInject, err)
		}
		if err := p.inject(ctx, s, htmlContent); err != nil {
			return nil, err
		}
		out, err := s.CapturePNG(opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCapture, err)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	if len(buf) == 0 || !bytes.HasPrefix(buf, pngMagic) {
		return nil, fmt.Errorf("%w: output is not a PNG image", ErrCapture)
	}
	return buf, nil
}

// inject loads the document and waits for its resources. Font and image
// wait errors are logged, never fatal.
func (p *renderPipeline) inject(ctx context.Context, s surface, htmlContent string) error {
	if err := s.LoadHTML(ctx, htmlContent); err != nil {
		return fmt.Errorf("%w: %v", ErrContentInject, err)
	}
	if err := s.WaitResources(ctx); err != nil {
		p.log.Warn("resource wait incomplete", zap.Error(err))
	}
	return nil
}

// withRetries runs one render attempt per fresh surface, up to
// renderAttempts. A failed injection is never retried on the same
// surface. The surface is always closed, success or failure; the render
// error takes priority over any cleanup error.
func (p *renderPipeline) withRetries(ctx context.Context, render func(surface) ([]byte, error)) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= renderAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		buf, err := p.renderOnce(ctx, render)
		if err == nil {
			return buf, nil
		}
		lastErr = err

		// Launch exhaustion and cancellation cannot be fixed by a
		// fresh surface.
		if isFatalRenderErr(err) {
			return nil, err
		}

		p.log.Warn("render attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return nil, lastErr
}

// renderOnce acquires one surface, renders, and guarantees cleanup.
func (p *renderPipeline) renderOnce(ctx context.Context, render func(surface) ([]byte, error)) (buf []byte, err error) {
	s, err := p.source.Surface(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if cerr := s.Close(); cerr != nil {
			p.log.Warn("closing surface", zap.Error(cerr))
			if err == nil {
				err = fmt.Errorf("%w: closing surface: %v", ErrCapture, cerr)
			}
		}
	}()

	return render(s)
}

// isFatalRenderErr reports whether retrying with a fresh surface cannot
// change the outcome.
func isFatalRenderErr(err error) bool {
	return errorsIsAny(err, ErrEngineUnavailable, context.Canceled, context.DeadlineExceeded)
}
