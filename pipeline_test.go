package invoicegen

// Notes:
// - mockSurface/mockSource fake the browser so retry, cleanup, and
//   output validation logic is tested without Chrome
// - Every test asserts surface cleanup: a surface acquired is a surface
//   closed, success or failure

import (
	"context"
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Mock Implementations
// ---------------------------------------------------------------------------

type mockSurface struct {
	viewportW, viewportH int
	loaded               string
	closed               bool

	loadErr  error
	waitErr  error
	pdfErr   error
	pngErr   error
	closeErr error
	pdfOut   []byte
	pngOut   []byte
}

func (m *mockSurface) SetViewport(w, h int) error {
	m.viewportW, m.viewportH = w, h
	return nil
}

func (m *mockSurface) LoadHTML(ctx context.Context, htmlContent string) error {
	m.loaded = htmlContent
	return m.loadErr
}

func (m *mockSurface) WaitResources(ctx context.Context) error { return m.waitErr }

func (m *mockSurface) CapturePDF(opts captureOptions) ([]byte, error) {
	if m.pdfErr != nil {
		return nil, m.pdfErr
	}
	if m.pdfOut != nil {
		return m.pdfOut, nil
	}
	return []byte("%PDF-1.4 mock"), nil
}

func (m *mockSurface) CapturePNG(opts *ScreenshotOptions) ([]byte, error) {
	if m.pngErr != nil {
		return nil, m.pngErr
	}
	if m.pngOut != nil {
		return m.pngOut, nil
	}
	return []byte("\x89PNG\r\n\x1a\n mock"), nil
}

func (m *mockSurface) Close() error {
	m.closed = true
	return m.closeErr
}

// mockSource hands out surfaces in order; the last one repeats.
type mockSource struct {
	surfaces []*mockSurface
	err      error
	calls    int
}

func (m *mockSource) Surface(ctx context.Context) (surface, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	i := m.calls - 1
	if i >= len(m.surfaces) {
		i = len(m.surfaces) - 1
	}
	return m.surfaces[i], nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestPipelinePDFSuccess(t *testing.T) {
	s := &mockSurface{}
	p := newRenderPipeline(&mockSource{surfaces: []*mockSurface{s}}, nil)

	buf, err := p.PDF(context.Background(), "<html></html>", captureOptions{})
	if err != nil {
		t.Fatalf("PDF() error: %v", err)
	}
	if len(buf) == 0 || string(buf[:4]) != "%PDF" {
		t.Errorf("output missing PDF magic: %q", buf)
	}
	if !s.closed {
		t.Error("surface not closed after success")
	}
	if s.loaded == "" {
		t.Error("content never injected")
	}
	if s.viewportW != pdfViewportWidth || s.viewportH != pdfViewportHeight {
		t.Errorf("viewport = %dx%d, want %dx%d", s.viewportW, s.viewportH, pdfViewportWidth, pdfViewportHeight)
	}
}

func TestPipelinePDFEmptyHTML(t *testing.T) {
	src := &mockSource{surfaces: []*mockSurface{{}}}
	p := newRenderPipeline(src, nil)

	_, err := p.PDF(context.Background(), "", captureOptions{})
	if !errors.Is(err, ErrEmptyHTML) {
		t.Errorf("error = %v, want ErrEmptyHTML", err)
	}
	if src.calls != 0 {
		t.Errorf("surface acquired %d times for empty input, want 0", src.calls)
	}
}

func TestPipelineRetriesOnFreshSurface(t *testing.T) {
	// First two surfaces fail injection; the third succeeds.
	s1 := &mockSurface{loadErr: errors.New("target crashed")}
	s2 := &mockSurface{loadErr: errors.New("target crashed")}
	s3 := &mockSurface{}
	src := &mockSource{surfaces: []*mockSurface{s1, s2, s3}}
	p := newRenderPipeline(src, nil)

	_, err := p.PDF(context.Background(), "<html></html>", captureOptions{})
	if err != nil {
		t.Fatalf("PDF() error after retries: %v", err)
	}
	if src.calls != 3 {
		t.Errorf("surface acquisitions = %d, want 3", src.calls)
	}
	for i, s := range []*mockSurface{s1, s2, s3} {
		if !s.closed {
			t.Errorf("surface %d not closed", i+1)
		}
	}
}

func TestPipelineExhaustsRetryBudget(t *testing.T) {
	s := &mockSurface{loadErr: errors.New("target crashed")}
	src := &mockSource{surfaces: []*mockSurface{s}}
	p := newRenderPipeline(src, nil)

	_, err := p.PDF(context.Background(), "<html></html>", captureOptions{})
	if !errors.Is(err, ErrContentInject) {
		t.Errorf("error = %v, want ErrContentInject", err)
	}
	if src.calls != renderAttempts {
		t.Errorf("surface acquisitions = %d, want %d", src.calls, renderAttempts)
	}
}

func TestPipelineFatalErrorShortCircuits(t *testing.T) {
	src := &mockSource{err: ErrEngineUnavailable}
	p := newRenderPipeline(src, nil)

	_, err := p.PDF(context.Background(), "<html></html>", captureOptions{})
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("error = %v, want ErrEngineUnavailable", err)
	}
	if src.calls != 1 {
		t.Errorf("surface acquisitions = %d, want 1 (no retry on launch exhaustion)", src.calls)
	}
}

func TestPipelineContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newRenderPipeline(&mockSource{surfaces: []*mockSurface{{}}}, nil)

	_, err := p.PDF(ctx, "<html></html>", captureOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestPipelineRenderErrorTakesPriorityOverCleanup(t *testing.T) {
	s := &mockSurface{pdfErr: errors.New("capture exploded"), closeErr: errors.New("close failed")}
	src := &mockSource{surfaces: []*mockSurface{s}}
	p := newRenderPipeline(src, nil)

	_, err := p.PDF(context.Background(), "<html></html>", captureOptions{})
	if !errors.Is(err, ErrCapture) {
		t.Errorf("error = %v, want ErrCapture from the render, not cleanup", err)
	}
	if !s.closed {
		t.Error("surface not closed")
	}
}

func TestPipelineCleanupErrorSurfacesWhenRenderSucceeded(t *testing.T) {
	// Close fails on every attempt, so the final result is an error
	// even though rendering itself worked.
	s := &mockSurface{closeErr: errors.New("close failed")}
	src := &mockSource{surfaces: []*mockSurface{s}}
	p := newRenderPipeline(src, nil)

	_, err := p.PDF(context.Background(), "<html></html>", captureOptions{})
	if !errors.Is(err, ErrCapture) {
		t.Errorf("error = %v, want ErrCapture wrapping cleanup failure", err)
	}
}

func TestPipelineRejectsNonPDFOutput(t *testing.T) {
	s := &mockSurface{pdfOut: []byte("<html>error page</html>")}
	p := newRenderPipeline(&mockSource{surfaces: []*mockSurface{s}}, nil)

	_, err := p.PDF(context.Background(), "<html></html>", captureOptions{})
	if !errors.Is(err, ErrCapture) {
		t.Errorf("error = %v, want ErrCapture for non-PDF output", err)
	}
}

func TestPipelineToleratesResourceWaitFailure(t *testing.T) {
	s := &mockSurface{waitErr: errors.New("fonts timed out")}
	p := newRenderPipeline(&mockSource{surfaces: []*mockSurface{s}}, nil)

	if _, err := p.PDF(context.Background(), "<html></html>", captureOptions{}); err != nil {
		t.Errorf("PDF() error: %v, want success despite resource wait failure", err)
	}
}

func TestPipelinePNG(t *testing.T) {
	s := &mockSurface{}
	p := newRenderPipeline(&mockSource{surfaces: []*mockSurface{s}}, nil)

	opts := &ScreenshotOptions{Width: 800, Height: 600, Quality: 80}
	buf, err := p.PNG(context.Background(), "<html></html>", opts)
	if err != nil {
		t.Fatalf("PNG() error: %v", err)
	}
	if string(buf[:4]) != "\x89PNG" {
		t.Errorf("output missing PNG magic: %q", buf[:8])
	}
	if s.viewportW != 800 || s.viewportH != 600 {
		t.Errorf("viewport = %dx%d, want 800x600", s.viewportW, s.viewportH)
	}
}

func TestPipelinePNGDefaults(t *testing.T) {
	s := &mockSurface{}
	p := newRenderPipeline(&mockSource{surfaces: []*mockSurface{s}}, nil)

	if _, err := p.PNG(context.Background(), "<html></html>", nil); err != nil {
		t.Fatalf("PNG() error: %v", err)
	}
	if s.viewportW != DefaultScreenshotW || s.viewportH != DefaultScreenshotH {
		t.Errorf("viewport = %dx%d, want defaults %dx%d",
			s.viewportW, s.viewportH, DefaultScreenshotW, DefaultScreenshotH)
	}
}
