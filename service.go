package invoicegen

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/brennholz24/invoicegen/internal/assets"
)

// Surface limiter bounds. Each open surface costs browser memory, so
// concurrent renders are capped.
const (
	MinSurfaces = 1
	MaxSurfaces = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// defaultTimeout bounds one full render request: process acquisition,
// content injection, and capture.
const defaultTimeout = 60 * time.Second

// Option configures a Service.
type Option func(*Service)

// serviceConfig holds internal configuration for Service.
type serviceConfig struct {
	timeout     time.Duration
	templateDir string
	browserBin  string
	maxSurfaces int
	launch      launchFunc // test injection, nil = rodLaunch
}

// WithTimeout sets the total time budget per render request.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("invoicegen: WithTimeout duration must be positive")
	}
	return func(s *Service) {
		s.cfg.timeout = d
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithTemplateDir sets a directory whose templates override the
// embedded ones.
func WithTemplateDir(dir string) Option {
	return func(s *Service) {
		s.cfg.templateDir = dir
	}
}

// WithBrowserBin sets an explicit browser binary instead of rod's
// default resolution.
func WithBrowserBin(bin string) Option {
	return func(s *Service) {
		s.cfg.browserBin = bin
	}
}

// WithMaxSurfaces caps concurrently open rendering surfaces.
func WithMaxSurfaces(n int) Option {
	return func(s *Service) {
		s.cfg.maxSurfaces = n
	}
}

// Service is the document generation engine: one shared render process,
// a template renderer, and the invoice assembler behind a single
// façade. Create it once at service start and share it; Close releases
// the browser process.
type Service struct {
	cfg       serviceConfig
	log       *zap.Logger
	manager   *processManager
	pipeline  *renderPipeline
	renderer  *TemplateRenderer
	assembler *Assembler
	blobs     BlobStore
	slots     chan struct{}
}

// New creates a Service over the given persistence collaborators.
func New(stores Stores, opts ...Option) (*Service, error) {
	s := &Service{
		cfg: serviceConfig{timeout: defaultTimeout},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	resolver, err := assets.NewResolver(s.cfg.templateDir)
	if err != nil {
		return nil, fmt.Errorf("configuring templates: %w", err)
	}

	s.manager = newProcessManager(browserConfig{Bin: s.cfg.browserBin}, s.cfg.launch, s.log)
	s.pipeline = newRenderPipeline(s.manager, s.log)
	s.renderer = NewTemplateRenderer(resolver, s.log)

	allocator := NewNumberAllocator(stores.Counters, s.log)
	s.assembler = NewAssembler(stores, allocator, s.log)
	s.blobs = stores.Blobs

	s.slots = make(chan struct{}, ResolveMaxSurfaces(s.cfg.maxSurfaces))
	return s, nil
}

// Close releases the browser process. The Service must not be used
// afterwards.
func (s *Service) Close() error {
	return s.manager.Close()
}

// ClearTemplateCache drops compiled templates so edited template files
// take effect without a restart.
func (s *Service) ClearTemplateCache() {
	s.renderer.ClearCache()
}

// Preview assembles the referenced document and returns the rendered
// HTML without involving the browser.
func (s *Service) Preview(ctx context.Context, ref DocumentRef, templateID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.timeout)
	defer cancel()

	html, _, err := s.renderHTML(ctx, ref, templateID)
	return html, err
}

// GeneratePDF renders the referenced document to PDF bytes.
func (s *Service) GeneratePDF(ctx context.Context, ref DocumentRef, templateID string, opts RenderOptions) ([]byte, error) {
	buf, _, err := s.generatePDF(ctx, ref, templateID, opts)
	return buf, err
}

// OrderConfirmationPDF renders the referenced order as an order
// confirmation document.
func (s *Service) OrderConfirmationPDF(ctx context.Context, ref DocumentRef, opts RenderOptions) ([]byte, error) {
	buf, _, err := s.generatePDF(ctx, ref, assets.ConfirmationTemplateName, opts)
	return buf, err
}

// Screenshot renders the referenced document to a full-page PNG.
func (s *Service) Screenshot(ctx context.Context, ref DocumentRef, templateID string, opts *ScreenshotOptions) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.timeout)
	defer cancel()

	html, _, err := s.renderHTML(ctx, ref, templateID)
	if err != nil {
		return nil, err
	}

	release, err := s.acquireSlot(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.pipeline.PNG(ctx, html, opts)
}

// GenerateAndSave renders the referenced document to PDF and persists
// it via the blob store, returning the stable path.
func (s *Service) GenerateAndSave(ctx context.Context, ref DocumentRef, templateID string, opts RenderOptions) (string, error) {
	buf, data, err := s.generatePDF(ctx, ref, templateID, opts)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("invoice-%s-%d.pdf", data.DocumentNumber, time.Now().UnixMilli())
	path, err := s.blobs.SavePDF(ctx, filename, buf)
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", filename, err)
	}

	s.log.Info("invoice document stored",
		zap.String("number", data.DocumentNumber),
		zap.String("path", path))
	return path, nil
}

// generatePDF runs the full pipeline once: assemble, render HTML,
// capture PDF.
func (s *Service) generatePDF(ctx context.Context, ref DocumentRef, templateID string, opts RenderOptions) ([]byte, *InvoiceData, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.timeout)
	defer cancel()

	html, data, err := s.renderHTML(ctx, ref, templateID)
	if err != nil {
		return nil, nil, err
	}

	release, err := s.acquireSlot(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	buf, err := s.pipeline.PDF(ctx, html, captureOptions{
		PageFormat: opts.PageFormat,
		ShowHeader: opts.ShowHeader,
		ShowFooter: opts.ShowFooter,
	})
	if err != nil {
		return nil, nil, err
	}
	return buf, data, nil
}

// renderHTML assembles the invoice model and renders it to HTML.
func (s *Service) renderHTML(ctx context.Context, ref DocumentRef, templateID string) (string, *InvoiceData, error) {
	data, settings, err := s.assembler.Assemble(ctx, ref)
	if err != nil {
		return "", nil, err
	}

	html, err := s.renderer.Render(templateID, RenderContext{
		Invoice: *data,
		Company: *settings,
	})
	if err != nil {
		return "", nil, err
	}
	return html, data, nil
}

// acquireSlot claims one concurrent-surface slot, waiting until one is
// free or the context expires.
func (s *Service) acquireSlot(ctx context.Context) (release func(), err error) {
	select {
	case s.slots <- struct{}{}:
		return func() { <-s.slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ResolveMaxSurfaces determines the concurrent-surface cap.
// Priority: explicit value > GOMAXPROCS-based calculation.
func ResolveMaxSurfaces(n int) int {
	if n > 0 {
		if n > MaxSurfaces {
			return MaxSurfaces
		}
		return n
	}

	// Auto-calculate based on GOMAXPROCS (adjusted by automaxprocs in
	// containers).
	available := runtime.GOMAXPROCS(0)
	n = available / cpuDivisor

	if n < MinSurfaces {
		return MinSurfaces
	}
	if n > MaxSurfaces {
		return MaxSurfaces
	}
	return n
}
