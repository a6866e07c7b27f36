package invoicegen

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/brennholz24/invoicegen/internal/fileutil"
	"github.com/brennholz24/invoicegen/internal/hints"
	"github.com/brennholz24/invoicegen/internal/process"
)

// Compile-time interface checks.
var (
	_ browserHandle = (*rodBrowser)(nil)
	_ surface       = (*rodSurface)(nil)
)

// Fixed timeouts for surface operations.
const (
	injectTimeout       = 10 * time.Second
	resourceWaitTimeout = 3 * time.Second
)

// PDF paper dimensions in inches.
const (
	paperWidthA4      = 8.27
	paperHeightA4     = 11.69
	paperWidthLetter  = 8.5
	paperHeightLetter = 11
)

// captureOptions configures PDF capture. Page size and margins are
// driven by the document's own @page declaration; the paper dimensions
// here only apply when the template declares none.
type captureOptions struct {
	PageFormat string
	ShowHeader bool
	ShowFooter bool
}

// rodLaunch starts a headless Chrome process via go-rod.
// Rod downloads a pinned Chromium on first run if no browser is found.
func rodLaunch(cfg browserConfig) (browserHandle, error) {
	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	bin := cfg.Bin
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER_BIN")
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || bin != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %v%s", err, hints.ForBrowserConnect())
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %v%s", err, hints.ForBrowserConnect())
	}

	return &rodBrowser{browser: browser, launcher: l}, nil
}

// rodBrowser implements browserHandle over a live Chrome process.
type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// Alive probes the process by enumerating its open targets. A browser
// that cannot answer the enumeration is treated as disconnected.
func (b *rodBrowser) Alive() bool {
	_, err := b.browser.Pages()
	return err == nil
}

func (b *rodBrowser) NewSurface() (surface, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("creating page: %v", err)
	}
	return &rodSurface{page: page}, nil
}

// Close shuts the browser down, killing the whole process group as a
// fallback so no orphaned Chrome children survive a wedged shutdown.
func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	if pid := b.launcher.PID(); pid > 0 {
		process.KillProcessGroup(pid)
	}
	return err
}

// rodSurface implements surface over a Chrome page.
type rodSurface struct {
	page *rod.Page
}

func (s *rodSurface) SetViewport(width, height int) error {
	return s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
}

// LoadHTML hands the document to the page via a temp file and waits for
// the DOM ready signal within the bounded injection timeout.
func (s *rodSurface) LoadHTML(ctx context.Context, htmlContent string) error {
	tmpPath, cleanup, err := fileutil.WriteTempFile(htmlContent, "html")
	if err != nil {
		return err
	}
	defer cleanup()

	page := s.page.Context(ctx).Timeout(injectTimeout)
	if err := page.Navigate("file://" + tmpPath); err != nil {
		return fmt.Errorf("navigating: %v", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("waiting for load: %v", err)
	}
	return nil
}

// WaitResources waits for embedded fonts and images with a short fixed
// ceiling. Errors here are reported for logging but never fail a render.
func (s *rodSurface) WaitResources(ctx context.Context) error {
	page := s.page.Context(ctx).Timeout(resourceWaitTimeout)
	if _, err := page.Eval(`() => document.fonts.ready`); err != nil {
		return fmt.Errorf("waiting for fonts: %v", err)
	}
	if err := page.WaitIdle(resourceWaitTimeout); err != nil {
		return fmt.Errorf("waiting for idle: %v", err)
	}
	return nil
}

// CapturePDF prints the page. PreferCSSPageSize defers page size and
// margins to the template's @page rule; the explicit margins stay zero.
func (s *rodSurface) CapturePDF(opts captureOptions) ([]byte, error) {
	req := &proto.PagePrintToPDF{
		PreferCSSPageSize: true,
		PrintBackground:   true,
		MarginTop:         floatPtr(0),
		MarginBottom:      floatPtr(0),
		MarginLeft:        floatPtr(0),
		MarginRight:       floatPtr(0),
	}

	switch {
	case strings.EqualFold(opts.PageFormat, PageFormatLetter):
		req.PaperWidth = floatPtr(paperWidthLetter)
		req.PaperHeight = floatPtr(paperHeightLetter)
	default:
		req.PaperWidth = floatPtr(paperWidthA4)
		req.PaperHeight = floatPtr(paperHeightA4)
	}

	if opts.ShowHeader || opts.ShowFooter {
		req.DisplayHeaderFooter = true
		req.HeaderTemplate = "<span></span>"
		req.FooterTemplate = "<span></span>"
		if opts.ShowFooter {
			req.FooterTemplate = `<div style="font-size:9px;color:#aaa;width:100%;text-align:center;">` +
				`<span class="pageNumber"></span>/<span class="totalPages"></span></div>`
		}
	}

	reader, err := s.page.PDF(req)
	if err != nil {
		return nil, fmt.Errorf("printing to PDF: %v", err)
	}

	buf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading PDF stream: %v", err)
	}
	return buf, nil
}

// CapturePNG captures the full scrollable content as PNG. Quality only
// applies to lossy formats, so it is not forwarded for PNG output.
func (s *rodSurface) CapturePNG(opts *ScreenshotOptions) ([]byte, error) {
	buf, err := s.page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %v", err)
	}
	return buf, nil
}

func (s *rodSurface) Close() error {
	return s.page.Close()
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
