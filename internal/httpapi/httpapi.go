// Package httpapi exposes the document engine over HTTP using gin.
//
// The API is deliberately small: one resource (/documents) that reads
// or writes a rendered document, plus a health probe. The handlers do
// request parsing and status mapping only; all behavior lives in the
// engine service.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brennholz24/invoicegen"
)

// DocumentService is the slice of the engine the HTTP layer needs.
type DocumentService interface {
	Preview(ctx context.Context, ref invoicegen.DocumentRef, templateID string) (string, error)
	GeneratePDF(ctx context.Context, ref invoicegen.DocumentRef, templateID string, opts invoicegen.RenderOptions) ([]byte, error)
	OrderConfirmationPDF(ctx context.Context, ref invoicegen.DocumentRef, opts invoicegen.RenderOptions) ([]byte, error)
	Screenshot(ctx context.Context, ref invoicegen.DocumentRef, templateID string, opts *invoicegen.ScreenshotOptions) ([]byte, error)
	GenerateAndSave(ctx context.Context, ref invoicegen.DocumentRef, templateID string, opts invoicegen.RenderOptions) (string, error)
}

// Handler holds the HTTP dependencies.
type Handler struct {
	svc DocumentService
	log *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc DocumentService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// Register mounts the document routes on the router.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.health)
	r.GET("/documents", h.getDocument)
	r.POST("/documents", h.postDocument)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getDocument renders a document selected by query parameters.
//
//	GET /documents?invoiceId=RG-10001&action=preview
//	GET /documents?orderId=BH-2024-0042&action=screenshot&width=800&height=1100
func (h *Handler) getDocument(c *gin.Context) {
	ref := invoicegen.DocumentRef{
		InvoiceID: c.Query("invoiceId"),
		OrderID:   c.Query("orderId"),
	}
	if err := ref.Validate(); err != nil {
		h.fail(c, err)
		return
	}

	templateID := c.Query("template")
	action := c.DefaultQuery("action", "none")

	switch action {
	case invoicegen.FormatPreview:
		html, err := h.svc.Preview(c.Request.Context(), ref, templateID)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))

	case invoicegen.FormatScreenshot:
		opts, err := screenshotOptions(c)
		if err != nil {
			h.fail(c, err)
			return
		}
		png, err := h.svc.Screenshot(c.Request.Context(), ref, templateID, opts)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", png)

	case invoicegen.FormatOrderConfirmation:
		pdf, err := h.svc.OrderConfirmationPDF(c.Request.Context(), ref, invoicegen.RenderOptions{})
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "application/pdf", pdf)

	case "none", invoicegen.FormatPDF:
		pdf, err := h.svc.GeneratePDF(c.Request.Context(), ref, templateID, invoicegen.RenderOptions{Format: invoicegen.FormatPDF})
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "application/pdf", pdf)

	default:
		h.fail(c, invoicegen.ErrInvalidFormat)
	}
}

// generateRequest is the POST /documents body.
type generateRequest struct {
	InvoiceID  string                   `json:"invoiceId"`
	OrderID    string                   `json:"orderId"`
	TemplateID string                   `json:"templateId"`
	Action     string                   `json:"action"`
	Options    invoicegen.RenderOptions `json:"options"`
	SaveToFile bool                     `json:"saveToFile"`
}

// postDocument generates a PDF (or order confirmation) and either
// streams it back or persists it, returning the stored path.
func (h *Handler) postDocument(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ref := invoicegen.DocumentRef{InvoiceID: req.InvoiceID, OrderID: req.OrderID}
	if err := ref.Validate(); err != nil {
		h.fail(c, err)
		return
	}
	if err := req.Options.Validate(); err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()

	if req.Action == invoicegen.FormatOrderConfirmation {
		pdf, err := h.svc.OrderConfirmationPDF(ctx, ref, req.Options)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "application/pdf", pdf)
		return
	}

	if req.SaveToFile {
		path, err := h.svc.GenerateAndSave(ctx, ref, req.TemplateID, req.Options)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"path": path})
		return
	}

	pdf, err := h.svc.GeneratePDF(ctx, ref, req.TemplateID, req.Options)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// screenshotOptions parses optional width/height/quality query params.
// Missing params fall back to engine defaults.
func screenshotOptions(c *gin.Context) (*invoicegen.ScreenshotOptions, error) {
	opts := invoicegen.DefaultScreenshotOptions()
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"width", &opts.Width},
		{"height", &opts.Height},
		{"quality", &opts.Quality},
	} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, invoicegen.ErrInvalidDimensions
		}
		*p.dst = v
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// fail maps engine errors to HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, invoicegen.ErrDocumentSourceNotFound),
		errors.Is(err, invoicegen.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, invoicegen.ErrEngineUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, invoicegen.ErrMissingIdentifier),
		errors.Is(err, invoicegen.ErrInvalidFormat),
		errors.Is(err, invoicegen.ErrInvalidPageFormat),
		errors.Is(err, invoicegen.ErrInvalidDimensions):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.log.Error("document request failed", zap.Error(err))
	} else {
		h.log.Debug("document request rejected", zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
