package invoicegen

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/brennholz24/invoicegen/internal/assets"
)

// RenderContext is the data model handed to invoice templates.
type RenderContext struct {
	Invoice InvoiceData
	Company CompanySettings
	Options RenderOptions
}

// TemplateRenderer compiles template sources into final HTML documents.
// Compiled templates are cached by identifier; ClearCache makes template
// edits take effect without a process restart. Rendering is deterministic:
// identical inputs produce byte-identical HTML.
type TemplateRenderer struct {
	loader assets.TemplateLoader
	log    *zap.Logger

	mu    sync.Mutex
	cache map[string]*template.Template
}

// NewTemplateRenderer creates a TemplateRenderer backed by the given
// template loader.
func NewTemplateRenderer(loader assets.TemplateLoader, log *zap.Logger) *TemplateRenderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &TemplateRenderer{
		loader: loader,
		log:    log,
		cache:  make(map[string]*template.Template),
	}
}

// Render produces the final HTML document for the given template id.
// An unknown id falls back to the built-in default template; template
// resolution never hard-fails a render.
func (r *TemplateRenderer) Render(id string, data RenderContext) (string, error) {
	if id == "" {
		id = assets.DefaultTemplateName
	}

	tpl, err := r.compiled(id)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	return buf.String(), nil
}

// ClearCache drops all compiled templates so edited sources are picked
// up on the next render.
func (r *TemplateRenderer) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*template.Template)
}

// compiled returns the cached compiled template for id, compiling and
// caching it on first use.
func (r *TemplateRenderer) compiled(id string) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	source, err := r.loader.LoadTemplate(id)
	if err != nil {
		if !assets.IsNotFound(err) {
			return nil, fmt.Errorf("loading template %q: %w", id, err)
		}
		// Unknown template ids fall back to the built-in default.
		r.log.Warn("template not found, using default", zap.String("template", id))
		source, err = r.loader.LoadTemplate(assets.DefaultTemplateName)
		if err != nil {
			return nil, fmt.Errorf("loading default template: %w", err)
		}
	}

	tpl, err := template.New(id).Funcs(templateFuncs()).Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %q: %v", ErrTemplateRender, id, err)
	}

	r.cache[id] = tpl
	return tpl, nil
}

// templateFuncs returns the helper functions exposed to templates. All
// helpers are pure; a render never depends on ambient state.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate":     formatDate,
		"formatCurrency": formatCurrency,
		"formatNumber":   formatNumber,
		"add":            func(a, b any) float64 { return toFloat(a) + toFloat(b) },
		"sub":            func(a, b any) float64 { return toFloat(a) - toFloat(b) },
		"mul":            func(a, b any) float64 { return toFloat(a) * toFloat(b) },
		"eqf":            func(a, b any) bool { return math.Abs(toFloat(a)-toFloat(b)) < RoundingEpsilon },
		"nef":            func(a, b any) bool { return math.Abs(toFloat(a)-toFloat(b)) >= RoundingEpsilon },
		"gtf":            func(a, b any) bool { return toFloat(a) > toFloat(b) },
		"ltf":            func(a, b any) bool { return toFloat(a) < toFloat(b) },
		"markdown":       renderMarkdown,
	}
}

// formatDate renders a date in the fixed German format DD.MM.YYYY.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}

// formatCurrency renders an amount with two decimals and German
// separators: 1234.5 -> "1.234,50".
func formatCurrency(v any) string {
	f := toFloat(v)

	neg := f < 0 && math.Abs(f) >= 0.005
	s := strconv.FormatFloat(math.Abs(f), 'f', 2, 64)

	intPart, fracPart, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(fracPart)
	return b.String()
}

// formatNumber renders a number without trailing zeros: 19.0 -> "19",
// 7.5 -> "7,5".
func formatNumber(v any) string {
	s := strconv.FormatFloat(toFloat(v), 'f', -1, 64)
	return strings.ReplaceAll(s, ".", ",")
}

// renderMarkdown converts Markdown to inline HTML for notes and footer
// text fields.
func renderMarkdown(source string) template.HTML {
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(source), &buf); err != nil {
		// Fall back to the escaped source text rather than failing
		// the whole render.
		return template.HTML(template.HTMLEscapeString(source)) // #nosec G203 -- escaped above
	}
	return template.HTML(buf.String()) // #nosec G203 -- goldmark output
}

// toFloat widens template numeric arguments to float64.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	}
	return 0
}
