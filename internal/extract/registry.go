package extract

import (
	"context"
	"fmt"
	"sync"
)

// Meta carries format-specific extraction details.
type Meta struct {
	MIME           string `json:"mime"`
	Pages          *int   `json:"pages,omitempty"`
	PagesProcessed int    `json:"pages_processed,omitempty"`
	OCR            bool   `json:"ocr,omitempty"`
	Degraded       bool   `json:"degraded,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Result is the outcome of extracting one document.
type Result struct {
	Format Format
	Text   string
	Meta   Meta
}

// Backend extracts text from the raw bytes of one format. Backends must not retain data.
type Backend interface {
	Extract(ctx context.Context, data []byte) (Result, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, data []byte) (Result, error)

// Extract calls f.
func (f BackendFunc) Extract(ctx context.Context, data []byte) (Result, error) {
	return f(ctx, data)
}

// Registry dispatches documents to backends. It is read-only once built and safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	backends map[Format]Backend
}

// Options configures the default backends.
type Options struct {
	OCRLanguage string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[Format]Backend)}
}

// Default returns a registry with the PDF, DOCX and image backends registered.
func Default(opts Options) *Registry {
	r := NewRegistry()
	r.Register(PDF, PDFBackend{})
	r.Register(DOCX, DOCXBackend{})
	r.Register(Image, NewImageBackend(opts.OCRLanguage))
	return r
}

// Register binds a backend to a format, replacing any previous one.
func (r *Registry) Register(f Format, b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[f] = b
}

// Extract never fails. Unknown formats yield empty text, and backend errors or panics are
// recorded as a degraded result with empty text.
func (r *Registry) Extract(ctx context.Context, data []byte, fileName string, mimeType string) Result {
	format := Resolve(fileName, mimeType, data)

	r.mu.RLock()
	backend, ok := r.backends[format]
	r.mu.RUnlock()
	if !ok || format == Unknown {
		return Result{Format: Unknown, Meta: Meta{MIME: mimeType}}
	}

	res, err := safeExtract(ctx, backend, data)
	if err != nil {
		return Result{
			Format: format,
			Meta: Meta{
				MIME:     mimeType,
				OCR:      format == Image,
				Degraded: true,
				Error:    err.Error(),
			},
		}
	}
	res.Format = format
	res.Meta.MIME = mimeType
	return res
}

func safeExtract(ctx context.Context, backend Backend, data []byte) (res Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res = Result{}
			err = fmt.Errorf("extractor panic: %v", rec)
		}
	}()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return backend.Extract(ctx, data)
}
