package extract

import (
	"context"
	"errors"

	"madeproof-backend/internal/extract/ocr"
)

// Engine recognizes text in a raster image.
type Engine interface {
	RecognizeImage(data []byte) (string, error)
	Close() error
}

// ImageBackend runs OCR over JPEG and PNG uploads. A fresh engine is created per call
// because Tesseract handles are not safe for concurrent use.
type ImageBackend struct {
	NewEngine func() (Engine, error)
}

// NewImageBackend returns an ImageBackend using Tesseract with the given language.
func NewImageBackend(language string) ImageBackend {
	return ImageBackend{
		NewEngine: func() (Engine, error) {
			return ocr.New(language)
		},
	}
}

// Extract returns the recognized text with the OCR flag set.
func (b ImageBackend) Extract(ctx context.Context, data []byte) (Result, error) {
	if b.NewEngine == nil {
		return Result{}, errors.New("ocr engine not configured")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	engine, err := b.NewEngine()
	if err != nil {
		return Result{}, err
	}
	defer engine.Close()

	text, err := engine.RecognizeImage(data)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text, Meta: Meta{OCR: true}}, nil
}
