package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/config"
)

var (
	// ErrNotConfigured indicates the OCR engine is missing credentials or binaries
	ErrNotConfigured = errors.New("OCR engine not configured")
	// ErrRecognitionFailed indicates the engine ran but could not read the document
	ErrRecognitionFailed = errors.New("OCR recognition failed")
	// ErrUnsupportedFormat indicates a document format the engine cannot read
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrUnsupportedProvider indicates an unknown ocr.provider setting
	ErrUnsupportedProvider = errors.New("unsupported OCR provider")
)

// Format is the kind of binary document handed to an engine
type Format string

const (
	FormatImage Format = "image"
	FormatPDF   Format = "pdf"
)

// Engine turns an image or PDF into plain text.
// PDF input is limited to the first PageLimit pages.
type Engine interface {
	Recognize(ctx context.Context, content []byte, format Format) (string, error)
	Name() string
}

// New builds the engine selected by cfg.Provider
func New(cfg config.OCRConfig) (Engine, error) {
	limit := cfg.PageLimit
	if limit <= 0 {
		limit = config.DefaultOCRPages
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultOCRTimeout
	}

	switch strings.ToLower(cfg.Provider) {
	case "", "tesseract":
		return NewTesseractEngine(cfg.TesseractPath, cfg.PdftoppmPath, limit), nil
	case "textin":
		return NewTextInEngine(cfg.URL, cfg.AppID, cfg.AppSecret, limit, timeout), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}

// Disabled is an engine that never reads anything; extraction then falls back to body text
type Disabled struct{}

func (Disabled) Recognize(context.Context, []byte, Format) (string, error) {
	return "", ErrNotConfigured
}

func (Disabled) Name() string { return "disabled" }

var _ Engine = Disabled{}
