package functions

import (
	"context"
	"errors"
	"strings"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/pkg/logger"
)

// ErrNothingToExtract indicates neither attachments nor body produced a record
var ErrNothingToExtract = errors.New("nothing to extract")

// Extractor is the structured extraction step used by the router
type Extractor interface {
	Extract(ctx context.Context, content []byte, kind ContentKind) (*ExtractionResult, error)
}

// Document is an attachment offered to the router
type Document struct {
	Filename string
	Content  []byte
}

// RouteResult is the winning extraction and where it came from
type RouteResult struct {
	*ExtractionResult
	Source string // attachment filename or models.SourceBody
}

// Router picks the source of a proposal: attachments first, in order, then the body
type Router struct {
	extractor Extractor
}

// NewRouter creates a router over extractor
func NewRouter(extractor Extractor) *Router {
	return &Router{extractor: extractor}
}

// Route returns the first attachment with a non-empty record, else the body record.
// Unsupported attachment types are skipped; body text never goes through OCR.
func (r *Router) Route(ctx context.Context, cleanedBody string, docs []Document) (*RouteResult, error) {
	for _, doc := range docs {
		kind, ok := KindForFilename(doc.Filename)
		if !ok || kind == KindText {
			logger.Debug(ctx, "attachment skipped", "filename", doc.Filename)
			continue
		}

		res, err := r.extractor.Extract(ctx, doc.Content, kind)
		if err != nil {
			logger.Warn(ctx, "attachment extraction failed", "filename", doc.Filename, "error", err)
			continue
		}
		if res.Empty() {
			logger.Debug(ctx, "attachment yielded nothing", "filename", doc.Filename)
			continue
		}
		return &RouteResult{ExtractionResult: res, Source: doc.Filename}, nil
	}

	if strings.TrimSpace(cleanedBody) == "" {
		return nil, ErrNothingToExtract
	}
	res, err := r.extractor.Extract(ctx, []byte(cleanedBody), KindText)
	if err != nil {
		return nil, err
	}
	if res.Empty() {
		return nil, ErrNothingToExtract
	}
	return &RouteResult{ExtractionResult: res, Source: models.SourceBody}, nil
}
