package functions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/config"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/functions/ai"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/functions/local"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/functions/ocr"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/pkg/logger"
)

var (
	// ErrSourceNotFound indicates the file to extract from does not exist
	ErrSourceNotFound = errors.New("extraction source not found")
	// ErrUnsupportedKind indicates a content kind the processor cannot read
	ErrUnsupportedKind = errors.New("unsupported content kind")
)

// ContentKind is the kind of document handed to the processor
type ContentKind string

const (
	KindText  ContentKind = "text"
	KindImage ContentKind = "image"
	KindPDF   ContentKind = "pdf"
)

// KindForFilename classifies an attachment by extension
func KindForFilename(name string) (ContentKind, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindPDF, true
	case ".jpg", ".jpeg", ".png":
		return KindImage, true
	case ".txt":
		return KindText, true
	}
	return "", false
}

// ProcessorMode represents the processing mode (AI or local)
type ProcessorMode string

const (
	// ProcessorModeAI uses a language model, falling back to local parsing
	ProcessorModeAI ProcessorMode = "ai"
	// ProcessorModeLocal uses the deterministic parser only
	ProcessorModeLocal ProcessorMode = "local"
)

// Extraction method labels stored on proposals
const (
	ExtractedByFallback = "fallback"
	extractedByLLM      = "llm:"
)

// maxPromptRunes bounds the text sent to the model
const maxPromptRunes = 12000

// ExtractionResult is the outcome of one extraction
type ExtractionResult struct {
	Fields      *models.ExtractedFields
	Text        string // cleaned source text
	ExtractedBy string
}

// Empty reports whether nothing at all was extracted
func (r *ExtractionResult) Empty() bool {
	return r == nil || r.Fields.IsEmpty()
}

// Processor turns text, images and PDFs into proposal records
type Processor struct {
	llm        ai.Provider
	ocr        ocr.Engine
	llmTimeout time.Duration
	ocrTimeout time.Duration
	mode       ProcessorMode
}

// NewProcessor creates a new Processor instance. A nil provider means local mode.
func NewProcessor(llm ai.Provider, engine ocr.Engine, llmTimeout time.Duration) *Processor {
	if engine == nil {
		engine = ocr.Disabled{}
	}
	p := &Processor{
		llm:        llm,
		ocr:        engine,
		llmTimeout: llmTimeout,
		ocrTimeout: config.DefaultOCRTimeout,
		mode:       ProcessorModeLocal,
	}
	if llm != nil {
		p.mode = ProcessorModeAI
	}
	return p
}

// WithOCRTimeout bounds each OCR call; non-positive values keep the default
func (p *Processor) WithOCRTimeout(d time.Duration) *Processor {
	if d > 0 {
		p.ocrTimeout = d
	}
	return p
}

// Mode returns the processing mode
func (p *Processor) Mode() ProcessorMode {
	return p.mode
}

// ExtractFile reads a file from disk and extracts it by extension
func (p *Processor) ExtractFile(ctx context.Context, path string) (*ExtractionResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, err
	}
	kind, ok := KindForFilename(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, filepath.Ext(path))
	}
	return p.Extract(ctx, content, kind)
}

// Extract runs text acquisition, cleaning, primary extraction with fallback and normalization.
// Business failures degrade to a partial record; only bad input is an error.
func (p *Processor) Extract(ctx context.Context, content []byte, kind ContentKind) (*ExtractionResult, error) {
	var raw string
	switch kind {
	case KindText:
		raw = string(content)
	case KindImage, KindPDF:
		text, err := p.recognize(ctx, content, ocr.Format(kind))
		if err != nil {
			logger.Warn(ctx, "ocr failed", "engine", p.ocr.Name(), "kind", kind, "error", err)
		}
		raw = text
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}

	cleaned := local.CleanText(raw)
	if cleaned == "" {
		return &ExtractionResult{Fields: &models.ExtractedFields{Items: []models.Item{}}, ExtractedBy: ExtractedByFallback}, nil
	}

	result := &ExtractionResult{Text: cleaned}
	if p.mode == ProcessorModeAI {
		fields, err := p.extractWithAI(ctx, cleaned)
		if err != nil {
			logger.Warn(ctx, "llm extraction failed, using fallback", "provider", p.llm.Name(), "error", err)
		} else if fields.HasData() {
			result.Fields = fields
			result.ExtractedBy = extractedByLLM + p.llm.Name()
		}
	}
	if result.Fields == nil {
		result.Fields = local.ParseProposal(cleaned)
		result.ExtractedBy = ExtractedByFallback
	}

	finalize(result.Fields, cleaned)
	return result, nil
}

func (p *Processor) recognize(ctx context.Context, content []byte, format ocr.Format) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.ocrTimeout)
	defer cancel()
	text, err := p.ocr.Recognize(ctx, content, format)
	if err == nil && ctx.Err() != nil {
		return "", ctx.Err()
	}
	return text, err
}

func (p *Processor) extractWithAI(ctx context.Context, cleaned string) (*models.ExtractedFields, error) {
	if p.llmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.llmTimeout)
		defer cancel()
	}

	raw, err := p.llm.GenerateStructured(ctx, local.Excerpt(cleaned, maxPromptRunes), ai.ProposalSchema)
	if err != nil {
		return nil, err
	}
	payload, err := ai.DecodeProposal(raw)
	if err != nil {
		return nil, err
	}
	return fromPayload(payload), nil
}

// fromPayload normalizes the loosely typed model output
func fromPayload(in *ai.ProposalPayload) *models.ExtractedFields {
	out := &models.ExtractedFields{
		VendorName:   trimmed(in.VendorName),
		Subtotal:     local.NormalizeAmountValue(in.Subtotal),
		Tax:          local.NormalizeAmountValue(in.Tax),
		TotalPrice:   local.NormalizeAmountValue(in.TotalPrice),
		PaymentTerms: trimmed(in.PaymentTerms),
		DeliveryDate: in.DeliveryDate,
		Warranty:     trimmed(in.Warranty),
		Notes:        trimmed(in.Notes),
		Items:        []models.Item{},
	}
	if in.Contact != nil {
		out.Contact = models.Contact{
			Email:   trimmed(in.Contact.Email),
			Phone:   trimmed(in.Contact.Phone),
			Address: trimmed(in.Contact.Address),
		}
	}
	for _, it := range in.Items {
		name := trimmed(it.Name)
		if name == nil {
			continue
		}
		out.Items = append(out.Items, models.Item{
			Name:        *name,
			Description: trimmed(it.Description),
			Quantity:    quantity(it.Quantity),
			UnitPrice:   local.NormalizeAmountValue(it.UnitPrice),
			TotalPrice:  local.NormalizeAmountValue(it.TotalPrice),
		})
	}
	return out
}

// finalize applies date normalization and the notes default
func finalize(f *models.ExtractedFields, cleaned string) {
	if f.DeliveryDate != nil {
		f.DeliveryDate = local.NormalizeDate(*f.DeliveryDate)
	}
	if f.Notes == nil || *f.Notes == "" {
		excerpt := local.Excerpt(cleaned, local.NotesLimit)
		if excerpt != "" {
			f.Notes = &excerpt
		}
	}
	if f.Items == nil {
		f.Items = []models.Item{}
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") || strings.EqualFold(v, "n/a") {
		return nil
	}
	return &v
}

func quantity(v any) *string {
	switch t := v.(type) {
	case string:
		return trimmed(&t)
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s
	}
	return nil
}
