package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// TesseractEngine shells out to tesseract; PDFs are rasterised with pdftoppm first
type TesseractEngine struct {
	tesseract string
	pdftoppm  string
	pageLimit int
}

// NewTesseractEngine creates an engine using the given executables
func NewTesseractEngine(tesseractPath, pdftoppmPath string, pageLimit int) *TesseractEngine {
	if tesseractPath == "" {
		tesseractPath = "tesseract"
	}
	if pdftoppmPath == "" {
		pdftoppmPath = "pdftoppm"
	}
	return &TesseractEngine{tesseract: tesseractPath, pdftoppm: pdftoppmPath, pageLimit: pageLimit}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize writes content to a scratch dir and runs the OCR pipeline on it
func (e *TesseractEngine) Recognize(ctx context.Context, content []byte, format Format) (string, error) {
	if _, err := exec.LookPath(e.tesseract); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	dir, err := os.MkdirTemp("", "rfp-ocr-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}
	defer os.RemoveAll(dir)

	switch format {
	case FormatImage:
		src := filepath.Join(dir, "input")
		if err := os.WriteFile(src, content, 0600); err != nil {
			return "", fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
		}
		return e.readImage(ctx, src)
	case FormatPDF:
		return e.readPDF(ctx, dir, content)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func (e *TesseractEngine) readPDF(ctx context.Context, dir string, content []byte) (string, error) {
	if _, err := exec.LookPath(e.pdftoppm); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	src := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(src, content, 0600); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}

	prefix := filepath.Join(dir, "page")
	args := []string{"-r", "200", "-png", "-f", "1", "-l", strconv.Itoa(e.pageLimit), src, prefix}
	if out, err := exec.CommandContext(ctx, e.pdftoppm, args...).CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w: pdftoppm: %v: %s", ErrRecognitionFailed, err, strings.TrimSpace(string(out)))
	}

	pages, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}
	sort.Strings(pages)
	if len(pages) > e.pageLimit {
		pages = pages[:e.pageLimit]
	}

	var texts []string
	for _, page := range pages {
		text, err := e.readImage(ctx, page)
		if err != nil {
			return "", err
		}
		texts = append(texts, text)
	}
	return strings.Join(texts, "\n"), nil
}

func (e *TesseractEngine) readImage(ctx context.Context, path string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.tesseract, path, "stdout")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: tesseract: %v: %s", ErrRecognitionFailed, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
