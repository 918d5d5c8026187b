package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
)

const defaultHTTPTimeout = 2 * time.Minute

// TextInEngine calls the TextIn pdf_to_markdown service
type TextInEngine struct {
	host       string
	appID      string
	appSecret  string
	pageLimit  int
	httpClient *http.Client
}

// TextInOptions are sent as query parameters
type TextInOptions struct {
	PdfPwd      string `url:"pdf_pwd,omitempty"`
	Dpi         int    `url:"dpi,omitempty"`
	PageStart   int    `url:"page_start"`
	PageCount   int    `url:"page_count"`
	TableFlavor string `url:"table_flavor,omitempty"`
	ParseMode   string `url:"parse_mode,omitempty"`
	PageDetails int    `url:"page_details"`
}

type textInResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  struct {
		Markdown string `json:"markdown"`
	} `json:"result"`
}

// NewTextInEngine creates a TextIn client
func NewTextInEngine(host, appID, appSecret string, pageLimit int, timeout time.Duration) *TextInEngine {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &TextInEngine{
		host:       strings.TrimSuffix(host, "/"),
		appID:      appID,
		appSecret:  appSecret,
		pageLimit:  pageLimit,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (e *TextInEngine) Name() string { return "textin" }

// Recognize uploads the document and returns its markdown text
func (e *TextInEngine) Recognize(ctx context.Context, content []byte, format Format) (string, error) {
	if e.appID == "" || e.appSecret == "" {
		return "", ErrNotConfigured
	}
	if format != FormatImage && format != FormatPDF {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	options := TextInOptions{
		Dpi:         144,
		PageStart:   1,
		PageCount:   e.pageLimit,
		TableFlavor: "md",
		ParseMode:   "scan",
	}
	q, err := query.Values(options)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/ai/service/v1/pdf_to_markdown", bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("x-ti-app-id", e.appID)
	req.Header.Set("x-ti-secret-code", e.appSecret)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrRecognitionFailed, resp.StatusCode, string(body))
	}

	var parsed textInResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}
	if parsed.Code != 0 && parsed.Code != 200 {
		return "", fmt.Errorf("%w: code %d: %s", ErrRecognitionFailed, parsed.Code, parsed.Message)
	}
	return parsed.Result.Markdown, nil
}
