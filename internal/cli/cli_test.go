package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DatabaseDriver: "sqlite",
		DatabasePath:   filepath.Join(dir, "rfp.db"),
		DataDir:        dir,
		LogLevel:       "info",
		OCR:            config.OCRConfig{Provider: "tesseract", TesseractPath: "tesseract", PdftoppmPath: "pdftoppm"},
		LLM:            config.LLMConfig{Provider: "openai"},
	}
}

func runCLI(t *testing.T, c *config.Config, stdin string, args ...string) (string, error) {
	t.Helper()
	cfg = c
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRequestsAddAndList(t *testing.T) {
	c := testConfig(t)

	out, err := runCLI(t, c, "", "requests", "add", "--id", "rv-42", "--rfp", "rfp-1", "--vendor", "acme", "--email", "sales@acme.example")
	if err != nil {
		t.Fatalf("add: %v (%s)", err, out)
	}
	if strings.TrimSpace(out) != "rv-42" {
		t.Errorf("add printed %q", out)
	}

	if _, err := runCLI(t, c, "", "requests", "add", "--id", "rv-42", "--rfp", "rfp-1", "--vendor", "acme"); err == nil {
		t.Error("duplicate id should fail")
	}

	out, err = runCLI(t, c, "", "requests", "list", "--rfp", "rfp-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "rv-42") || !strings.Contains(out, "pending") {
		t.Errorf("list output %q", out)
	}
}

func TestExtractTextFile(t *testing.T) {
	c := testConfig(t)
	path := filepath.Join(t.TempDir(), "quote.txt")
	if err := os.WriteFile(path, []byte("Vendor: Acme Supplies\nSubtotal: $1,000.00\nTax: $80\nTotal: $1,080.00\n10 laptops"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, c, "", "extract", path)
	if err != nil {
		t.Fatalf("extract: %v (%s)", err, out)
	}
	var got struct {
		ExtractedBy   string `json:"extracted_by"`
		ExtractedData struct {
			TotalPrice *float64 `json:"total_price"`
		} `json:"extracted_data"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not json: %q", out)
	}
	if got.ExtractedBy != "fallback" || got.ExtractedData.TotalPrice == nil || *got.ExtractedData.TotalPrice != 1080 {
		t.Errorf("unexpected extraction %+v", got)
	}

	if _, err := runCLI(t, c, "", "extract", filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestKeyShowAndReset(t *testing.T) {
	c := testConfig(t)

	first, err := runCLI(t, c, "", "key", "show")
	if err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, c, "no\n", "key", "reset")
	if err != nil || !strings.Contains(out, "Cancelled") {
		t.Fatalf("declined reset: %v %q", err, out)
	}

	rotated, err := runCLI(t, c, "", "key", "reset", "--yes")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(rotated) == strings.TrimSpace(first) {
		t.Error("key did not change")
	}
	keyResetYes = false

	c.APIKey = "pinned"
	if _, err := runCLI(t, c, "", "key", "reset", "--yes"); err == nil {
		t.Error("pinned key must not be reset")
	}
	keyResetYes = false
}
