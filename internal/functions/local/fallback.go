package local

import (
	"regexp"
	"strings"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
)

// NotesLimit is the size of the raw-text excerpt kept in Notes
const NotesLimit = 500

const amount = `((?:[A-Za-z]{2,7}\.?\s?|[₹$€£]\s?)?-?\d[\d,]*(?:\.\d+)?)`

var (
	emailPattern         = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`)
	labelledPhonePattern = regexp.MustCompile(`(?i)\b(?:phone|tel|telephone|mobile|mob|ph)\.?\s*[:\-]?\s*(\+?\d[\d\-\s().]{6,}\d)`)
	phonePattern         = regexp.MustCompile(`\+?\d[\d\-\s()]{7,}\d`)
	vendorPattern        = regexp.MustCompile(`(?i)\b(?:vendor|company|supplier)(?:\s+name)?\s*:\s*([A-Za-z0-9&.,'\- ]{2,80}?)\s*(?:\b(?:contact|email|e-mail|phone|tel|address)\b|[|;]|$)`)
	addressPattern       = regexp.MustCompile(`(?i)\b(?:Address|Location|Office)\s*[:\-]?\s*([A-Za-z0-9,.\-#/ ]{10,300})`)
	deliveryPattern      = regexp.MustCompile(`(?i)\b(?:Expected\s+Delivery|Delivery\s+Date|Delivery|ETA)\s*[:\-]?\s*(\d{4}-\d{2}-\d{2}|\d{1,2}[/\-. ]\d{1,2}[/\-. ]\d{2,4})`)
	warrantyPattern      = regexp.MustCompile(`(?i)\bWarranty\s*[:\-]?\s*([A-Za-z0-9 \-]{3,100})`)
	paymentPattern       = regexp.MustCompile(`(?i)\b(?:Payment\s+Terms\s*[:\-]?|Payment\s*:)\s*([A-Za-z0-9 ,\-/%]{3,50})`)
	itemPattern          = regexp.MustCompile(`(?i)\b(\d+)\s+(laptops|tablets?|monitors?|servers|routers|pcs|pieces|units|keyboards|mouses?)\b`)

	grandTotalPattern = regexp.MustCompile(`(?i)\b(?:Grand\s+Total|Total\s+Due)\s*[:\-]?\s*` + amount)
	totalPattern      = regexp.MustCompile(`(?i)\bTotal(\s+Before\s+Tax)?\s*[:\-]?\s*` + amount)
	subtotalPattern   = regexp.MustCompile(`(?i)\b(?:Sub-?\s?Total|Total\s+Before\s+Tax)\s*[:\-]?\s*` + amount)
	taxPattern        = regexp.MustCompile(`(?i)\b(Tax|VAT|GST)\b\s*(?:\(\s*\d+(?:\.\d+)?\s*%\s*\))?\s*[:\-]?\s*` + amount)

	// a free-text capture ends where the next labelled field starts
	nextLabel = regexp.MustCompile(`(?i)\b(?:phone|tel|email|e-mail|contact|delivery|warranty|payment|grand total|sub-?total|total|tax|vat|gst|eta|address|notes?)\b`)
	isoLike   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ParseProposal is the deterministic fallback extractor.
// It only reports literally labelled values; anything else stays nil.
// Notes always carries the first NotesLimit characters of text when text is not empty.
func ParseProposal(text string) *models.ExtractedFields {
	out := &models.ExtractedFields{Items: []models.Item{}}

	if m := vendorPattern.FindStringSubmatch(text); m != nil {
		out.VendorName = nonEmpty(strings.Trim(m[1], " ,.-"))
	}
	if m := emailPattern.FindString(text); m != "" {
		out.Contact.Email = nonEmpty(strings.TrimRight(m, ".-"))
	}
	out.Contact.Phone = findPhone(text)
	if m := addressPattern.FindStringSubmatch(text); m != nil {
		out.Contact.Address = capture(m[1], 10)
	}
	if m := deliveryPattern.FindStringSubmatch(text); m != nil {
		out.DeliveryDate = NormalizeDate(m[1])
	}
	if m := warrantyPattern.FindStringSubmatch(text); m != nil {
		out.Warranty = capture(m[1], 3)
	}
	if m := paymentPattern.FindStringSubmatch(text); m != nil {
		out.PaymentTerms = capture(m[1], 3)
	}

	out.Subtotal = firstAmount(subtotalPattern, text)
	out.Tax = findTax(text)
	out.TotalPrice = findTotal(text)

	for _, m := range itemPattern.FindAllStringSubmatch(text, -1) {
		qty := m[1]
		out.Items = append(out.Items, models.Item{
			Name:     strings.ToLower(m[2]),
			Quantity: &qty,
		})
	}

	out.Notes = nonEmpty(Excerpt(text, NotesLimit))
	return out
}

func findPhone(text string) *string {
	if m := labelledPhonePattern.FindStringSubmatch(text); m != nil {
		return nonEmpty(whitespaceRun.ReplaceAllString(strings.TrimSpace(m[1]), " "))
	}
	for _, cand := range phonePattern.FindAllString(text, -1) {
		cand = strings.TrimSpace(cand)
		if isoLike.MatchString(cand) || countDigits(cand) < 10 {
			continue
		}
		return nonEmpty(whitespaceRun.ReplaceAllString(cand, " "))
	}
	return nil
}

func findTotal(text string) *float64 {
	if v := firstAmount(grandTotalPattern, text); v != nil {
		return v
	}
	for _, m := range totalPattern.FindAllStringSubmatchIndex(text, -1) {
		// "Total Before Tax" is a subtotal
		if m[2] >= 0 {
			continue
		}
		// skip the "total" inside "Sub Total"
		prefix := strings.ToLower(strings.TrimRight(text[max(0, m[0]-5):m[0]], " -"))
		if strings.HasSuffix(prefix, "sub") {
			continue
		}
		if v := NormalizeAmount(text[m[4]:m[5]]); v != nil {
			return v
		}
	}
	return nil
}

func findTax(text string) *float64 {
	for _, m := range taxPattern.FindAllStringSubmatchIndex(text, -1) {
		before := strings.ToLower(text[max(0, m[0]-7):m[0]])
		if strings.HasSuffix(strings.TrimRight(before, " "), "before") {
			continue
		}
		if v := NormalizeAmount(text[m[4]:m[5]]); v != nil {
			return v
		}
	}
	return nil
}

func firstAmount(re *regexp.Regexp, text string) *float64 {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if v := NormalizeAmount(m[1]); v != nil {
			return v
		}
	}
	return nil
}

// capture trims a free-text match at the next field label
func capture(s string, minLen int) *string {
	if loc := nextLabel.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	s = strings.Trim(s, " ,.-/")
	if len(s) < minLen {
		return nil
	}
	return &s
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
