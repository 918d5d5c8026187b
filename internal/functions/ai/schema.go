package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Schema is a JSON-schema style description of the expected model output
type Schema map[string]any

func str() Schema { return Schema{"type": "string"} }

// ProposalSchema describes a vendor proposal. Amounts are strings so the model
// can copy them verbatim; they are normalized after decoding.
var ProposalSchema = Schema{
	"type": "object",
	"properties": map[string]any{
		"vendor_name": str(),
		"contact": Schema{
			"type": "object",
			"properties": map[string]any{
				"email":   str(),
				"phone":   str(),
				"address": str(),
			},
		},
		"items": Schema{
			"type": "array",
			"items": Schema{
				"type": "object",
				"properties": map[string]any{
					"name":        str(),
					"description": str(),
					"quantity":    str(),
					"unit_price":  str(),
					"total_price": str(),
				},
			},
		},
		"subtotal":      str(),
		"tax":           str(),
		"total_price":   str(),
		"payment_terms": str(),
		"delivery_date": str(),
		"warranty":      str(),
		"notes":         str(),
	},
}

// OpenAPI converts the schema to the upper-case, nullable dialect Gemini expects
func (s Schema) OpenAPI() Schema {
	if s == nil {
		return nil
	}
	out := Schema{}
	for k, v := range s {
		switch k {
		case "type":
			out[k] = strings.ToUpper(fmt.Sprint(v))
		case "properties":
			props := map[string]any{}
			for name, p := range v.(map[string]any) {
				props[name] = p.(Schema).OpenAPI()
			}
			out[k] = props
		case "items":
			out[k] = v.(Schema).OpenAPI()
		default:
			out[k] = v
		}
	}
	if t, _ := out["type"].(string); t != "OBJECT" && t != "ARRAY" {
		out["nullable"] = true
	}
	return out
}

func systemPrompt(schema Schema) string {
	var b strings.Builder
	b.WriteString("You extract vendor proposal data from emails and documents. ")
	b.WriteString("Reply with a single JSON object and nothing else. ")
	b.WriteString("Use null for anything the text does not state; never guess. ")
	b.WriteString("Copy amounts as written, dates as written.")
	if schema != nil {
		if raw, err := json.Marshal(schema); err == nil {
			b.WriteString(" The object must follow this JSON schema: ")
			b.Write(raw)
		}
	}
	return b.String()
}

// ProposalPayload is the decoded model output before normalization.
// Amount and quantity fields accept strings or numbers.
type ProposalPayload struct {
	VendorName   *string         `json:"vendor_name"`
	Contact      *ContactPayload `json:"contact"`
	Items        []ItemPayload   `json:"items"`
	Subtotal     any             `json:"subtotal"`
	Tax          any             `json:"tax"`
	TotalPrice   any             `json:"total_price"`
	PaymentTerms *string         `json:"payment_terms"`
	DeliveryDate *string         `json:"delivery_date"`
	Warranty     *string         `json:"warranty"`
	Notes        *string         `json:"notes"`
}

// ContactPayload is the contact block of the model output
type ContactPayload struct {
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

// ItemPayload is one line item of the model output
type ItemPayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Quantity    any     `json:"quantity"`
	UnitPrice   any     `json:"unit_price"`
	TotalPrice  any     `json:"total_price"`
}

// DecodeProposal strictly decodes raw model output. Anything but a single JSON
// object with known keys is rejected with ErrInvalidResponse.
func DecodeProposal(raw []byte) (*ProposalPayload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidResponse)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	var payload ProposalPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", ErrInvalidResponse)
	}
	return &payload, nil
}
