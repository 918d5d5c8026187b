package models

// ExtractedFields is the normalized proposal record. Every field is optional.
type ExtractedFields struct {
	VendorName   *string  `json:"vendor_name"`
	Contact      Contact  `json:"contact"`
	Items        []Item   `json:"items"`
	Subtotal     *float64 `json:"subtotal"`
	Tax          *float64 `json:"tax"`
	TotalPrice   *float64 `json:"total_price"`
	PaymentTerms *string  `json:"payment_terms"`
	DeliveryDate *string  `json:"delivery_date"` // YYYY-MM-DD
	Warranty     *string  `json:"warranty"`
	Notes        *string  `json:"notes"`
}

// Contact is the vendor contact block
type Contact struct {
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

// Item is one quoted line
type Item struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Quantity    *string  `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	TotalPrice  *float64 `json:"total_price"`
}

// IsEmpty reports whether nothing at all was extracted, notes included
func (f *ExtractedFields) IsEmpty() bool {
	if f == nil {
		return true
	}
	return !f.HasData() && (f.Notes == nil || *f.Notes == "")
}

// HasData reports whether any field other than Notes is set
func (f *ExtractedFields) HasData() bool {
	if f == nil {
		return false
	}
	return f.VendorName != nil ||
		f.Contact.Email != nil || f.Contact.Phone != nil || f.Contact.Address != nil ||
		len(f.Items) > 0 ||
		f.Subtotal != nil || f.Tax != nil || f.TotalPrice != nil ||
		f.PaymentTerms != nil || f.DeliveryDate != nil || f.Warranty != nil
}
