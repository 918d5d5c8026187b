package local

import (
	"fmt"
	"regexp"
)

// TrackingLabel prefixes the request token in outbound mail
const TrackingLabel = "Ref-ID"

// First match wins; the token alphabet is letters, digits and hyphen.
var trackingPattern = regexp.MustCompile(`(?i)Ref-ID[:\s]*([A-Za-z0-9-]+)`)

// ExtractTrackingID returns the first Ref-ID token found in text
func ExtractTrackingID(text string) (string, bool) {
	m := trackingPattern.FindStringSubmatch(text)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// TrackingMarker renders the plain-text marker for a token
func TrackingMarker(token string) string {
	return fmt.Sprintf("%s:%s", TrackingLabel, token)
}

// AppendTrackingHTML appends a visually hidden marker to an HTML body.
// The marker survives HTML-to-text conversion and most quoting in replies.
func AppendTrackingHTML(body, token string) string {
	return body + "\n\n<span style=\"display:none;font-size:0;color:transparent\">" + TrackingMarker(token) + "</span>"
}
