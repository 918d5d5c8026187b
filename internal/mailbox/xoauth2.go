package mailbox

import (
	"context"
	"fmt"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// gmailScope grants IMAP and API access to the mailbox
const gmailScope = "https://mail.google.com/"

// XOAuth2Client implements the SASL XOAUTH2 mechanism
type XOAuth2Client struct {
	Username    string
	AccessToken string
}

// NewXOAuth2Client creates a new XOAUTH2 SASL client
func NewXOAuth2Client(username, accessToken string) *XOAuth2Client {
	return &XOAuth2Client{
		Username:    username,
		AccessToken: accessToken,
	}
}

// Start begins the XOAUTH2 authentication
func (c *XOAuth2Client) Start() (mech string, ir []byte, err error) {
	ir = []byte(fmt.Sprintf("user=%s\x01auth=Bearer %s\x01\x01", c.Username, c.AccessToken))
	return "XOAUTH2", ir, nil
}

// Next handles server challenges. XOAUTH2 has none on success.
func (c *XOAuth2Client) Next(challenge []byte) (response []byte, err error) {
	return nil, nil
}

// googleTokenSource refreshes access tokens from the configured refresh token
func googleTokenSource(ctx context.Context, cfg config.MailboxConfig) (oauth2.TokenSource, error) {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" || cfg.GoogleRefreshToken == "" {
		return nil, fmt.Errorf("%w: google oauth credentials missing", ErrNotConfigured)
	}
	conf := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmailScope},
	}
	return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GoogleRefreshToken}), nil
}
