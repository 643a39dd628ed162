package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleProfile is the subset of the tokeninfo response the portal uses.
type GoogleProfile struct {
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Audience      string `json:"aud"`
}

// GoogleVerifier validates Google ID tokens against the tokeninfo endpoint.
type GoogleVerifier struct {
	ClientID string
	Endpoint string
	Client   *http.Client
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		ClientID: clientID,
		Endpoint: googleTokenInfoURL,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify checks the ID token with Google and returns the asserted profile.
// The audience must match the configured client ID.
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*GoogleProfile, error) {
	if idToken == "" {
		return nil, fmt.Errorf("id token is required")
	}

	reqURL := v.Endpoint + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build tokeninfo request: %w", err)
	}

	resp, err := v.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tokeninfo returned status %d", resp.StatusCode)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode tokeninfo response: %w", err)
	}

	if v.ClientID != "" && profile.Audience != v.ClientID {
		return nil, fmt.Errorf("token audience mismatch")
	}
	if profile.Email == "" {
		return nil, fmt.Errorf("token carries no email")
	}

	return &profile, nil
}
