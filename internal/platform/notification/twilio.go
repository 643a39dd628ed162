package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioSender sends SMS through the Twilio Messages REST API.
type TwilioSender struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
	Client     *http.Client
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	return &TwilioSender{
		AccountSID: accountSID,
		AuthToken:  authToken,
		From:       from,
		BaseURL:    twilioAPIBase,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type twilioError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// SendSMS posts a message to the Twilio API using basic auth.
func (t *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.BaseURL, t.AccountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.From)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build twilio request: %w", err)
	}
	req.SetBasicAuth(t.AccountSID, t.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("POST twilio messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var tErr twilioError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&tErr); decodeErr == nil && tErr.Message != "" {
			return fmt.Errorf("twilio error %d: %s", tErr.Code, tErr.Message)
		}
		return fmt.Errorf("twilio returned status %d", resp.StatusCode)
	}
	return nil
}
