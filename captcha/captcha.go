// Package captcha implements the linkauth CaptchaVerifier interface against
// siteverify-style HTTP endpoints (Cloudflare Turnstile, hCaptcha, reCAPTCHA
// all share the shape: POST secret+response+remoteip, JSON back with a
// success flag).
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrVerificationFailed is returned when the verification endpoint answers
// but does not accept the token.
var ErrVerificationFailed = errors.New("captcha: verification failed")

// Verifier checks captcha response tokens against a remote siteverify
// endpoint. Verifier instances are intended to be configured during
// initialization and then treated as immutable unless documented otherwise.
type Verifier struct {
	endpoint string
	secret   string
	client   *http.Client
}

// NewVerifier returns a verifier for the given siteverify endpoint and
// secret key. A nil client gets a 10 second timeout default.
func NewVerifier(endpoint, secret string, client *http.Client) (*Verifier, error) {
	if endpoint == "" {
		return nil, errors.New("captcha: endpoint is required")
	}
	if secret == "" {
		return nil, errors.New("captcha: secret is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{endpoint: endpoint, secret: secret, client: client}, nil
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify posts the token to the siteverify endpoint. A nil return means the
// token was accepted; any failure mode, including transport errors, comes
// back as a non-nil error.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) error {
	if token == "" {
		return ErrVerificationFailed
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("captcha: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("captcha: verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("captcha: verify endpoint returned %d", resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("captcha: decode response: %w", err)
	}
	if !out.Success {
		return ErrVerificationFailed
	}
	return nil
}
