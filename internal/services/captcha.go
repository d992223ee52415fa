package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// TurnstileVerifier valide un jeton anti-spam auprès de l'endpoint siteverify
// (Cloudflare Turnstile, compatible hCaptcha / reCAPTCHA)
type TurnstileVerifier struct {
	client *http.Client
}

func NewTurnstileVerifier(client *http.Client) *TurnstileVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &TurnstileVerifier{client: client}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify retourne false sur un refus, et une erreur si le service n'a pas pu répondre
func (v *TurnstileVerifier) Verify(ctx context.Context, verifyURL, secret, token, remoteIP string) (bool, error) {
	form := url.Values{}
	form.Set("secret", secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("requête siteverify: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("appel siteverify: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return false, fmt.Errorf("siteverify a répondu %d", res.StatusCode)
	}

	var body siteverifyResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("réponse siteverify illisible: %w", err)
	}
	return body.Success, nil
}
