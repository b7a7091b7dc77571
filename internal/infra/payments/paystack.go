// Package payments integrates the Paystack gateway: creating checkout links
// and receiving the signed webhook that confirms charges.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const baseURL = "https://api.paystack.co"

type Service struct {
	secret string
	httpc  *http.Client
}

func NewService(secret string) *Service {
	return &Service{
		secret: secret,
		httpc:  &http.Client{Timeout: 15 * time.Second},
	}
}

type initRequest struct {
	Email       string `json:"email"`
	AmountKobo  int64  `json:"amount"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// InitializeTransaction opens a Paystack checkout and returns the hosted
// payment page URL. Amount is in kobo.
func (s *Service) InitializeTransaction(ctx context.Context, email, reference string, amountKobo int64, callbackURL string) (string, error) {
	payload, err := json.Marshal(initRequest{
		Email:       email,
		AmountKobo:  amountKobo,
		Reference:   reference,
		CallbackURL: callbackURL,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.secret)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("paystack initialize: %w", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		Status bool `json:"status"`
		Data   struct {
			AuthorizationURL string `json:"authorization_url"`
		} `json:"data"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("paystack initialize: %w", err)
	}
	if !parsed.Status || parsed.Data.AuthorizationURL == "" {
		return "", fmt.Errorf("paystack initialize: %s", parsed.Message)
	}
	return parsed.Data.AuthorizationURL, nil
}
