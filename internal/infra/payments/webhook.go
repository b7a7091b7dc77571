package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/careerbuddy/careerbuddy-bot/internal/domain/payments"
)

// Fulfiller applies the entitlement effect of a confirmed payment: a premium
// upgrade or unlocking a paid one-off generation.
type Fulfiller interface {
	FulfillPayment(ctx context.Context, p *payments.Payment) error
}

// Store is the slice of the payments repo the webhook needs.
type Store interface {
	ByReference(ctx context.Context, reference string) (*payments.Payment, error)
	MarkStatus(ctx context.Context, reference string, status payments.Status, raw json.RawMessage) error
}

type WebhookHandler struct {
	log       *slog.Logger
	secret    string
	repo      Store
	fulfiller Fulfiller
}

func NewWebhookHandler(log *slog.Logger, secret string, repo Store, f Fulfiller) *WebhookHandler {
	return &WebhookHandler{log: log, secret: secret, repo: repo, fulfiller: f}
}

// VerifySignature checks the HMAC-SHA512 hex digest Paystack sends in the
// x-paystack-signature header.
func VerifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

type event struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
	} `json:"data"`
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if !VerifySignature(h.secret, body, r.Header.Get("x-paystack-signature")) {
		h.log.Warn("webhook with bad signature dropped")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var ev event
	if err := json.Unmarshal(body, &ev); err != nil || ev.Data.Reference == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	p, err := h.repo.ByReference(ctx, ev.Data.Reference)
	if err != nil {
		h.log.Error("webhook lookup failed", "reference", ev.Data.Reference, "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if p == nil {
		h.log.Warn("webhook for unknown reference", "reference", ev.Data.Reference)
		w.WriteHeader(http.StatusOK)
		return
	}
	// Re-delivered webhooks are acknowledged without reapplying effects.
	if p.Status == payments.StatusSuccess {
		w.WriteHeader(http.StatusOK)
		return
	}

	if ev.Event != "charge.success" || ev.Data.Status != "success" {
		if err := h.repo.MarkStatus(ctx, p.Reference, payments.StatusFailed, body); err != nil {
			h.log.Error("webhook mark failed", "reference", p.Reference, "err", err)
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.repo.MarkStatus(ctx, p.Reference, payments.StatusSuccess, body); err != nil {
		h.log.Error("webhook mark success", "reference", p.Reference, "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	p.Status = payments.StatusSuccess

	if err := h.fulfiller.FulfillPayment(ctx, p); err != nil {
		h.log.Error("payment fulfillment failed",
			"reference", p.Reference,
			"purpose", p.Purpose,
			"err", err,
		)
		// Acknowledged anyway: the charge is recorded and support can
		// replay fulfillment, while a retry loop from Paystack would
		// not help.
	}
	w.WriteHeader(http.StatusOK)
}
