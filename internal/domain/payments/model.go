package payments

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusInit    Status = "init"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusWaived  Status = "waived"
)

// Purpose is either "premium_upgrade" or a document type string; it decides
// what a successful payment unlocks.
const PurposeUpgrade = "premium_upgrade"

type Payment struct {
	ID         string
	UserID     string
	JobID      string
	Provider   string
	Reference  string
	AmountKobo int64
	Currency   string
	Status     Status
	Purpose    string
	RawWebhook json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
