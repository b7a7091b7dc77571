package jobs

import (
	"encoding/json"
	"time"

	"github.com/careerbuddy/careerbuddy-bot/internal/domain/users"
)

type Status string

const (
	StatusCollecting      Status = "collecting"
	StatusDraftReady      Status = "draft_ready"
	StatusPreviewReady    Status = "preview_ready"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPaid            Status = "paid"
	StatusRendering       Status = "rendering"
	StatusDelivered       Status = "delivered"
	StatusClosed          Status = "closed"
)

// Job is one document-creation session. Step and Answers are owned by the
// conversation engine; this package only persists them. LastMsgID is the
// idempotency key: a message whose id equals it has already been processed.
type Job struct {
	ID          string
	UserID      string
	DocType     users.DocType
	Status      Status
	Step        string
	Answers     json.RawMessage
	LastMsgID   string
	ArtifactKey string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
