// Package engine is the conversation core: it owns job state transitions,
// entitlement checks, AI effects, and document finalization. Transport
// (Telegram) and persistence are injected behind narrow interfaces.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/careerbuddy/careerbuddy-bot/internal/domain/jobs"
	"github.com/careerbuddy/careerbuddy-bot/internal/domain/msglog"
	"github.com/careerbuddy/careerbuddy-bot/internal/domain/payments"
	"github.com/careerbuddy/careerbuddy-bot/internal/domain/users"
	"github.com/careerbuddy/careerbuddy-bot/internal/entitlement"
)

// One-off generation prices in kobo, charged when a quota is exhausted but
// the user wants one more document without upgrading.
var oneOffPriceKobo = map[users.DocType]int64{
	users.DocResume:      150000,
	users.DocCV:          150000,
	users.DocCoverLetter: 100000,
	users.DocRevamp:      200000,
}

const upgradePriceKobo = 500000

type UserStore interface {
	UpsertFromTelegram(ctx context.Context, tgID int64, username string, resetAt time.Time) (*users.User, error)
	GetByID(ctx context.Context, id string) (*users.User, error)
	GetByTelegramID(ctx context.Context, tgID int64) (*users.User, error)
	Save(ctx context.Context, u *users.User) error
	CountByTier(ctx context.Context) (free, pro int64, err error)
	ListTelegramIDs(ctx context.Context) ([]int64, error)
}

type JobStore interface {
	Active(ctx context.Context, userID string) (*jobs.Job, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
	Create(ctx context.Context, userID string, docType users.DocType, step string, answers json.RawMessage) (*jobs.Job, error)
	CommitStep(ctx context.Context, j *jobs.Job, msgID string) error
	FinalizeGeneration(ctx context.Context, j *jobs.Job, u *users.User, recordUsage bool) error
	SetStatus(ctx context.Context, id string, status jobs.Status) error
	SetArtifact(ctx context.Context, id, key string) error
	Close(ctx context.Context, id string) error
	CountsByType(ctx context.Context) (map[users.DocType]int64, error)
	History(ctx context.Context, userID string, limit int) ([]jobs.Job, error)
}

type MessageLog interface {
	Append(ctx context.Context, userID, jobID string, dir msglog.Direction, content string) error
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

type PaymentStore interface {
	CreatePending(ctx context.Context, userID, jobID, reference, purpose string, amountKobo int64) (*payments.Payment, error)
	RecordWaived(ctx context.Context, userID, reference, purpose string) error
	Totals(ctx context.Context) (count int64, sumKobo int64, err error)
}

// Generator is the AI content backend.
type Generator interface {
	SuggestSkills(ctx context.Context, targetRole string) ([]string, error)
	DraftSummary(ctx context.Context, targetRole string, skills []string, lastCompany string) (string, error)
	Revamp(ctx context.Context, original string) (string, error)
}

type Renderer interface {
	Render(ctx context.Context, jobID, docType, template, format string, answers json.RawMessage) ([]byte, error)
}

type ArtifactStore interface {
	Put(ctx context.Context, key string, doc []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Checkout opens a hosted payment page and returns its URL.
type Checkout interface {
	InitializeTransaction(ctx context.Context, email, reference string, amountKobo int64, callbackURL string) (string, error)
}

// Notifier pushes messages outside the request cycle (payment confirmations,
// broadcasts). Implemented by the Telegram transport.
type Notifier interface {
	Notify(ctx context.Context, telegramID int64, text string) error
	SendDocument(ctx context.Context, telegramID int64, filename string, data []byte) error
}

type Engine struct {
	log      *slog.Logger
	users    UserStore
	jobs     JobStore
	msgs     MessageLog
	pays     PaymentStore
	ent      *entitlement.Engine
	gen      Generator
	renderer Renderer
	store    ArtifactStore
	checkout Checkout
	notifier Notifier

	callbackURL string
}

type Config struct {
	Users       UserStore
	Jobs        JobStore
	Messages    MessageLog
	Payments    PaymentStore
	Entitlement *entitlement.Engine
	Generator   Generator
	Renderer    Renderer
	Artifacts   ArtifactStore
	Checkout    Checkout
	CallbackURL string
}

func New(log *slog.Logger, cfg Config) *Engine {
	return &Engine{
		log:         log,
		users:       cfg.Users,
		jobs:        cfg.Jobs,
		msgs:        cfg.Messages,
		pays:        cfg.Payments,
		ent:         cfg.Entitlement,
		gen:         cfg.Generator,
		renderer:    cfg.Renderer,
		store:       cfg.Artifacts,
		checkout:    cfg.Checkout,
		callbackURL: cfg.CallbackURL,
	}
}

// SetNotifier wires the transport after construction; the bot needs the
// engine and the engine needs the bot for pushes.
func (e *Engine) SetNotifier(n Notifier) { e.notifier = n }

// Inbound is one normalized user message. Attachment carries the extracted
// text of an uploaded document, when present.
type Inbound struct {
	TelegramID int64
	Username   string
	MessageID  int
	Text       string
	Attachment string
}

// Document is a file the transport should send to the user.
type Document struct {
	Filename string
	Data     []byte
}

// Directive tells the transport what to do after a turn. Zero value means
// stay silent (duplicate drops).
type Directive struct {
	Reply    string
	Document *Document
}

func jsonUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
