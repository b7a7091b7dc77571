// Package bot is the Telegram transport: it normalizes updates into engine
// inbound messages and turns directives back into sends.
package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/careerbuddy/careerbuddy-bot/internal/engine"
	"github.com/careerbuddy/careerbuddy-bot/internal/infra/metrics"
)

// Deduper filters redelivered updates before they reach the engine.
type Deduper interface {
	SeenOrMark(ctx context.Context, chatID int64, messageID int) bool
}

type Bot struct {
	api    *tgbotapi.BotAPI
	log    *slog.Logger
	engine *engine.Engine
	dedupe Deduper
}

func New(api *tgbotapi.BotAPI, log *slog.Logger, eng *engine.Engine, dedupe Deduper) *Bot {
	return &Bot{api: api, log: log, engine: eng, dedupe: dedupe}
}

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-updates:
			if upd.Message != nil {
				b.onMessage(ctx, upd.Message)
			} else if upd.CallbackQuery != nil {
				b.onCallback(ctx, upd.CallbackQuery)
			}
		}
	}
}

func (b *Bot) onMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}
	chatID := msg.Chat.ID

	if b.dedupe != nil && b.dedupe.SeenOrMark(ctx, chatID, msg.MessageID) {
		metrics.DuplicatesDropped.Inc()
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	d, err := b.engine.HandleInbound(ctx, engine.Inbound{
		TelegramID: msg.From.ID,
		Username:   msg.From.UserName,
		MessageID:  msg.MessageID,
		Text:       text,
		Attachment: b.extractAttachment(msg),
	})
	if err != nil {
		b.log.Error("inbound handling failed", "chat_id", chatID, "err", err)
		b.send(withKeyboard(tgbotapi.NewMessage(chatID, "😔 Something went wrong on my side, please try again.")))
		return
	}
	b.deliver(chatID, d)
}

// onCallback routes inline button presses through the same engine path as
// typed text.
func (b *Bot) onCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.From == nil {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("callback ack failed", "err", err)
	}

	d, err := b.engine.HandleInbound(ctx, engine.Inbound{
		TelegramID: cb.From.ID,
		Username:   cb.From.UserName,
		MessageID:  cb.Message.MessageID,
		Text:       cb.Data,
	})
	if err != nil {
		b.log.Error("callback handling failed", "chat_id", cb.Message.Chat.ID, "err", err)
		return
	}
	b.deliver(cb.Message.Chat.ID, d)
}

func (b *Bot) deliver(chatID int64, d engine.Directive) {
	if d.Reply != "" {
		msg := tgbotapi.NewMessage(chatID, d.Reply)
		msg.ParseMode = tgbotapi.ModeMarkdown
		b.send(withKeyboard(msg))
	}
	if d.Document != nil {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
			Name:  d.Document.Filename,
			Bytes: d.Document.Data,
		})
		b.send(doc)
	}
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", "err", err)
	}
}

// Notify implements engine.Notifier for payment confirmations and
// broadcasts.
func (b *Bot) Notify(_ context.Context, telegramID int64, text string) error {
	msg := tgbotapi.NewMessage(telegramID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendDocument(_ context.Context, telegramID int64, filename string, data []byte) error {
	doc := tgbotapi.NewDocument(telegramID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	_, err := b.api.Send(doc)
	return err
}

// extractAttachment pulls text out of an uploaded document: plain text files
// as-is, .docx via its document XML. Unsupported formats return empty and
// the flow re-prompts.
func (b *Bot) extractAttachment(msg *tgbotapi.Message) string {
	if msg.Document == nil {
		return ""
	}

	data, err := b.downloadFile(msg.Document.FileID)
	if err != nil {
		b.log.Warn("attachment download failed", "file", msg.Document.FileName, "err", err)
		return ""
	}

	name := strings.ToLower(msg.Document.FileName)
	switch {
	case strings.HasSuffix(name, ".txt"):
		return string(data)
	case strings.HasSuffix(name, ".docx"):
		text, err := docxText(data)
		if err != nil {
			b.log.Warn("docx extraction failed", "file", msg.Document.FileName, "err", err)
			return ""
		}
		return text
	}
	return ""
}

func (b *Bot) downloadFile(fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}

	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram returned status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
