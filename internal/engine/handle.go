package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/careerbuddy/careerbuddy-bot/internal/domain/jobs"
	"github.com/careerbuddy/careerbuddy-bot/internal/domain/msglog"
	"github.com/careerbuddy/careerbuddy-bot/internal/domain/users"
	"github.com/careerbuddy/careerbuddy-bot/internal/entitlement"
	"github.com/careerbuddy/careerbuddy-bot/internal/flow"
	"github.com/careerbuddy/careerbuddy-bot/internal/infra/metrics"
	"github.com/careerbuddy/careerbuddy-bot/internal/infra/storage"
)

// HandleInbound processes one user message end to end and returns what the
// transport should send back. A zero Directive means the message was a
// duplicate and must be ignored silently.
func (e *Engine) HandleInbound(ctx context.Context, in Inbound) (Directive, error) {
	metrics.MessagesIn.Inc()

	u, err := e.users.UpsertFromTelegram(ctx, in.TelegramID, in.Username, e.ent.NextQuotaReset())
	if err != nil {
		return Directive{}, fmt.Errorf("load user: %w", err)
	}

	// Time-based transitions happen lazily, on the first message that
	// observes them.
	changed := e.ent.CheckPremiumExpiry(u)
	if e.ent.CheckAndResetQuota(u) {
		changed = true
	}
	if changed {
		if err := e.users.Save(ctx, u); err != nil {
			return Directive{}, fmt.Errorf("save user: %w", err)
		}
	}

	j, err := e.jobs.Active(ctx, u.ID)
	if err != nil {
		return Directive{}, fmt.Errorf("load active job: %w", err)
	}

	text := strings.TrimSpace(in.Text)
	jobID := ""
	if j != nil {
		jobID = j.ID
	}
	if err := e.msgs.Append(ctx, u.ID, jobID, msglog.Inbound, text); err != nil {
		e.log.Warn("message log append failed", "err", err)
	}

	if d, handled, err := e.command(ctx, u, j, text); handled || err != nil {
		return e.out(ctx, u, jobID, d), err
	}

	if j == nil {
		return e.out(ctx, u, "", e.selectDocType(ctx, u, nil, text)), nil
	}

	msgID := strconv.Itoa(in.MessageID)
	if msgID == j.LastMsgID {
		metrics.DuplicatesDropped.Inc()
		return Directive{}, nil
	}

	// Switching document type mid-job: same type resumes, another type
	// abandons the current job.
	if dt, ok := parseDocChoice(text, false); ok {
		return e.out(ctx, u, j.ID, e.selectDocType(ctx, u, j, string(dt))), nil
	}

	switch j.Status {
	case jobs.StatusAwaitingPayment:
		return e.out(ctx, u, j.ID, Directive{Reply: "⏳ Waiting for your payment to be confirmed. It usually lands within a minute. Type *reset* to cancel instead."}), nil
	case jobs.StatusRendering:
		return e.out(ctx, u, j.ID, Directive{Reply: "⚙️ Your document is being generated, hold on."}), nil
	case jobs.StatusDelivered:
		return e.out(ctx, u, j.ID, Directive{Reply: "📄 Your document was already delivered. Type *pdf* for a PDF copy, or *new* to start another one."}), nil
	}

	d, err := e.step(ctx, u, j, msgID, text, in.Attachment)
	if err != nil {
		return Directive{}, err
	}
	return e.out(ctx, u, j.ID, d), nil
}

// step applies one message to the job's conversation state.
func (e *Engine) step(ctx context.Context, u *users.User, j *jobs.Job, msgID, text, attachment string) (Directive, error) {
	var a flow.Answers
	if len(j.Answers) > 0 {
		if err := json.Unmarshal(j.Answers, &a); err != nil {
			return Directive{}, fmt.Errorf("decode answers: %w", err)
		}
	}

	step := flow.Step(j.Step)
	input := text
	if step == flow.StepUpload && attachment != "" {
		input = attachment
	}

	// A job parked at finalize (paid one-off, or a retried render) restarts
	// the pipeline on the wake word.
	if step == flow.StepFinalize {
		if !flow.IsWakeWord(input) {
			return Directive{Reply: "Type *generate* to create your document, or *reset* to drop it."}, nil
		}
		if err := e.commit(ctx, j, &a, flow.StepFinalize, j.Status, msgID); err != nil {
			if errors.Is(err, jobs.ErrStale) {
				metrics.DuplicatesDropped.Inc()
				return Directive{}, nil
			}
			return Directive{}, err
		}
		return e.finalize(ctx, u, j, &a)
	}

	res, err := flow.Handle(j.DocType, step, &a, input)
	var ve *flow.ValidationError
	if errors.As(err, &ve) {
		// The message id is still burned so a redelivery does not
		// re-prompt.
		if cerr := e.commit(ctx, j, &a, step, j.Status, msgID); cerr != nil {
			return Directive{}, cerr
		}
		return Directive{Reply: ve.Prompt()}, nil
	}
	if err != nil {
		return Directive{}, fmt.Errorf("handle step %s: %w", step, err)
	}

	// A generated step whose content was lost retries on the wake word.
	if res.Next == flow.StepRevampWork && res.Effect == flow.EffectNone &&
		a.RevampedContent == "" && flow.IsWakeWord(input) {
		res.Effect = flow.EffectRevamp
	}

	if res.Effect == flow.EffectFinalize {
		if err := e.commit(ctx, j, &a, flow.StepFinalize, j.Status, msgID); err != nil {
			if errors.Is(err, jobs.ErrStale) {
				metrics.DuplicatesDropped.Inc()
				return Directive{}, nil
			}
			return Directive{}, err
		}
		return e.finalize(ctx, u, j, &a)
	}

	if reply := e.runEffect(ctx, j, &a, &res); reply != "" {
		res.Reply = reply
	}

	if err := e.commit(ctx, j, &a, res.Next, nextStatus(j.Status, res.Next, &a), msgID); err != nil {
		if errors.Is(err, jobs.ErrStale) {
			metrics.DuplicatesDropped.Inc()
			return Directive{}, nil
		}
		return Directive{}, err
	}
	return Directive{Reply: res.Reply}, nil
}

func (e *Engine) commit(ctx context.Context, j *jobs.Job, a *flow.Answers, step flow.Step, status jobs.Status, msgID string) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	j.Step = string(step)
	j.Status = status
	j.Answers = raw
	return e.jobs.CommitStep(ctx, j, msgID)
}

func nextStatus(cur jobs.Status, next flow.Step, a *flow.Answers) jobs.Status {
	if cur == jobs.StatusPaid {
		return cur
	}
	switch next {
	case flow.StepPreview, flow.StepTemplate, flow.StepFinalize:
		return jobs.StatusPreviewReady
	case flow.StepSummary:
		if a.Summary != "" {
			return jobs.StatusDraftReady
		}
	case flow.StepRevampWork:
		if a.RevampedContent != "" {
			return jobs.StatusDraftReady
		}
	}
	return jobs.StatusCollecting
}

// runEffect executes the AI side effect a step requested and returns the
// reply that supersedes the handler's default one. Generator failures fall
// back to static content rather than blocking the conversation.
func (e *Engine) runEffect(ctx context.Context, j *jobs.Job, a *flow.Answers, res *flow.Result) string {
	switch res.Effect {
	case flow.EffectSuggestSkills:
		skills, err := e.gen.SuggestSkills(ctx, a.TargetRole)
		if err != nil {
			metrics.AIFailures.Inc()
			e.log.Warn("skill suggestion failed, using fallback", "job_id", j.ID, "err", err)
			skills = fallbackSkills()
		}
		a.AISuggestedSkills = skills
		return flow.FormatSkillSelection(skills)

	case flow.EffectDraftSummary:
		lastCompany := ""
		if n := len(a.Experiences); n > 0 {
			lastCompany = a.Experiences[n-1].Company
		}
		summary, err := e.gen.DraftSummary(ctx, a.TargetRole, a.Skills, lastCompany)
		if err != nil || summary == "" {
			metrics.AIFailures.Inc()
			e.log.Warn("summary draft failed, using fallback", "job_id", j.ID, "err", err)
			summary = a.FallbackSummary()
		}
		a.Summary = summary
		return flow.PromptFor(j.DocType, flow.StepSummary, a)

	case flow.EffectRevamp:
		out, err := e.gen.Revamp(ctx, a.OriginalContent)
		if err != nil || out == "" {
			metrics.AIFailures.Inc()
			e.log.Warn("revamp failed", "job_id", j.ID, "err", err)
			res.Next = flow.StepRevampWork
			return "😔 The rewrite engine is busy right now. Type *continue* in a moment to retry."
		}
		a.RevampedContent = out
		preview := out
		if len(preview) > 800 {
			preview = preview[:800] + "…"
		}
		return "✨ Here is the revamped version:\n\n" + preview + "\n\nType *continue* to review and generate the document."
	}
	return ""
}

func fallbackSkills() []string {
	return []string{
		"Communication", "Problem Solving", "Team Leadership",
		"Project Management", "Analytical Thinking", "Time Management",
		"Adaptability", "Attention to Detail",
	}
}

// finalize runs the generation pipeline: completeness gate, entitlement
// check, render, transactional charge, artifact upload, delivery.
func (e *Engine) finalize(ctx context.Context, u *users.User, j *jobs.Job, a *flow.Answers) (Directive, error) {
	if err := a.Complete(j.DocType); err != nil {
		return Directive{Reply: "🤔 Almost there, but something is missing: " + err.Error() + ".\nType *reset* to start over, or send the missing part."}, nil
	}

	paid := j.Status == jobs.StatusPaid
	admin := e.ent.IsAdmin(u)

	if !paid {
		if ok, err := e.ent.CanGenerate(u, j.DocType); !ok {
			return e.denyAndOfferPayment(ctx, u, j, a, err)
		}
	}

	template := a.Template
	if template == "" {
		template = "classic"
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return Directive{}, err
	}
	doc, err := e.renderer.Render(ctx, j.ID, string(j.DocType), template, "docx", raw)
	if err != nil {
		e.log.Error("render failed", "job_id", j.ID, "err", err)
		j.Status = jobs.StatusPreviewReady
		if serr := e.jobs.SetStatus(ctx, j.ID, jobs.StatusPreviewReady); serr != nil {
			return Directive{}, serr
		}
		return Directive{Reply: "😔 Generation hit a snag. Nothing was charged. Type *generate* to try again."}, nil
	}

	recordUsage := !paid && !admin
	if recordUsage {
		e.ent.RecordGeneration(u, j.DocType)
	}
	if err := e.jobs.FinalizeGeneration(ctx, j, u, recordUsage); err != nil {
		if errors.Is(err, jobs.ErrStale) {
			return Directive{Reply: "⚙️ Your document is already being generated."}, nil
		}
		return Directive{}, fmt.Errorf("finalize job: %w", err)
	}

	filename := a.Filename(j.DocType)
	key := storage.Key(j.ID, filename)
	if err := e.store.Put(ctx, key, doc); err != nil {
		// The user still gets the file; only re-download is lost.
		e.log.Error("artifact upload failed", "job_id", j.ID, "err", err)
	} else if err := e.jobs.SetArtifact(ctx, j.ID, key); err != nil {
		e.log.Error("artifact key save failed", "job_id", j.ID, "err", err)
	}
	if err := e.jobs.SetStatus(ctx, j.ID, jobs.StatusDelivered); err != nil {
		return Directive{}, err
	}
	j.Status = jobs.StatusDelivered
	metrics.Generations.WithLabelValues(string(j.DocType)).Inc()

	reply := "🎉 Your document is ready! Type *pdf* for a PDF copy, or *new* to create another one."
	return Directive{Reply: reply, Document: &Document{Filename: filename, Data: doc}}, nil
}

func (e *Engine) denyAndOfferPayment(ctx context.Context, u *users.User, j *jobs.Job, a *flow.Answers, cause error) (Directive, error) {
	var quota *entitlement.QuotaError
	reason := "not_allowed"
	if errors.As(cause, &quota) {
		reason = "quota"
	}
	metrics.EntitlementDenials.WithLabelValues(reason).Inc()

	price, ok := oneOffPriceKobo[j.DocType]
	if !ok {
		return Directive{Reply: "🔒 " + denialText(j.DocType, cause) + "\n\nType *upgrade* to go Pro."}, nil
	}

	reference := uuid.NewString()
	if _, err := e.pays.CreatePending(ctx, u.ID, j.ID, reference, string(j.DocType), price); err != nil {
		return Directive{}, fmt.Errorf("create payment: %w", err)
	}
	url, err := e.checkout.InitializeTransaction(ctx, checkoutEmail(u, a), reference, price, e.callbackURL)
	if err != nil {
		e.log.Error("checkout init failed", "reference", reference, "err", err)
		return Directive{Reply: "🔒 " + denialText(j.DocType, cause) + "\n\nType *upgrade* to go Pro, or try *generate* again later to pay for this one."}, nil
	}

	if err := e.jobs.SetStatus(ctx, j.ID, jobs.StatusAwaitingPayment); err != nil {
		return Directive{}, err
	}
	j.Status = jobs.StatusAwaitingPayment

	return Directive{Reply: fmt.Sprintf(
		"🔒 %s\n\nYou can pay ₦%s for this one document:\n%s\n\nOr type *upgrade* for Pro (₦%s/month) with higher limits and PDF export.",
		denialText(j.DocType, cause), naira(price), url, naira(upgradePriceKobo),
	)}, nil
}

func denialText(dt users.DocType, cause error) string {
	var quota *entitlement.QuotaError
	if errors.As(cause, &quota) {
		return fmt.Sprintf("You have used all your %s generations for this cycle (limit %d).", dt, quota.Limit)
	}
	label := strings.ReplaceAll(string(dt), "_", " ")
	return fmt.Sprintf("%s%s documents are not included in your current plan.",
		strings.ToUpper(label[:1]), label[1:])
}

func checkoutEmail(u *users.User, a *flow.Answers) string {
	if a != nil && a.Basics.Email != "" {
		return a.Basics.Email
	}
	return fmt.Sprintf("%d@users.careerbuddy.app", u.TelegramID)
}

func naira(kobo int64) string {
	return strconv.FormatInt(kobo/100, 10)
}

// out logs the outbound reply and counts it.
func (e *Engine) out(ctx context.Context, u *users.User, jobID string, d Directive) Directive {
	if d.Reply == "" && d.Document == nil {
		return d
	}
	metrics.MessagesOut.Inc()
	if d.Reply != "" {
		if err := e.msgs.Append(ctx, u.ID, jobID, msglog.Outbound, d.Reply); err != nil {
			e.log.Warn("message log append failed", "err", err)
		}
	}
	return d
}
