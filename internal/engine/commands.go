package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/careerbuddy/careerbuddy-bot/internal/domain/jobs"
	"github.com/careerbuddy/careerbuddy-bot/internal/domain/payments"
	"github.com/careerbuddy/careerbuddy-bot/internal/domain/users"
	"github.com/careerbuddy/careerbuddy-bot/internal/flow"
	"github.com/careerbuddy/careerbuddy-bot/internal/reports"
)

const menuText = `👋 *What would you like to create?*

1. 📄 Resume
2. 📋 CV
3. ✉️ Cover Letter
4. ✨ Revamp an existing resume

Send a number or a name to begin.`

const helpText = `ℹ️ *Commands*

*new* or *menu* — pick a document to create
*status* — your plan, usage, and limits
*history* — your recent documents
*download* — your latest document again
*pdf* — PDF copy of your last document (Pro)
*upgrade* — go Pro
*reset* — abandon the current document
*help* — this message

While filling in a document, just answer the questions. Type *done* to finish a list, *skip* to pass an optional section.`

// command handles global commands that work regardless of conversation
// state. The bool reports whether the message was consumed.
func (e *Engine) command(ctx context.Context, u *users.User, j *jobs.Job, text string) (Directive, bool, error) {
	lower := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(text, "/")))
	cmd, arg := lower, ""
	if i := strings.IndexByte(lower, ' '); i > 0 {
		cmd, arg = lower[:i], strings.TrimSpace(text[i+1:])
	}

	switch cmd {
	case "start", "hi", "hello", "hey":
		if j != nil {
			var a flow.Answers
			_ = jsonUnmarshal(j.Answers, &a)
			return Directive{Reply: fmt.Sprintf(
				"👋 Welcome back! You have a %s in progress.\n\n%s",
				docLabel(j.DocType), flow.PromptFor(j.DocType, flow.Step(j.Step), &a),
			)}, true, nil
		}
		return Directive{Reply: "👋 *Welcome to CareerBuddy!* I help you build job-winning documents right here in chat.\n\n" + menuText}, true, nil

	case "menu", "new":
		// The menu invites numeric picks, which only parse without an
		// active job; whatever was in progress is dropped like a reset.
		if j != nil {
			if err := e.jobs.Close(ctx, j.ID); err != nil {
				return Directive{}, true, err
			}
			if j.Status != jobs.StatusDelivered {
				return Directive{Reply: "🗑 Dropped your unfinished " + docLabel(j.DocType) + ".\n\n" + menuText}, true, nil
			}
		}
		return Directive{Reply: menuText}, true, nil

	case "help":
		return Directive{Reply: helpText}, true, nil

	case "reset", "cancel":
		if j == nil {
			return Directive{Reply: "Nothing to reset. " + menuText}, true, nil
		}
		if err := e.jobs.Close(ctx, j.ID); err != nil {
			return Directive{}, true, err
		}
		return Directive{Reply: "🗑 Done, I dropped that one.\n\n" + menuText}, true, nil

	case "status":
		return Directive{Reply: e.statusText(u)}, true, nil

	case "history":
		return e.history(ctx, u)

	case "download":
		return e.download(ctx, u)

	case "pdf":
		return e.exportPDF(ctx, u)

	case "upgrade":
		return e.upgradeCheckout(ctx, u)

	case "stats":
		if !e.ent.IsAdmin(u) {
			return Directive{}, false, nil
		}
		return e.adminStats(ctx)

	case "broadcast":
		if !e.ent.IsAdmin(u) {
			return Directive{}, false, nil
		}
		return e.adminBroadcast(ctx, arg)

	case "setpro":
		if !e.ent.IsAdmin(u) {
			return Directive{}, false, nil
		}
		return e.adminSetPro(ctx, arg)
	}

	return Directive{}, false, nil
}

func docLabel(dt users.DocType) string {
	switch dt {
	case users.DocResume:
		return "resume"
	case users.DocCV:
		return "CV"
	case users.DocCoverLetter:
		return "cover letter"
	case users.DocRevamp:
		return "resume revamp"
	}
	return string(dt)
}

// parseDocChoice maps a menu selection to a document type. Numbers are only
// accepted when allowNumbers is set: inside a job they collide with numeric
// step answers.
func parseDocChoice(text string, allowNumbers bool) (users.DocType, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if allowNumbers {
		switch t {
		case "1":
			return users.DocResume, true
		case "2":
			return users.DocCV, true
		case "3":
			return users.DocCoverLetter, true
		case "4":
			return users.DocRevamp, true
		}
	}
	switch t {
	case "resume":
		return users.DocResume, true
	case "cv":
		return users.DocCV, true
	case "cover letter", "cover_letter", "coverletter":
		return users.DocCoverLetter, true
	case "revamp":
		return users.DocRevamp, true
	}
	return "", false
}

// selectDocType starts (or resumes) a job for the chosen type. Choosing the
// type of the active job resumes it; choosing another closes the active one
// first.
func (e *Engine) selectDocType(ctx context.Context, u *users.User, j *jobs.Job, text string) Directive {
	dt, ok := parseDocChoice(text, j == nil)
	if !ok {
		return Directive{Reply: "🤔 I did not catch that.\n\n" + menuText}
	}

	if j != nil {
		if j.DocType == dt {
			var a flow.Answers
			_ = jsonUnmarshal(j.Answers, &a)
			return Directive{Reply: fmt.Sprintf(
				"▶️ Resuming your %s.\n\n%s",
				docLabel(dt), flow.PromptFor(dt, flow.Step(j.Step), &a),
			)}
		}
		if err := e.jobs.Close(ctx, j.ID); err != nil {
			e.log.Error("close job on switch failed", "job_id", j.ID, "err", err)
			return Directive{Reply: "😔 Something went wrong, please try again."}
		}
	}

	first := flow.FirstStep(dt)
	nj, err := e.jobs.Create(ctx, u.ID, dt, string(first), []byte(`{}`))
	if err != nil {
		e.log.Error("create job failed", "user_id", u.ID, "err", err)
		return Directive{Reply: "😔 Something went wrong, please try again."}
	}

	var a flow.Answers
	return Directive{Reply: fmt.Sprintf(
		"🚀 Let's build your %s!\n\n%s",
		docLabel(nj.DocType), flow.PromptFor(dt, first, &a),
	)}
}

func (e *Engine) statusText(u *users.User) string {
	st := e.ent.GetStatus(u)

	var b strings.Builder
	if st.Admin {
		b.WriteString("👑 *Admin account* — unlimited generations, PDF export enabled.")
		return b.String()
	}

	if st.Tier == users.TierPro {
		fmt.Fprintf(&b, "⭐ *Pro plan* (until %s)\n\n", st.PremiumExpiresAt.Format("Jan 2, 2006"))
	} else {
		b.WriteString("🆓 *Free plan*\n\n")
	}
	b.WriteString("*This cycle:*\n")
	for _, t := range users.AllDocTypes() {
		ts := st.PerType[t]
		if ts.Limit == 0 {
			fmt.Fprintf(&b, "• %s: not included\n", docLabel(t))
			continue
		}
		fmt.Fprintf(&b, "• %s: %d of %d used\n", docLabel(t), ts.Used, ts.Limit)
	}
	if st.PDFAllowed {
		b.WriteString("• PDF export: ✅\n")
	} else {
		b.WriteString("• PDF export: Pro only\n")
	}
	fmt.Fprintf(&b, "\nQuota resets %s.", st.QuotaResetAt.Format("Jan 2, 2006"))
	if st.Tier != users.TierPro {
		b.WriteString("\n\nType *upgrade* for higher limits and PDF export.")
	}
	return b.String()
}

func (e *Engine) history(ctx context.Context, u *users.User) (Directive, bool, error) {
	items, err := e.jobs.History(ctx, u.ID, 5)
	if err != nil {
		return Directive{}, true, fmt.Errorf("load history: %w", err)
	}
	if len(items) == 0 {
		return Directive{Reply: "🗂 No documents yet.\n\n" + menuText}, true, nil
	}

	var b strings.Builder
	b.WriteString("🗂 *Your recent documents:*\n\n")
	for i, it := range items {
		name := it.ArtifactKey
		if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
			name = name[idx+1:]
		}
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, name, it.UpdatedAt.Format("Jan 2"))
	}
	b.WriteString("\nType *download* to get the latest one again, or *pdf* for a PDF copy.")
	return Directive{Reply: b.String()}, true, nil
}

// download re-sends the stored copy of the latest document without
// regenerating it.
func (e *Engine) download(ctx context.Context, u *users.User) (Directive, bool, error) {
	items, err := e.jobs.History(ctx, u.ID, 1)
	if err != nil {
		return Directive{}, true, fmt.Errorf("load history: %w", err)
	}
	if len(items) == 0 || items[0].ArtifactKey == "" {
		return Directive{Reply: "🗂 No documents yet, nothing to download."}, true, nil
	}

	key := items[0].ArtifactKey
	data, err := e.store.Get(ctx, key)
	if err != nil || len(data) == 0 {
		e.log.Error("artifact fetch failed", "key", key, "err", err)
		return Directive{Reply: "😔 Could not fetch your document, try again in a bit."}, true, nil
	}

	name := key
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	return Directive{
		Reply:    "📄 Here it is again.",
		Document: &Document{Filename: name, Data: data},
	}, true, nil
}

// exportPDF re-renders the most recent document as PDF. Pro and admin only.
func (e *Engine) exportPDF(ctx context.Context, u *users.User) (Directive, bool, error) {
	if !e.ent.CanUsePDFExport(u) {
		return Directive{Reply: "🔒 PDF export is a Pro feature. Type *upgrade* to unlock it."}, true, nil
	}

	items, err := e.jobs.History(ctx, u.ID, 1)
	if err != nil {
		return Directive{}, true, fmt.Errorf("load history: %w", err)
	}
	if len(items) == 0 {
		return Directive{Reply: "🗂 No documents yet, nothing to export."}, true, nil
	}
	j := items[0]

	var a flow.Answers
	if err := jsonUnmarshal(j.Answers, &a); err != nil {
		return Directive{}, true, err
	}
	template := a.Template
	if template == "" {
		template = "classic"
	}
	doc, err := e.renderer.Render(ctx, j.ID, string(j.DocType), template, "pdf", j.Answers)
	if err != nil {
		e.log.Error("pdf render failed", "job_id", j.ID, "err", err)
		return Directive{Reply: "😔 PDF export hit a snag, try again in a bit."}, true, nil
	}

	filename := strings.TrimSuffix(a.Filename(j.DocType), ".docx") + ".pdf"
	return Directive{
		Reply:    "📄 Here is your PDF.",
		Document: &Document{Filename: filename, Data: doc},
	}, true, nil
}

func (e *Engine) upgradeCheckout(ctx context.Context, u *users.User) (Directive, bool, error) {
	if e.ent.IsAdmin(u) {
		return Directive{Reply: "👑 Admin accounts already have everything unlocked."}, true, nil
	}
	if u.Tier == users.TierPro {
		return Directive{Reply: fmt.Sprintf("⭐ You are already on Pro until %s.", u.PremiumExpiresAt.Format("Jan 2, 2006"))}, true, nil
	}

	reference := uuid.NewString()
	if _, err := e.pays.CreatePending(ctx, u.ID, "", reference, payments.PurposeUpgrade, upgradePriceKobo); err != nil {
		return Directive{}, true, fmt.Errorf("create upgrade payment: %w", err)
	}
	url, err := e.checkout.InitializeTransaction(ctx, checkoutEmail(u, nil), reference, upgradePriceKobo, e.callbackURL)
	if err != nil {
		e.log.Error("upgrade checkout failed", "reference", reference, "err", err)
		return Directive{Reply: "😔 Could not open the payment page, try again in a bit."}, true, nil
	}

	return Directive{Reply: fmt.Sprintf(
		"⭐ *CareerBuddy Pro* — ₦%s for 30 days:\n\n• 2 resumes and 2 CVs per cycle\n• 1 cover letter and 1 revamp\n• PDF export\n\nPay here:\n%s",
		naira(upgradePriceKobo), url,
	)}, true, nil
}

func (e *Engine) adminStats(ctx context.Context) (Directive, bool, error) {
	free, pro, err := e.users.CountByTier(ctx)
	if err != nil {
		return Directive{}, true, fmt.Errorf("count users: %w", err)
	}
	docs, err := e.jobs.CountsByType(ctx)
	if err != nil {
		return Directive{}, true, fmt.Errorf("count docs: %w", err)
	}
	payCount, revenue, err := e.pays.Totals(ctx)
	if err != nil {
		return Directive{}, true, fmt.Errorf("payment totals: %w", err)
	}
	msgs, err := e.msgs.CountSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return Directive{}, true, fmt.Errorf("count messages: %w", err)
	}

	now := time.Now()
	usage := reports.Usage{
		GeneratedAt:   now,
		FreeUsers:     free,
		ProUsers:      pro,
		DocsByType:    docs,
		Payments:      payCount,
		RevenueKobo:   revenue,
		MessagesToday: msgs,
	}
	book, err := reports.Workbook(usage)
	if err != nil {
		return Directive{}, true, fmt.Errorf("build report: %w", err)
	}

	var docsTotal int64
	for _, n := range docs {
		docsTotal += n
	}
	reply := fmt.Sprintf(
		"📊 *Stats*\n\nUsers: %d free, %d pro\nDocuments delivered: %d\nPayments: %d (₦%s)\nMessages (24h): %d",
		free, pro, docsTotal, payCount, naira(revenue), msgs,
	)
	return Directive{
		Reply:    reply,
		Document: &Document{Filename: reports.Filename(now), Data: book},
	}, true, nil
}

func (e *Engine) adminBroadcast(ctx context.Context, text string) (Directive, bool, error) {
	if strings.TrimSpace(text) == "" {
		return Directive{Reply: "Usage: /broadcast <message>"}, true, nil
	}
	if e.notifier == nil {
		return Directive{Reply: "Transport not ready."}, true, nil
	}

	ids, err := e.users.ListTelegramIDs(ctx)
	if err != nil {
		return Directive{}, true, fmt.Errorf("list users: %w", err)
	}
	sent := 0
	for _, id := range ids {
		if err := e.notifier.Notify(ctx, id, text); err != nil {
			e.log.Warn("broadcast delivery failed", "telegram_id", id, "err", err)
			continue
		}
		sent++
	}
	return Directive{Reply: fmt.Sprintf("📣 Broadcast sent to %d of %d users.", sent, len(ids))}, true, nil
}

func (e *Engine) adminSetPro(ctx context.Context, arg string) (Directive, bool, error) {
	tgID, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return Directive{Reply: "Usage: /setpro <telegram_id>"}, true, nil
	}

	target, err := e.users.GetByTelegramID(ctx, tgID)
	if err != nil {
		return Directive{}, true, fmt.Errorf("load user %d: %w", tgID, err)
	}
	if target == nil {
		return Directive{Reply: fmt.Sprintf("No user with id %d.", tgID)}, true, nil
	}

	e.ent.Upgrade(target)
	if err := e.users.Save(ctx, target); err != nil {
		return Directive{}, true, fmt.Errorf("save user %d: %w", tgID, err)
	}
	if err := e.pays.RecordWaived(ctx, target.ID, "admin-"+uuid.NewString(), payments.PurposeUpgrade); err != nil {
		e.log.Warn("waived payment record failed", "user_id", target.ID, "err", err)
	}
	if e.notifier != nil {
		_ = e.notifier.Notify(ctx, tgID, "⭐ You have been upgraded to CareerBuddy Pro for 30 days. Enjoy!")
	}
	return Directive{Reply: fmt.Sprintf("⭐ User %d is now Pro until %s.", tgID, target.PremiumExpiresAt.Format("Jan 2, 2006"))}, true, nil
}
