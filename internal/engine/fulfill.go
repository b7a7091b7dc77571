package engine

import (
	"context"
	"fmt"

	"github.com/careerbuddy/careerbuddy-bot/internal/domain/jobs"
	"github.com/careerbuddy/careerbuddy-bot/internal/domain/payments"
	"github.com/careerbuddy/careerbuddy-bot/internal/domain/users"
)

// FulfillPayment applies the entitlement effect of a confirmed charge. It is
// called by the Paystack webhook handler after signature verification and
// duplicate filtering.
func (e *Engine) FulfillPayment(ctx context.Context, p *payments.Payment) error {
	u, err := e.users.GetByID(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", p.UserID, err)
	}
	if u == nil {
		return fmt.Errorf("payment %s references unknown user %s", p.Reference, p.UserID)
	}

	if p.Purpose == payments.PurposeUpgrade {
		e.ent.Upgrade(u)
		if err := e.users.Save(ctx, u); err != nil {
			return fmt.Errorf("save upgraded user: %w", err)
		}
		if e.notifier != nil {
			_ = e.notifier.Notify(ctx, u.TelegramID,
				"⭐ Payment received, welcome to CareerBuddy Pro! Your new limits are active for 30 days. Type *status* to see them.")
		}
		return nil
	}

	// One-off document purchase: unlock the job it was created for.
	if _, ok := users.ParseDocType(p.Purpose); !ok {
		return fmt.Errorf("payment %s has unknown purpose %q", p.Reference, p.Purpose)
	}
	if p.JobID == "" {
		return fmt.Errorf("one-off payment %s has no job", p.Reference)
	}
	j, err := e.jobs.Get(ctx, p.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", p.JobID, err)
	}
	if j == nil || j.Status == jobs.StatusClosed {
		return fmt.Errorf("payment %s references closed job %s", p.Reference, p.JobID)
	}

	if err := e.jobs.SetStatus(ctx, j.ID, jobs.StatusPaid); err != nil {
		return fmt.Errorf("mark job paid: %w", err)
	}
	if e.notifier != nil {
		_ = e.notifier.Notify(ctx, u.TelegramID,
			"✅ Payment received! Type *generate* to create your document.")
	}
	return nil
}
