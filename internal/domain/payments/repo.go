package payments

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const paymentColumns = `id, user_id, COALESCE(job_id::text, ''), provider, reference, amount_kobo, currency, status, purpose, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	if err := row.Scan(&p.ID, &p.UserID, &p.JobID, &p.Provider, &p.Reference,
		&p.AmountKobo, &p.Currency, &p.Status, &p.Purpose, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) CreatePending(ctx context.Context, userID, jobID, reference, purpose string, amountKobo int64) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO payments (user_id, job_id, provider, reference, amount_kobo, currency, status, purpose)
		VALUES ($1, NULLIF($2, '')::uuid, 'paystack', $3, $4, 'NGN', 'init', $5)
		ON CONFLICT (reference) DO UPDATE SET updated_at = now()
		RETURNING `+paymentColumns,
		userID, jobID, reference, amountKobo, purpose)
	return scanPayment(row)
}

func (r *Repo) ByReference(ctx context.Context, reference string) (*Payment, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, reference)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// MarkStatus records the provider's verdict. The raw payload is kept for
// dispute handling; it never leaves this table.
func (r *Repo) MarkStatus(ctx context.Context, reference string, status Status, raw json.RawMessage) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payments SET status = $2, raw_webhook = $3, updated_at = now()
		WHERE reference = $1
	`, reference, status, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("payments: unknown reference")
	}
	return nil
}

// RecordWaived logs a zero-amount placeholder when the gateway is bypassed
// (admin upgrades, test mode).
func (r *Repo) RecordWaived(ctx context.Context, userID, reference, purpose string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payments (user_id, provider, reference, amount_kobo, currency, status, purpose)
		VALUES ($1, 'paystack', $2, 0, 'NGN', 'waived', $3)
		ON CONFLICT (reference) DO NOTHING
	`, userID, reference, purpose)
	return err
}

func (r *Repo) Totals(ctx context.Context) (count int64, sumKobo int64, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT count(*), COALESCE(sum(amount_kobo), 0)
		FROM payments WHERE status = 'success'
	`).Scan(&count, &sumKobo)
	return count, sumKobo, err
}
