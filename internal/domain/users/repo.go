package users

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const userColumns = `id, telegram_id, username, tier, doc_counts, quota_reset_at, premium_expires_at, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var raw []byte
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.Tier, &raw,
		&u.QuotaResetAt, &u.PremiumExpiresAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &u.DocCounts); err != nil {
		u.DocCounts = map[DocType]int{}
	}
	return &u, nil
}

func (r *Repo) GetByTelegramID(ctx context.Context, tgID int64) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, tgID)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// UpsertFromTelegram creates the user on first contact. Counters start at zero
// with a fresh 30-day cycle; an existing row only refreshes the username.
func (r *Repo) UpsertFromTelegram(ctx context.Context, tgID int64, username string, resetAt time.Time) (*User, error) {
	fresh := map[DocType]int{}
	for _, t := range AllDocTypes() {
		fresh[t] = 0
	}
	raw, _ := json.Marshal(fresh)

	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (telegram_id, username, tier, doc_counts, quota_reset_at, premium_expires_at)
		VALUES ($1, $2, 'free', $3, $4, $4)
		ON CONFLICT (telegram_id)
		DO UPDATE SET username = EXCLUDED.username, updated_at = now()
		RETURNING `+userColumns,
		tgID, username, raw, resetAt)
	return scanUser(row)
}

// Save persists tier, counters and both cycle instants after the entitlement
// engine has mutated the in-memory user.
func (r *Repo) Save(ctx context.Context, u *User) error {
	raw, err := json.Marshal(u.DocCounts)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE users
		SET tier = $2, doc_counts = $3, quota_reset_at = $4,
		    premium_expires_at = $5, updated_at = now()
		WHERE id = $1
	`, u.ID, u.Tier, raw, u.QuotaResetAt, u.PremiumExpiresAt)
	return err
}

func (r *Repo) CountByTier(ctx context.Context) (free, pro int64, err error) {
	rows, err := r.pool.Query(ctx, `SELECT tier, count(*) FROM users GROUP BY tier`)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()
	for rows.Next() {
		var tier string
		var n int64
		if err := rows.Scan(&tier, &n); err != nil {
			return 0, 0, err
		}
		switch Tier(tier) {
		case TierPro:
			pro = n
		default:
			free += n
		}
	}
	return free, pro, rows.Err()
}

func (r *Repo) ListTelegramIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT telegram_id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
