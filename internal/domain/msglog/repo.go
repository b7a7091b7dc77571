package msglog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

type Entry struct {
	ID        string
	UserID    string
	JobID     string
	Direction Direction
	Content   string
	CreatedAt time.Time
}

// Repo is an append-only log of the conversation, used for support and the
// admin engagement report.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Append(ctx context.Context, userID, jobID string, dir Direction, content string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (user_id, job_id, direction, content)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4)
	`, userID, jobID, dir, content)
	return err
}

func (r *Repo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM messages WHERE created_at >= $1`, since).Scan(&n)
	return n, err
}
