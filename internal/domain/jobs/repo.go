package jobs

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careerbuddy/careerbuddy-bot/internal/domain/users"
)

// ErrStale is returned by CommitStep when the compare-and-set on last_msg_id
// loses: either a concurrent delivery of the same message already committed,
// or the job row is gone.
var ErrStale = errors.New("jobs: stale commit")

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const jobColumns = `id, user_id, doc_type, status, step, answers, COALESCE(last_msg_id, ''), COALESCE(artifact_key, ''), created_at, updated_at`

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	if err := row.Scan(&j.ID, &j.UserID, &j.DocType, &j.Status, &j.Step,
		&j.Answers, &j.LastMsgID, &j.ArtifactKey, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

// Active returns the user's single non-closed job, if any.
func (r *Repo) Active(ctx context.Context, userID string) (*Job, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE user_id = $1 AND status <> 'closed'
		ORDER BY created_at DESC
		LIMIT 1`, userID)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

func (r *Repo) Get(ctx context.Context, id string) (*Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

func (r *Repo) Create(ctx context.Context, userID string, docType users.DocType, step string, answers json.RawMessage) (*Job, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO jobs (user_id, doc_type, status, step, answers)
		VALUES ($1, $2, 'collecting', $3, $4)
		RETURNING `+jobColumns,
		userID, docType, step, answers)
	return scanJob(row)
}

// CommitStep persists one turn's outcome: step, status, answers and the
// processed message id, in a single compare-and-set update. The WHERE clause
// refuses a message id the row already carries, so two racing deliveries of
// the same message produce exactly one transition.
func (r *Repo) CommitStep(ctx context.Context, j *Job, msgID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET step = $2, status = $3, answers = $4, last_msg_id = $5, updated_at = now()
		WHERE id = $1 AND (last_msg_id IS NULL OR last_msg_id <> $5)
	`, j.ID, j.Step, j.Status, j.Answers, msgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	j.LastMsgID = msgID
	return nil
}

// FinalizeGeneration moves the job to rendering and, unless the usage is
// waived (admin or paid one-off), writes the incremented counters from u
// in the same transaction. The counter is never charged without the job
// reaching rendering, and never the other way around.
func (r *Repo) FinalizeGeneration(ctx context.Context, j *Job, u *users.User, recordUsage bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE jobs SET status = 'rendering', step = $2, answers = $3, updated_at = now()
		WHERE id = $1 AND status <> 'closed'
	`, j.ID, j.Step, j.Answers)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}

	if recordUsage {
		raw, err := json.Marshal(u.DocCounts)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE users SET doc_counts = $2, updated_at = now() WHERE id = $1
		`, u.ID, raw); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	j.Status = StatusRendering
	return nil
}

func (r *Repo) SetStatus(ctx context.Context, id string, status Status) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}

func (r *Repo) SetArtifact(ctx context.Context, id, key string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE jobs SET artifact_key = $2, updated_at = now() WHERE id = $1`, id, key)
	return err
}

func (r *Repo) Close(ctx context.Context, id string) error {
	return r.SetStatus(ctx, id, StatusClosed)
}

// CountsByType aggregates delivered documents for the admin report.
func (r *Repo) CountsByType(ctx context.Context) (map[users.DocType]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doc_type, count(*) FROM jobs
		WHERE status IN ('delivered', 'closed') AND artifact_key <> ''
		GROUP BY doc_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[users.DocType]int64{}
	for rows.Next() {
		var t users.DocType
		var n int64
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		out[t] = n
	}
	return out, rows.Err()
}

// History lists a user's rendered documents, newest first.
func (r *Repo) History(ctx context.Context, userID string, limit int) ([]Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE user_id = $1 AND artifact_key <> ''
		ORDER BY updated_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}
