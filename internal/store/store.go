package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ytpublish/internal/jobs"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrStateConflict is returned when a status write names a transition the
// lifecycle does not allow, or when the record's current status no longer
// matches the expected prior status. The record is left untouched either
// way. Callers treat it as a duplicate/out-of-order delivery signal, not a
// retryable failure.
var ErrStateConflict = errors.New("job status conflict")

type Store struct {
	db *sql.DB
}

// Job is one video publish job record. (PK, SK) is globally unique;
// descriptive fields are written once at creation and never mutated.
type Job struct {
	PK               string
	SK               string
	Status           jobs.Status
	UserID           string
	VideoTitle       string
	VideoDescription string
	ThumbnailKey     string
	SourceBucket     string
	CreatedAt        time.Time
	CompletedAt      sql.NullTime
}

func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS video_jobs (
	pk TEXT NOT NULL,
	sk TEXT NOT NULL,
	status TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	video_title TEXT NOT NULL DEFAULT '',
	video_description TEXT NOT NULL DEFAULT '',
	thumbnail_key TEXT NOT NULL DEFAULT '',
	source_bucket TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ,
	PRIMARY KEY (pk, sk)
);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// CreateJob inserts the record if no record with the same key exists yet.
// It reports whether a row was written. Redelivered ingestion events hit
// the conflict arm and are absorbed without touching the existing record,
// so a later status can never be downgraded by a stale creation event.
func (s *Store) CreateJob(ctx context.Context, j Job) (bool, error) {
	if !jobs.Valid(j.Status) {
		return false, fmt.Errorf("create job %s/%s: unknown status %q", j.PK, j.SK, j.Status)
	}
	const q = `
INSERT INTO video_jobs (pk, sk, status, user_id, video_title, video_description, thumbnail_key, source_bucket, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
ON CONFLICT (pk, sk) DO NOTHING
`
	res, err := s.db.ExecContext(ctx, q,
		j.PK, j.SK, string(j.Status),
		j.UserID, j.VideoTitle, j.VideoDescription, j.ThumbnailKey, j.SourceBucket,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) GetJob(ctx context.Context, pk, sk string) (Job, error) {
	const q = `
SELECT pk, sk, status, user_id, video_title, video_description, thumbnail_key, source_bucket, created_at, completed_at
FROM video_jobs
WHERE pk = $1 AND sk = $2
`
	var j Job
	var status string
	err := s.db.QueryRowContext(ctx, q, pk, sk).Scan(
		&j.PK,
		&j.SK,
		&status,
		&j.UserID,
		&j.VideoTitle,
		&j.VideoDescription,
		&j.ThumbnailKey,
		&j.SourceBucket,
		&j.CreatedAt,
		&j.CompletedAt,
	)
	if err != nil {
		return Job{}, err
	}
	j.Status = jobs.Status(status)
	return j, nil
}

func (s *Store) ListJobs(ctx context.Context, pk string, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT pk, sk, status, user_id, video_title, video_description, thumbnail_key, source_bucket, created_at, completed_at
FROM video_jobs
WHERE pk = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := s.db.QueryContext(ctx, q, pk, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		var status string
		if err := rows.Scan(
			&j.PK,
			&j.SK,
			&status,
			&j.UserID,
			&j.VideoTitle,
			&j.VideoDescription,
			&j.ThumbnailKey,
			&j.SourceBucket,
			&j.CreatedAt,
			&j.CompletedAt,
		); err != nil {
			return nil, err
		}
		j.Status = jobs.Status(status)
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Transition moves a job from an expected prior status to the next one.
// Legality is checked against the lifecycle table before touching the
// database, and the update itself is conditional on the expected prior
// status so two racing writers cannot both win. Entering a terminal status
// stamps completed_at exactly once.
func (s *Store) Transition(ctx context.Context, pk, sk string, from, to jobs.Status) error {
	if !jobs.CanTransition(from, to) {
		return fmt.Errorf("transition %s/%s %s -> %s: %w", pk, sk, from, to, ErrStateConflict)
	}
	const q = `
UPDATE video_jobs
SET status = $3,
    completed_at = CASE WHEN $5::bool THEN NOW() ELSE completed_at END
WHERE pk = $1 AND sk = $2 AND status = $4
`
	res, err := s.db.ExecContext(ctx, q, pk, sk, string(to), string(from), jobs.Terminal(to))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// No row matched: either the record is missing or another writer got
	// there first. Disambiguate for the caller's log line.
	current, err := s.GetJob(ctx, pk, sk)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transition %s/%s: %w", pk, sk, sql.ErrNoRows)
		}
		return err
	}
	return fmt.Errorf("transition %s/%s %s -> %s: current status %s: %w",
		pk, sk, from, to, current.Status, ErrStateConflict)
}

// ReDrive returns a terminal job to awaiting_approval so the pipeline can
// pick it up again. This is an operator action outside the automated
// lifecycle; only terminal records qualify.
func (s *Store) ReDrive(ctx context.Context, pk, sk string) error {
	const q = `
UPDATE video_jobs
SET status = $3, completed_at = NULL
WHERE pk = $1 AND sk = $2 AND status IN ($4, $5, $6)
`
	res, err := s.db.ExecContext(ctx, q, pk, sk,
		string(jobs.StatusAwaitingApproval),
		string(jobs.StatusRejected),
		string(jobs.StatusUploaded),
		string(jobs.StatusFailed),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	current, err := s.GetJob(ctx, pk, sk)
	if err != nil {
		return err
	}
	return fmt.Errorf("redrive %s/%s: current status %s is not terminal: %w",
		pk, sk, current.Status, ErrStateConflict)
}
