// Package postgres stores resumes, extracted skills and profile summaries in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spigell/skills-extractor/internal/resume"
	"github.com/spigell/skills-extractor/internal/skills"
)

// Connect opens a pgx connection pool and performs a Ping to ensure connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 0
	config.MaxConnLifetime = time.Hour
	config.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Store implements resume.Store over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Open connects to dsn and prepares the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool and ensures the tables exist.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool, now: time.Now}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS profiles (
	user_id TEXT PRIMARY KEY,
	skills TEXT[] NOT NULL DEFAULT '{}',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS resumes (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	claimed_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS extracted_skills (
	id UUID PRIMARY KEY,
	resume_id TEXT NOT NULL REFERENCES resumes(resumeID) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	skill_name TEXT NOT NULL,
	category TEXT NOT NULL,
	proficiency_level TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS extracted_skills_resume_idx ON extracted_skills(resume_id);
-- backfill for tables created by the upload service
ALTER TABLE resumes ADD COLUMN IF NOT EXISTS claimed_at TIMESTAMPTZ;
`)
	return err
}

// Register inserts a pending resume and an empty profile for its owner.
// An existing resume keeps its status.
func (s *Store) Register(ctx context.Context, job resume.Job) error {
	batch := &pgx.Batch{}
	batch.Queue(`
INSERT INTO resumes (id, user_id, file_path, status, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET file_path = EXCLUDED.file_path, user_id = EXCLUDED.user_id
`, job.ResumeID, job.UserID, job.FilePath, string(resume.StatusPending), s.now().UTC())
	batch.Queue(`INSERT INTO profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, job.UserID)

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("register resume %s: %w", job.ResumeID, err)
	}
	return nil
}

// ClaimJob moves the resume to processing. A processing claim older than
// staleAfter is taken over; a non-positive staleAfter never expires claims.
func (s *Store) ClaimJob(ctx context.Context, resumeID string, staleAfter time.Duration) error {
	now := s.now().UTC()
	cutoff := time.Unix(0, 0).UTC()
	if staleAfter > 0 {
		cutoff = now.Add(-staleAfter)
	}

	tag, err := s.pool.Exec(ctx, `
UPDATE resumes SET status = $2, claimed_at = $3, updated_at = $3
WHERE id = $1 AND (status <> $2 OR claimed_at IS NULL OR claimed_at < $4)
`, resumeID, string(resume.StatusProcessing), now, cutoff)
	if err != nil {
		return fmt.Errorf("claim resume %s: %w", resumeID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	return s.explainMiss(ctx, resumeID, resume.ErrJobInFlight)
}

// FinishJob moves a processing resume to a terminal status.
func (s *Store) FinishJob(ctx context.Context, resumeID string, status resume.Status) error {
	if !status.Terminal() {
		return fmt.Errorf("finish resume %s: %q is not a terminal status", resumeID, status)
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE resumes SET status = $2, claimed_at = NULL, updated_at = $3
WHERE id = $1 AND status = $4
`, resumeID, string(status), s.now().UTC(), string(resume.StatusProcessing))
	if err != nil {
		return fmt.Errorf("finish resume %s: %w", resumeID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	return s.explainMiss(ctx, resumeID, resume.ErrStatusConflict)
}

func (s *Store) explainMiss(ctx context.Context, resumeID string, conflict error) error {
	if _, err := s.JobStatus(ctx, resumeID); err != nil {
		return err
	}
	return conflict
}

// InsertSkills replaces the resume's skill rows in one transaction using COPY.
func (s *Store) InsertSkills(ctx context.Context, resumeID, userID string, list []skills.Skill) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM extracted_skills WHERE resume_id = $1`, resumeID); err != nil {
		return fmt.Errorf("clear skills: %w", err)
	}

	if len(list) > 0 {
		created := s.now().UTC()
		rows := make([][]any, 0, len(list))
		for _, skill := range list {
			rows = append(rows, []any{
				uuid.New(), resumeID, userID, skill.Name, string(skill.Category), string(skill.Proficiency), created,
			})
		}

		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"extracted_skills"},
			[]string{"id", "resume_id", "user_id", "skill_name", "category", "proficiency_level", "created_at"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("copy skills: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit skills: %w", err)
	}
	return nil
}

// ReplaceProfileSkills overwrites the owner's skill list. A missing profile is not an error.
func (s *Store) ReplaceProfileSkills(ctx context.Context, userID string, names []string) error {
	if names == nil {
		names = []string{}
	}

	if _, err := s.pool.Exec(ctx,
		`UPDATE profiles SET skills = $2, updated_at = $3 WHERE user_id = $1`,
		userID, names, s.now().UTC(),
	); err != nil {
		return fmt.Errorf("update profile %s: %w", userID, err)
	}
	return nil
}

// JobStatus returns the stored status of a resume.
func (s *Store) JobStatus(ctx context.Context, resumeID string) (resume.Status, error) {
	var raw string
	err := s.pool.QueryRow(ctx, `SELECT status FROM resumes WHERE id = $1`, resumeID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", resume.ErrJobNotFound, resumeID)
	}
	if err != nil {
		return "", fmt.Errorf("read status %s: %w", resumeID, err)
	}
	return resume.ParseStatus(raw)
}

// Skills lists the rows stored for a resume.
func (s *Store) Skills(ctx context.Context, resumeID string) ([]skills.Skill, error) {
	rows, err := s.pool.Query(ctx, `
SELECT skill_name, category, proficiency_level FROM extracted_skills
WHERE resume_id = $1 ORDER BY created_at, skill_name
`, resumeID)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	defer rows.Close()

	var list []skills.Skill
	for rows.Next() {
		var name, category, level string
		if err := rows.Scan(&name, &category, &level); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		list = append(list, skills.Skill{
			Name:        name,
			Category:    skills.ParseCategory(category),
			Proficiency: skills.ParseProficiency(level),
		})
	}
	return list, rows.Err()
}

// ProfileSkills returns the owner's skill summary.
func (s *Store) ProfileSkills(ctx context.Context, userID string) ([]string, error) {
	var names []string
	err := s.pool.QueryRow(ctx, `SELECT skills FROM profiles WHERE user_id = $1`, userID).Scan(&names)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", userID, err)
	}
	return names, nil
}

// Ping checks pool connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
