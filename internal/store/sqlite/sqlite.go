// Package sqlite is the single-file resume store used for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/spigell/skills-extractor/internal/resume"
	"github.com/spigell/skills-extractor/internal/skills"
)

// Store implements resume.Store on top of modernc.org/sqlite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database file at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS profiles (
	user_id    TEXT PRIMARY KEY,
	skills     TEXT NOT NULL DEFAULT '[]',
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS resumes (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	file_path  TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	claimed_at INTEGER,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS extracted_skills (
	id                TEXT PRIMARY KEY,
	resume_id         TEXT NOT NULL REFERENCES resumes(id) ON DELETE CASCADE,
	user_id           TEXT NOT NULL,
	skill_name        TEXT NOT NULL,
	category          TEXT NOT NULL,
	proficiency_level TEXT NOT NULL,
	created_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS extracted_skills_resume_idx ON extracted_skills(resume_id);
`)
	return err
}

// Register inserts a pending resume and an empty profile for its owner.
// An existing resume keeps its status.
func (s *Store) Register(ctx context.Context, job resume.Job) error {
	now := s.now().UnixNano()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO resumes (id, user_id, file_path, status, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET file_path = excluded.file_path, user_id = excluded.user_id`,
		job.ResumeID, job.UserID, job.FilePath, string(resume.StatusPending), now,
	); err != nil {
		return fmt.Errorf("sqlite: register resume: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (user_id, updated_at) VALUES (?, ?) ON CONFLICT(user_id) DO NOTHING`,
		job.UserID, now,
	); err != nil {
		return fmt.Errorf("sqlite: register profile: %w", err)
	}
	return tx.Commit()
}

// ClaimJob moves the resume to processing. A processing claim older than
// staleAfter is taken over; a non-positive staleAfter never expires claims.
func (s *Store) ClaimJob(ctx context.Context, resumeID string, staleAfter time.Duration) error {
	now := s.now()
	cutoff := int64(0)
	if staleAfter > 0 {
		cutoff = now.Add(-staleAfter).UnixNano()
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE resumes SET status = ?, claimed_at = ?, updated_at = ?
		 WHERE id = ? AND (status <> ? OR claimed_at IS NULL OR claimed_at < ?)`,
		string(resume.StatusProcessing), now.UnixNano(), now.UnixNano(),
		resumeID, string(resume.StatusProcessing), cutoff,
	)
	if err != nil {
		return fmt.Errorf("sqlite: claim %s: %w", resumeID, err)
	}
	return s.checkAffected(ctx, res, resumeID, resume.ErrJobInFlight)
}

// FinishJob moves a processing resume to a terminal status.
func (s *Store) FinishJob(ctx context.Context, resumeID string, status resume.Status) error {
	if !status.Terminal() {
		return fmt.Errorf("sqlite: finish %s: %q is not a terminal status", resumeID, status)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE resumes SET status = ?, claimed_at = NULL, updated_at = ? WHERE id = ? AND status = ?`,
		string(status), s.now().UnixNano(), resumeID, string(resume.StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("sqlite: finish %s: %w", resumeID, err)
	}
	return s.checkAffected(ctx, res, resumeID, resume.ErrStatusConflict)
}

func (s *Store) checkAffected(ctx context.Context, res sql.Result, resumeID string, conflict error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.JobStatus(ctx, resumeID); err != nil {
		return err
	}
	return conflict
}

// InsertSkills replaces the resume's skill rows in one transaction.
func (s *Store) InsertSkills(ctx context.Context, resumeID, userID string, list []skills.Skill) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM extracted_skills WHERE resume_id = ?`, resumeID); err != nil {
		return fmt.Errorf("sqlite: clear skills: %w", err)
	}

	if len(list) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO extracted_skills (id, resume_id, user_id, skill_name, category, proficiency_level, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("sqlite: prepare insert: %w", err)
		}
		defer stmt.Close()

		now := s.now().UnixNano()
		for _, skill := range list {
			if _, err := stmt.ExecContext(ctx, uuid.NewString(), resumeID, userID,
				skill.Name, string(skill.Category), string(skill.Proficiency), now); err != nil {
				return fmt.Errorf("sqlite: insert skill %q: %w", skill.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit skills: %w", err)
	}
	return nil
}

// ReplaceProfileSkills overwrites the owner's skill list. A missing profile is not an error.
func (s *Store) ReplaceProfileSkills(ctx context.Context, userID string, names []string) error {
	if names == nil {
		names = []string{}
	}
	encoded, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("sqlite: encode profile skills: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET skills = ?, updated_at = ? WHERE user_id = ?`,
		string(encoded), s.now().UnixNano(), userID,
	); err != nil {
		return fmt.Errorf("sqlite: update profile %s: %w", userID, err)
	}
	return nil
}

// JobStatus returns the stored status of a resume.
func (s *Store) JobStatus(ctx context.Context, resumeID string) (resume.Status, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM resumes WHERE id = ?`, resumeID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", resume.ErrJobNotFound, resumeID)
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: read status %s: %w", resumeID, err)
	}
	return resume.ParseStatus(raw)
}

// Skills lists the rows stored for a resume.
func (s *Store) Skills(ctx context.Context, resumeID string) ([]skills.Skill, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT skill_name, category, proficiency_level FROM extracted_skills WHERE resume_id = ? ORDER BY rowid`,
		resumeID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list skills: %w", err)
	}
	defer rows.Close()

	var list []skills.Skill
	for rows.Next() {
		var name, category, level string
		if err := rows.Scan(&name, &category, &level); err != nil {
			return nil, fmt.Errorf("sqlite: scan skill: %w", err)
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
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT skills FROM profiles WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: read profile %s: %w", userID, err)
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("sqlite: decode profile skills: %w", err)
	}
	return names, nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
