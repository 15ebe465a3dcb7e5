package resume

import (
	"context"
	"errors"
	"time"

	"github.com/spigell/skills-extractor/internal/skills"
)

var (
	// ErrJobNotFound means no resume row exists for the id.
	ErrJobNotFound = errors.New("resume not found")
	// ErrJobInFlight means another run holds a fresh processing claim.
	ErrJobInFlight = errors.New("resume is already being processed")
	// ErrStatusConflict means a finish was attempted on a job that is not processing.
	ErrStatusConflict = errors.New("resume status changed concurrently")
)

// Store is the relational collaborator of the pipeline.
//
// Status writes are conditional: ClaimJob moves a job to processing unless a
// claim younger than staleAfter exists, FinishJob only leaves processing.
type Store interface {
	ClaimJob(ctx context.Context, resumeID string, staleAfter time.Duration) error
	FinishJob(ctx context.Context, resumeID string, status Status) error
	InsertSkills(ctx context.Context, resumeID, userID string, list []skills.Skill) error
	ReplaceProfileSkills(ctx context.Context, userID string, names []string) error
	JobStatus(ctx context.Context, resumeID string) (Status, error)
	Ping(ctx context.Context) error
	Close() error
}

// Registrar creates pending jobs. Uploads normally do this; the CLI and local
// stores use it to seed work.
type Registrar interface {
	Register(ctx context.Context, job Job) error
}

// Reader exposes what a run left behind.
type Reader interface {
	Skills(ctx context.Context, resumeID string) ([]skills.Skill, error)
	ProfileSkills(ctx context.Context, userID string) ([]string, error)
}
