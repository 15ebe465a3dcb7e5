// Package extraction turns an uploaded resume into stored skill records.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/skills-extractor/internal/ai"
	"github.com/spigell/skills-extractor/internal/lock"
	"github.com/spigell/skills-extractor/internal/logger"
	"github.com/spigell/skills-extractor/internal/resume"
	"github.com/spigell/skills-extractor/internal/skills"
	"github.com/spigell/skills-extractor/internal/storage"
	"github.com/spigell/skills-extractor/internal/utils"
)

// Config tunes a Pipeline. Zero values fall back to the defaults.
type Config struct {
	// MaxChars caps the resume text sent to the model, in characters.
	MaxChars int
	// ClaimTTL is how long a processing claim blocks other runs.
	ClaimTTL time.Duration
	// StrictPersistence fails the job when skill rows or the profile cannot be written.
	StrictPersistence bool
	MaxLogLength      int

	FetchTimeout    time.Duration
	GenerateTimeout time.Duration
	StoreTimeout    time.Duration
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxChars:        DefaultMaxChars,
		ClaimTTL:        10 * time.Minute,
		MaxLogLength:    200,
		FetchTimeout:    30 * time.Second,
		GenerateTimeout: 90 * time.Second,
		StoreTimeout:    10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxChars <= 0 {
		c.MaxChars = d.MaxChars
	}
	if c.ClaimTTL <= 0 {
		c.ClaimTTL = d.ClaimTTL
	}
	if c.MaxLogLength <= 0 {
		c.MaxLogLength = d.MaxLogLength
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = d.GenerateTimeout
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = d.StoreTimeout
	}
	return c
}

// Result describes a completed run.
type Result struct {
	ResumeID string
	Status   resume.Status
	Skills   []skills.Skill
	Payload  ai.PayloadKind
	// Warnings lists persistence writes that failed without failing the run.
	Warnings []string
}

// Count is the number of skills the model returned after validation.
func (r Result) Count() int { return len(r.Skills) }

// Pipeline runs one extraction job end to end.
type Pipeline struct {
	cfg       Config
	fetcher   storage.Fetcher
	extractor ai.Extractor
	store     resume.Store
	locker    lock.Locker
	logger    *zap.Logger
}

// New wires a pipeline. locker may be nil when no distributed lock is configured.
func New(cfg Config, fetcher storage.Fetcher, extractor ai.Extractor, store resume.Store, locker lock.Locker, log *zap.Logger) (*Pipeline, error) {
	switch {
	case fetcher == nil:
		return nil, newError(KindConfiguration, errors.New("document fetcher is not configured"))
	case extractor == nil:
		return nil, newError(KindConfiguration, errors.New("extraction client is not configured"))
	case store == nil:
		return nil, newError(KindConfiguration, errors.New("resume store is not configured"))
	}
	if locker == nil {
		locker = lock.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{
		cfg:       cfg.withDefaults(),
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		locker:    locker,
		logger:    logger.WithCommonFields(log, extractor.Provider(), extractor.Model()),
	}, nil
}

// Run processes job. The resume ends completed or failed unless the job was
// rejected before it was claimed (invalid input, unknown resume, in flight).
func (p *Pipeline) Run(ctx context.Context, job resume.Job) (Result, error) {
	job = job.Normalize()
	if err := job.Validate(); err != nil {
		return Result{}, newError(classify(err), err)
	}

	log := logger.WithFields(p.logger, logger.JobFields(job.ResumeID, job.UserID)...)
	started := time.Now()

	release, err := p.acquire(ctx, job.ResumeID, log)
	if err != nil {
		return Result{}, err
	}
	defer release()

	if err := p.claim(ctx, job.ResumeID); err != nil {
		log.Info("job rejected", zap.Error(err))
		return Result{}, err
	}
	log.Info("job claimed", zap.String("file_path", job.FilePath))

	text, err := p.fetch(ctx, job.FilePath)
	if err != nil {
		return Result{}, p.fail(ctx, log, job, KindStorage, err)
	}
	log.Debug("document fetched", zap.Int("text_length", len(text)))

	prompt := BuildPrompt(text, p.cfg.MaxChars)

	payload, err := p.generate(ctx, prompt)
	if err != nil {
		kind := classify(err)
		if kind == KindUnknown {
			kind = KindService
		}
		return Result{}, p.fail(ctx, log, job, kind, err)
	}

	doc, err := payload.Document()
	if err == nil {
		log.Debug("model payload received",
			zap.Stringer("payload_kind", payload.Kind),
			zap.Int("payload_length", payload.Len()),
			zap.String("payload_preview", utils.TruncateForLog(string(doc), p.cfg.MaxLogLength)),
		)
	}
	var list []skills.Skill
	if err == nil {
		list, err = skills.Parse(doc)
	}
	if err != nil {
		return Result{}, p.fail(ctx, log, job, KindService, fmt.Errorf("parse model response: %w", err))
	}

	result := Result{ResumeID: job.ResumeID, Skills: list, Payload: payload.Kind}
	if err := p.persist(ctx, log, job, list, &result); err != nil {
		return Result{}, p.fail(ctx, log, job, KindPersistence, err)
	}

	if err := p.finish(ctx, job.ResumeID, resume.StatusCompleted); err != nil {
		log.Error("status update failed", zap.String("status", string(resume.StatusCompleted)), zap.Error(err))
		return Result{}, newError(KindPersistence, fmt.Errorf("mark resume completed: %w", err))
	}

	result.Status = resume.StatusCompleted
	log.Info("job completed",
		zap.Int("skills_count", result.Count()),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (p *Pipeline) acquire(ctx context.Context, resumeID string, log *zap.Logger) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()

	release, err := p.locker.Acquire(lockCtx, resumeID)
	switch {
	case errors.Is(err, lock.ErrHeld):
		log.Info("job rejected", zap.Error(err))
		return nil, newError(KindConflict, fmt.Errorf("%w: %s", resume.ErrJobInFlight, resumeID))
	case err != nil:
		// The store claim still guards the job.
		log.Warn("advisory lock unavailable", zap.Error(err))
		return func() {}, nil
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.StoreTimeout)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			log.Warn("advisory lock release failed", zap.Error(err))
		}
	}, nil
}

func (p *Pipeline) claim(ctx context.Context, resumeID string) error {
	claimCtx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()

	err := p.store.ClaimJob(claimCtx, resumeID, p.cfg.ClaimTTL)
	if err == nil {
		return nil
	}
	kind := classify(err)
	if kind == KindUnknown {
		kind = KindPersistence
	}
	return newError(kind, fmt.Errorf("claim resume: %w", err))
}

func (p *Pipeline) fetch(ctx context.Context, path string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()

	text, err := p.fetcher.Fetch(fetchCtx, path)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrDecode) && !errors.Is(err, storage.ErrDownload) {
			err = fmt.Errorf("%w: %w", storage.ErrDownload, err)
		}
		return "", err
	}
	return text, nil
}

func (p *Pipeline) generate(ctx context.Context, prompt string) (ai.Payload, error) {
	genCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerateTimeout)
	defer cancel()

	payload, err := p.extractor.Extract(genCtx, prompt)
	if err != nil {
		return ai.Payload{}, fmt.Errorf("AI error: %w", err)
	}
	return payload, nil
}

// persist writes skill rows and the profile summary. Failures are warnings
// unless StrictPersistence is set.
func (p *Pipeline) persist(ctx context.Context, log *zap.Logger, job resume.Job, list []skills.Skill, result *Result) error {
	storeCtx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()

	writes := []struct {
		name string
		run  func(context.Context) error
	}{
		{name: "insert skills", run: func(ctx context.Context) error {
			return p.store.InsertSkills(ctx, job.ResumeID, job.UserID, list)
		}},
		{name: "replace profile skills", run: func(ctx context.Context) error {
			return p.store.ReplaceProfileSkills(ctx, job.UserID, skills.Names(list))
		}},
	}

	inserted := false
	for i, w := range writes {
		err := w.run(storeCtx)
		if err == nil {
			inserted = inserted || i == 0
			continue
		}
		if p.cfg.StrictPersistence {
			if inserted {
				p.clearSkills(ctx, log, job)
			}
			return fmt.Errorf("%s: %w", w.name, err)
		}
		log.Warn("persistence warning", zap.String("write", w.name), zap.Error(err))
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", w.name, err))
	}
	return nil
}

// clearSkills removes rows written earlier in a run that is about to fail.
func (p *Pipeline) clearSkills(ctx context.Context, log *zap.Logger, job resume.Job) {
	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.StoreTimeout)
	defer cancel()
	if err := p.store.InsertSkills(clearCtx, job.ResumeID, job.UserID, nil); err != nil {
		log.Error("clearing skill rows failed", zap.Error(err))
	}
}

func (p *Pipeline) finish(ctx context.Context, resumeID string, status resume.Status) error {
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.StoreTimeout)
	defer cancel()
	return p.store.FinishJob(finishCtx, resumeID, status)
}

// fail marks the resume failed and returns the classified error. A failed
// status write is logged; the original cause is what the caller sees.
func (p *Pipeline) fail(ctx context.Context, log *zap.Logger, job resume.Job, kind Kind, cause error) error {
	if err := p.finish(ctx, job.ResumeID, resume.StatusFailed); err != nil {
		log.Error("status update failed", zap.String("status", string(resume.StatusFailed)), zap.Error(err))
	}
	log.Warn("job failed", zap.Stringer("kind", kind), zap.Error(cause))
	return newError(kind, cause)
}

// JobStatus reports the stored status of a resume.
func (p *Pipeline) JobStatus(ctx context.Context, resumeID string) (resume.Status, error) {
	storeCtx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()

	status, err := p.store.JobStatus(storeCtx, resumeID)
	if err != nil {
		kind := classify(err)
		if kind == KindUnknown {
			kind = KindPersistence
		}
		return "", newError(kind, err)
	}
	return status, nil
}
