// Package storetest holds the behaviour every resume.Store backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/skills-extractor/internal/resume"
	"github.com/spigell/skills-extractor/internal/skills"
)

// Backend is a store that can also seed and read back jobs.
type Backend interface {
	resume.Store
	resume.Registrar
	resume.Reader
}

// Run exercises backend against the shared contract. newBackend must return an
// empty store; it is called once per subtest.
func Run(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Helper()

	t.Run("claim and complete", func(t *testing.T) {
		ctx := context.Background()
		s := newBackend(t)
		job := seed(t, s)

		require.NoError(t, s.ClaimJob(ctx, job.ResumeID, time.Minute))
		status, err := s.JobStatus(ctx, job.ResumeID)
		require.NoError(t, err)
		assert.Equal(t, resume.StatusProcessing, status)

		list := []skills.Skill{
			{Name: "Python", Category: skills.CategoryProgramming, Proficiency: skills.ProficiencyAdvanced},
			{Name: "Python", Category: skills.CategoryProgramming, Proficiency: skills.ProficiencyAdvanced},
			{Name: "Teamwork", Category: skills.CategorySoftSkill, Proficiency: skills.ProficiencyIntermediate},
		}
		require.NoError(t, s.InsertSkills(ctx, job.ResumeID, job.UserID, list))
		require.NoError(t, s.ReplaceProfileSkills(ctx, job.UserID, skills.Names(list)))
		require.NoError(t, s.FinishJob(ctx, job.ResumeID, resume.StatusCompleted))

		status, err = s.JobStatus(ctx, job.ResumeID)
		require.NoError(t, err)
		assert.Equal(t, resume.StatusCompleted, status)

		stored, err := s.Skills(ctx, job.ResumeID)
		require.NoError(t, err)
		assert.ElementsMatch(t, list, stored)

		names, err := s.ProfileSkills(ctx, job.UserID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Python", "Python", "Teamwork"}, names)
	})

	t.Run("rerun replaces rows and empty list clears profile", func(t *testing.T) {
		ctx := context.Background()
		s := newBackend(t)
		job := seed(t, s)

		require.NoError(t, s.ClaimJob(ctx, job.ResumeID, time.Minute))
		require.NoError(t, s.InsertSkills(ctx, job.ResumeID, job.UserID, []skills.Skill{{Name: "Go", Category: skills.CategoryProgramming, Proficiency: skills.ProficiencyExpert}}))
		require.NoError(t, s.ReplaceProfileSkills(ctx, job.UserID, []string{"Go"}))
		require.NoError(t, s.FinishJob(ctx, job.ResumeID, resume.StatusCompleted))

		require.NoError(t, s.ClaimJob(ctx, job.ResumeID, time.Minute))
		require.NoError(t, s.InsertSkills(ctx, job.ResumeID, job.UserID, nil))
		require.NoError(t, s.ReplaceProfileSkills(ctx, job.UserID, []string{}))
		require.NoError(t, s.FinishJob(ctx, job.ResumeID, resume.StatusCompleted))

		stored, err := s.Skills(ctx, job.ResumeID)
		require.NoError(t, err)
		assert.Empty(t, stored)

		names, err := s.ProfileSkills(ctx, job.UserID)
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("second claim is in flight until stale", func(t *testing.T) {
		ctx := context.Background()
		s := newBackend(t)
		job := seed(t, s)

		require.NoError(t, s.ClaimJob(ctx, job.ResumeID, time.Hour))
		require.ErrorIs(t, s.ClaimJob(ctx, job.ResumeID, time.Hour), resume.ErrJobInFlight)

		time.Sleep(5 * time.Millisecond)
		require.NoError(t, s.ClaimJob(ctx, job.ResumeID, time.Millisecond))
	})

	t.Run("finish requires processing", func(t *testing.T) {
		ctx := context.Background()
		s := newBackend(t)
		job := seed(t, s)

		require.ErrorIs(t, s.FinishJob(ctx, job.ResumeID, resume.StatusFailed), resume.ErrStatusConflict)

		require.NoError(t, s.ClaimJob(ctx, job.ResumeID, time.Minute))
		require.NoError(t, s.FinishJob(ctx, job.ResumeID, resume.StatusFailed))
		require.ErrorIs(t, s.FinishJob(ctx, job.ResumeID, resume.StatusCompleted), resume.ErrStatusConflict)

		status, err := s.JobStatus(ctx, job.ResumeID)
		require.NoError(t, err)
		assert.Equal(t, resume.StatusFailed, status)

		require.Error(t, s.FinishJob(ctx, job.ResumeID, resume.StatusPending))
	})

	t.Run("unknown resume", func(t *testing.T) {
		ctx := context.Background()
		s := newBackend(t)
		missing := uuid.NewString()

		_, err := s.JobStatus(ctx, missing)
		require.ErrorIs(t, err, resume.ErrJobNotFound)
		require.ErrorIs(t, s.ClaimJob(ctx, missing, time.Minute), resume.ErrJobNotFound)
		require.ErrorIs(t, s.FinishJob(ctx, missing, resume.StatusFailed), resume.ErrJobNotFound)
	})

	t.Run("profile update without profile row is a no-op", func(t *testing.T) {
		s := newBackend(t)
		require.NoError(t, s.ReplaceProfileSkills(context.Background(), uuid.NewString(), []string{"Go"}))
	})

	t.Run("opaque identifiers", func(t *testing.T) {
		ctx := context.Background()
		s := newBackend(t)
		job := resume.Job{ResumeID: "resume-" + uuid.NewString()[:8], FilePath: "user/cv.txt", UserID: "user-7"}
		require.NoError(t, s.Register(ctx, job))

		require.NoError(t, s.ClaimJob(ctx, job.ResumeID, time.Minute))
		require.NoError(t, s.InsertSkills(ctx, job.ResumeID, job.UserID, []skills.Skill{{Name: "Go", Category: skills.CategoryProgramming, Proficiency: skills.ProficiencyExpert}}))
		require.NoError(t, s.ReplaceProfileSkills(ctx, job.UserID, []string{"Go"}))
		require.NoError(t, s.FinishJob(ctx, job.ResumeID, resume.StatusCompleted))

		stored, err := s.Skills(ctx, job.ResumeID)
		require.NoError(t, err)
		require.Len(t, stored, 1)

		names, err := s.ProfileSkills(ctx, job.UserID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Go"}, names)
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, newBackend(t).Ping(context.Background()))
	})
}

func seed(t *testing.T, s Backend) resume.Job {
	t.Helper()

	job := resume.Job{ResumeID: uuid.NewString(), FilePath: "user/cv.txt", UserID: uuid.NewString()}
	require.NoError(t, s.Register(context.Background(), job))

	status, err := s.JobStatus(context.Background(), job.ResumeID)
	require.NoError(t, err)
	require.Equal(t, resume.StatusPending, status)
	return job
}
