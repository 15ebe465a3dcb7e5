package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/skills-extractor/internal/extraction"
	"github.com/spigell/skills-extractor/internal/logger"
	"github.com/spigell/skills-extractor/internal/resume"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run one extraction job from the terminal",
	PreRun: func(cmd *cobra.Command, _ []string) {
		viper.BindPFlag("extraction.strict-persistence", cmd.Flags().Lookup("strict-persistence"))
	},
	Run: func(cmd *cobra.Command, _ []string) {
		if err := extract(cmd); err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("resume-id", "", "resume id")
	extractCmd.Flags().String("user-id", "", "owner id")
	extractCmd.Flags().String("file", "", "storage path of the uploaded resume")
	extractCmd.Flags().Bool("register", false, "create the resume as pending before running")
	extractCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before calling the model")
	extractCmd.Flags().Bool("strict-persistence", false, "mark the job failed when skill rows cannot be written")
}

func extract(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig(viper.GetViper())
	if err != nil {
		logger.Error("getting a config", zap.Error(err))
		return err
	}

	job := jobFromFlags(cmd).Normalize()
	if err := job.Validate(); err != nil {
		logger.Error("invalid job", zap.Error(err), zap.String("hint", "set --resume-id, --user-id and --file"))
		return err
	}

	deps, err := buildDeps(ctx, config, logger)
	if err != nil {
		logger.Error("building dependencies", zap.Error(err))
		return err
	}
	defer deps.Close()

	if flagBool(cmd, "register") {
		if err := deps.store.Register(ctx, job); err != nil {
			logger.Error("registering resume", zap.Error(err))
			return err
		}
		logger.Info("resume registered", zap.String("resume_id", job.ResumeID))
	}

	if !flagBool(cmd, "auto-approve") {
		if err := confirm(job); err != nil {
			logger.Info("exiting", zap.String("reason", "not confirmed"))
			return nil
		}
	}

	result, err := deps.pipeline.Run(ctx, job)
	if err != nil {
		logger.Error("extraction failed", zap.Stringer("kind", extraction.KindOf(err)), zap.Error(err))
		return err
	}

	for _, skill := range result.Skills {
		logger.Info("skill",
			zap.String("name", skill.Name),
			zap.String("category", string(skill.Category)),
			zap.String("proficiency", string(skill.Proficiency)),
		)
	}

	profile, err := deps.store.ProfileSkills(ctx, job.UserID)
	if err != nil {
		logger.Warn("reading profile skills", zap.Error(err))
	}

	logger.Info("extraction completed",
		zap.Int("skills_count", result.Count()),
		zap.Stringer("payload", result.Payload),
		zap.Strings("profile_skills", profile),
		zap.Strings("warnings", result.Warnings),
	)
	return nil
}

func jobFromFlags(cmd *cobra.Command) resume.Job {
	value := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return resume.Job{
		ResumeID: value("resume-id"),
		FilePath: value("file"),
		UserID:   value("user-id"),
	}
}

func flagBool(cmd *cobra.Command, name string) bool {
	value, _ := cmd.Flags().GetBool(name)
	return value
}

func confirm(job resume.Job) error {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Extract skills from %s for resume %s", job.FilePath, job.ResumeID),
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return err
		}
		return fmt.Errorf("confirmation prompt: %w", err)
	}
	return nil
}
