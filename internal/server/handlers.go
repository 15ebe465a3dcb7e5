package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spigell/skills-extractor/internal/extraction"
	"github.com/spigell/skills-extractor/internal/resume"
)

const (
	msgMissingParameters = "Missing parameters"
	msgRateLimited       = "Rate limited, please try again later"
	msgCreditsRequired   = "Credits required"
)

type handlers struct {
	runner Runner
	ready  Readiness
	logger *zap.Logger
}

// ExtractSkills runs one extraction job synchronously.
func (h *handlers) ExtractSkills(c *fiber.Ctx) error {
	var job resume.Job
	if err := c.App().Config().JSONDecoder(c.Body(), &job); err != nil {
		status, message := statusFor(&extraction.Error{Kind: extraction.KindInvalidInput, Err: fmt.Errorf("invalid request body: %w", err)})
		return errorJSON(c, status, message)
	}

	result, err := h.runner.Run(c.UserContext(), job)
	if err != nil {
		status, message := statusFor(err)
		if status >= fiber.StatusInternalServerError {
			h.logger.Error("extraction request failed", zap.Stringer("kind", extraction.KindOf(err)), zap.Error(err))
		}
		return errorJSON(c, status, message)
	}

	return c.Status(fiber.StatusOK).JSON(ExtractResponse{Success: true, SkillsCount: result.Count()})
}

// Status reports the stored processing status of a resume.
func (h *handlers) Status(c *fiber.Ctx) error {
	id := c.Params("id")

	status, err := h.runner.JobStatus(c.UserContext(), id)
	if err != nil {
		code, message := statusFor(err)
		return errorJSON(c, code, message)
	}
	return c.JSON(StatusResponse{ResumeID: id, Status: string(status)})
}

// Health is the liveness probe.
func (h *handlers) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

// Ready pings the store and, when configured, Redis.
func (h *handlers) Ready(c *fiber.Ctx) error {
	if h.ready == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ready"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()
	if err := h.ready.Ready(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "not_ready",
			"details": err.Error(),
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ready"})
}

func statusFor(err error) (int, string) {
	switch extraction.KindOf(err) {
	case extraction.KindMissingInput:
		return fiber.StatusBadRequest, msgMissingParameters
	case extraction.KindInvalidInput:
		return fiber.StatusBadRequest, err.Error()
	case extraction.KindRateLimited:
		return fiber.StatusTooManyRequests, msgRateLimited
	case extraction.KindQuotaExceeded:
		return fiber.StatusPaymentRequired, msgCreditsRequired
	case extraction.KindNotFound:
		return fiber.StatusNotFound, err.Error()
	case extraction.KindConflict:
		return fiber.StatusConflict, err.Error()
	}
	return fiber.StatusInternalServerError, err.Error()
}
