package server

import "github.com/gofiber/fiber/v2"

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ExtractResponse is the body of a successful extraction.
type ExtractResponse struct {
	Success     bool `json:"success"`
	SkillsCount int  `json:"skills_count"`
}

// StatusResponse is the body of the status endpoint.
type StatusResponse struct {
	ResumeID string `json:"resumeId"`
	Status   string `json:"status"`
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{Error: message})
}
