package resume

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the processing state stored on a resume row.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a run ends in this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseStatus validates a status read from storage.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return s, nil
	}
	return "", fmt.Errorf("unknown resume status %q", raw)
}

// ErrMissingParameters is returned when a job lacks one of its three fields.
var ErrMissingParameters = errors.New("missing parameters")

// Job is one extraction request for an uploaded resume. The ids are opaque
// strings owned by the upload service.
type Job struct {
	ResumeID string `json:"resumeId"`
	FilePath string `json:"filePath"`
	UserID   string `json:"userId"`
}

// Normalize trims surrounding whitespace from every field.
func (j Job) Normalize() Job {
	return Job{
		ResumeID: strings.TrimSpace(j.ResumeID),
		FilePath: strings.TrimSpace(j.FilePath),
		UserID:   strings.TrimSpace(j.UserID),
	}
}

// Validate checks that every field is present.
func (j Job) Validate() error {
	if j.ResumeID == "" || j.FilePath == "" || j.UserID == "" {
		return ErrMissingParameters
	}
	return nil
}
