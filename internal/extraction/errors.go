package extraction

import (
	"errors"

	"github.com/spigell/skills-extractor/internal/ai"
	"github.com/spigell/skills-extractor/internal/lock"
	"github.com/spigell/skills-extractor/internal/resume"
	"github.com/spigell/skills-extractor/internal/skills"
	"github.com/spigell/skills-extractor/internal/storage"
)

// Kind classifies pipeline failures so transports can pick a response.
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingInput
	KindInvalidInput
	KindConfiguration
	KindStorage
	KindRateLimited
	KindQuotaExceeded
	KindService
	KindNotFound
	KindConflict
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindMissingInput:
		return "missing_input"
	case KindInvalidInput:
		return "invalid_input"
	case KindConfiguration:
		return "configuration"
	case KindStorage:
		return "storage"
	case KindRateLimited:
		return "rate_limited"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindService:
		return "service"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is returned by Pipeline.Run for every failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind carried by err, classifying bare errors by their sentinel.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, resume.ErrMissingParameters):
		return KindMissingInput
	case errors.Is(err, resume.ErrJobNotFound):
		return KindNotFound
	case errors.Is(err, resume.ErrJobInFlight), errors.Is(err, lock.ErrHeld):
		return KindConflict
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrDownload), errors.Is(err, storage.ErrDecode):
		return KindStorage
	case errors.Is(err, ai.ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ai.ErrQuotaExceeded):
		return KindQuotaExceeded
	case errors.Is(err, ai.ErrService), errors.Is(err, skills.ErrMalformed):
		return KindService
	default:
		return KindUnknown
	}
}
