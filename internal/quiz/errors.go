package quiz

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNoQuestionsAvailable is returned when a strategy resolves to zero questions.
	ErrNoQuestionsAvailable = errors.New("no questions available")
	// ErrAIUnavailable is returned when an AI-only strategy is requested and no provider is configured.
	ErrAIUnavailable = errors.New("AI question provider not configured")
	// ErrAlreadyCompleted is returned when a session is finished twice.
	ErrAlreadyCompleted = errors.New("quiz session already completed")
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInvalidOption is returned for a selected option outside A-D.
	ErrInvalidOption = errors.New("selected option must be A, B, C, D or empty")
)

// RepositoryError wraps a storage failure from a collaborator.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// AIGenerationError wraps a provider failure: transport, timeout or an unusable payload.
type AIGenerationError struct {
	Op  string
	Err error
}

func (e *AIGenerationError) Error() string {
	return fmt.Sprintf("ai %s: %v", e.Op, e.Err)
}

func (e *AIGenerationError) Unwrap() error { return e.Err }

// InvalidStateError reports an operation that is illegal for the session's current state.
type InvalidStateError struct {
	SessionID uuid.UUID
	Reason    string
	Err       error
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("session %s: %s", e.SessionID, e.Reason)
}

func (e *InvalidStateError) Unwrap() error { return e.Err }

func repoErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RepositoryError
	if errors.As(err, &re) {
		return err
	}
	return &RepositoryError{Op: op, Err: err}
}

func aiErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *AIGenerationError
	if errors.As(err, &ae) {
		return err
	}
	return &AIGenerationError{Op: op, Err: err}
}
