package services

import (
	"errors"
	"fmt"
	"time"

	"meal-claim-system/models"
)

// ValidationError reports missing or malformed caller input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports an unknown participant or team.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// AlreadyClaimedError is returned when the target slot is already claimed.
// It carries the original claim time so callers can show it.
type AlreadyClaimedError struct {
	Participant ParticipantSummary
	Meal        models.MealType
	ClaimedAt   time.Time
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("%s already claimed at %s", MealTitle(e.Meal), e.ClaimedAt.Format(time.RFC3339))
}

// NotClaimedError is returned when unclaiming a slot that is not claimed.
type NotClaimedError struct {
	ParticipantID string
	Meal          models.MealType
}

func (e *NotClaimedError) Error() string {
	return fmt.Sprintf("%s not claimed yet for %s", MealTitle(e.Meal), e.ParticipantID)
}

// StorageError wraps a persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// ErrEmptyDataset is returned by Export when there is nothing to export.
var ErrEmptyDataset = errors.New("no participants found")

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// typedOrStorage passes the service error kinds through and wraps anything
// else (driver errors, commit failures) as a StorageError.
func typedOrStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		validation     *ValidationError
		notFound       *NotFoundError
		alreadyClaimed *AlreadyClaimedError
		notClaimed     *NotClaimedError
		storage        *StorageError
	)
	if errors.As(err, &validation) || errors.As(err, &notFound) || errors.As(err, &alreadyClaimed) ||
		errors.As(err, &notClaimed) || errors.As(err, &storage) || errors.Is(err, ErrEmptyDataset) {
		return err
	}
	return storageErr(op, err)
}
