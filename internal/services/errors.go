package services

import "errors"

var (
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrChallengeInvalid   = errors.New("challenge title is required")
	ErrNotEnrolled        = errors.New("challenge not joined")
	ErrAlreadyEnrolled    = errors.New("already joined this challenge")
	ErrAlreadyCompleted   = errors.New("challenge already completed")
	ErrAlreadyMarkedToday = errors.New("progress already marked for today")

	// ErrStorageFailure wraps every unexpected repository error. Callers surface it as a 500.
	ErrStorageFailure = errors.New("storage failure")
)
