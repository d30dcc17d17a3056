package db

import "errors"

var (
	ErrDuplicateMark       = errors.New("progress mark already exists for date")
	ErrDuplicateEnrollment = errors.New("enrollment already exists")
	ErrDuplicateUser       = errors.New("user already exists")
	ErrEnrollmentChanged   = errors.New("enrollment changed concurrently")
)
