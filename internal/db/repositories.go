package db

import "gorm.io/gorm"

type Repositories struct {
	Users         *UserRepository
	Challenges    *ChallengeRepository
	Enrollments   *EnrollmentRepository
	ProgressMarks *ProgressMarkRepository
	RevokedTokens *RevokedTokenRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(database),
		Challenges:    NewChallengeRepository(database),
		Enrollments:   NewEnrollmentRepository(database),
		ProgressMarks: NewProgressMarkRepository(database),
		RevokedTokens: NewRevokedTokenRepository(database),
	}
}
