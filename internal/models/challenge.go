package models

import "time"

type Challenge struct {
	ID            uint   `gorm:"primaryKey"`
	Title         string `gorm:"not null"`
	Type          string
	Duration      string
	Difficulty    string
	Goal          string
	Description   string
	IsAIGenerated bool      `gorm:"column:is_ai_generated;not null;default:false"`
	CreatedAt     time.Time `gorm:"not null"`
}

type Enrollment struct {
	ID                 uint       `gorm:"primaryKey"`
	UserID             uint       `gorm:"not null;uniqueIndex:uidx_enrollment_user_challenge"`
	ChallengeID        uint       `gorm:"not null;uniqueIndex:uidx_enrollment_user_challenge"`
	ProgressPercentage float64    `gorm:"not null;default:0"`
	Completed          bool       `gorm:"not null;default:false"`
	JoinedAt           time.Time  `gorm:"not null"`
	CompletedAt        *time.Time
}

type ProgressMark struct {
	ID           uint      `gorm:"primaryKey"`
	EnrollmentID uint      `gorm:"not null;uniqueIndex:uidx_progress_enrollment_date"`
	ProgressDate time.Time `gorm:"type:date;not null;uniqueIndex:uidx_progress_enrollment_date"`
	CreatedAt    time.Time `gorm:"not null"`
}
