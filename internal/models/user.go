package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;default:user"`
	MobileNumber string
	Height       *float64
	Weight       *float64
	// MustChangePassword is set after an operator reset.
	MustChangePassword bool      `gorm:"not null;default:false"`
	CreatedAt          time.Time `gorm:"not null"`
}

// IsAdmin is the capability check for catalog mutations.
func (user User) IsAdmin() bool {
	return user.Role == RoleAdmin
}
