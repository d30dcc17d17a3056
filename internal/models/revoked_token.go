package models

import "time"

// RevokedToken records a JWT id that was logged out before it expired.
type RevokedToken struct {
	JTI       string    `gorm:"column:jti;primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}
