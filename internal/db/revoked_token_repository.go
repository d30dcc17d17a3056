package db

import (
	"time"

	"github.com/terraincognita07/fittrack/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RevokedTokenRepository struct {
	database *gorm.DB
}

func NewRevokedTokenRepository(database *gorm.DB) *RevokedTokenRepository {
	return &RevokedTokenRepository{database: database}
}

// Revoke is idempotent: revoking the same token id twice keeps the first row.
func (repo *RevokedTokenRepository) Revoke(entry *models.RevokedToken) error {
	return repo.database.Clauses(clause.OnConflict{DoNothing: true}).Create(entry).Error
}

func (repo *RevokedTokenRepository) IsRevoked(jti string) (bool, error) {
	var matched int64
	if err := repo.database.Model(&models.RevokedToken{}).Where("jti = ?", jti).Count(&matched).Error; err != nil {
		return false, err
	}
	return matched > 0, nil
}

// PurgeExpired drops rows whose tokens would be rejected on expiry anyway.
func (repo *RevokedTokenRepository) PurgeExpired(now time.Time) (int64, error) {
	result := repo.database.Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	return result.RowsAffected, result.Error
}
