package db

import (
	"github.com/terraincognita07/fittrack/internal/models"
	"gorm.io/gorm"
)

type ChallengeRepository struct {
	database *gorm.DB
}

func NewChallengeRepository(database *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{database: database}
}

func (repo *ChallengeRepository) FindByID(challengeID uint) (models.Challenge, error) {
	var challenge models.Challenge
	if err := repo.database.First(&challenge, challengeID).Error; err != nil {
		return models.Challenge{}, err
	}
	return challenge, nil
}

func (repo *ChallengeRepository) List() ([]models.Challenge, error) {
	challenges := make([]models.Challenge, 0)
	if err := repo.database.Order("created_at ASC, id ASC").Find(&challenges).Error; err != nil {
		return nil, err
	}
	return challenges, nil
}

func (repo *ChallengeRepository) ListByIDs(challengeIDs []uint) ([]models.Challenge, error) {
	challenges := make([]models.Challenge, 0, len(challengeIDs))
	if len(challengeIDs) == 0 {
		return challenges, nil
	}
	if err := repo.database.Where("id IN ?", challengeIDs).Find(&challenges).Error; err != nil {
		return nil, err
	}
	return challenges, nil
}

func (repo *ChallengeRepository) Create(challenge *models.Challenge) error {
	return repo.database.Create(challenge).Error
}

// CreateBatch inserts every challenge or none of them.
func (repo *ChallengeRepository) CreateBatch(challenges []models.Challenge) error {
	if len(challenges) == 0 {
		return nil
	}
	return repo.database.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&challenges).Error
	})
}

func (repo *ChallengeRepository) Save(challenge *models.Challenge) error {
	return repo.database.Save(challenge).Error
}

// Delete removes the challenge with its enrollments and their progress marks.
func (repo *ChallengeRepository) Delete(challengeID uint) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		enrollmentIDs := tx.Model(&models.Enrollment{}).Select("id").Where("challenge_id = ?", challengeID)
		if err := tx.Where("enrollment_id IN (?)", enrollmentIDs).Delete(&models.ProgressMark{}).Error; err != nil {
			return err
		}
		if err := tx.Where("challenge_id = ?", challengeID).Delete(&models.Enrollment{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Challenge{}, challengeID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
