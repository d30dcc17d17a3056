package db

import (
	"time"

	"github.com/terraincognita07/fittrack/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnrollmentAdvanceFunc derives the next enrollment state from the one read inside the
// mark transaction. Returning an error rolls the transaction back.
type EnrollmentAdvanceFunc func(current models.Enrollment) (models.Enrollment, error)

type EnrollmentRepository struct {
	database *gorm.DB
}

func NewEnrollmentRepository(database *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{database: database}
}

func (repo *EnrollmentRepository) FindByUserAndChallenge(userID uint, challengeID uint) (models.Enrollment, bool, error) {
	entry := models.Enrollment{}
	result := repo.database.
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Limit(1).
		Find(&entry)
	if result.Error != nil {
		return models.Enrollment{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Enrollment{}, false, nil
	}
	return entry, true, nil
}

func (repo *EnrollmentRepository) ListByUser(userID uint) ([]models.Enrollment, error) {
	entries := make([]models.Enrollment, 0)
	if err := repo.database.Where("user_id = ?", userID).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Create inserts the enrollment unless the (user, challenge) pair is already taken.
func (repo *EnrollmentRepository) Create(entry *models.Enrollment) error {
	result := repo.database.Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDuplicateEnrollment
	}
	return nil
}

// Delete removes the enrollment and every progress mark recorded against it.
func (repo *EnrollmentRepository) Delete(enrollmentID uint) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("enrollment_id = ?", enrollmentID).Delete(&models.ProgressMark{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Enrollment{}, enrollmentID).Error
	})
}

// ApplyMark records the mark for day and persists the advanced enrollment in one transaction.
// The mark is inserted first so the unique (enrollment_id, progress_date) key settles
// concurrent submissions for the same day. The enrollment row is then read FOR UPDATE, which
// queues marks for different days on postgres; sqlite drops the clause and relies on its
// single writer.
func (repo *EnrollmentRepository) ApplyMark(enrollmentID uint, day time.Time, now time.Time, advance EnrollmentAdvanceFunc) (models.Enrollment, error) {
	var updated models.Enrollment
	err := repo.database.Transaction(func(tx *gorm.DB) error {
		if err := insertMark(tx, enrollmentID, day, now); err != nil {
			return err
		}

		var current models.Enrollment
		if err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).First(&current, enrollmentID).Error; err != nil {
			return err
		}

		next, err := advance(current)
		if err != nil {
			return err
		}

		result := tx.Model(&models.Enrollment{}).
			Where("id = ? AND progress_percentage = ? AND completed = ?", current.ID, current.ProgressPercentage, current.Completed).
			Updates(map[string]any{
				"progress_percentage": next.ProgressPercentage,
				"completed":           next.Completed,
				"completed_at":        next.CompletedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrEnrollmentChanged
		}

		updated = next
		return nil
	})
	if err != nil {
		return models.Enrollment{}, err
	}
	return updated, nil
}
