package db

import (
	"time"

	"github.com/terraincognita07/fittrack/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressMarkRepository struct {
	database *gorm.DB
}

func NewProgressMarkRepository(database *gorm.DB) *ProgressMarkRepository {
	return &ProgressMarkRepository{database: database}
}

func (repo *ProgressMarkRepository) HasMark(enrollmentID uint, day time.Time) (bool, error) {
	var matched int64
	if err := repo.database.Model(&models.ProgressMark{}).
		Where("enrollment_id = ? AND progress_date = ?", enrollmentID, day).
		Count(&matched).Error; err != nil {
		return false, err
	}
	return matched > 0, nil
}

// MarkedEnrollmentIDs returns the subset of enrollmentIDs that already hold a mark for day.
func (repo *ProgressMarkRepository) MarkedEnrollmentIDs(enrollmentIDs []uint, day time.Time) (map[uint]bool, error) {
	marked := make(map[uint]bool, len(enrollmentIDs))
	if len(enrollmentIDs) == 0 {
		return marked, nil
	}

	ids := make([]uint, 0, len(enrollmentIDs))
	if err := repo.database.Model(&models.ProgressMark{}).
		Where("enrollment_id IN ? AND progress_date = ?", enrollmentIDs, day).
		Pluck("enrollment_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		marked[id] = true
	}
	return marked, nil
}

// RecordMark inserts a standalone mark. ErrDuplicateMark means the date was already marked.
func (repo *ProgressMarkRepository) RecordMark(enrollmentID uint, day time.Time, now time.Time) error {
	return insertMark(repo.database, enrollmentID, day, now)
}

func (repo *ProgressMarkRepository) History(enrollmentID uint) ([]models.ProgressMark, error) {
	marks := make([]models.ProgressMark, 0)
	if err := repo.database.
		Where("enrollment_id = ?", enrollmentID).
		Order("progress_date DESC, id DESC").
		Find(&marks).Error; err != nil {
		return nil, err
	}
	return marks, nil
}

func insertMark(database *gorm.DB, enrollmentID uint, day time.Time, now time.Time) error {
	mark := models.ProgressMark{
		EnrollmentID: enrollmentID,
		ProgressDate: day,
		CreatedAt:    now,
	}
	result := database.Clauses(clause.OnConflict{DoNothing: true}).Create(&mark)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDuplicateMark
	}
	return nil
}
