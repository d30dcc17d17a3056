package db

import (
	"errors"

	"github.com/terraincognita07/fittrack/internal/models"
	"gorm.io/gorm"
)

// Emails are stored normalized; the lower/trim match also covers rows written by hand.
const normalizedEmailClause = "lower(trim(email)) = ?"

type UserRepository struct {
	database *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{database: database}
}

func (repo *UserRepository) FindByID(userID uint) (models.User, error) {
	return repo.take(repo.database.Where("id = ?", userID))
}

func (repo *UserRepository) FindByNormalizedEmail(email string) (models.User, error) {
	return repo.take(repo.database.Where(normalizedEmailClause, email))
}

func (repo *UserRepository) ExistsByNormalizedEmail(email string) (bool, error) {
	return repo.exists(normalizedEmailClause, email)
}

func (repo *UserRepository) ExistsByUsername(username string) (bool, error) {
	return repo.exists("username = ?", username)
}

func (repo *UserRepository) Create(user *models.User) error {
	if err := repo.database.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

// UpdatePassword swaps the hash and sets whether the next login has to pick a new one.
func (repo *UserRepository) UpdatePassword(userID uint, passwordHash string, mustChangePassword bool) error {
	return repo.update(userID, map[string]any{
		"password_hash":        passwordHash,
		"must_change_password": mustChangePassword,
	})
}

func (repo *UserRepository) UpdateRole(userID uint, role string) error {
	return repo.update(userID, map[string]any{"role": role})
}

// UpdateProfile writes only the given columns; a nil value clears a nullable column.
func (repo *UserRepository) UpdateProfile(userID uint, updates map[string]any) error {
	return repo.update(userID, updates)
}

func (repo *UserRepository) take(query *gorm.DB) (models.User, error) {
	var user models.User
	if err := query.Take(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (repo *UserRepository) exists(clause string, value any) (bool, error) {
	var found int64
	err := repo.database.Model(&models.User{}).Where(clause, value).Limit(1).Count(&found).Error
	return found > 0, err
}

func (repo *UserRepository) update(userID uint, columns map[string]any) error {
	if len(columns) == 0 {
		return nil
	}
	return repo.database.Model(&models.User{}).Where("id = ?", userID).Updates(columns).Error
}
