package services

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/terraincognita07/fittrack/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordChangeInvalidInput = errors.New("current and new password are required")
	ErrInvalidCurrentPassword     = errors.New("current password is incorrect")
	ErrNewPasswordMustDiffer      = errors.New("new password must differ from the current one")
	ErrProfileInvalid             = errors.New("profile values out of range")
)

const (
	maxMobileNumberLength = 15
	maxHeightCentimeters  = 300.0
	maxWeightKilograms    = 700.0
)

type AccountUserRepository interface {
	FindByID(userID uint) (models.User, error)
	UpdatePassword(userID uint, passwordHash string, mustChangePassword bool) error
	UpdateProfile(userID uint, updates map[string]any) error
}

// ProfileUpdate carries only the fields present in the request. A nil field is left untouched.
type ProfileUpdate struct {
	MobileNumber *string
	Height       *float64
	Weight       *float64
	ClearHeight  bool
	ClearWeight  bool
}

type AccountService struct {
	users    AccountUserRepository
	hashCost int
}

func NewAccountService(users AccountUserRepository) *AccountService {
	return &AccountService{users: users, hashCost: bcrypt.DefaultCost}
}

func (service *AccountService) ValidatePasswordChange(passwordHash string, currentPassword string, newPassword string) error {
	currentPassword = strings.TrimSpace(currentPassword)
	newPassword = strings.TrimSpace(newPassword)

	if currentPassword == "" || newPassword == "" {
		return ErrPasswordChangeInvalidInput
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(currentPassword)) != nil {
		return ErrInvalidCurrentPassword
	}
	if currentPassword == newPassword {
		return ErrNewPasswordMustDiffer
	}
	return ValidatePasswordStrength(newPassword)
}

// ChangePassword also clears the forced-change flag left by an operator reset.
func (service *AccountService) ChangePassword(user models.User, currentPassword string, newPassword string) error {
	if err := service.ValidatePasswordChange(user.PasswordHash, currentPassword, newPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(newPassword)), service.hashCost)
	if err != nil {
		return err
	}
	if err := service.users.UpdatePassword(user.ID, string(hash), false); err != nil {
		return storageFailure("update password", err)
	}
	return nil
}

func (service *AccountService) UpdateProfile(userID uint, update ProfileUpdate) (models.User, error) {
	updates, err := profileUpdates(update)
	if err != nil {
		return models.User{}, err
	}
	if len(updates) > 0 {
		if err := service.users.UpdateProfile(userID, updates); err != nil {
			return models.User{}, storageFailure("update profile", err)
		}
	}

	user, err := service.users.FindByID(userID)
	if err != nil {
		return models.User{}, storageFailure("load user", err)
	}
	return user, nil
}

func profileUpdates(update ProfileUpdate) (map[string]any, error) {
	updates := make(map[string]any)
	if update.MobileNumber != nil {
		mobile := strings.TrimSpace(*update.MobileNumber)
		if utf8.RuneCountInString(mobile) > maxMobileNumberLength {
			return nil, ErrProfileInvalid
		}
		updates["mobile_number"] = mobile
	}

	switch {
	case update.ClearHeight:
		updates["height"] = nil
	case update.Height != nil:
		if *update.Height <= 0 || *update.Height > maxHeightCentimeters {
			return nil, ErrProfileInvalid
		}
		updates["height"] = *update.Height
	}

	switch {
	case update.ClearWeight:
		updates["weight"] = nil
	case update.Weight != nil:
		if *update.Weight <= 0 || *update.Weight > maxWeightKilograms {
			return nil, ErrProfileInvalid
		}
		updates["weight"] = *update.Weight
	}
	return updates, nil
}
