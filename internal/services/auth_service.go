package services

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/terraincognita07/fittrack/internal/db"
	"github.com/terraincognita07/fittrack/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
	ErrUserNotFound  = errors.New("user not found")
)

type AuthUserRepository interface {
	ExistsByNormalizedEmail(email string) (bool, error)
	ExistsByUsername(username string) (bool, error)
	FindByNormalizedEmail(email string) (models.User, error)
	FindByID(userID uint) (models.User, error)
	Create(user *models.User) error
	UpdatePassword(userID uint, passwordHash string, mustChangePassword bool) error
	UpdateRole(userID uint, role string) error
}

type RegistrationInput struct {
	Username string
	Email    string
	Password string
}

type AuthService struct {
	users    AuthUserRepository
	hashCost int

	dummyHashOnce sync.Once
	dummyHash     []byte
}

func NewAuthService(users AuthUserRepository) *AuthService {
	return &AuthService{users: users, hashCost: bcrypt.DefaultCost}
}

func (service *AuthService) Register(input RegistrationInput, now time.Time) (models.User, error) {
	username, err := NormalizeUsername(input.Username)
	if err != nil {
		return models.User{}, err
	}
	email := NormalizeAuthEmail(input.Email)
	if email == "" {
		return models.User{}, ErrAuthEmailInvalid
	}
	if err := ValidatePasswordStrength(input.Password); err != nil {
		return models.User{}, err
	}

	emailTaken, err := service.users.ExistsByNormalizedEmail(email)
	if err != nil {
		return models.User{}, storageFailure("check email", err)
	}
	if emailTaken {
		return models.User{}, ErrEmailTaken
	}
	usernameTaken, err := service.users.ExistsByUsername(username)
	if err != nil {
		return models.User{}, storageFailure("check username", err)
	}
	if usernameTaken {
		return models.User{}, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), service.hashCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		CreatedAt:    now.UTC(),
	}
	if err := service.users.Create(&user); err != nil {
		if errors.Is(err, db.ErrDuplicateUser) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, storageFailure("create user", err)
	}
	return user, nil
}

// Authenticate returns ErrAuthCredentialsInvalid for unknown emails and wrong passwords alike.
func (service *AuthService) Authenticate(emailRaw string, password string) (models.User, error) {
	email, password, err := NormalizeCredentialsInput(emailRaw, password)
	if err != nil {
		return models.User{}, ErrAuthCredentialsInvalid
	}

	user, err := service.users.FindByNormalizedEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		_ = bcrypt.CompareHashAndPassword(service.timingHash(), []byte(password))
		return models.User{}, ErrAuthCredentialsInvalid
	}
	if err != nil {
		return models.User{}, storageFailure("load user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.User{}, ErrAuthCredentialsInvalid
	}
	return user, nil
}

func (service *AuthService) FindByID(userID uint) (models.User, error) {
	user, err := service.users.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, storageFailure("load user", err)
	}
	return user, nil
}

func (service *AuthService) FindByEmail(emailRaw string) (models.User, error) {
	email := NormalizeAuthEmail(emailRaw)
	if email == "" {
		return models.User{}, ErrAuthEmailInvalid
	}
	user, err := service.users.FindByNormalizedEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, storageFailure("load user", err)
	}
	return user, nil
}

// ResetPassword stores a new hash and flags the account so the next login must change it.
func (service *AuthService) ResetPassword(userID uint, password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), service.hashCost)
	if err != nil {
		return err
	}
	if err := service.users.UpdatePassword(userID, string(hash), true); err != nil {
		return storageFailure("update password", err)
	}
	return nil
}

func (service *AuthService) PromoteToAdmin(userID uint) error {
	if err := service.users.UpdateRole(userID, models.RoleAdmin); err != nil {
		return storageFailure("update role", err)
	}
	return nil
}

func (service *AuthService) timingHash() []byte {
	service.dummyHashOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("fittrack-timing-placeholder"), service.hashCost)
		if err == nil {
			service.dummyHash = hash
		}
	})
	return service.dummyHash
}
