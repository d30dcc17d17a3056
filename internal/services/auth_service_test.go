package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/terraincognita07/fittrack/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type authUserRepositoryStub struct {
	users  map[uint]models.User
	nextID uint
}

func newAuthUserRepositoryStub() *authUserRepositoryStub {
	return &authUserRepositoryStub{users: make(map[uint]models.User), nextID: 1}
}

func (stub *authUserRepositoryStub) ExistsByNormalizedEmail(email string) (bool, error) {
	_, err := stub.FindByNormalizedEmail(email)
	return err == nil, nil
}

func (stub *authUserRepositoryStub) ExistsByUsername(username string) (bool, error) {
	for _, user := range stub.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (stub *authUserRepositoryStub) FindByNormalizedEmail(email string) (models.User, error) {
	for _, user := range stub.users {
		if strings.ToLower(strings.TrimSpace(user.Email)) == email {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (stub *authUserRepositoryStub) FindByID(userID uint) (models.User, error) {
	user, ok := stub.users[userID]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (stub *authUserRepositoryStub) Create(user *models.User) error {
	user.ID = stub.nextID
	stub.nextID++
	stub.users[user.ID] = *user
	return nil
}

func (stub *authUserRepositoryStub) UpdatePassword(userID uint, passwordHash string, mustChangePassword bool) error {
	user := stub.users[userID]
	user.PasswordHash = passwordHash
	user.MustChangePassword = mustChangePassword
	stub.users[userID] = user
	return nil
}

func (stub *authUserRepositoryStub) UpdateRole(userID uint, role string) error {
	user := stub.users[userID]
	user.Role = role
	stub.users[userID] = user
	return nil
}

func (stub *authUserRepositoryStub) UpdateProfile(userID uint, updates map[string]any) error {
	user := stub.users[userID]
	if value, ok := updates["mobile_number"]; ok {
		user.MobileNumber = value.(string)
	}
	if value, ok := updates["height"]; ok {
		if value == nil {
			user.Height = nil
		} else {
			height := value.(float64)
			user.Height = &height
		}
	}
	if value, ok := updates["weight"]; ok {
		if value == nil {
			user.Weight = nil
		} else {
			weight := value.(float64)
			user.Weight = &weight
		}
	}
	stub.users[userID] = user
	return nil
}

func newAuthServiceForTest() (*AuthService, *authUserRepositoryStub) {
	repo := newAuthUserRepositoryStub()
	service := NewAuthService(repo)
	service.hashCost = bcrypt.MinCost
	return service, repo
}

func TestRegisterHashesPasswordAndDefaultsRole(t *testing.T) {
	service, repo := newAuthServiceForTest()

	user, err := service.Register(RegistrationInput{Username: "runner", Email: " Runner@Example.com ", Password: "StrongPass1"}, time.Now())
	require.NoError(t, err)
	require.Equal(t, "runner@example.com", user.Email)
	require.Equal(t, models.RoleUser, user.Role)
	require.NotEqual(t, "StrongPass1", repo.users[user.ID].PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[user.ID].PasswordHash), []byte("StrongPass1")))
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	service, _ := newAuthServiceForTest()
	_, err := service.Register(RegistrationInput{Username: "runner", Email: "runner@example.com", Password: "StrongPass1"}, time.Now())
	require.NoError(t, err)

	_, err = service.Register(RegistrationInput{Username: "other", Email: "RUNNER@example.com", Password: "StrongPass1"}, time.Now())
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = service.Register(RegistrationInput{Username: "runner", Email: "new@example.com", Password: "StrongPass1"}, time.Now())
	require.ErrorIs(t, err, ErrUsernameTaken)

	_, err = service.Register(RegistrationInput{Username: "walker", Email: "bad", Password: "StrongPass1"}, time.Now())
	require.ErrorIs(t, err, ErrAuthEmailInvalid)

	_, err = service.Register(RegistrationInput{Username: "walker", Email: "walker@example.com", Password: "weak"}, time.Now())
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestAuthenticate(t *testing.T) {
	service, _ := newAuthServiceForTest()
	registered, err := service.Register(RegistrationInput{Username: "runner", Email: "runner@example.com", Password: "StrongPass1"}, time.Now())
	require.NoError(t, err)

	user, err := service.Authenticate("RUNNER@example.com", "StrongPass1")
	require.NoError(t, err)
	require.Equal(t, registered.ID, user.ID)

	_, err = service.Authenticate("runner@example.com", "WrongPass1")
	require.ErrorIs(t, err, ErrAuthCredentialsInvalid)

	_, err = service.Authenticate("ghost@example.com", "StrongPass1")
	require.ErrorIs(t, err, ErrAuthCredentialsInvalid)
}

func TestResetPasswordFlagsAccountAndPromote(t *testing.T) {
	service, repo := newAuthServiceForTest()
	user, err := service.Register(RegistrationInput{Username: "runner", Email: "runner@example.com", Password: "StrongPass1"}, time.Now())
	require.NoError(t, err)

	require.NoError(t, service.ResetPassword(user.ID, "TempPass99"))
	require.True(t, repo.users[user.ID].MustChangePassword)
	_, err = service.Authenticate("runner@example.com", "TempPass99")
	require.NoError(t, err)

	require.NoError(t, service.PromoteToAdmin(user.ID))
	require.True(t, repo.users[user.ID].IsAdmin())

	_, err = service.FindByEmail("ghost@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = service.FindByID(999)
	require.ErrorIs(t, err, ErrUserNotFound)
}
