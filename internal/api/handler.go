package api

import (
	"errors"
	"time"

	"github.com/terraincognita07/fittrack/internal/logger"
	"github.com/terraincognita07/fittrack/internal/models"
	"github.com/terraincognita07/fittrack/internal/observability"
	"github.com/terraincognita07/fittrack/internal/services"
)

const (
	defaultAuthTokenTTL = time.Hour
	loginAttemptLimit   = 5
	loginAttemptWindow  = 15 * time.Minute
)

type RevokedTokenStore interface {
	Revoke(entry *models.RevokedToken) error
	IsRevoked(jti string) (bool, error)
}

// Dependencies is everything NewHandler wires into the routes. Metrics and Logger are optional.
type Dependencies struct {
	Auth          *services.AuthService
	Account       *services.AccountService
	Progress      *services.ProgressService
	Catalog       *services.CatalogService
	RevokedTokens RevokedTokenStore
	Metrics       *observability.Metrics
	Logger        *logger.Logger

	SecretKey             string
	TokenTTL              time.Duration
	GenerateRatePerMinute int
	Now                   func() time.Time
}

type Handler struct {
	authService     *services.AuthService
	accountService  *services.AccountService
	progressService *services.ProgressService
	catalogService  *services.CatalogService
	revokedTokens   RevokedTokenStore
	metrics         *observability.Metrics
	log             *logger.Logger

	secretKey       []byte
	tokenTTL        time.Duration
	loginLimiter    *attemptLimiter
	generateLimiter *generateLimiter
	now             func() time.Time
}

func NewHandler(deps Dependencies) (*Handler, error) {
	if deps.Auth == nil || deps.Account == nil || deps.Progress == nil || deps.Catalog == nil {
		return nil, errors.New("handler services are required")
	}
	if deps.RevokedTokens == nil {
		return nil, errors.New("revoked token store is required")
	}
	if deps.SecretKey == "" {
		return nil, errors.New("secret key is required")
	}

	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	tokenTTL := deps.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = defaultAuthTokenTTL
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Handler{
		authService:     deps.Auth,
		accountService:  deps.Account,
		progressService: deps.Progress,
		catalogService:  deps.Catalog,
		revokedTokens:   deps.RevokedTokens,
		metrics:         deps.Metrics,
		log:             log.With("component", "api"),
		secretKey:       []byte(deps.SecretKey),
		tokenTTL:        tokenTTL,
		loginLimiter:    newAttemptLimiter(loginAttemptLimit, loginAttemptWindow),
		generateLimiter: newGenerateLimiter(deps.GenerateRatePerMinute),
		now:             now,
	}, nil
}
