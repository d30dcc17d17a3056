package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/terraincognita07/fittrack/internal/models"
	"github.com/terraincognita07/fittrack/internal/services"
)

var (
	errMissingBearerToken = errors.New("missing bearer token")
	errInvalidToken       = errors.New("invalid token")
	errRevokedToken       = errors.New("token revoked")
)

type authClaims struct {
	UserID uint   `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (handler *Handler) buildToken(user *models.User) (string, error) {
	now := handler.now()
	claims := authClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(handler.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(handler.secretKey)
}

func (handler *Handler) parseToken(tokenValue string) (*authClaims, error) {
	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(tokenValue, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return handler.secretKey, nil
	}, jwt.WithTimeFunc(handler.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, errInvalidToken
	}
	return claims, nil
}

func (handler *Handler) authenticateRequest(c *fiber.Ctx) (*models.User, *authClaims, error) {
	tokenValue, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return nil, nil, errMissingBearerToken
	}

	claims, err := handler.parseToken(tokenValue)
	if err != nil {
		return nil, nil, err
	}

	revoked, err := handler.revokedTokens.IsRevoked(claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: check revoked token: %v", services.ErrStorageFailure, err)
	}
	if revoked {
		return nil, nil, errRevokedToken
	}

	user, err := handler.authService.FindByID(claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	return &user, claims, nil
}

func bearerToken(header string) (string, bool) {
	scheme, value, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (handler *Handler) revokeToken(claims *authClaims) error {
	expiresAt := handler.now().Add(handler.tokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return handler.revokedTokens.Revoke(&models.RevokedToken{
		JTI:       claims.ID,
		UserID:    claims.UserID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: handler.now().UTC(),
	})
}
