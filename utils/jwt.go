package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"scanndine/model"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// AccessClaims are embedded in short-lived access tokens.
type AccessClaims struct {
	Role model.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies the access/refresh token pair. Access and
// refresh tokens use different secrets so one can never stand in for the
// other.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (t *TokenIssuer) AccessTTL() time.Duration { return t.accessTTL }

func (t *TokenIssuer) GenerateAccessToken(userID uint, role model.UserRole) (string, error) {
	now := t.now()
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
}

func (t *TokenIssuer) GenerateRefreshToken(userID uint) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.refreshTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshSecret)
}

// GenerateTokens returns a fresh access and refresh token.
func (t *TokenIssuer) GenerateTokens(userID uint, role model.UserRole) (string, string, error) {
	access, err := t.GenerateAccessToken(userID, role)
	if err != nil {
		return "", "", err
	}
	refresh, err := t.GenerateRefreshToken(userID)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// ParseAccessToken verifies signature and expiry and returns the claims.
func (t *TokenIssuer) ParseAccessToken(tokenString string) (*AccessClaims, uint, error) {
	claims := &AccessClaims{}
	if err := t.parse(tokenString, claims, t.accessSecret); err != nil {
		return nil, 0, err
	}
	id, err := subjectID(claims.Subject)
	if err != nil {
		return nil, 0, err
	}
	return claims, id, nil
}

// ParseRefreshToken verifies a refresh token and returns its subject id.
func (t *TokenIssuer) ParseRefreshToken(tokenString string) (uint, error) {
	claims := &jwt.RegisteredClaims{}
	if err := t.parse(tokenString, claims, t.refreshSecret); err != nil {
		return 0, err
	}
	return subjectID(claims.Subject)
}

func (t *TokenIssuer) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}

func subjectID(sub string) (uint, error) {
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	return uint(id), nil
}
