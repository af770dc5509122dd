package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/carelink/carelink-be/internal/apperr"
	"github.com/carelink/carelink-be/internal/models"
)

const (
	accessTokenType  = "access"
	refreshTokenType = "refresh"
)

// TokenPair is the access/refresh pair handed out at register and login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Claims is the JWT payload for both token types.
type Claims struct {
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies signed JWTs for authenticated users.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetimes.
func NewTokenManager(secret, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue returns a fresh access/refresh pair for user.
func (t *TokenManager) Issue(user models.User) (TokenPair, error) {
	subject := strconv.FormatInt(user.ID, 10)
	access, err := t.sign(subject, user.Username, accessTokenType, t.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := t.sign(subject, user.Username, refreshTokenType, t.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (t *TokenManager) Refresh(refreshToken string) (string, error) {
	claims, err := t.parse(refreshToken, refreshTokenType)
	if err != nil {
		return "", err
	}
	return t.sign(claims.Subject, claims.Username, accessTokenType, t.accessTTL)
}

// ParseAccess validates an access token and returns the caller it identifies.
func (t *TokenManager) ParseAccess(accessToken string) (Caller, error) {
	claims, err := t.parse(accessToken, accessTokenType)
	if err != nil {
		return Caller{}, err
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Caller{}, fmt.Errorf("%w: bad subject", apperr.ErrInvalidToken)
	}
	return Caller{UserID: id, Username: claims.Username}, nil
}

func (t *TokenManager) sign(subject, username, tokenType string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		Username:  username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *TokenManager) parse(tokenStr, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, errors.Join(apperr.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, apperr.ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("%w: expected %s token", apperr.ErrInvalidToken, wantType)
	}
	return claims, nil
}
