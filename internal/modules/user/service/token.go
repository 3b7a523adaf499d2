package service

import (
	"context"
	"fmt"
	"time"

	"anoa.com/labeebacademy/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues and verifies HS256 access tokens whose subject is the
// identity id.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	store  SessionStore
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration, store SessionStore) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		store:  store,
		now:    time.Now,
	}
}

func (m *TokenManager) Issue(subject uuid.UUID) (string, int64, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl)

	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", 0, err
	}

	return signed, expiresAt.Unix(), nil
}

// Verify parses tokenString and rejects tokens that were signed out.
func (m *TokenManager) Verify(ctx context.Context, tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid or expired token", apperror.ErrUnauthorized)
	}

	if claims.ID != "" && m.store != nil {
		revoked, err := m.store.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, fmt.Errorf("%w: token has been signed out", apperror.ErrUnauthorized)
		}
	}

	return claims, nil
}

// Revoke keeps the token's id on the deny list until its expiry.
func (m *TokenManager) Revoke(ctx context.Context, tokenString string) error {
	claims, err := m.Verify(ctx, tokenString)
	if err != nil {
		return err
	}
	if claims.ID == "" || claims.ExpiresAt == nil || m.store == nil {
		return nil
	}
	return m.store.Revoke(ctx, claims.ID, claims.ExpiresAt.Time.Sub(m.now()))
}
