package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"anoa.com/labeebacademy/internal/entity"
	"anoa.com/labeebacademy/internal/modules/user/dto"
	"anoa.com/labeebacademy/internal/modules/user/repository"
	"anoa.com/labeebacademy/internal/navigation"
	"anoa.com/labeebacademy/pkg/apperror"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService interface {
	SignUp(ctx context.Context, input dto.SignupInput) (*dto.SignupResponse, error)
	SignIn(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	SignOut(ctx context.Context, token string) (*dto.SignOutResponse, error)
	Session(ctx context.Context, userID uuid.UUID) (*dto.SessionResponse, error)
	CheckRoute(ctx context.Context, userID uuid.UUID, route string) (*dto.RouteAccessResponse, error)
}

type authService struct {
	repo     repository.UserRepository
	resolver RoleResolver
	tokens   *TokenManager
	hashCost int
}

func NewAuthService(repo repository.UserRepository, resolver RoleResolver, tokens *TokenManager) AuthService {
	return &authService{
		repo:     repo,
		resolver: resolver,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
	}
}

var errEmailInUse = apperror.New(http.StatusConflict, "email address is already in use", apperror.ErrConflict)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) SignUp(ctx context.Context, input dto.SignupInput) (*dto.SignupResponse, error) {
	email := normalizeEmail(input.Email)

	if existing, err := s.repo.FindIdentityByEmail(ctx, email); err == nil && existing != nil {
		return nil, errEmailInUse
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	identity := &entity.Identity{
		Email:        email,
		PasswordHash: string(hash),
	}
	profile := &entity.Profile{
		Name:  strings.TrimSpace(input.Name),
		Email: email,
		Role:  entity.DefaultRole,
	}

	if err := s.repo.Create(ctx, identity, profile); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errEmailInUse
		}
		return nil, err
	}

	return &dto.SignupResponse{
		Message:     "Account created successfully! Redirecting to login...",
		Profile:     profile,
		Destination: navigation.AfterSignUp(),
	}, nil
}

// SignIn verifies credentials, then resolves the role. A token is only issued
// when the profile resolves to a dashboard.
func (s *authService) SignIn(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	identity, err := s.repo.FindIdentityByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	profile, dest, err := s.resolver.Resolve(ctx, identity.ID)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(identity.ID)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresAt - s.tokens.now().Unix(),
		Profile:     profile,
		Destination: dest,
	}, nil
}

func (s *authService) SignOut(ctx context.Context, token string) (*dto.SignOutResponse, error) {
	if err := s.tokens.Revoke(ctx, token); err != nil {
		return nil, err
	}

	return &dto.SignOutResponse{
		Message:     "signed out",
		Destination: navigation.AfterSignOut(),
	}, nil
}

func (s *authService) Session(ctx context.Context, userID uuid.UUID) (*dto.SessionResponse, error) {
	profile, dest, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.SessionResponse{Profile: profile, Dashboard: dest}, nil
}

func (s *authService) CheckRoute(ctx context.Context, userID uuid.UUID, route string) (*dto.RouteAccessResponse, error) {
	r, err := navigation.Parse(route)
	if err != nil {
		return nil, err
	}

	if navigation.IsPublic(r) {
		return &dto.RouteAccessResponse{Route: r, Allowed: true}, nil
	}
	if userID == uuid.Nil {
		return nil, apperror.ErrUnauthorized
	}

	profile, _, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := navigation.Authorize(r, profile.Role); err != nil {
		return nil, err
	}

	return &dto.RouteAccessResponse{Route: r, Allowed: true}, nil
}
