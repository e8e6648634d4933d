package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/govdesk/internal/auth"
	"github.com/spec-kit/govdesk/internal/config"
	"github.com/spec-kit/govdesk/internal/domain"
	"github.com/spec-kit/govdesk/internal/repository"
	apperrors "github.com/spec-kit/govdesk/pkg/util/errorutil"
)

// AuthService handles customer registration and customer/staff login.
type AuthService struct {
	cfg       config.AuthConfig
	customers repository.CustomerRepository
	staff     repository.StaffRepository
	tokens    *auth.TokenManager
}

// AuthDependencies bundles repositories for auth.
type AuthDependencies struct {
	CustomerRepo repository.CustomerRepository
	StaffRepo    repository.StaffRepository
}

// AuthResult carries a signed token and its expiry.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		cfg:       cfg,
		customers: deps.CustomerRepo,
		staff:     deps.StaffRepo,
		tokens:    auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// RegisterCustomer creates a customer account.
func (s *AuthService) RegisterCustomer(ctx context.Context, name, email, password string, phone *string) (*domain.Customer, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, apperrors.NewValidationError("name, email and password required", nil)
	}

	if _, err := s.customers.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	customer := &domain.Customer{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Status:       domain.CustomerStatusActive,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, apperrors.MapError(err)
	}
	return customer, nil
}

// LoginCustomer verifies credentials and issues a token.
func (s *AuthService) LoginCustomer(ctx context.Context, email, password string) (*AuthResult, *domain.Customer, error) {
	customer, err := s.customers.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if customer.Status != domain.CustomerStatusActive {
		return nil, nil, apperrors.NewUnauthorized("account suspended")
	}
	if err := auth.ComparePassword(customer.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(customer.ID, domain.SubjectTypeCustomer, nil)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt}, customer, nil
}

// LoginStaff verifies staff credentials and issues a token with role claims.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*AuthResult, *domain.StaffMember, error) {
	staff, err := s.staff.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !staff.Active {
		return nil, nil, apperrors.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(staff.ID, domain.SubjectTypeStaff, &staff.Role)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt}, staff, nil
}
