package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/ports"
)

// AuthService forwards sign-in and sign-up to the backend and reads roles
// out of bearer tokens.
//
// Tokens are decoded without verifying their signature. The backend remains
// the authority; the role check here only saves a round trip for requests
// it would reject anyway.
type AuthService struct {
	backend  ports.AuthBackend
	validate *validator.Validate
	parser   *jwt.Parser
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(backend ports.AuthBackend) *AuthService {
	return &AuthService{
		backend:  backend,
		validate: newValidator(),
		parser:   jwt.NewParser(),
		now:      time.Now,
	}
}

// Login exchanges credentials for a session.
func (s *AuthService) Login(ctx context.Context, c domain.Credentials) (*domain.Session, error) {
	c.Email = strings.TrimSpace(c.Email)
	if err := validateStruct(s.validate, c); err != nil {
		return nil, err
	}
	return s.backend.Login(ctx, c)
}

// Register creates an account.
func (s *AuthService) Register(ctx context.Context, r domain.Registration) error {
	r.Email = strings.TrimSpace(r.Email)
	if err := validateStruct(s.validate, r); err != nil {
		return err
	}
	return s.backend.Register(ctx, r)
}

// Principal decodes the identity carried by token. An empty, malformed or
// expired token yields domain.ErrUnauthorized.
func (s *AuthService) Principal(token string) (*domain.Principal, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	claims := jwt.MapClaims{}
	if _, _, err := s.parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if !claims.VerifyExpiresAt(s.now().Unix(), false) {
		return nil, fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
	}

	p := &domain.Principal{Role: domain.RoleUser}
	if v, ok := claims["sub"].(string); ok {
		p.Subject = v
	}
	if v, ok := claims["rol"].(string); ok && v != "" {
		p.Role = v
	}
	switch v, _ := claims["nombre"].(string); {
	case v != "":
		p.Name = v
	case p.Subject != "":
		p.Name = p.Subject
	default:
		p.Name = "Usuario"
	}
	return p, nil
}

// RequireAdmin returns the principal if token carries the admin role.
func (s *AuthService) RequireAdmin(token string) (*domain.Principal, error) {
	p, err := s.Principal(token)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return p, nil
}
