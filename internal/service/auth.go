package service

import (
	"context"
	"fmt"
	"time"

	"event-service/internal/domain"

	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}

// Claims carried in the bearer token issued at login.
type Claims struct {
	Username string   `json:"username"`
	Admin    bool     `json:"admin"`
	Sources  []string `json:"sources"`
	jwt.RegisteredClaims
}

type AuthService struct {
	userRepository UserRepository
	secret         []byte
	tokenTTL       time.Duration
}

func NewAuthService(userRepository UserRepository, secret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		userRepository: userRepository,
		secret:         []byte(secret),
		tokenTTL:       tokenTTL,
	}
}

// Login verifies the credentials and issues a signed bearer token
// carrying the analyst's admin flag and source set.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", domain.ErrInvalidCredentials
	}

	user, err := s.userRepository.GetByUsername(ctx, username)
	if err != nil {
		if err == domain.ErrUserNotFound {
			return "", domain.ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.WithField("username", username).Warn("Login attempt with invalid password")
		return "", domain.ErrInvalidCredentials
	}

	now := time.Now()
	claims := Claims{
		Username: user.Username,
		Admin:    user.Admin,
		Sources:  user.Sources,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	log.WithField("username", username).Info("Analyst logged in")
	return signed, nil
}

// ParseToken validates a bearer token and returns its claims.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// User builds the request-scoped user view from the token claims.
func (c *Claims) User() *domain.User {
	return &domain.User{
		Username: c.Username,
		Admin:    c.Admin,
		Sources:  c.Sources,
	}
}
