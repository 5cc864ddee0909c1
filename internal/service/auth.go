package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/urbannassau/rides/internal/calendar"
	"github.com/urbannassau/rides/internal/model"
	"github.com/urbannassau/rides/internal/repository"
	"github.com/urbannassau/rides/pkg/logger"
)

// RoleAdmin is the only role the service issues tokens for.
const RoleAdmin = "admin"

// Claims is the payload of an administrator token.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Session is a successful login.
type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      model.User `json:"user"`
}

// AuthService authenticates administrators and verifies their tokens.
type AuthService struct {
	users  repository.UserStore
	secret []byte
	ttl    time.Duration
	clock  calendar.Clock
	log    logger.Logger
}

// NewAuthService creates an auth service signing HS256 tokens with secret.
func NewAuthService(users repository.UserStore, secret string, ttl time.Duration, clock calendar.Clock, log logger.Logger) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clock,
		log:    logger.ForComponent(log, "auth"),
	}
}

// Login checks email and password and issues a token. Unknown email and
// wrong password fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("login rejected", "email", email)
		return nil, ErrInvalidCredentials
	}

	now := s.clock.Now()
	expires := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: u.Email,
		Role:  RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("login: sign token: %w", err)
	}

	s.log.Info("admin logged in", "user", u.ID)
	return &Session{Token: signed, ExpiresAt: expires, User: *u}, nil
}

// ParseToken verifies an administrator token.
func (s *AuthService) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role != RoleAdmin {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// EnsureAdmin creates or resets the administrator account.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, name, password string) (*model.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, invalid("admin", "email and password are required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &model.User{Email: strings.ToLower(strings.TrimSpace(email)), Name: name, PasswordHash: hash}
	if err := s.users.Upsert(ctx, u); err != nil {
		return nil, fmt.Errorf("ensure admin: %w", err)
	}
	return u, nil
}
