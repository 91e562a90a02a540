package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"foodgram-api/apperrors"
	"foodgram-api/config"
	"foodgram-api/models"
	"foodgram-api/repositories"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
}

type authService struct {
	userRepo repositories.UserRepository
	jwt      config.JWTConfig
	log      *slog.Logger
	now      func() time.Time
}

func NewAuthService(userRepo repositories.UserRepository, jwtCfg config.JWTConfig, log *slog.Logger) AuthService {
	return &authService{userRepo: userRepo, jwt: jwtCfg, log: log, now: time.Now}
}

func (s *authService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)
	if !models.UsernamePattern.MatchString(username) {
		return nil, apperrors.Validation("username", "username may contain only letters, digits and @/./+/-/_")
	}
	if strings.EqualFold(username, models.ReservedUsername) {
		return nil, apperrors.Validationf("username", "username %q is reserved", username)
	}

	// Check if user already exists
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict("user with this email already exists")
	} else if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:     email,
		Username:  username,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Password:  string(hashedPassword),
		Role:      models.RoleUser,
	}

	// The username unique index reports a taken username as Conflict.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", "user_id", user.ID, "username", user.Username)
	return &models.AuthResponse{Token: token, User: models.NewUserResponse(user, false)}, nil
}

func (s *authService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{Token: token, User: models.NewUserResponse(user, false)}, nil
}

func (s *authService) generateToken(user *models.User) (string, error) {
	now := s.now()

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"exp":     now.Add(s.jwt.Expiration).Unix(),
		"iat":     now.Unix(),
		"nbf":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwt.Secret)
}
