package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/subsmanager/backend/internal/dto"
	"github.com/subsmanager/backend/internal/models"
	"github.com/subsmanager/backend/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByLogin(ctx context.Context, login string) (*models.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type AuthService struct {
	store       UserStore
	jwtSecret   []byte
	tokenExpiry time.Duration
}

func NewAuthService(store UserStore, jwtSecret string, tokenExpiry time.Duration) *AuthService {
	return &AuthService{
		store:       store,
		jwtSecret:   []byte(jwtSecret),
		tokenExpiry: tokenExpiry,
	}
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := dto.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	exists, err := s.store.UserExists(ctx, req.Username, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:       uuid.New(),
		FullName: strings.TrimSpace(req.FullName),
		Username: req.Username,
		Email:    req.Email,
		Password: string(hash),
		Tier:     models.TierFree,
	}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		return nil, err
	}

	return s.authResponse("User registered", &user)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	login := strings.TrimSpace(req.Login())
	// Emails are stored lowercased at registration.
	if strings.Contains(login, "@") {
		login = strings.ToLower(login)
	}
	if login == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.FindUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.authResponse("User logged in", user)
}

// DeleteAccount removes the target account and all of its subscription
// records. Only the account itself may do this.
func (s *AuthService) DeleteAccount(ctx context.Context, actorID, targetID uuid.UUID) (int64, error) {
	if actorID != targetID {
		return 0, ErrNotOwner
	}
	removed, err := s.store.DeleteUser(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return removed, nil
}

func (s *AuthService) authResponse(message string, user *models.User) (*dto.AuthResponse, error) {
	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		Message: message,
		Token:   token,
		User: dto.UserResponse{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			Tier:     user.Tier,
		},
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
