package services

import (
	"context"
	"errors"
	"fmt"

	"match-go/internal/auth"
	"match-go/internal/config"
	"match-go/internal/models"
	"match-go/internal/storage"
)

var (
	ErrUserAlreadyExists  = errors.New("username or email already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
)

// AuthService covers account provisioning and login. The swipe engine
// itself never checks credentials; it trusts the user id the middleware
// resolved from the token this service issued.
type AuthService interface {
	Register(ctx context.Context, username, nickname, email, password string) (*models.Account, error)
	Login(ctx context.Context, usernameOrEmail, password string) (token string, account *models.Account, err error)
}

type authService struct {
	accountRepo storage.AccountRepository
	cfg         config.Config
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(accountRepo storage.AccountRepository, cfg config.Config) AuthService {
	return &authService{
		accountRepo: accountRepo,
		cfg:         cfg,
	}
}

// Register provisions a new account on the free tier.
func (s *authService) Register(ctx context.Context, username, nickname, email, password string) (*models.Account, error) {
	_, err := s.accountRepo.GetByUsername(ctx, username)
	if err == nil {
		return nil, ErrUserAlreadyExists
	} else if !storage.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	if email != "" {
		_, err = s.accountRepo.GetByEmail(ctx, email)
		if err == nil {
			return nil, ErrUserAlreadyExists
		} else if !storage.IsNotFound(err) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newAccount := &models.Account{
		Username:     username,
		Nickname:     nickname,
		Email:        email,
		PasswordHash: hashedPassword,
		Tier:         "free",
	}

	if err := s.accountRepo.Create(ctx, newAccount); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return newAccount, nil
}

// Login verifies credentials and issues a JWT.
func (s *authService) Login(ctx context.Context, usernameOrEmail, password string) (string, *models.Account, error) {
	account, err := s.accountRepo.GetByUsername(ctx, usernameOrEmail)
	if storage.IsNotFound(err) {
		account, err = s.accountRepo.GetByEmail(ctx, usernameOrEmail)
		if storage.IsNotFound(err) {
			return "", nil, ErrUserNotFound
		} else if err != nil {
			return "", nil, fmt.Errorf("failed to look up account by email: %w", err)
		}
	} else if err != nil {
		return "", nil, fmt.Errorf("failed to look up account by username: %w", err)
	}

	if !auth.CheckPasswordHash(password, account.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(account.ID, account.Username, s.cfg.Auth)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return token, account, nil
}
