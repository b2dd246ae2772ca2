// Package auth は管理ユーザーの登録、認証、トークン発行を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/libman/internal/model"
	"github.com/hitoshi/libman/internal/repository"
)

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	tokens   *TokenService
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, tokens *TokenService) *Service {
	return &Service{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// Register は管理APIユーザーを登録する。
// パスワードはbcryptのソルト付きハッシュとして保存し、平文は保持しない。
// 登録直後のユーザーは管理者権限を持たない。
func (s *Service) Register(ctx context.Context, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      false,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return err
	}

	slog.Info("user registered",
		slog.String("email", email),
	)
	return nil
}

// Login は認証情報を検証し、ベアラートークンを発行する。
// ユーザー未登録はUSER_NOT_FOUND、パスワード不一致はINVALID_CREDENTIAL、
// 管理者権限なしはNOT_ADMINで失敗する。トークンを得られるのは管理者のみ。
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return "", model.NewUserNotFoundError(email)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", model.NewInvalidCredentialError()
	}

	if !user.IsAdmin {
		return "", model.NewNotAdminError()
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("admin logged in",
		slog.String("email", email),
	)
	return token, nil
}
