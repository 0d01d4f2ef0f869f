package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/auth-forge/internal/users"
)

// WelcomeNotifier はユーザー登録時のウェルカム通知をキューへ引き渡します。
// 投入の失敗が登録処理を失敗させることはありません。
type WelcomeNotifier interface {
	EnqueueWelcome(ctx context.Context, userID string) error
}

// Service は登録・ログイン・ログアウトの状態遷移を実装します。
// ユーザーレコードはストアが所有し、操作のたびに最新状態を読み直します。
type Service struct {
	store    users.Store
	notifier WelcomeNotifier
	logger   *log.Logger
}

// NewService は Service を作成します。notifier は nil でも構いません（通知無効）。
func NewService(store users.Store, notifier WelcomeNotifier, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Register は新規ユーザーを作成します。
// 作成されるレコードは必ず未ログイン状態です。
func (s *Service) Register(ctx context.Context, userID, password string) (users.PublicView, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || password == "" {
		return users.PublicView{}, ErrValidation
	}

	hash, err := HashPassword(password)
	if err != nil {
		return users.PublicView{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.Create(ctx, &users.User{
		UserID:       userID,
		PasswordHash: hash,
		IsLoggedIn:   false,
	})
	if err != nil {
		if errors.Is(err, users.ErrDuplicate) {
			return users.PublicView{}, ErrUserExists
		}
		return users.PublicView{}, fmt.Errorf("failed to create user: %w", err)
	}

	// ウェルカム通知はベストエフォート。失敗してもロールバックしません。
	if s.notifier != nil {
		if err := s.notifier.EnqueueWelcome(ctx, user.UserID); err != nil {
			s.logger.Printf("failed to enqueue welcome notification user=%s: %v", user.UserID, err)
		}
	}

	return user.Public(), nil
}

// Login はパスワードを照合してログイン状態へ遷移させます。
// 判定順序は 存在チェック → ログイン中チェック → パスワード照合 で固定です。
func (s *Service) Login(ctx context.Context, userID, password string) (users.PublicView, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || password == "" {
		return users.PublicView{}, ErrValidation
	}

	user, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.PublicView{}, ErrNotFound
		}
		return users.PublicView{}, fmt.Errorf("failed to find user: %w", err)
	}

	if user.IsLoggedIn {
		return users.PublicView{}, ErrAlreadyLoggedIn
	}

	if !CheckPassword(password, user.PasswordHash) {
		return users.PublicView{}, ErrUnauthorized
	}

	// 条件付き更新で確定させる。チェック後に別リクエストが先行した場合はここで弾かれます。
	ok, err := s.store.SetLoggedIn(ctx, userID)
	if err != nil {
		return users.PublicView{}, fmt.Errorf("failed to save login state: %w", err)
	}
	if !ok {
		return users.PublicView{}, ErrAlreadyLoggedIn
	}

	user.IsLoggedIn = true
	return user.Public(), nil
}

// Logout はログイン状態を解除します。冪等で、未ログインでも成功します。
func (s *Service) Logout(ctx context.Context, userID string) (users.PublicView, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return users.PublicView{}, ErrValidation
	}

	user, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.PublicView{}, ErrNotFound
		}
		return users.PublicView{}, fmt.Errorf("failed to find user: %w", err)
	}

	user.IsLoggedIn = false
	if err := s.store.Save(ctx, user); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.PublicView{}, ErrNotFound
		}
		return users.PublicView{}, fmt.Errorf("failed to save logout state: %w", err)
	}

	return user.Public(), nil
}
