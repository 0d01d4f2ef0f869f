package auth

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/yourusername/auth-forge/internal/users"
)

// memoryStore はテスト用のインメモリ users.Store 実装です。
type memoryStore struct {
	mu      sync.Mutex
	records map[string]*users.User

	// beforeSetLoggedIn が設定されている場合、条件付き更新の直前に呼ばれます。
	beforeSetLoggedIn func()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]*users.User)}
}

func (s *memoryStore) FindByUserID(ctx context.Context, userID string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.records[userID]
	if !ok {
		return nil, users.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *memoryStore) Create(ctx context.Context, user *users.User) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[user.UserID]; ok {
		return nil, users.ErrDuplicate
	}
	clone := *user
	s.records[user.UserID] = &clone
	result := clone
	return &result, nil
}

func (s *memoryStore) Save(ctx context.Context, user *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[user.UserID]
	if !ok {
		return users.ErrNotFound
	}
	existing.IsLoggedIn = user.IsLoggedIn
	return nil
}

func (s *memoryStore) SetLoggedIn(ctx context.Context, userID string) (bool, error) {
	if s.beforeSetLoggedIn != nil {
		s.beforeSetLoggedIn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.records[userID]
	if !ok {
		return false, nil
	}
	if user.IsLoggedIn {
		return false, nil
	}
	user.IsLoggedIn = true
	return true, nil
}

// recordingNotifier は投入された userId を記録する WelcomeNotifier です。
type recordingNotifier struct {
	mu      sync.Mutex
	userIDs []string
	err     error
}

func (n *recordingNotifier) EnqueueWelcome(ctx context.Context, userID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.userIDs = append(n.userIDs, userID)
	return n.err
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRegisterSuccess(t *testing.T) {
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	service := NewService(store, notifier, discardLogger())

	view, err := service.Register(context.Background(), "alice", "pw1")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if view.UserID != "alice" {
		t.Fatalf("view.UserID = %q, want %q", view.UserID, "alice")
	}
	if view.IsLoggedIn {
		t.Fatal("expected new user to be logged out")
	}

	saved, err := store.FindByUserID(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByUserID returned error: %v", err)
	}
	if saved.PasswordHash == "" || saved.PasswordHash == "pw1" {
		t.Fatalf("expected stored hash, got %q", saved.PasswordHash)
	}
	if !CheckPassword("pw1", saved.PasswordHash) {
		t.Fatal("expected stored hash to verify the password")
	}

	if len(notifier.userIDs) != 1 || notifier.userIDs[0] != "alice" {
		t.Fatalf("unexpected notifier calls: %#v", notifier.userIDs)
	}
}

func TestRegisterTrimsUserID(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, nil, discardLogger())

	view, err := service.Register(context.Background(), "  alice  ", "pw1")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if view.UserID != "alice" {
		t.Fatalf("view.UserID = %q, want trimmed %q", view.UserID, "alice")
	}
}

func TestRegisterValidation(t *testing.T) {
	service := NewService(newMemoryStore(), nil, discardLogger())

	cases := []struct {
		name     string
		userID   string
		password string
	}{
		{"empty userID", "", "pw1"},
		{"whitespace userID", "   ", "pw1"},
		{"empty password", "alice", ""},
		{"both empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.Register(context.Background(), tc.userID, tc.password); !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	service := NewService(newMemoryStore(), nil, discardLogger())

	if _, err := service.Register(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}
	if _, err := service.Register(context.Background(), "alice", "pw2"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("err = %v, want ErrUserExists", err)
	}
}

func TestRegisterNotifierFailureDoesNotFail(t *testing.T) {
	store := newMemoryStore()
	notifier := &recordingNotifier{err: errors.New("queue unavailable")}
	service := NewService(store, notifier, discardLogger())

	if _, err := service.Register(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Register must not fail on notifier error, got: %v", err)
	}
	if _, err := store.FindByUserID(context.Background(), "alice"); err != nil {
		t.Fatalf("expected user to be persisted, got: %v", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, nil, discardLogger())

	if _, err := service.Register(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	view, err := service.Login(context.Background(), "alice", "pw1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if !view.IsLoggedIn {
		t.Fatal("expected view.IsLoggedIn = true after login")
	}

	saved, _ := store.FindByUserID(context.Background(), "alice")
	if !saved.IsLoggedIn {
		t.Fatal("expected persisted is_logged_in = true after login")
	}
}

func TestLoginUnknownUser(t *testing.T) {
	service := NewService(newMemoryStore(), nil, discardLogger())

	if _, err := service.Login(context.Background(), "nobody", "pw1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	service := NewService(newMemoryStore(), nil, discardLogger())

	if _, err := service.Register(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := service.Login(context.Background(), "alice", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestLoginAlreadyLoggedIn(t *testing.T) {
	service := NewService(newMemoryStore(), nil, discardLogger())

	if _, err := service.Register(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := service.Login(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("first Login returned error: %v", err)
	}
	if _, err := service.Login(context.Background(), "alice", "pw1"); !errors.Is(err, ErrAlreadyLoggedIn) {
		t.Fatalf("err = %v, want ErrAlreadyLoggedIn", err)
	}
}

// 読み取りチェック後・条件付き更新前に別リクエストが先にログインを確定させたケース。
func TestLoginLosesConditionalUpdateRace(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, nil, discardLogger())

	if _, err := service.Register(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	raced := false
	store.beforeSetLoggedIn = func() {
		if raced {
			return
		}
		raced = true
		store.mu.Lock()
		store.records["alice"].IsLoggedIn = true
		store.mu.Unlock()
	}

	if _, err := service.Login(context.Background(), "alice", "pw1"); !errors.Is(err, ErrAlreadyLoggedIn) {
		t.Fatalf("err = %v, want ErrAlreadyLoggedIn when the conditional update affects no row", err)
	}
}

func TestLoginChecksExistenceBeforePassword(t *testing.T) {
	service := NewService(newMemoryStore(), nil, discardLogger())

	// 未知ユーザー＋誤パスワードは 404 相当（存在チェックが先）
	if _, err := service.Login(context.Background(), "nobody", "wrong"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLoginChecksSessionBeforePassword(t *testing.T) {
	service := NewService(newMemoryStore(), nil, discardLogger())

	if _, err := service.Register(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := service.Login(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("first Login returned error: %v", err)
	}

	// ログイン中のユーザーには誤パスワードでも競合エラーを返す（セッションチェックが先）
	if _, err := service.Login(context.Background(), "alice", "wrong"); !errors.Is(err, ErrAlreadyLoggedIn) {
		t.Fatalf("err = %v, want ErrAlreadyLoggedIn", err)
	}
}

func TestLogoutIdempotent(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, nil, discardLogger())

	if _, err := service.Register(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := service.Login(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	view, err := service.Logout(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if view.IsLoggedIn {
		t.Fatal("expected view.IsLoggedIn = false after logout")
	}

	// 2回目のログアウトも成功する
	view, err = service.Logout(context.Background(), "alice")
	if err != nil {
		t.Fatalf("second Logout returned error: %v", err)
	}
	if view.IsLoggedIn {
		t.Fatal("expected view.IsLoggedIn = false after repeated logout")
	}
}

func TestLogoutUnknownUser(t *testing.T) {
	service := NewService(newMemoryStore(), nil, discardLogger())

	if _, err := service.Logout(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLogoutValidation(t *testing.T) {
	service := NewService(newMemoryStore(), nil, discardLogger())

	if _, err := service.Logout(context.Background(), "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestLoginAfterLogout(t *testing.T) {
	service := NewService(newMemoryStore(), nil, discardLogger())

	if _, err := service.Register(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := service.Login(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if _, err := service.Logout(context.Background(), "alice"); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}

	view, err := service.Login(context.Background(), "alice", "pw1")
	if err != nil {
		t.Fatalf("re-Login returned error: %v", err)
	}
	if !view.IsLoggedIn {
		t.Fatal("expected view.IsLoggedIn = true after re-login")
	}
}
