// Package users はユーザーレコードの定義と永続化を提供します。
package users

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound は指定されたユーザーが存在しないことを表します。
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate は userId の一意制約違反を表します。
	ErrDuplicate = errors.New("user already exists")
)

// User は永続化されるユーザーレコードです。
type User struct {
	ID           string
	UserID       string
	PasswordHash string
	IsLoggedIn   bool
	CreatedAt    time.Time
}

// PublicView はクライアントに返す公開ビューです。
// パスワードハッシュは決して含めません。
type PublicView struct {
	UserID     string `json:"userId"`
	IsLoggedIn bool   `json:"isLoggedIn"`
}

// Public はクライアント向けの公開ビューを返します。
func (u *User) Public() PublicView {
	return PublicView{
		UserID:     u.UserID,
		IsLoggedIn: u.IsLoggedIn,
	}
}

// Store はユーザーの永続化層を抽象化します。
// すべての呼び出しはコミット済みの最新状態を返します（キャッシュなし）。
type Store interface {
	// FindByUserID は userId でユーザーを検索します。存在しない場合は ErrNotFound。
	FindByUserID(ctx context.Context, userID string) (*User, error)

	// Create は新規ユーザーを作成します。userId が既に存在する場合は ErrDuplicate。
	// 一意性はストア側の制約で保証されるため、同時登録が競合しても片方だけが成功します。
	Create(ctx context.Context, user *User) (*User, error)

	// Save は既存レコードのログイン状態を永続化します。レコードが無ければ ErrNotFound。
	Save(ctx context.Context, user *User) error

	// SetLoggedIn は「未ログインの場合のみ」ログイン状態にする条件付き更新です。
	// 既にログイン中で何も更新されなかった場合は false を返します。
	SetLoggedIn(ctx context.Context, userID string) (bool, error)
}
