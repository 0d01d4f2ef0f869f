package auth

import "errors"

// 認証操作のエラー分類。各ハンドラーでHTTPステータスに対応付けます。
var (
	ErrValidation      = errors.New("missing required fields")
	ErrUserExists      = errors.New("user already exists")
	ErrNotFound        = errors.New("user not found")
	ErrAlreadyLoggedIn = errors.New("already logged in from another device")
	ErrUnauthorized    = errors.New("unauthorized")
)
