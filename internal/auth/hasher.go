// Package auth は認証のコアロジック（登録・ログイン・ログアウト）を提供します。
package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost はハッシュ計算の作業係数です。
// ログイン応答時間と総当たり耐性のバランスとして 10 に固定しています。
const bcryptCost = 10

// HashPassword は平文パスワードから bcrypt ハッシュを生成します。
// ソルトは毎回ランダムに生成され、ハッシュ文字列自体に埋め込まれます。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword は平文パスワードとハッシュを定数時間で照合します。
// ハッシュが不正な形式の場合も panic せず false を返します（フェイルクローズ）。
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
