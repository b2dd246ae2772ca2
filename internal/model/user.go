// Package model はドメインモデルを定義する。
package model

// User は管理APIの利用者を表す。
// PasswordHashにはbcryptによるソルト付きハッシュのみを保存し、平文は保持しない。
// アクセストークンを取得できるのはIsAdminがtrueのユーザーのみ。
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsAdmin      bool
}
