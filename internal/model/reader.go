// Package model はドメインモデルを定義する。
package model

// Reader は図書館の利用者を表す。
// Emailは作成時に一意性が保証される。
type Reader struct {
	ID    int64
	Name  string
	Email string
}
