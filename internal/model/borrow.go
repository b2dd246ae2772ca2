// Package model はドメインモデルを定義する。
package model

import "time"

// Borrow は貸出記録を表す。
// ReturnDateがnilの記録を「未返却（open）」、設定済みの記録を「返却済み（closed）」と呼ぶ。
// 同一の（book, reader）ペアに対して未返却の記録は同時に最大1件、
// 1人の利用者が同時に持てる未返却の記録は最大 MaxOpenBorrows 件。
type Borrow struct {
	ID         int64
	BookID     int64
	ReaderID   int64
	BorrowDate time.Time
	ReturnDate *time.Time
}

// MaxOpenBorrows は1人の利用者が同時に借りられる上限冊数。
const MaxOpenBorrows = 3

// IsOpen は未返却の貸出記録かどうかを返す。
func (b *Borrow) IsOpen() bool {
	return b.ReturnDate == nil
}
