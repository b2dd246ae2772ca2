// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/libman/internal/model"
)

// UserRepository は管理ユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成し、user.IDに採番されたIDを設定する。
	// メールアドレスが重複している場合はDUPLICATE_EMAILのAPIErrorを返す。
	Create(ctx context.Context, user *model.User) error
}

// ReaderRepository は利用者データの永続化インターフェース。
type ReaderRepository interface {
	// FindByID は指定IDの利用者を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Reader, error)

	// List は全利用者を名前順で返す。
	List(ctx context.Context) ([]*model.Reader, error)

	// Create は利用者を作成し、reader.IDに採番されたIDを設定する。
	// メールアドレスが重複している場合はDUPLICATE_EMAILのAPIErrorを返す。
	Create(ctx context.Context, reader *model.Reader) error

	// Update は全可変フィールドを指定値で上書きする（マージではなく置換）。
	// 対象が存在しない場合はREADER_NOT_FOUNDのAPIErrorを返す。
	Update(ctx context.Context, reader *model.Reader) error

	// Delete は指定IDの利用者を削除する。
	// 未返却の貸出記録が残っている場合はREADER_HAS_OPEN_BORROWSのAPIErrorを返す。
	// 貸出記録の確認と削除は同一トランザクションで行う。
	Delete(ctx context.Context, id int64) error
}

// BookRepository は蔵書データの永続化インターフェース。
type BookRepository interface {
	// FindByID は指定IDの蔵書を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Book, error)

	// List は全蔵書をタイトル順で返す。
	List(ctx context.Context) ([]*model.Book, error)

	// Create は蔵書を作成し、book.IDに採番されたIDを設定する。
	// ISBNが指定されていて重複している場合はDUPLICATE_ISBNのAPIErrorを返す。
	Create(ctx context.Context, book *model.Book) error

	// Update は全可変フィールドを指定値で上書きする（マージではなく置換）。
	// 対象が存在しない場合はBOOK_NOT_FOUNDのAPIErrorを返す。
	Update(ctx context.Context, book *model.Book) error

	// Delete は指定IDの蔵書を削除する。
	// 未返却の貸出記録が残っている場合はBOOK_HAS_OPEN_BORROWSのAPIErrorを返す。
	// 貸出記録の確認と削除は同一トランザクションで行う。
	Delete(ctx context.Context, id int64) error
}

// LoanRepository は貸出・返却のトランザクションと貸出記録の照会インターフェース。
// CheckoutとReturnは複数エンティティの読み書きを単一トランザクションで行う
// 唯一のコンポーネントであり、途中で失敗した場合は一切の状態変化を残さない。
type LoanRepository interface {
	// Checkout は貸出を1件登録し、蔵書の在庫を1減らす。
	// 蔵書行と利用者行をFOR UPDATEでロックしてから在庫・上限・重複チェックを行うため、
	// 最後の1冊への同時貸出や同一利用者の上限超過貸出は直列化される。
	// 失敗時はBOOK_NOT_FOUND / BOOK_UNAVAILABLE / READER_NOT_FOUND /
	// BORROW_LIMIT_EXCEEDED / ALREADY_BORROWEDのいずれかのAPIErrorを返す。
	Checkout(ctx context.Context, bookID, readerID int64, borrowDate time.Time) (*model.Borrow, error)

	// Return は（book, reader）ペアの最も古い未返却記録を閉じ、在庫を1増やす。
	// 失敗時はBOOK_NOT_FOUND / READER_NOT_FOUND / NOT_BORROWEDのいずれかのAPIErrorを返す。
	Return(ctx context.Context, bookID, readerID int64, returnDate time.Time) (*model.Borrow, error)

	// ListAll は全貸出記録をID順で返す。
	ListAll(ctx context.Context) ([]*model.Borrow, error)

	// ListOpenByReader は指定利用者の未返却の貸出記録をID順で返す。
	ListOpenByReader(ctx context.Context, readerID int64) ([]*model.Borrow, error)
}
