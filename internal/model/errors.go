// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, loan, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeDuplicateEmail       = "DUPLICATE_EMAIL"
	ErrCodeInvalidCredential    = "INVALID_CREDENTIAL"
	ErrCodeNotAdmin             = "NOT_ADMIN"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeReaderNotFound       = "READER_NOT_FOUND"
	ErrCodeBookNotFound         = "BOOK_NOT_FOUND"
	ErrCodeDuplicateISBN        = "DUPLICATE_ISBN"
	ErrCodeBookUnavailable      = "BOOK_UNAVAILABLE"
	ErrCodeBorrowLimitExceeded  = "BORROW_LIMIT_EXCEEDED"
	ErrCodeAlreadyBorrowed      = "ALREADY_BORROWED"
	ErrCodeNotBorrowed          = "NOT_BORROWED"
	ErrCodeBookHasOpenBorrows   = "BOOK_HAS_OPEN_BORROWS"
	ErrCodeReaderHasOpenBorrows = "READER_HAS_OPEN_BORROWS"
)

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", email),
		Category: "auth",
		Action:   "メールアドレスを確認してください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
// ユーザー登録と利用者登録の両方で使用する。
func NewDuplicateEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  fmt.Sprintf("このメールアドレスは既に登録されています: %s", email),
		Category: "validation",
		Action:   "別のメールアドレスを使用してください。",
	}
}

// NewInvalidCredentialError は認証情報不一致エラーを生成する。
func NewInvalidCredentialError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredential,
		Message:  "パスワードが一致しません。",
		Category: "auth",
		Action:   "パスワードを確認してください。",
	}
}

// NewNotAdminError は管理者権限なしエラーを生成する。
func NewNotAdminError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAdmin,
		Message:  "このユーザーには管理者権限がありません。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
// トークンの欠落・不正・署名エラーのすべてでこのエラーを返す。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてアクセストークンを取得してください。",
	}
}

// NewReaderNotFoundError は利用者未検出エラーを生成する。
func NewReaderNotFoundError(readerID int64) *APIError {
	return &APIError{
		Code:     ErrCodeReaderNotFound,
		Message:  fmt.Sprintf("指定された利用者が見つかりません: %d", readerID),
		Category: "catalog",
		Action:   "利用者IDを確認してください。",
	}
}

// NewBookNotFoundError は蔵書未検出エラーを生成する。
func NewBookNotFoundError(bookID int64) *APIError {
	return &APIError{
		Code:     ErrCodeBookNotFound,
		Message:  fmt.Sprintf("指定された蔵書が見つかりません: %d", bookID),
		Category: "catalog",
		Action:   "蔵書IDを確認してください。",
	}
}

// NewDuplicateISBNError はISBN重複エラーを生成する。
func NewDuplicateISBNError(isbn string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateISBN,
		Message:  fmt.Sprintf("このISBNは既に登録されています: %s", isbn),
		Category: "validation",
		Action:   "登録済みの蔵書を確認してください。",
	}
}

// NewBookUnavailableError は在庫なしエラーを生成する。
func NewBookUnavailableError(bookID int64) *APIError {
	return &APIError{
		Code:     ErrCodeBookUnavailable,
		Message:  fmt.Sprintf("この蔵書は現在貸出できません（在庫0）: %d", bookID),
		Category: "loan",
		Action:   "返却を待つか、別の蔵書を選んでください。",
	}
}

// NewBorrowLimitExceededError は貸出上限超過エラーを生成する。
func NewBorrowLimitExceededError(readerID int64) *APIError {
	return &APIError{
		Code:     ErrCodeBorrowLimitExceeded,
		Message:  fmt.Sprintf("この利用者は既に上限（%d冊）まで借りています: %d", MaxOpenBorrows, readerID),
		Category: "loan",
		Action:   "いずれかの蔵書を返却してから借りてください。",
	}
}

// NewAlreadyBorrowedError は同一蔵書の重複貸出エラーを生成する。
// 同一の（book, reader）ペアに未返却の貸出記録は同時に1件まで。
func NewAlreadyBorrowedError(bookID, readerID int64) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyBorrowed,
		Message:  fmt.Sprintf("この利用者は既にこの蔵書を借りています: book=%d reader=%d", bookID, readerID),
		Category: "loan",
		Action:   "返却してから再度借りてください。",
	}
}

// NewNotBorrowedError は未貸出の返却エラーを生成する。
func NewNotBorrowedError(bookID, readerID int64) *APIError {
	return &APIError{
		Code:     ErrCodeNotBorrowed,
		Message:  fmt.Sprintf("この利用者への未返却の貸出記録がありません: book=%d reader=%d", bookID, readerID),
		Category: "loan",
		Action:   "蔵書IDと利用者IDを確認してください。",
	}
}

// NewBookHasOpenBorrowsError は未返却貸出が残る蔵書の削除エラーを生成する。
func NewBookHasOpenBorrowsError(bookID int64) *APIError {
	return &APIError{
		Code:     ErrCodeBookHasOpenBorrows,
		Message:  fmt.Sprintf("未返却の貸出記録が残っているため削除できません: book=%d", bookID),
		Category: "loan",
		Action:   "すべての貸出が返却されてから削除してください。",
	}
}

// NewReaderHasOpenBorrowsError は未返却貸出が残る利用者の削除エラーを生成する。
func NewReaderHasOpenBorrowsError(readerID int64) *APIError {
	return &APIError{
		Code:     ErrCodeReaderHasOpenBorrows,
		Message:  fmt.Sprintf("未返却の貸出記録が残っているため削除できません: reader=%d", readerID),
		Category: "loan",
		Action:   "すべての蔵書が返却されてから削除してください。",
	}
}
