package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/libman/internal/model"
)

// LoanServiceInterface は貸出ハンドラーが必要とするサービスインターフェース。
type LoanServiceInterface interface {
	// Checkout は蔵書を利用者に貸し出す。
	Checkout(ctx context.Context, bookID, readerID int64) (*model.Borrow, error)
	// Return は貸し出された蔵書の返却を記録する。
	Return(ctx context.Context, bookID, readerID int64) (*model.Borrow, error)
	// ListBorrows は全貸出記録をID順で返す。
	ListBorrows(ctx context.Context) ([]*model.Borrow, error)
	// ListReaderOpenBorrows は指定利用者の未返却の貸出記録を返す。
	ListReaderOpenBorrows(ctx context.Context, readerID int64) ([]*model.Borrow, error)
}

// LoanHandler は貸出・返却のHTTPハンドラー。
type LoanHandler struct {
	service LoanServiceInterface
}

// NewLoanHandler はLoanHandlerを生成する。
func NewLoanHandler(service LoanServiceInterface) *LoanHandler {
	return &LoanHandler{service: service}
}

// loanRequest は貸出・返却リクエストのボディ。
type loanRequest struct {
	BookID   int64 `json:"book_id"`
	ReaderID int64 `json:"reader_id"`
}

// borrowResponse は貸出記録のAPIレスポンス要素。
// 日付はYYYY-MM-DD形式、未返却の場合return_dateはnull。
type borrowResponse struct {
	ID         int64   `json:"id"`
	BookID     int64   `json:"book_id"`
	ReaderID   int64   `json:"reader_id"`
	BorrowDate string  `json:"borrow_date"`
	ReturnDate *string `json:"return_date"`
}

const borrowDateFormat = "2006-01-02"

// toBorrowResponse はドメインモデルをAPIレスポンスに変換する。
func toBorrowResponse(b *model.Borrow) borrowResponse {
	resp := borrowResponse{
		ID:         b.ID,
		BookID:     b.BookID,
		ReaderID:   b.ReaderID,
		BorrowDate: b.BorrowDate.Format(borrowDateFormat),
	}
	if b.ReturnDate != nil {
		returned := b.ReturnDate.Format(borrowDateFormat)
		resp.ReturnDate = &returned
	}
	return resp
}

// decodeLoanRequest は貸出・返却リクエストを解析・検証する。
// 失敗した場合は400レスポンスを書き込み、falseを返す。
func decodeLoanRequest(w http.ResponseWriter, r *http.Request) (loanRequest, bool) {
	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w, "JSONの解析に失敗しました")
		return loanRequest{}, false
	}
	if req.BookID <= 0 || req.ReaderID <= 0 {
		writeInvalidRequest(w, "book_idとreader_idは正の整数で指定してください")
		return loanRequest{}, false
	}
	return req, true
}

// Checkout は貸出を処理する。
// POST /api/loans/checkout
func (h *LoanHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLoanRequest(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Checkout(r.Context(), req.BookID, req.ReaderID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeOK(w)
}

// Return は返却を処理する。
// POST /api/loans/return
func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLoanRequest(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Return(r.Context(), req.BookID, req.ReaderID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeOK(w)
}

// ListBorrows は全貸出記録をID順で返す。
// GET /api/loans
func (h *LoanHandler) ListBorrows(w http.ResponseWriter, r *http.Request) {
	borrows, err := h.service.ListBorrows(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]borrowResponse, 0, len(borrows))
	for _, b := range borrows {
		resp = append(resp, toBorrowResponse(b))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListReaderOpenBorrows は指定利用者の未返却の貸出記録を返す。
// GET /api/readers/{id}/borrows
func (h *LoanHandler) ListReaderOpenBorrows(w http.ResponseWriter, r *http.Request) {
	readerID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	borrows, err := h.service.ListReaderOpenBorrows(r.Context(), readerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]borrowResponse, 0, len(borrows))
	for _, b := range borrows {
		resp = append(resp, toBorrowResponse(b))
	}

	writeJSON(w, http.StatusOK, resp)
}
