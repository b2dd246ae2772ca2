package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/libman/internal/model"
)

// BookServiceInterface は蔵書ハンドラーが必要とするサービスインターフェース。
type BookServiceInterface interface {
	// CreateBook は蔵書を登録する。
	CreateBook(ctx context.Context, book *model.Book) error
	// GetBook は指定IDの蔵書を取得する。
	GetBook(ctx context.Context, id int64) (*model.Book, error)
	// ListBooks は全蔵書をタイトル順で返す。
	ListBooks(ctx context.Context) ([]*model.Book, error)
	// UpdateBook は蔵書の全可変フィールドを置換する。
	UpdateBook(ctx context.Context, book *model.Book) error
	// DeleteBook は蔵書を削除する。
	DeleteBook(ctx context.Context, id int64) error
}

// BookHandler は蔵書管理のHTTPハンドラー。
type BookHandler struct {
	service BookServiceInterface
}

// NewBookHandler はBookHandlerを生成する。
func NewBookHandler(service BookServiceInterface) *BookHandler {
	return &BookHandler{service: service}
}

// bookRequest は蔵書の作成・更新リクエストのボディ。
// Quantityが省略された場合は1冊として扱う。
type bookRequest struct {
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Year     *int    `json:"year"`
	ISBN     *string `json:"isbn"`
	Quantity *int    `json:"quantity"`
}

// bookListResponse は蔵書一覧のAPIレスポンス要素。
type bookListResponse struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Quantity int    `json:"quantity"`
}

// bookDetailResponse は蔵書詳細のAPIレスポンス。
type bookDetailResponse struct {
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Year     *int    `json:"year"`
	ISBN     *string `json:"isbn"`
	Quantity int     `json:"quantity"`
}

// toBook はリクエストボディを検証してドメインモデルに変換する。
func (req *bookRequest) toBook(id int64) (*model.Book, string) {
	if req.Title == "" || req.Author == "" {
		return nil, "titleとauthorは必須です"
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity < 0 {
		return nil, "quantityは0以上で指定してください"
	}

	return &model.Book{
		ID:       id,
		Title:    req.Title,
		Author:   req.Author,
		Year:     req.Year,
		ISBN:     req.ISBN,
		Quantity: quantity,
	}, ""
}

// CreateBook は蔵書登録を処理する。
// POST /api/books
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w, "JSONの解析に失敗しました")
		return
	}

	book, reason := req.toBook(0)
	if reason != "" {
		writeInvalidRequest(w, reason)
		return
	}

	if err := h.service.CreateBook(r.Context(), book); err != nil {
		handleServiceError(w, err)
		return
	}

	writeOK(w)
}

// GetBook は蔵書詳細を取得する。
// GET /api/books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bookDetailResponse{
		Title:    book.Title,
		Author:   book.Author,
		Year:     book.Year,
		ISBN:     book.ISBN,
		Quantity: book.Quantity,
	})
}

// ListBooks は蔵書一覧をタイトル順で返す。
// GET /api/books
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]bookListResponse, 0, len(books))
	for _, book := range books {
		resp = append(resp, bookListResponse{
			ID:       book.ID,
			Title:    book.Title,
			Author:   book.Author,
			Quantity: book.Quantity,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateBook は蔵書の全可変フィールドを置換する。
// PUT /api/books/{id}
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w, "JSONの解析に失敗しました")
		return
	}

	book, reason := req.toBook(id)
	if reason != "" {
		writeInvalidRequest(w, reason)
		return
	}

	if err := h.service.UpdateBook(r.Context(), book); err != nil {
		handleServiceError(w, err)
		return
	}

	writeOK(w)
}

// DeleteBook は蔵書を削除する。
// DELETE /api/books/{id}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	writeOK(w)
}
