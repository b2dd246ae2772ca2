package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/libman/internal/model"
)

// ReaderServiceInterface は利用者ハンドラーが必要とするサービスインターフェース。
type ReaderServiceInterface interface {
	// CreateReader は利用者を登録する。
	CreateReader(ctx context.Context, reader *model.Reader) error
	// GetReader は指定IDの利用者を取得する。
	GetReader(ctx context.Context, id int64) (*model.Reader, error)
	// ListReaders は全利用者を名前順で返す。
	ListReaders(ctx context.Context) ([]*model.Reader, error)
	// UpdateReader は利用者の全可変フィールドを置換する。
	UpdateReader(ctx context.Context, reader *model.Reader) error
	// DeleteReader は利用者を削除する。
	DeleteReader(ctx context.Context, id int64) error
}

// ReaderHandler は利用者管理のHTTPハンドラー。
type ReaderHandler struct {
	service ReaderServiceInterface
}

// NewReaderHandler はReaderHandlerを生成する。
func NewReaderHandler(service ReaderServiceInterface) *ReaderHandler {
	return &ReaderHandler{service: service}
}

// readerRequest は利用者の作成・更新リクエストのボディ。
type readerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// readerResponse は利用者一覧のAPIレスポンス要素。
type readerResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// readerDetailResponse は利用者詳細のAPIレスポンス。
type readerDetailResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateReader は利用者登録を処理する。
// POST /api/readers
func (h *ReaderHandler) CreateReader(w http.ResponseWriter, r *http.Request) {
	var req readerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w, "JSONの解析に失敗しました")
		return
	}
	if req.Name == "" || req.Email == "" {
		writeInvalidRequest(w, "nameとemailは必須です")
		return
	}

	reader := &model.Reader{Name: req.Name, Email: req.Email}
	if err := h.service.CreateReader(r.Context(), reader); err != nil {
		handleServiceError(w, err)
		return
	}

	writeOK(w)
}

// GetReader は利用者詳細を取得する。
// GET /api/readers/{id}
func (h *ReaderHandler) GetReader(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	reader, err := h.service.GetReader(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, readerDetailResponse{
		Name:  reader.Name,
		Email: reader.Email,
	})
}

// ListReaders は利用者一覧を名前順で返す。
// GET /api/readers
func (h *ReaderHandler) ListReaders(w http.ResponseWriter, r *http.Request) {
	readers, err := h.service.ListReaders(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]readerResponse, 0, len(readers))
	for _, reader := range readers {
		resp = append(resp, readerResponse{
			ID:    reader.ID,
			Name:  reader.Name,
			Email: reader.Email,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateReader は利用者の全可変フィールドを置換する。
// PUT /api/readers/{id}
func (h *ReaderHandler) UpdateReader(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req readerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w, "JSONの解析に失敗しました")
		return
	}
	if req.Name == "" || req.Email == "" {
		writeInvalidRequest(w, "nameとemailは必須です")
		return
	}

	reader := &model.Reader{ID: id, Name: req.Name, Email: req.Email}
	if err := h.service.UpdateReader(r.Context(), reader); err != nil {
		handleServiceError(w, err)
		return
	}

	writeOK(w)
}

// DeleteReader は利用者を削除する。
// DELETE /api/readers/{id}
func (h *ReaderHandler) DeleteReader(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteReader(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	writeOK(w)
}

// parseIDParam はURLパスの{id}パラメータを解析する。
// 解析に失敗した場合は400レスポンスを書き込み、falseを返す。
func parseIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeInvalidRequest(w, "idは正の整数で指定してください")
		return 0, false
	}
	return id, true
}
