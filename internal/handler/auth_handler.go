package handler

import (
	"context"
	"encoding/json"
	"net/http"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は管理APIユーザーを登録する。
	Register(ctx context.Context, email, password string) error
	// Login は認証情報を検証し、ベアラートークンを発行する。
	Login(ctx context.Context, email, password string) (string, error)
}

// AuthHandler は登録・ログインのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// credentialsRequest は登録・ログインリクエストのボディ。
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse はログイン成功時のレスポンス。
type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// Register はユーザー登録を処理する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w, "JSONの解析に失敗しました")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeInvalidRequest(w, "emailとpasswordは必須です")
		return
	}

	if err := h.service.Register(r.Context(), req.Email, req.Password); err != nil {
		handleServiceError(w, err)
		return
	}

	writeOK(w)
}

// Login はログインを処理し、アクセストークンを返す。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w, "JSONの解析に失敗しました")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeInvalidRequest(w, "emailとpasswordは必須です")
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token})
}
