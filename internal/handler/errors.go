package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/libman/internal/model"
)

// messageResponse は{"message":"OK"}形式の成功レスポンス。
type messageResponse struct {
	Message string `json:"message"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeOK は{"message":"OK"}の成功レスポンスを書き込む。
func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "OK"})
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeInvalidRequest はリクエストボディの解析・検証失敗レスポンスを書き込む。
func writeInvalidRequest(w http.ResponseWriter, reason string) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストが不正です: " + reason,
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUserNotFound, model.ErrCodeReaderNotFound, model.ErrCodeBookNotFound:
		return http.StatusNotFound
	case model.ErrCodeDuplicateEmail, model.ErrCodeDuplicateISBN:
		return http.StatusBadRequest
	case model.ErrCodeBookUnavailable, model.ErrCodeBorrowLimitExceeded,
		model.ErrCodeAlreadyBorrowed, model.ErrCodeNotBorrowed:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredential, model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeNotAdmin:
		return http.StatusForbidden
	case model.ErrCodeBookHasOpenBorrows, model.ErrCodeReaderHasOpenBorrows:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
