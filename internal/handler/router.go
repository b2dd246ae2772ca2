package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/libman/internal/metrics"
	"github.com/hitoshi/libman/internal/middleware"
)

// HealthChecker はデータベース接続の疎通確認インターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier middleware.TokenVerifier
	RateLimiter   *middleware.RateLimiter
	Metrics       middleware.HTTPMetricsRecorder
	Gatherer      prometheus.Gatherer

	// ヘルスチェック
	HealthChecker HealthChecker

	// 認証
	AuthService AuthServiceInterface

	// 利用者
	ReaderService ReaderServiceInterface

	// 蔵書
	BookService BookServiceInterface

	// 貸出
	LoanService LoanServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → Metrics
//
// 保護ルートにはさらに Auth → RateLimit(General) が追加される。
// 認証ルート（/auth/*）はトークン検証の外に置き、IP単位のレート制限のみ適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService)
	readerHandler := NewReaderHandler(deps.ReaderService)
	bookHandler := NewBookHandler(deps.BookService)
	loanHandler := NewLoanHandler(deps.LoanService)

	// --- 認証不要のルート ---

	r.Get("/", handleRoot)
	r.Get("/health", newHealthHandler(deps.HealthChecker))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	// 認証ルート（IP単位のレート制限のみ）
	r.Route("/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// --- APIルート ---
	// 保護エンドポイントのミドルウェアスタック: Auth → RateLimit(General)。
	// 公開メソッドと保護メソッドが同一パスに同居するため、
	// サブルーター全体ではなくルート単位で認証を適用する。
	authn := middleware.NewAuthMiddleware(deps.TokenVerifier)
	limit := deps.RateLimiter.GeneralMiddleware()

	// 利用者管理（自己登録のみ公開）
	r.Route("/api/readers", func(r chi.Router) {
		r.Post("/", readerHandler.CreateReader)
		r.With(authn, limit).Get("/", readerHandler.ListReaders)

		r.Route("/{id}", func(r chi.Router) {
			r.Use(authn, limit)
			r.Get("/", readerHandler.GetReader)
			r.Put("/", readerHandler.UpdateReader)
			r.Delete("/", readerHandler.DeleteReader)

			// GET /api/readers/{id}/borrows - 未返却の貸出記録一覧
			r.Get("/borrows", loanHandler.ListReaderOpenBorrows)
		})
	})

	// 蔵書管理（一覧のみ公開）
	r.Route("/api/books", func(r chi.Router) {
		r.Get("/", bookHandler.ListBooks)
		r.With(authn, limit).Post("/", bookHandler.CreateBook)

		r.Route("/{id}", func(r chi.Router) {
			r.Use(authn, limit)
			r.Get("/", bookHandler.GetBook)
			r.Put("/", bookHandler.UpdateBook)
			r.Delete("/", bookHandler.DeleteBook)
		})
	})

	// 貸出管理（全エンドポイント保護）
	r.Route("/api/loans", func(r chi.Router) {
		r.Use(authn, limit)
		r.Get("/", loanHandler.ListBorrows)
		r.Post("/checkout", loanHandler.Checkout)
		r.Post("/return", loanHandler.Return)
	})

	return r
}

// handleRoot はサービスのバナーを返す。
// GET /
func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "libman",
		"message": "図書館管理APIへようこそ",
	})
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := checker.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
