// Package loan は貸出・返却の状態遷移とその不変条件の維持を提供する。
//
// 貸出と返却は蔵書・利用者・貸出記録を同時に読み書きする唯一の操作であり、
// 原子性の保証はrepository.LoanRepositoryのトランザクションに委ねる。
// エンジンは自動リトライを行わず、失敗はそのまま呼び出し元に返す。
package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/libman/internal/model"
	"github.com/hitoshi/libman/internal/repository"
)

// MetricsRecorder は貸出エンジンが記録するメトリクスのインターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordCheckout()
	RecordReturn()
	RecordLoanRejection(reason string)
}

// Service は貸出ライフサイクルのビジネスロジックを提供する。
type Service struct {
	loanRepo repository.LoanRepository
	metrics  MetricsRecorder
}

// NewService はServiceを生成する。
func NewService(loanRepo repository.LoanRepository, metrics MetricsRecorder) *Service {
	return &Service{
		loanRepo: loanRepo,
		metrics:  metrics,
	}
}

// Checkout は蔵書を利用者に貸し出す。
// 在庫なし・貸出上限超過・同一蔵書の重複貸出は業務エラーとして拒否され、
// いずれの失敗でも状態変化は一切残らない。
func (s *Service) Checkout(ctx context.Context, bookID, readerID int64) (*model.Borrow, error) {
	borrow, err := s.loanRepo.Checkout(ctx, bookID, readerID, time.Now())
	if err != nil {
		s.recordRejection(err)
		return nil, err
	}

	s.metrics.RecordCheckout()
	slog.Info("book checked out",
		slog.Int64("book_id", bookID),
		slog.Int64("reader_id", readerID),
		slog.Int64("borrow_id", borrow.ID),
	)
	return borrow, nil
}

// Return は貸し出された蔵書の返却を記録する。
// （book, reader）ペアに未返却の記録がない場合はNOT_BORROWEDで失敗し、
// 在庫を含む一切の状態を変更しない。
func (s *Service) Return(ctx context.Context, bookID, readerID int64) (*model.Borrow, error) {
	borrow, err := s.loanRepo.Return(ctx, bookID, readerID, time.Now())
	if err != nil {
		s.recordRejection(err)
		return nil, err
	}

	s.metrics.RecordReturn()
	slog.Info("book returned",
		slog.Int64("book_id", bookID),
		slog.Int64("reader_id", readerID),
		slog.Int64("borrow_id", borrow.ID),
	)
	return borrow, nil
}

// ListBorrows は全貸出記録をID順で返す。
func (s *Service) ListBorrows(ctx context.Context) ([]*model.Borrow, error) {
	borrows, err := s.loanRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list borrows: %w", err)
	}
	return borrows, nil
}

// ListReaderOpenBorrows は指定利用者の未返却の貸出記録を返す。
func (s *Service) ListReaderOpenBorrows(ctx context.Context, readerID int64) ([]*model.Borrow, error) {
	borrows, err := s.loanRepo.ListOpenByReader(ctx, readerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open borrows: %w", err)
	}
	return borrows, nil
}

// recordRejection は業務エラーによる拒否をメトリクスに記録する。
// インフラ障害（APIError以外）は拒否として数えない。
func (s *Service) recordRejection(err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		s.metrics.RecordLoanRejection(apiErr.Code)
	}
}
