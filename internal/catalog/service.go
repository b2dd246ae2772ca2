// Package catalog は蔵書のCRUDビジネスロジックを提供する。
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/libman/internal/model"
	"github.com/hitoshi/libman/internal/repository"
)

// Service は蔵書管理のビジネスロジックを提供する。
type Service struct {
	bookRepo repository.BookRepository
}

// NewService はServiceを生成する。
func NewService(bookRepo repository.BookRepository) *Service {
	return &Service{bookRepo: bookRepo}
}

// CreateBook は蔵書を登録する。ISBNが重複する場合はDUPLICATE_ISBNで失敗する。
func (s *Service) CreateBook(ctx context.Context, book *model.Book) error {
	if err := s.bookRepo.Create(ctx, book); err != nil {
		return err
	}

	slog.Info("book created",
		slog.Int64("book_id", book.ID),
		slog.String("title", book.Title),
	)
	return nil
}

// GetBook は指定IDの蔵書を取得する。存在しない場合はBOOK_NOT_FOUNDで失敗する。
func (s *Service) GetBook(ctx context.Context, id int64) (*model.Book, error) {
	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find book: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(id)
	}
	return book, nil
}

// ListBooks は全蔵書をタイトル順で返す。0件の場合は空スライスを返す。
func (s *Service) ListBooks(ctx context.Context) ([]*model.Book, error) {
	books, err := s.bookRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// UpdateBook は蔵書の全可変フィールドを指定値で置換する。
func (s *Service) UpdateBook(ctx context.Context, book *model.Book) error {
	return s.bookRepo.Update(ctx, book)
}

// DeleteBook は蔵書を削除する。
// 未返却の貸出記録が残る蔵書はBOOK_HAS_OPEN_BORROWSで削除を拒否する。
func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	if err := s.bookRepo.Delete(ctx, id); err != nil {
		return err
	}

	slog.Info("book deleted",
		slog.Int64("book_id", id),
	)
	return nil
}
