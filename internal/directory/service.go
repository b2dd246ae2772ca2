// Package directory は利用者のCRUDビジネスロジックを提供する。
package directory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/libman/internal/model"
	"github.com/hitoshi/libman/internal/repository"
)

// Service は利用者管理のビジネスロジックを提供する。
type Service struct {
	readerRepo repository.ReaderRepository
}

// NewService はServiceを生成する。
func NewService(readerRepo repository.ReaderRepository) *Service {
	return &Service{readerRepo: readerRepo}
}

// CreateReader は利用者を登録する。メールアドレスが重複する場合はDUPLICATE_EMAILで失敗する。
func (s *Service) CreateReader(ctx context.Context, reader *model.Reader) error {
	if err := s.readerRepo.Create(ctx, reader); err != nil {
		return err
	}

	slog.Info("reader created",
		slog.Int64("reader_id", reader.ID),
	)
	return nil
}

// GetReader は指定IDの利用者を取得する。存在しない場合はREADER_NOT_FOUNDで失敗する。
func (s *Service) GetReader(ctx context.Context, id int64) (*model.Reader, error) {
	reader, err := s.readerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find reader: %w", err)
	}
	if reader == nil {
		return nil, model.NewReaderNotFoundError(id)
	}
	return reader, nil
}

// ListReaders は全利用者を名前順で返す。0件の場合は空スライスを返す。
func (s *Service) ListReaders(ctx context.Context) ([]*model.Reader, error) {
	readers, err := s.readerRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list readers: %w", err)
	}
	return readers, nil
}

// UpdateReader は利用者の全可変フィールドを指定値で置換する。
func (s *Service) UpdateReader(ctx context.Context, reader *model.Reader) error {
	return s.readerRepo.Update(ctx, reader)
}

// DeleteReader は利用者を削除する。
// 未返却の貸出記録が残る利用者はREADER_HAS_OPEN_BORROWSで削除を拒否する。
func (s *Service) DeleteReader(ctx context.Context, id int64) error {
	if err := s.readerRepo.Delete(ctx, id); err != nil {
		return err
	}

	slog.Info("reader deleted",
		slog.Int64("reader_id", id),
	)
	return nil
}
