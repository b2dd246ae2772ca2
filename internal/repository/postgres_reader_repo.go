package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/libman/internal/model"
)

// PostgresReaderRepo はPostgreSQLを使用した利用者リポジトリ。
type PostgresReaderRepo struct {
	db *sql.DB
}

// NewPostgresReaderRepo はPostgresReaderRepoを生成する。
func NewPostgresReaderRepo(db *sql.DB) *PostgresReaderRepo {
	return &PostgresReaderRepo{db: db}
}

// FindByID は指定IDの利用者を取得する。見つからない場合はnilを返す。
func (r *PostgresReaderRepo) FindByID(ctx context.Context, id int64) (*model.Reader, error) {
	reader := &model.Reader{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email FROM readers WHERE id = $1`,
		id,
	).Scan(&reader.ID, &reader.Name, &reader.Email)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reader by ID: %w", err)
	}

	return reader, nil
}

// List は全利用者を名前順で返す。
func (r *PostgresReaderRepo) List(ctx context.Context) ([]*model.Reader, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email FROM readers ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list readers: %w", err)
	}
	defer rows.Close()

	readers := []*model.Reader{}
	for rows.Next() {
		reader := &model.Reader{}
		if err := rows.Scan(&reader.ID, &reader.Name, &reader.Email); err != nil {
			return nil, fmt.Errorf("failed to scan reader: %w", err)
		}
		readers = append(readers, reader)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readers: %w", err)
	}

	return readers, nil
}

// Create は利用者を作成し、reader.IDに採番されたIDを設定する。
func (r *PostgresReaderRepo) Create(ctx context.Context, reader *model.Reader) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO readers (name, email) VALUES ($1, $2) RETURNING id`,
		reader.Name, reader.Email,
	).Scan(&reader.ID)

	if isUniqueViolation(err, "readers_email_key") {
		return model.NewDuplicateEmailError(reader.Email)
	}
	if err != nil {
		return fmt.Errorf("failed to insert reader: %w", err)
	}

	return nil
}

// Update は全可変フィールドを指定値で上書きする（マージではなく置換）。
func (r *PostgresReaderRepo) Update(ctx context.Context, reader *model.Reader) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE readers SET name = $1, email = $2 WHERE id = $3`,
		reader.Name, reader.Email, reader.ID,
	)
	if isUniqueViolation(err, "readers_email_key") {
		return model.NewDuplicateEmailError(reader.Email)
	}
	if err != nil {
		return fmt.Errorf("failed to update reader: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewReaderNotFoundError(reader.ID)
	}

	return nil
}

// Delete は指定IDの利用者を削除する。
// 未返却の貸出記録の確認と削除を同一トランザクションで行い、
// 確認と削除の間に新しい貸出が入り込まないよう利用者行をロックする。
func (r *PostgresReaderRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lockedID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM readers WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&lockedID)
	if err == sql.ErrNoRows {
		return model.NewReaderNotFoundError(id)
	}
	if err != nil {
		return fmt.Errorf("failed to lock reader: %w", err)
	}

	var hasOpen bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM borrows WHERE reader_id = $1 AND return_date IS NULL)`,
		id,
	).Scan(&hasOpen)
	if err != nil {
		return fmt.Errorf("failed to check open borrows: %w", err)
	}
	if hasOpen {
		return model.NewReaderHasOpenBorrowsError(id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM readers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete reader: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ ReaderRepository = (*PostgresReaderRepo)(nil)
