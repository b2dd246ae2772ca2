package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/libman/internal/model"
)

// PostgresBookRepo はPostgreSQLを使用した蔵書リポジトリ。
type PostgresBookRepo struct {
	db *sql.DB
}

// NewPostgresBookRepo はPostgresBookRepoを生成する。
func NewPostgresBookRepo(db *sql.DB) *PostgresBookRepo {
	return &PostgresBookRepo{db: db}
}

// FindByID は指定IDの蔵書を取得する。見つからない場合はnilを返す。
func (r *PostgresBookRepo) FindByID(ctx context.Context, id int64) (*model.Book, error) {
	book := &model.Book{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, author, year, isbn, quantity FROM books WHERE id = $1`,
		id,
	).Scan(&book.ID, &book.Title, &book.Author, &book.Year, &book.ISBN, &book.Quantity)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find book by ID: %w", err)
	}

	return book, nil
}

// List は全蔵書をタイトル順で返す。
func (r *PostgresBookRepo) List(ctx context.Context) ([]*model.Book, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, author, year, isbn, quantity FROM books ORDER BY title`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	books := []*model.Book{}
	for rows.Next() {
		book := &model.Book{}
		if err := rows.Scan(&book.ID, &book.Title, &book.Author, &book.Year, &book.ISBN, &book.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate books: %w", err)
	}

	return books, nil
}

// Create は蔵書を作成し、book.IDに採番されたIDを設定する。
// ISBNの一意性は部分一意インデックス（isbn IS NOT NULL）で保証する。
func (r *PostgresBookRepo) Create(ctx context.Context, book *model.Book) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO books (title, author, year, isbn, quantity)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		book.Title, book.Author, book.Year, book.ISBN, book.Quantity,
	).Scan(&book.ID)

	if isUniqueViolation(err, "idx_books_isbn") {
		isbn := ""
		if book.ISBN != nil {
			isbn = *book.ISBN
		}
		return model.NewDuplicateISBNError(isbn)
	}
	if err != nil {
		return fmt.Errorf("failed to insert book: %w", err)
	}

	return nil
}

// Update は全可変フィールドを指定値で上書きする（マージではなく置換）。
// 在庫数の暗黙的な増減は貸出エンジンの管轄であり、ここでは指定値をそのまま書く。
func (r *PostgresBookRepo) Update(ctx context.Context, book *model.Book) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE books SET title = $1, author = $2, year = $3, isbn = $4, quantity = $5 WHERE id = $6`,
		book.Title, book.Author, book.Year, book.ISBN, book.Quantity, book.ID,
	)
	if isUniqueViolation(err, "idx_books_isbn") {
		isbn := ""
		if book.ISBN != nil {
			isbn = *book.ISBN
		}
		return model.NewDuplicateISBNError(isbn)
	}
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewBookNotFoundError(book.ID)
	}

	return nil
}

// Delete は指定IDの蔵書を削除する。
// 未返却の貸出記録の確認と削除を同一トランザクションで行い、
// 確認と削除の間に新しい貸出が入り込まないよう蔵書行をロックする。
func (r *PostgresBookRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lockedID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM books WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&lockedID)
	if err == sql.ErrNoRows {
		return model.NewBookNotFoundError(id)
	}
	if err != nil {
		return fmt.Errorf("failed to lock book: %w", err)
	}

	var hasOpen bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM borrows WHERE book_id = $1 AND return_date IS NULL)`,
		id,
	).Scan(&hasOpen)
	if err != nil {
		return fmt.Errorf("failed to check open borrows: %w", err)
	}
	if hasOpen {
		return model.NewBookHasOpenBorrowsError(id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ BookRepository = (*PostgresBookRepo)(nil)
