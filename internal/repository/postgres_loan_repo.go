package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/libman/internal/model"
)

// PostgresLoanRepo はPostgreSQLを使用した貸出リポジトリ。
// 貸出と返却は蔵書・利用者・貸出記録を同時に読み書きするため、
// それぞれ単一トランザクション内で実行する。
type PostgresLoanRepo struct {
	db *sql.DB
}

// NewPostgresLoanRepo はPostgresLoanRepoを生成する。
func NewPostgresLoanRepo(db *sql.DB) *PostgresLoanRepo {
	return &PostgresLoanRepo{db: db}
}

// Checkout は貸出を1件登録し、蔵書の在庫を1減らす。
//
// ロック順序は蔵書→利用者で固定する（Returnと同一。逆順で取るトランザクションが
// 存在しないためデッドロックしない）。蔵書行のロックにより最後の1冊への同時貸出が、
// 利用者行のロックにより同一利用者の上限チェックの競合が直列化される。
func (r *PostgresLoanRepo) Checkout(ctx context.Context, bookID, readerID int64, borrowDate time.Time) (*model.Borrow, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. 蔵書行をロックして在庫を確認
	var quantity int
	err = tx.QueryRowContext(ctx,
		`SELECT quantity FROM books WHERE id = $1 FOR UPDATE`,
		bookID,
	).Scan(&quantity)
	if err == sql.ErrNoRows {
		return nil, model.NewBookNotFoundError(bookID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock book: %w", err)
	}
	if quantity == 0 {
		return nil, model.NewBookUnavailableError(bookID)
	}

	// 2. 利用者行をロック
	var lockedReaderID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM readers WHERE id = $1 FOR UPDATE`,
		readerID,
	).Scan(&lockedReaderID)
	if err == sql.ErrNoRows {
		return nil, model.NewReaderNotFoundError(readerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock reader: %w", err)
	}

	// 3. 貸出上限チェック（利用者行ロック下で読むため同時貸出と競合しない）
	var openCount int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM borrows WHERE reader_id = $1 AND return_date IS NULL`,
		readerID,
	).Scan(&openCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count open borrows: %w", err)
	}
	if openCount >= model.MaxOpenBorrows {
		return nil, model.NewBorrowLimitExceededError(readerID)
	}

	// 4. 同一（book, reader）ペアの重複貸出チェック
	var alreadyBorrowed bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM borrows
			WHERE book_id = $1 AND reader_id = $2 AND return_date IS NULL
		)`,
		bookID, readerID,
	).Scan(&alreadyBorrowed)
	if err != nil {
		return nil, fmt.Errorf("failed to check duplicate borrow: %w", err)
	}
	if alreadyBorrowed {
		return nil, model.NewAlreadyBorrowedError(bookID, readerID)
	}

	// 5. 貸出記録の挿入と在庫の減算
	borrow := &model.Borrow{
		BookID:     bookID,
		ReaderID:   readerID,
		BorrowDate: borrowDate,
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO borrows (book_id, reader_id, borrow_date)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		bookID, readerID, borrowDate,
	).Scan(&borrow.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert borrow: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE books SET quantity = quantity - 1 WHERE id = $1`,
		bookID,
	); err != nil {
		return nil, fmt.Errorf("failed to decrement quantity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return borrow, nil
}

// Return は（book, reader）ペアの最も古い未返却記録を閉じ、在庫を1増やす。
// 未返却記録の存在判定は検索結果そのものに対して行う。
func (r *PostgresLoanRepo) Return(ctx context.Context, bookID, readerID int64, returnDate time.Time) (*model.Borrow, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. 蔵書行をロック（Checkoutと同じロック順序）
	var lockedBookID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM books WHERE id = $1 FOR UPDATE`,
		bookID,
	).Scan(&lockedBookID)
	if err == sql.ErrNoRows {
		return nil, model.NewBookNotFoundError(bookID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock book: %w", err)
	}

	// 2. 利用者の存在確認
	var lockedReaderID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM readers WHERE id = $1 FOR UPDATE`,
		readerID,
	).Scan(&lockedReaderID)
	if err == sql.ErrNoRows {
		return nil, model.NewReaderNotFoundError(readerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock reader: %w", err)
	}

	// 3. 最も古い未返却記録を特定してロック
	borrow := &model.Borrow{BookID: bookID, ReaderID: readerID}
	err = tx.QueryRowContext(ctx,
		`SELECT id, borrow_date FROM borrows
		 WHERE book_id = $1 AND reader_id = $2 AND return_date IS NULL
		 ORDER BY id
		 LIMIT 1
		 FOR UPDATE`,
		bookID, readerID,
	).Scan(&borrow.ID, &borrow.BorrowDate)
	if err == sql.ErrNoRows {
		return nil, model.NewNotBorrowedError(bookID, readerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock open borrow: %w", err)
	}

	// 4. 記録を閉じて在庫を加算
	if _, err := tx.ExecContext(ctx,
		`UPDATE borrows SET return_date = $1 WHERE id = $2`,
		returnDate, borrow.ID,
	); err != nil {
		return nil, fmt.Errorf("failed to close borrow: %w", err)
	}
	borrow.ReturnDate = &returnDate

	if _, err := tx.ExecContext(ctx,
		`UPDATE books SET quantity = quantity + 1 WHERE id = $1`,
		bookID,
	); err != nil {
		return nil, fmt.Errorf("failed to increment quantity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return borrow, nil
}

// ListAll は全貸出記録をID順で返す。
func (r *PostgresLoanRepo) ListAll(ctx context.Context) ([]*model.Borrow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, book_id, reader_id, borrow_date, return_date FROM borrows ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list borrows: %w", err)
	}
	defer rows.Close()

	return scanBorrows(rows)
}

// ListOpenByReader は指定利用者の未返却の貸出記録をID順で返す。
func (r *PostgresLoanRepo) ListOpenByReader(ctx context.Context, readerID int64) ([]*model.Borrow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, book_id, reader_id, borrow_date, return_date FROM borrows
		 WHERE reader_id = $1 AND return_date IS NULL
		 ORDER BY id`,
		readerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list open borrows: %w", err)
	}
	defer rows.Close()

	return scanBorrows(rows)
}

// scanBorrows は検索結果を貸出記録のスライスに変換する。
func scanBorrows(rows *sql.Rows) ([]*model.Borrow, error) {
	borrows := []*model.Borrow{}
	for rows.Next() {
		borrow := &model.Borrow{}
		var returnDate sql.NullTime
		if err := rows.Scan(&borrow.ID, &borrow.BookID, &borrow.ReaderID, &borrow.BorrowDate, &returnDate); err != nil {
			return nil, fmt.Errorf("failed to scan borrow: %w", err)
		}
		if returnDate.Valid {
			t := returnDate.Time
			borrow.ReturnDate = &t
		}
		borrows = append(borrows, borrow)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate borrows: %w", err)
	}

	return borrows, nil
}

// compile-time interface check
var _ LoanRepository = (*PostgresLoanRepo)(nil)
