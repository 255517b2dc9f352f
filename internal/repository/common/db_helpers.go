package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// GetOne читает одну строку в T. sql.ErrNoRows заменяется на notFound,
// остальные ошибки возвращаются как есть.
func GetOne[T any](ctx context.Context, q sqlx.QueryerContext, notFound error, query string, args ...any) (*T, error) {
	var row T
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}
	return &row, nil
}

// BatchInserter копит строки и вставляет их одним INSERT ... VALUES (...), (...).
type BatchInserter struct {
	exec        sqlx.ExecerContext
	query       string
	batchSize   int
	fieldsCount int
	values      []any
	rowCount    int
	inserted    int
}

// NewBatchInserter принимает baseQuery вида INSERT INTO table (col, ...) без VALUES.
func NewBatchInserter(exec sqlx.ExecerContext, baseQuery string, fieldsCount int, batchSize int) *BatchInserter {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &BatchInserter{
		exec:        exec,
		query:       strings.TrimSpace(baseQuery),
		batchSize:   batchSize,
		fieldsCount: fieldsCount,
		values:      make([]any, 0, batchSize*fieldsCount),
	}
}

func (bi *BatchInserter) Add(ctx context.Context, rowValues ...any) error {
	if len(rowValues) != bi.fieldsCount {
		return fmt.Errorf("batch insert: ожидалось %d полей, получено %d", bi.fieldsCount, len(rowValues))
	}

	bi.values = append(bi.values, rowValues...)
	bi.rowCount++

	if bi.rowCount >= bi.batchSize {
		return bi.Flush(ctx)
	}
	return nil
}

func (bi *BatchInserter) Flush(ctx context.Context) error {
	if bi.rowCount == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(bi.query)
	b.WriteString(" VALUES ")
	for i := 0; i < bi.rowCount; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := 0; j < bi.fieldsCount; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(i*bi.fieldsCount + j + 1))
		}
		b.WriteByte(')')
	}

	if _, err := bi.exec.ExecContext(ctx, b.String(), bi.values...); err != nil {
		return fmt.Errorf("batch insert: %w", err)
	}

	bi.inserted += bi.rowCount
	bi.values = bi.values[:0]
	bi.rowCount = 0
	return nil
}

// Inserted: сколько строк уже отправлено в базу.
func (bi *BatchInserter) Inserted() int {
	return bi.inserted
}

// TxBeginner реализуется *sqlx.DB.
type TxBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// readSnapshotOptions: только чтение, все запросы видят один снимок данных.
var readSnapshotOptions = sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// WithTransaction выполняет fn в транзакции. Ошибка fn возвращается без обёртки,
// чтобы вызывающий мог различать AppError.
func WithTransaction(ctx context.Context, db TxBeginner, fn func(*sqlx.Tx) error) error {
	return WithTxOptions(ctx, db, nil, fn)
}

// WithReadSnapshot читает несколько таблиц из одного снимка данных.
func WithReadSnapshot(ctx context.Context, db TxBeginner, fn func(*sqlx.Tx) error) error {
	opts := readSnapshotOptions
	return WithTxOptions(ctx, db, &opts, fn)
}

func WithTxOptions(ctx context.Context, db TxBeginner, opts *sql.TxOptions, fn func(*sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
