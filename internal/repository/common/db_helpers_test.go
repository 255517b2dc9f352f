package common

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	query string
	args  []any
}

type recordingExecer struct {
	calls []execCall
	err   error
}

func (e *recordingExecer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	e.calls = append(e.calls, execCall{query: query, args: append([]any(nil), args...)})
	return nil, e.err
}

func TestBatchInserter_FlushesByBatchSize(t *testing.T) {
	exec := &recordingExecer{}
	bi := NewBatchInserter(exec, "INSERT INTO budget_lines (source, ps)\n", 2, 2)
	ctx := context.Background()

	require.NoError(t, bi.Add(ctx, "GAA", 10.0))
	assert.Empty(t, exec.calls)
	require.NoError(t, bi.Add(ctx, "LGU", 20.0))
	require.Len(t, exec.calls, 1)
	assert.Equal(t, "INSERT INTO budget_lines (source, ps) VALUES ($1, $2), ($3, $4)", exec.calls[0].query)
	assert.Equal(t, []any{"GAA", 10.0, "LGU", 20.0}, exec.calls[0].args)

	require.NoError(t, bi.Add(ctx, "ODA", 30.0))
	require.NoError(t, bi.Flush(ctx))
	require.Len(t, exec.calls, 2)
	assert.Equal(t, "INSERT INTO budget_lines (source, ps) VALUES ($1, $2)", exec.calls[1].query)
	assert.Equal(t, 3, bi.Inserted())

	require.NoError(t, bi.Flush(ctx))
	assert.Len(t, exec.calls, 2)
}

func TestBatchInserter_FieldCountMismatch(t *testing.T) {
	bi := NewBatchInserter(&recordingExecer{}, "INSERT INTO t (a, b)", 2, 10)

	assert.Error(t, bi.Add(context.Background(), "only-one"))
}

func TestBatchInserter_ExecError(t *testing.T) {
	boom := errors.New("boom")
	bi := NewBatchInserter(&recordingExecer{err: boom}, "INSERT INTO t (a)", 1, 0)

	require.NoError(t, bi.Add(context.Background(), 1))
	err := bi.Flush(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, bi.Inserted())
}

type refusingBeginner struct {
	opts  *sql.TxOptions
	calls int
}

func (b *refusingBeginner) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	b.calls++
	b.opts = opts
	return nil, sql.ErrConnDone
}

func TestWithReadSnapshot_UsesRepeatableReadReadOnly(t *testing.T) {
	db := &refusingBeginner{}
	called := false

	err := WithReadSnapshot(context.Background(), db, func(*sqlx.Tx) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "begin transaction")
	assert.False(t, called)
	require.NotNil(t, db.opts)
	assert.Equal(t, sql.LevelRepeatableRead, db.opts.Isolation)
	assert.True(t, db.opts.ReadOnly)
}

func TestWithTransaction_DefaultOptions(t *testing.T) {
	db := &refusingBeginner{}

	err := WithTransaction(context.Background(), db, func(*sqlx.Tx) error { return nil })

	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Equal(t, 1, db.calls)
	assert.Nil(t, db.opts)
}
