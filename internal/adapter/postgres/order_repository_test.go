package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchroom/orders/internal/domain"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeRows struct{}

func (fakeRows) Next() bool        { return false }
func (fakeRows) Scan(...any) error { return nil }
func (fakeRows) Err() error        { return nil }
func (fakeRows) Close()            {}

type fakeTag struct{ affected int64 }

func (t fakeTag) RowsAffected() int64 { return t.affected }

// fakeTx hands out queued rows and records every statement it sees.
type fakeTx struct {
	queries    []string
	execs      []string
	rows       []fakeRow
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	t.queries = append(t.queries, sql)
	return fakeRows{}, nil
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	t.queries = append(t.queries, sql)
	row := t.rows[0]
	t.rows = t.rows[1:]
	return row
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	t.execs = append(t.execs, sql)
	return fakeTag{affected: 1}, nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeDB struct {
	tx      *fakeTx
	queries []string
}

func (db *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	db.queries = append(db.queries, sql)
	return fakeRows{}, nil
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	db.queries = append(db.queries, sql)
	return fakeRow{scan: func(...any) error { return pgx.ErrNoRows }}
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	db.queries = append(db.queries, sql)
	return fakeTag{affected: 1}, nil
}

func (db *fakeDB) Begin(ctx context.Context) (Tx, error) { return db.tx, nil }

func (db *fakeDB) Close() {}

func testOrder() *domain.Order {
	return domain.NewOrder("parent-1", "parent@example.com", "child-1",
		time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC), "menu-1",
		[]domain.Choice{{Category: domain.CategorySoup, OptionID: "s1"}},
		[]domain.SnapshotEntry{{Category: domain.CategorySoup, OptionID: "s1", OptionName: "Ciorba"}})
}

func TestUpsert_GuardsConflictArm(t *testing.T) {
	order := testOrder()
	tx := &fakeTx{rows: []fakeRow{{scan: func(dest ...any) error {
		*dest[0].(*string) = order.ID
		*dest[1].(*string) = order.ParentID
		*dest[2].(*time.Time) = order.CreatedAt
		return nil
	}}}}
	db := &fakeDB{tx: tx}

	repo := NewOrderRepository(db)
	require.NoError(t, repo.Upsert(context.Background(), order))

	require.NotEmpty(t, tx.queries)
	// The conflict arm must re-check state and ownership at update time, the
	// same way ConfirmPending re-checks status. Without the guard a racing
	// confirmation is silently undone and a foreign caller can mutate the row.
	assert.Contains(t, tx.queries[0], "ON CONFLICT (child_id, order_date) DO UPDATE")
	assert.Contains(t, tx.queries[0], "WHERE orders.status <> 'CONFIRMED' AND orders.parent_id = EXCLUDED.parent_id")
	assert.True(t, tx.committed)
}

func TestUpsert_DeclinedByConfirmedRow(t *testing.T) {
	order := testOrder()
	tx := &fakeTx{rows: []fakeRow{
		{scan: func(...any) error { return pgx.ErrNoRows }},
		{scan: func(dest ...any) error {
			*dest[0].(*domain.Status) = domain.StatusConfirmed
			*dest[1].(*string) = order.ParentID
			return nil
		}},
	}}
	db := &fakeDB{tx: tx}

	repo := NewOrderRepository(db)
	err := repo.Upsert(context.Background(), order)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "already confirmed")
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
	assert.Empty(t, tx.execs)
}

func TestUpsert_DeclinedByForeignRow(t *testing.T) {
	order := testOrder()
	tx := &fakeTx{rows: []fakeRow{
		{scan: func(...any) error { return pgx.ErrNoRows }},
		{scan: func(dest ...any) error {
			*dest[0].(*domain.Status) = domain.StatusPending
			*dest[1].(*string) = "someone-else"
			return nil
		}},
	}}
	db := &fakeDB{tx: tx}

	repo := NewOrderRepository(db)
	err := repo.Upsert(context.Background(), order)

	var fErr *domain.ForbiddenError
	require.ErrorAs(t, err, &fErr)
	assert.False(t, tx.committed)
	assert.Empty(t, tx.execs)
}

func TestUnnotifiedConfirmed_CoversEarlierDates(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	repo := NewOrderRepository(db)

	_, err := repo.UnnotifiedConfirmed(context.Background(),
		time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// A publish still failing past midnight must be retried on later runs, so
	// the scan cannot stop at today's date.
	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "o.order_date <= $1")
	assert.NotContains(t, db.queries[0], "o.order_date = $1")
}
