package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lunchroom/orders/internal/domain"
	"github.com/lunchroom/orders/internal/interfaces"
)

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) interfaces.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `o.id, o.child_id, o.parent_id, o.parent_email, o.order_date, o.menu_date,
	       o.menu_id, o.status, o.canceled_at, o.notified_at, o.created_at, o.updated_at,
	       s.version, s.choices, s.snapshot`

const orderJoin = `FROM orders o LEFT JOIN order_selections s ON s.order_id = o.id`

func (r *orderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE o.id = $1`, orderColumns, orderJoin)

	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFoundError("order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) FindByChildAndDate(ctx context.Context, childID string, orderDate time.Time) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE o.child_id = $1 AND o.order_date = $2`, orderColumns, orderJoin)

	order, err := scanOrder(r.db.QueryRow(ctx, query, childID, domain.DateOnly(orderDate)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFoundError("order", childID+"/"+orderDate.Format("2006-01-02"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) Upsert(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := upsertInTx(ctx, tx, order); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *orderRepository) UpsertBatch(ctx context.Context, orders []*domain.Order) (int, error) {
	if len(orders) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, order := range orders {
		if err := upsertInTx(ctx, tx, order); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	return len(orders), nil
}

// upsertOrderQuery writes the order row keyed on (child_id, order_date). The
// conflict arm resets the row to PENDING and clears cancellation and
// notification marks, but only when the row is still mutable and owned by the
// same parent; the guard re-evaluates at update time, closing the window
// between the service's pre-checks and the write. Ownership (parent_id) is
// only ever set on insert.
const upsertOrderQuery = `
	INSERT INTO orders (id, child_id, parent_id, parent_email, order_date, menu_date,
	                    menu_id, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (child_id, order_date) DO UPDATE SET
		parent_email = EXCLUDED.parent_email,
		menu_date    = EXCLUDED.menu_date,
		menu_id      = EXCLUDED.menu_id,
		status       = 'PENDING',
		canceled_at  = NULL,
		notified_at  = NULL,
		updated_at   = EXCLUDED.updated_at
	WHERE orders.status <> 'CONFIRMED' AND orders.parent_id = EXCLUDED.parent_id
	RETURNING id, parent_id, created_at
`

// upsertInTx writes the order row and its selection row in the same
// transaction. Zero rows back from the guarded upsert means the conflict arm
// declined: the row got confirmed or belongs to another parent, so the cause
// is re-read and reported as the matching domain error.
func upsertInTx(ctx context.Context, tx Tx, order *domain.Order) error {
	err := tx.QueryRow(ctx, upsertOrderQuery,
		order.ID, order.ChildID, order.ParentID, order.ParentEmail, order.OrderDate, order.MenuDate,
		order.MenuID, order.Status, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID, &order.ParentID, &order.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return rejectConflict(ctx, tx, order)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}

	if order.Selection == nil {
		return nil
	}
	order.Selection.OrderID = order.ID

	choices, err := json.Marshal(order.Selection.Choices)
	if err != nil {
		return fmt.Errorf("failed to marshal choices: %w", err)
	}
	snapshot, err := json.Marshal(order.Selection.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	selQuery := `
		INSERT INTO order_selections (order_id, version, choices, snapshot)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id) DO UPDATE SET
			version  = EXCLUDED.version,
			choices  = EXCLUDED.choices,
			snapshot = EXCLUDED.snapshot
	`
	if _, err := tx.Exec(ctx, selQuery, order.Selection.OrderID, order.Selection.Version, choices, snapshot); err != nil {
		return fmt.Errorf("failed to upsert order selection: %w", err)
	}

	return nil
}

func rejectConflict(ctx context.Context, tx Tx, order *domain.Order) error {
	var (
		status   domain.Status
		parentID string
	)
	query := `SELECT status, parent_id FROM orders WHERE child_id = $1 AND order_date = $2`
	if err := tx.QueryRow(ctx, query, order.ChildID, order.OrderDate).Scan(&status, &parentID); err != nil {
		return fmt.Errorf("failed to re-read conflicting order: %w", err)
	}

	if parentID != order.ParentID {
		return domain.NewForbiddenError("cannot modify order not owned by you")
	}
	return domain.NewValidationError(fmt.Sprintf(
		"order for %s is already confirmed and can no longer be changed",
		order.OrderDate.Format("2006-01-02")))
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $1, canceled_at = $2, updated_at = $3
		WHERE id = $4
	`
	tag, err := r.db.Exec(ctx, query, order.Status, order.CanceledAt, order.UpdatedAt, order.ID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("order", order.ID)
	}
	return nil
}

func (r *orderRepository) ListByParent(ctx context.Context, parentID string, from, to *time.Time) ([]*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE o.parent_id = $1`, orderColumns, orderJoin)
	args := []any{parentID}

	if from != nil {
		args = append(args, domain.DateOnly(*from))
		query += fmt.Sprintf(" AND o.order_date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, domain.DateOnly(*to))
		query += fmt.Sprintf(" AND o.order_date <= $%d", len(args))
	}
	query += " ORDER BY o.order_date ASC"

	return r.queryOrders(ctx, query, args...)
}

func (r *orderRepository) OwnersInRange(ctx context.Context, childID string, from, to time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT parent_id FROM orders
		WHERE child_id = $1 AND order_date >= $2 AND order_date <= $3 AND status <> 'CANCELED'
	`
	rows, err := r.db.Query(ctx, query, childID, domain.DateOnly(from), domain.DateOnly(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

func (r *orderRepository) PendingForDate(ctx context.Context, date time.Time) ([]*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE o.status = 'PENDING' AND o.order_date = $1`, orderColumns, orderJoin)
	return r.queryOrders(ctx, query, domain.DateOnly(date))
}

func (r *orderRepository) ConfirmPending(ctx context.Context, date time.Time, now time.Time) ([]string, error) {
	// One conditional statement: the status predicate is re-evaluated per row
	// at update time, so a concurrent sweep matches zero rows.
	query := `
		UPDATE orders
		SET status = 'CONFIRMED', updated_at = $2
		WHERE status = 'PENDING' AND order_date = $1
		RETURNING id
	`
	rows, err := r.db.Query(ctx, query, domain.DateOnly(date), now)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm pending orders: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan confirmed id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *orderRepository) UnnotifiedConfirmed(ctx context.Context, date time.Time) ([]*domain.Order, error) {
	// Covers earlier dates too: a publish that kept failing past midnight must
	// still be retried on later runs.
	query := fmt.Sprintf(
		`SELECT %s %s WHERE o.status = 'CONFIRMED' AND o.notified_at IS NULL AND o.order_date <= $1`,
		orderColumns, orderJoin)
	return r.queryOrders(ctx, query, domain.DateOnly(date))
}

func (r *orderRepository) MarkNotified(ctx context.Context, orderID string, at time.Time) error {
	query := `UPDATE orders SET notified_at = $2 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, orderID, at); err != nil {
		return fmt.Errorf("failed to mark order notified: %w", err)
	}
	return nil
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func scanOrder(row Row) (*domain.Order, error) {
	var (
		order    domain.Order
		version  *int
		choices  []byte
		snapshot []byte
	)

	err := row.Scan(
		&order.ID, &order.ChildID, &order.ParentID, &order.ParentEmail, &order.OrderDate, &order.MenuDate,
		&order.MenuID, &order.Status, &order.CanceledAt, &order.NotifiedAt, &order.CreatedAt, &order.UpdatedAt,
		&version, &choices, &snapshot,
	)
	if err != nil {
		return nil, err
	}

	order.OrderDate = domain.DateOnly(order.OrderDate)
	order.MenuDate = domain.DateOnly(order.MenuDate)

	if version != nil {
		sel := &domain.Selection{OrderID: order.ID, Version: *version}
		if len(choices) > 0 {
			if err := json.Unmarshal(choices, &sel.Choices); err != nil {
				return nil, fmt.Errorf("failed to unmarshal choices: %w", err)
			}
		}
		if len(snapshot) > 0 {
			if err := json.Unmarshal(snapshot, &sel.Snapshot); err != nil {
				return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
			}
		}
		order.Selection = sel
	}

	return &order, nil
}
