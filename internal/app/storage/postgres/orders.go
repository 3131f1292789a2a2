package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/thriftline/marketplace/internal/app/domain/order"
)

const (
	orderColumns     = `o.id, o.user_id, o.total_amount, o.status, o.shipping_address, o.tracking_number, o.created_at, o.updated_at`
	orderItemColumns = `i.id, i.order_id, i.product_id, i.quantity, i.price, i.created_at`
)

type orderItemRow struct {
	order.Item
	Product productRow `db:"product"`
}

// CreateOrder writes the order, its lines and the cart purge in one transaction.
func (s *Store) CreateOrder(ctx context.Context, o order.Order, lines []order.Line) (order.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = order.StatusPending
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return order.Order{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO orders (id, user_id, total_amount, status, shipping_address, tracking_number, created_at, updated_at)
		VALUES (:id, :user_id, :total_amount, :status, :shipping_address, :tracking_number, :created_at, :updated_at)
	`, o); err != nil {
		return order.Order{}, mapError(err)
	}

	for _, line := range lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.NewString(), o.ID, line.ProductID, line.Quantity, line.Price, now); err != nil {
			return order.Order{}, mapError(err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, o.UserID); err != nil {
		return order.Order{}, mapError(err)
	}

	if err := tx.Commit(); err != nil {
		return order.Order{}, err
	}
	return o, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (order.WithItems, error) {
	var o order.Order
	if err := s.db.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id); err != nil {
		return order.WithItems{}, mapError(err)
	}
	items, err := s.orderItems(ctx, []string{o.ID})
	if err != nil {
		return order.WithItems{}, err
	}
	return order.WithItems{Order: o, OrderItems: items[o.ID]}, nil
}

func (s *Store) ListOrders(ctx context.Context, userID string) ([]order.WithItems, error) {
	var orders []order.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id
	`, userID)
	if err != nil {
		return nil, mapError(err)
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := s.orderItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]order.WithItems, 0, len(orders))
	for _, o := range orders {
		result = append(result, order.WithItems{Order: o, OrderItems: items[o.ID]})
	}
	return result, nil
}

// orderItems loads the lines of the given orders keyed by order id. Every
// requested id gets a non-nil slice.
func (s *Store) orderItems(ctx context.Context, orderIDs []string) (map[string][]order.ItemWithProduct, error) {
	out := make(map[string][]order.ItemWithProduct, len(orderIDs))
	for _, id := range orderIDs {
		out[id] = []order.ItemWithProduct{}
	}
	if len(orderIDs) == 0 {
		return out, nil
	}

	var rows []orderItemRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+orderItemColumns+`, `+productColumns("p", "product")+`
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.created_at, i.id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, mapError(err)
	}
	for _, row := range rows {
		out[row.OrderID] = append(out[row.OrderID], order.ItemWithProduct{Item: row.Item, Product: row.Product.toDomain()})
	}
	return out, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status order.Status) (order.Order, error) {
	var o order.Order
	err := s.db.GetContext(ctx, &o, `
		UPDATE orders o SET status = $2, updated_at = $3
		WHERE o.id = $1
		RETURNING `+orderColumns, id, string(status), time.Now().UTC())
	if err != nil {
		return order.Order{}, mapError(err)
	}
	return o, nil
}
