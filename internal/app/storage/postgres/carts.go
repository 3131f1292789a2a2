package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/thriftline/marketplace/internal/app/domain/cart"
)

const cartColumns = `c.id, c.user_id, c.product_id, c.quantity, c.created_at`

type cartProductRow struct {
	cart.Item
	Product productRow `db:"product"`
}

func (s *Store) AddCartItem(ctx context.Context, userID, productID string, quantity int) (cart.Item, error) {
	var item cart.Item
	err := s.db.GetContext(ctx, &item, `
		INSERT INTO cart_items AS c (id, user_id, product_id, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = c.quantity + EXCLUDED.quantity
		RETURNING `+cartColumns,
		uuid.NewString(), userID, productID, quantity, time.Now().UTC())
	if err != nil {
		return cart.Item{}, mapError(err)
	}
	return item, nil
}

func (s *Store) GetCartItem(ctx context.Context, id string) (cart.Item, error) {
	var item cart.Item
	if err := s.db.GetContext(ctx, &item, `SELECT `+cartColumns+` FROM cart_items c WHERE c.id = $1`, id); err != nil {
		return cart.Item{}, mapError(err)
	}
	return item, nil
}

func (s *Store) ListCartItems(ctx context.Context, userID string) ([]cart.ItemWithProduct, error) {
	var rows []cartProductRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+cartColumns+`, `+productColumns("p", "product")+`
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at, c.id
	`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	result := make([]cart.ItemWithProduct, 0, len(rows))
	for _, row := range rows {
		result = append(result, cart.ItemWithProduct{Item: row.Item, Product: row.Product.toDomain()})
	}
	return result, nil
}

func (s *Store) UpdateCartItemQuantity(ctx context.Context, id string, quantity int) (cart.Item, error) {
	var item cart.Item
	err := s.db.GetContext(ctx, &item, `
		UPDATE cart_items c SET quantity = $2
		WHERE c.id = $1
		RETURNING `+cartColumns, id, quantity)
	if err != nil {
		return cart.Item{}, mapError(err)
	}
	return item, nil
}

func (s *Store) DeleteCartItem(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	return mapError(err)
}

func (s *Store) ClearCart(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return mapError(err)
}
