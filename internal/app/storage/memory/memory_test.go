package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thriftline/marketplace/internal/app/domain/money"
	"github.com/thriftline/marketplace/internal/app/domain/order"
	"github.com/thriftline/marketplace/internal/app/domain/product"
	"github.com/thriftline/marketplace/internal/app/domain/session"
	"github.com/thriftline/marketplace/internal/app/domain/user"
	"github.com/thriftline/marketplace/internal/app/storage"
)

func seedSeller(t *testing.T, s *Store, name string) user.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), user.User{Username: name, Email: name + "@x.com", Password: "hash"})
	require.NoError(t, err)
	return u
}

func seedProduct(t *testing.T, s *Store, sellerID, title string) product.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), product.Product{
		Title:       title,
		Description: "desc " + title,
		Price:       money.MustParse("25.00"),
		Category:    product.CategoryClothing,
		Condition:   product.ConditionGood,
		SellerID:    sellerID,
		IsActive:    true,
	})
	require.NoError(t, err)
	return p
}

func TestUserUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedSeller(t, s, "alice")

	_, err := s.CreateUser(ctx, user.User{Username: "alice", Email: "other@x.com"})
	require.True(t, errors.Is(err, storage.ErrConflict))

	_, err = s.CreateUser(ctx, user.User{Username: "alice2", Email: "alice@x.com"})
	require.True(t, errors.Is(err, storage.ErrConflict))

	_, err = s.GetUserByUsername(ctx, "nobody")
	require.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestListProductsFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedSeller(t, s, "alice")
	bob := seedSeller(t, s, "bob")

	jacket := seedProduct(t, s, alice.ID, "Leather Jacket")
	seedProduct(t, s, bob.ID, "Vinyl Record")
	lamp := seedProduct(t, s, alice.ID, "Desk Lamp")

	inactive := false
	_, err := s.UpdateProduct(ctx, jacket.ID, product.Update{IsActive: &inactive})
	require.NoError(t, err)

	public, err := s.ListProducts(ctx, product.Filter{})
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, lamp.ID, public[0].ID, "newest first")
	assert.Equal(t, "bob", public[1].Seller.Username)

	mine, err := s.ListProducts(ctx, product.Filter{SellerID: alice.ID})
	require.NoError(t, err)
	require.Len(t, mine, 2, "seller listing includes inactive items")

	found, err := s.ListProducts(ctx, product.Filter{Search: "VINYL"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	limit, offset := 1, 1
	page, err := s.ListProducts(ctx, product.Filter{Limit: &limit, Offset: &offset})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Vinyl Record", page[0].Title)
}

func TestViewsIncrement(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedSeller(t, s, "alice")
	p := seedProduct(t, s, alice.ID, "Jacket")

	require.NoError(t, s.IncrementProductViews(ctx, p.ID))
	require.NoError(t, s.IncrementProductViews(ctx, p.ID))
	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Views)

	require.True(t, errors.Is(s.IncrementProductViews(ctx, "missing"), storage.ErrNotFound))
}

func TestAddCartItemMergesQuantity(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedSeller(t, s, "alice")
	bob := seedSeller(t, s, "bob")
	p := seedProduct(t, s, alice.ID, "Jacket")

	first, err := s.AddCartItem(ctx, bob.ID, p.ID, 1)
	require.NoError(t, err)
	second, err := s.AddCartItem(ctx, bob.ID, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	items, err := s.ListCartItems(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "Jacket", items[0].Product.Title)
}

func TestCreateOrderClearsCart(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedSeller(t, s, "alice")
	bob := seedSeller(t, s, "bob")
	p := seedProduct(t, s, alice.ID, "Jacket")
	_, err := s.AddCartItem(ctx, bob.ID, p.ID, 3)
	require.NoError(t, err)

	lines := []order.Line{{ProductID: p.ID, Quantity: 3, Price: money.MustParse("25.00")}}
	o, err := s.CreateOrder(ctx, order.Order{UserID: bob.ID, TotalAmount: order.Total(lines)}, lines)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)

	items, err := s.ListCartItems(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.OrderItems, 1)
	assert.Equal(t, "75.00", got.TotalAmount.String())

	_, err = s.CreateOrder(ctx, order.Order{UserID: bob.ID}, []order.Line{{ProductID: "missing", Quantity: 1}})
	require.True(t, errors.Is(err, storage.ErrNotFound))
	orders, err := s.ListOrders(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestDeleteExpiredSessions(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.CreateSession(ctx, session.Session{ID: "old", UserID: "u", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, s.CreateSession(ctx, session.Session{ID: "new", UserID: "u", ExpiresAt: now.Add(time.Hour)}))

	removed, err := s.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = s.GetSession(ctx, "old")
	require.True(t, errors.Is(err, storage.ErrNotFound))
	_, err = s.GetSession(ctx, "new")
	require.NoError(t, err)
}
