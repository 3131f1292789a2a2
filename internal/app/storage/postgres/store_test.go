package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thriftline/marketplace/internal/app/domain/money"
	"github.com/thriftline/marketplace/internal/app/domain/order"
	"github.com/thriftline/marketplace/internal/app/domain/product"
	"github.com/thriftline/marketplace/internal/app/domain/user"
	"github.com/thriftline/marketplace/internal/app/storage"
	"github.com/thriftline/marketplace/internal/platform/migrations"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func productRows() *sqlmock.Rows {
	cols := append(append([]string{}, productFields...), "seller.id", "seller.username", "seller.first_name", "seller.last_name")
	return sqlmock.NewRows(cols)
}

func TestCreateUserConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})

	_, err := store.CreateUser(context.Background(), user.User{Username: "alice", Email: "a@x.com", Password: "h"})
	require.True(t, errors.Is(err, storage.ErrConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetUserByUsername(context.Background(), "ghost")
	require.True(t, errors.Is(err, storage.ErrNotFound))
	require.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestGetProductJoinsSeller(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := productRows().AddRow(
		"p1", "Jacket", "warm", "25.00", "clothing", "good",
		nil, "M", nil, nil, "{a.jpg,b.jpg}",
		true, false, "u1", true, 3, now, now,
		"u1", "alice", "Alice", nil,
	)
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN users u ON u.id = p.seller_id")).WithArgs("p1").WillReturnRows(rows)

	got, err := store.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "25.00", got.Price.String())
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, got.Images)
	assert.Equal(t, "alice", got.Seller.Username)
	require.NotNil(t, got.Seller.FirstName)
	assert.Equal(t, "Alice", *got.Seller.FirstName)
	assert.Nil(t, got.Brand)
	require.NotNil(t, got.Size)
	assert.Equal(t, 3, got.Views)
}

func TestGetProductMissingSellerIsIntegrityError(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := productRows().AddRow(
		"p1", "Jacket", "warm", "25.00", "clothing", "good",
		nil, nil, nil, nil, "{}",
		false, false, "gone", true, 0, now, now,
		nil, nil, nil, nil,
	)
	mock.ExpectQuery("SELECT").WithArgs("p1").WillReturnRows(rows)

	_, err := store.GetProduct(context.Background(), "p1")
	require.True(t, errors.Is(err, storage.ErrIntegrity))
}

func TestListProductsBuildsFilters(t *testing.T) {
	store, mock := newMockStore(t)
	limit, offset := 10, 20

	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.is_active = TRUE AND p.category = $1 AND (p.title ILIKE $2 OR p.description ILIKE $2)")).
		WithArgs("books", `%50\% off%`, 10, 20).
		WillReturnRows(productRows())

	got, err := store.ListProducts(context.Background(), product.Filter{
		Category: product.CategoryBooks,
		Search:   "50% off",
		Limit:    &limit,
		Offset:   &offset,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListProductsBySellerIncludesInactive(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE p\.seller_id = \$1\s+ORDER BY p\.created_at DESC`).
		WithArgs("u1").
		WillReturnRows(productRows())

	_, err := store.ListProducts(context.Background(), product.Filter{SellerID: "u1"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementProductViewsMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET views = views + 1 WHERE id = $1")).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.IncrementProductViews(context.Background(), "p1")
	require.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestAddCartItemUpserts(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("DO UPDATE SET quantity = c.quantity + EXCLUDED.quantity")).
		WithArgs(sqlmock.AnyArg(), "u1", "p1", 2, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "product_id", "quantity", "created_at"}).
			AddRow("c1", "u1", "p1", 3, now))

	item, err := store.AddCartItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
}

func TestCreateOrderRunsInTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	lines := []order.Line{
		{ProductID: "p1", Quantity: 3, Price: money.MustParse("25.00")},
		{ProductID: "p2", Quantity: 1, Price: money.MustParse("4.50")},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(sqlmock.AnyArg(), "u1", "79.50", "pending", nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "p1", 3, "25.00", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "p2", 1, "4.50", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	o, err := store.CreateOrder(context.Background(), order.Order{UserID: "u1", TotalAmount: order.Total(lines)}, lines)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.NotEmpty(t, o.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderRollsBackOnItemFailure(t *testing.T) {
	store, mock := newMockStore(t)
	lines := []order.Line{{ProductID: "nope", Quantity: 1, Price: money.MustParse("1.00")}}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	_, err := store.CreateOrder(context.Background(), order.Order{UserID: "u1", TotalAmount: order.Total(lines)}, lines)
	require.True(t, errors.Is(err, storage.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpiredSessions(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE expires_at <= $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := store.DeleteExpiredSessions(context.Background(), now)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sqlx.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, migrations.Apply(ctx, db.DB))
	store := New(db)

	suffix := time.Now().Format("150405.000000")
	seller, err := store.CreateUser(ctx, user.User{Username: "seller" + suffix, Email: "s" + suffix + "@x.com", Password: "h"})
	require.NoError(t, err)
	buyer, err := store.CreateUser(ctx, user.User{Username: "buyer" + suffix, Email: "b" + suffix + "@x.com", Password: "h"})
	require.NoError(t, err)

	p, err := store.CreateProduct(ctx, product.Product{
		Title: "Jacket", Description: "warm", Price: money.MustParse("25.00"),
		Category: product.CategoryClothing, Condition: product.ConditionGood,
		SellerID: seller.ID, IsActive: true,
	})
	require.NoError(t, err)

	_, err = store.AddCartItem(ctx, buyer.ID, p.ID, 1)
	require.NoError(t, err)
	item, err := store.AddCartItem(ctx, buyer.ID, p.ID, 2)
	require.NoError(t, err)
	require.Equal(t, 3, item.Quantity)

	lines := []order.Line{{ProductID: p.ID, Quantity: 3, Price: money.MustParse("25.00")}}
	o, err := store.CreateOrder(ctx, order.Order{UserID: buyer.ID, TotalAmount: order.Total(lines)}, lines)
	require.NoError(t, err)

	cartItems, err := store.ListCartItems(ctx, buyer.ID)
	require.NoError(t, err)
	require.Empty(t, cartItems)

	got, err := store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, "75.00", got.TotalAmount.String())
	require.Len(t, got.OrderItems, 1)
}
