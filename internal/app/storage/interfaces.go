package storage

import (
	"context"
	"errors"
	"time"

	"github.com/thriftline/marketplace/internal/app/domain/cart"
	"github.com/thriftline/marketplace/internal/app/domain/order"
	"github.com/thriftline/marketplace/internal/app/domain/product"
	"github.com/thriftline/marketplace/internal/app/domain/review"
	"github.com/thriftline/marketplace/internal/app/domain/session"
	"github.com/thriftline/marketplace/internal/app/domain/user"
)

var (
	// ErrNotFound is returned when an id does not resolve. Referencing a
	// missing row on insert is reported the same way.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("storage: conflict")
	// ErrIntegrity is returned when a joined row that must exist is missing.
	ErrIntegrity = errors.New("storage: integrity violation")
)

// UserStore persists marketplace members.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	UpdateUser(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error)
}

// ProductStore persists listings.
type ProductStore interface {
	CreateProduct(ctx context.Context, p product.Product) (product.Product, error)
	GetProduct(ctx context.Context, id string) (product.WithSeller, error)
	ListProducts(ctx context.Context, filter product.Filter) ([]product.WithSeller, error)
	UpdateProduct(ctx context.Context, id string, upd product.Update) (product.Product, error)
	IncrementProductViews(ctx context.Context, id string) error
}

// CartStore persists shopping cart lines.
type CartStore interface {
	// AddCartItem inserts a line or adds quantity to the existing
	// (userID, productID) line atomically.
	AddCartItem(ctx context.Context, userID, productID string, quantity int) (cart.Item, error)
	GetCartItem(ctx context.Context, id string) (cart.Item, error)
	ListCartItems(ctx context.Context, userID string) ([]cart.ItemWithProduct, error)
	UpdateCartItemQuantity(ctx context.Context, id string, quantity int) (cart.Item, error)
	DeleteCartItem(ctx context.Context, id string) error
	ClearCart(ctx context.Context, userID string) error
}

// OrderStore persists orders and their lines.
type OrderStore interface {
	// CreateOrder inserts the order and its lines and empties the buyer's
	// cart as one unit.
	CreateOrder(ctx context.Context, o order.Order, lines []order.Line) (order.Order, error)
	GetOrder(ctx context.Context, id string) (order.WithItems, error)
	ListOrders(ctx context.Context, userID string) ([]order.WithItems, error)
	UpdateOrderStatus(ctx context.Context, id string, status order.Status) (order.Order, error)
}

// ReviewStore persists product reviews.
type ReviewStore interface {
	CreateReview(ctx context.Context, r review.Review) (review.Review, error)
	ListProductReviews(ctx context.Context, productID string) ([]review.Review, error)
}

// SessionStore persists login sessions keyed by hashed session id.
type SessionStore interface {
	CreateSession(ctx context.Context, s session.Session) error
	GetSession(ctx context.Context, id string) (session.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
