package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thriftline/marketplace/internal/app/domain/cart"
	"github.com/thriftline/marketplace/internal/app/domain/order"
	"github.com/thriftline/marketplace/internal/app/domain/product"
	"github.com/thriftline/marketplace/internal/app/domain/review"
	"github.com/thriftline/marketplace/internal/app/domain/session"
	"github.com/thriftline/marketplace/internal/app/domain/user"
	"github.com/thriftline/marketplace/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu sync.RWMutex

	users      map[string]user.User
	products   map[string]product.Product
	productSeq []string
	cartItems  map[string]cart.Item
	cartSeq    []string
	orders     map[string]order.Order
	orderSeq   []string
	orderItems map[string][]order.Item
	reviews    map[string]review.Review
	reviewSeq  []string
	sessions   map[string]session.Session
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.ProductStore = (*Store)(nil)
var _ storage.CartStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.ReviewStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)
var _ storage.Pinger = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:      make(map[string]user.User),
		products:   make(map[string]product.Product),
		cartItems:  make(map[string]cart.Item),
		orders:     make(map[string]order.Order),
		orderItems: make(map[string][]order.Item),
		reviews:    make(map[string]review.Review),
		sessions:   make(map[string]session.Session),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, storage.ErrConflict)
	}
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return user.User{}, fmt.Errorf("username %q: %w", u.Username, storage.ErrConflict)
		}
		if existing.Email == u.Email {
			return user.User{}, fmt.Errorf("email %q: %w", u.Email, storage.ErrConflict)
		}
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, fmt.Errorf("username %q: %w", username, storage.ErrNotFound)
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, fmt.Errorf("email %q: %w", email, storage.ErrNotFound)
}

func (s *Store) UpdateUser(_ context.Context, id string, upd user.ProfileUpdate) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	if upd.Email != nil {
		for otherID, other := range s.users {
			if otherID != id && other.Email == *upd.Email {
				return user.User{}, fmt.Errorf("email %q: %w", *upd.Email, storage.ErrConflict)
			}
		}
	}
	upd.Apply(&u)
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return u, nil
}

// ProductStore implementation -------------------------------------------------

func (s *Store) CreateProduct(_ context.Context, p product.Product) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[p.SellerID]; !ok {
		return product.Product{}, fmt.Errorf("seller %s: %w", p.SellerID, storage.ErrNotFound)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	} else if _, exists := s.products[p.ID]; exists {
		return product.Product{}, fmt.Errorf("product %s: %w", p.ID, storage.ErrConflict)
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Images = cloneStrings(p.Images)

	s.products[p.ID] = p
	s.productSeq = append(s.productSeq, p.ID)
	return cloneProduct(p), nil
}

func (s *Store) GetProduct(_ context.Context, id string) (product.WithSeller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return product.WithSeller{}, fmt.Errorf("product %s: %w", id, storage.ErrNotFound)
	}
	return s.withSellerLocked(p)
}

func (s *Store) ListProducts(_ context.Context, filter product.Filter) ([]product.WithSeller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	result := make([]product.WithSeller, 0)
	for i := len(s.productSeq) - 1; i >= 0; i-- {
		p := s.products[s.productSeq[i]]
		if filter.SellerID != "" {
			if p.SellerID != filter.SellerID {
				continue
			}
		} else if !p.IsActive {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		ws, err := s.withSellerLocked(p)
		if err != nil {
			return nil, err
		}
		result = append(result, ws)
	}
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (s *Store) UpdateProduct(_ context.Context, id string, upd product.Update) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return product.Product{}, fmt.Errorf("product %s: %w", id, storage.ErrNotFound)
	}
	upd.Apply(&p)
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return cloneProduct(p), nil
}

func (s *Store) IncrementProductViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id, storage.ErrNotFound)
	}
	p.Views++
	s.products[id] = p
	return nil
}

func (s *Store) withSellerLocked(p product.Product) (product.WithSeller, error) {
	seller, ok := s.users[p.SellerID]
	if !ok {
		return product.WithSeller{}, fmt.Errorf("product %s seller %s: %w", p.ID, p.SellerID, storage.ErrIntegrity)
	}
	return product.WithSeller{Product: cloneProduct(p), Seller: seller.Summary()}, nil
}

// CartStore implementation ----------------------------------------------------

func (s *Store) AddCartItem(_ context.Context, userID, productID string, quantity int) (cart.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return cart.Item{}, fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	if _, ok := s.products[productID]; !ok {
		return cart.Item{}, fmt.Errorf("product %s: %w", productID, storage.ErrNotFound)
	}
	for id, item := range s.cartItems {
		if item.UserID == userID && item.ProductID == productID {
			item.Quantity += quantity
			s.cartItems[id] = item
			return item, nil
		}
	}

	item := cart.Item{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: time.Now().UTC(),
	}
	s.cartItems[item.ID] = item
	s.cartSeq = append(s.cartSeq, item.ID)
	return item, nil
}

func (s *Store) GetCartItem(_ context.Context, id string) (cart.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.cartItems[id]
	if !ok {
		return cart.Item{}, fmt.Errorf("cart item %s: %w", id, storage.ErrNotFound)
	}
	return item, nil
}

func (s *Store) ListCartItems(_ context.Context, userID string) ([]cart.ItemWithProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]cart.ItemWithProduct, 0)
	for _, id := range s.cartSeq {
		item, ok := s.cartItems[id]
		if !ok || item.UserID != userID {
			continue
		}
		p, ok := s.products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("cart item %s product %s: %w", id, item.ProductID, storage.ErrIntegrity)
		}
		result = append(result, cart.ItemWithProduct{Item: item, Product: cloneProduct(p)})
	}
	return result, nil
}

func (s *Store) UpdateCartItemQuantity(_ context.Context, id string, quantity int) (cart.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.cartItems[id]
	if !ok {
		return cart.Item{}, fmt.Errorf("cart item %s: %w", id, storage.ErrNotFound)
	}
	item.Quantity = quantity
	s.cartItems[id] = item
	return item, nil
}

func (s *Store) DeleteCartItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cartItems, id)
	s.compactCartLocked()
	return nil
}

func (s *Store) ClearCart(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearCartLocked(userID)
	return nil
}

func (s *Store) clearCartLocked(userID string) {
	for id, item := range s.cartItems {
		if item.UserID == userID {
			delete(s.cartItems, id)
		}
	}
	s.compactCartLocked()
}

func (s *Store) compactCartLocked() {
	kept := s.cartSeq[:0]
	for _, id := range s.cartSeq {
		if _, ok := s.cartItems[id]; ok {
			kept = append(kept, id)
		}
	}
	s.cartSeq = kept
}

// OrderStore implementation ---------------------------------------------------

func (s *Store) CreateOrder(_ context.Context, o order.Order, lines []order.Line) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[o.UserID]; !ok {
		return order.Order{}, fmt.Errorf("user %s: %w", o.UserID, storage.ErrNotFound)
	}
	for _, line := range lines {
		if _, ok := s.products[line.ProductID]; !ok {
			return order.Order{}, fmt.Errorf("product %s: %w", line.ProductID, storage.ErrNotFound)
		}
	}

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = order.StatusPending
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	items := make([]order.Item, 0, len(lines))
	for _, line := range lines {
		items = append(items, order.Item{
			ID:        uuid.NewString(),
			OrderID:   o.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
			CreatedAt: now,
		})
	}

	s.orders[o.ID] = o
	s.orderSeq = append(s.orderSeq, o.ID)
	s.orderItems[o.ID] = items
	s.clearCartLocked(o.UserID)
	return o, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (order.WithItems, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return order.WithItems{}, fmt.Errorf("order %s: %w", id, storage.ErrNotFound)
	}
	return s.withItemsLocked(o)
}

func (s *Store) ListOrders(_ context.Context, userID string) ([]order.WithItems, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]order.WithItems, 0)
	for i := len(s.orderSeq) - 1; i >= 0; i-- {
		o := s.orders[s.orderSeq[i]]
		if o.UserID != userID {
			continue
		}
		wi, err := s.withItemsLocked(o)
		if err != nil {
			return nil, err
		}
		result = append(result, wi)
	}
	return result, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id string, status order.Status) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, fmt.Errorf("order %s: %w", id, storage.ErrNotFound)
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	s.orders[id] = o
	return o, nil
}

func (s *Store) withItemsLocked(o order.Order) (order.WithItems, error) {
	items := s.orderItems[o.ID]
	out := order.WithItems{Order: o, OrderItems: make([]order.ItemWithProduct, 0, len(items))}
	for _, item := range items {
		p, ok := s.products[item.ProductID]
		if !ok {
			return order.WithItems{}, fmt.Errorf("order item %s product %s: %w", item.ID, item.ProductID, storage.ErrIntegrity)
		}
		out.OrderItems = append(out.OrderItems, order.ItemWithProduct{Item: item, Product: cloneProduct(p)})
	}
	return out, nil
}

// ReviewStore implementation --------------------------------------------------

func (s *Store) CreateReview(_ context.Context, r review.Review) (review.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[r.ProductID]; !ok {
		return review.Review{}, fmt.Errorf("product %s: %w", r.ProductID, storage.ErrNotFound)
	}
	if _, ok := s.orders[r.OrderID]; !ok {
		return review.Review{}, fmt.Errorf("order %s: %w", r.OrderID, storage.ErrNotFound)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now().UTC()

	s.reviews[r.ID] = r
	s.reviewSeq = append(s.reviewSeq, r.ID)
	return r, nil
}

func (s *Store) ListProductReviews(_ context.Context, productID string) ([]review.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]review.Review, 0)
	for i := len(s.reviewSeq) - 1; i >= 0; i-- {
		r := s.reviews[s.reviewSeq[i]]
		if r.ProductID == productID {
			result = append(result, r)
		}
	}
	return result, nil
}

// SessionStore implementation -------------------------------------------------

func (s *Store) CreateSession(_ context.Context, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return session.Session{}, fmt.Errorf("session: %w", storage.ErrNotFound)
	}
	return sess, nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// helpers ---------------------------------------------------------------------

func paginate[T any](items []T, limit, offset *int) []T {
	if offset != nil {
		if *offset >= len(items) {
			return items[:0]
		}
		items = items[*offset:]
	}
	if limit != nil && *limit < len(items) {
		items = items[:*limit]
	}
	return items
}

func cloneProduct(p product.Product) product.Product {
	p.Images = cloneStrings(p.Images)
	return p
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
